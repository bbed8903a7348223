// Package segment holds the pure scoring policy that maps a qualification
// score to a segment, and a segment to channel, deal value and close date.
package segment

import (
	"math"
	"time"

	"github.com/sells-group/leadflow/internal/model"
)

const (
	hotThreshold  = 75
	warmThreshold = 50
)

// ForScore maps a qualification score to its segment.
func ForScore(score int) model.Segment {
	switch {
	case score >= hotThreshold:
		return model.SegmentHot
	case score >= warmThreshold:
		return model.SegmentWarm
	default:
		return model.SegmentCold
	}
}

// Channel recommends an outreach channel. Hot leads with a phone get a call,
// warm leads get both, everyone else gets email.
func Channel(seg model.Segment, hasPhone bool) model.Channel {
	switch {
	case seg == model.SegmentHot && hasPhone:
		return model.ChannelVoice
	case seg == model.SegmentWarm:
		return model.ChannelBoth
	default:
		return model.ChannelEmail
	}
}

// SizeBase is the base deal value for a company of the given employee count.
func SizeBase(employees int) float64 {
	switch {
	case employees > 500:
		return 20000
	case employees > 100:
		return 12000
	case employees > 50:
		return 8000
	default:
		return 5000
	}
}

// Multiplier scales the size base by segment.
func Multiplier(seg model.Segment) float64 {
	switch seg {
	case model.SegmentHot:
		return 1.5
	case model.SegmentWarm:
		return 1.0
	default:
		return 0.7
	}
}

// DealValue estimates the deal value for a lead.
func DealValue(employees int, seg model.Segment) float64 {
	return SizeBase(employees) * Multiplier(seg)
}

// CloseDays is the expected number of days to close for a segment.
func CloseDays(seg model.Segment) int {
	switch seg {
	case model.SegmentHot:
		return 30
	case model.SegmentWarm:
		return 60
	default:
		return 90
	}
}

// CloseDate estimates when a lead of the given segment closes.
func CloseDate(now time.Time, seg model.Segment) time.Time {
	return now.AddDate(0, 0, CloseDays(seg))
}

// ClampScore rounds a model-reported score and bounds it to [0,100]. The
// bound is applied before the int conversion so huge values cannot
// overflow. NaN maps to 0.
func ClampScore(score float64) int {
	if math.IsNaN(score) {
		return 0
	}
	return int(math.Max(0, math.Min(100, math.Round(score))))
}
