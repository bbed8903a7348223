package segment

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/leadflow/internal/model"
)

func TestForScore_AllScores(t *testing.T) {
	t.Parallel()

	for s := 0; s <= 100; s++ {
		got := ForScore(s)
		switch {
		case s >= 75:
			assert.Equal(t, model.SegmentHot, got, "score %d", s)
		case s >= 50:
			assert.Equal(t, model.SegmentWarm, got, "score %d", s)
		default:
			assert.Equal(t, model.SegmentCold, got, "score %d", s)
		}
	}
}

func TestForScore_Boundaries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		score int
		want  model.Segment
	}{
		{49, model.SegmentCold},
		{50, model.SegmentWarm},
		{74, model.SegmentWarm},
		{75, model.SegmentHot},
		{100, model.SegmentHot},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ForScore(tt.score), "score %d", tt.score)
	}
}

func TestChannel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		seg      model.Segment
		hasPhone bool
		want     model.Channel
	}{
		{model.SegmentHot, true, model.ChannelVoice},
		{model.SegmentHot, false, model.ChannelEmail},
		{model.SegmentWarm, true, model.ChannelBoth},
		{model.SegmentWarm, false, model.ChannelBoth},
		{model.SegmentCold, true, model.ChannelEmail},
		{model.SegmentCold, false, model.ChannelEmail},
	}
	for _, tt := range tests {
		t.Run(string(tt.seg), func(t *testing.T) {
			assert.Equal(t, tt.want, Channel(tt.seg, tt.hasPhone))
		})
	}
}

func TestDealValue(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 30000, DealValue(501, model.SegmentHot), 0.001)
	assert.InDelta(t, 12000, DealValue(101, model.SegmentWarm), 0.001)
	assert.InDelta(t, 5600, DealValue(51, model.SegmentCold), 0.001)
	assert.InDelta(t, 3500, DealValue(10, model.SegmentCold), 0.001)
	assert.InDelta(t, 5000, DealValue(50, model.SegmentWarm), 0.001)
}

func TestDealValue_Monotone(t *testing.T) {
	t.Parallel()

	tiers := []int{10, 51, 101, 501}
	segments := []model.Segment{model.SegmentCold, model.SegmentWarm, model.SegmentHot}

	for _, seg := range segments {
		for i := 1; i < len(tiers); i++ {
			assert.GreaterOrEqual(t, DealValue(tiers[i], seg), DealValue(tiers[i-1], seg),
				"segment %s tier %d vs %d", seg, tiers[i], tiers[i-1])
		}
	}
	for _, emp := range tiers {
		for i := 1; i < len(segments); i++ {
			assert.GreaterOrEqual(t, DealValue(emp, segments[i]), DealValue(emp, segments[i-1]),
				"employees %d segment %s vs %s", emp, segments[i], segments[i-1])
		}
	}
}

func TestCloseDate(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, now.AddDate(0, 0, 30), CloseDate(now, model.SegmentHot))
	assert.Equal(t, now.AddDate(0, 0, 60), CloseDate(now, model.SegmentWarm))
	assert.Equal(t, now.AddDate(0, 0, 90), CloseDate(now, model.SegmentCold))
}

func TestClampScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   float64
		want int
	}{
		{-5, 0},
		{42, 42},
		{180, 100},
		{74.5, 75},
		{49.4, 49},
		{1e20, 100},
		{-1e20, 0},
		{math.Inf(1), 100},
		{math.Inf(-1), 0},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampScore(tt.in), "%v", tt.in)
	}
}
