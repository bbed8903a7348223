package engagement

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// EventTracker applies one engagement event to a lead.
type EventTracker interface {
	TrackEmailEngagement(ctx context.Context, leadID string, ev Event) error
}

// Message is the wire form of an engagement event, shared by the webhook and
// the NATS consumer.
type Message struct {
	LeadID string `json:"lead_id"`
	Event  Event  `json:"event"`
}

// ErrInvalidMessage is returned for undecodable or incomplete messages.
var ErrInvalidMessage = eris.New("engagement: invalid message")

// DecodeMessage parses and validates a Message. Event names are
// case-insensitive.
func DecodeMessage(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return m, eris.Wrap(ErrInvalidMessage, err.Error())
	}
	m.LeadID = strings.TrimSpace(m.LeadID)
	m.Event = Event(strings.ToLower(strings.TrimSpace(string(m.Event))))
	if m.LeadID == "" {
		return m, eris.Wrap(ErrInvalidMessage, "lead_id is required")
	}
	if _, err := Points(m.Event); err != nil {
		return m, err
	}
	return m, nil
}

// Handle decodes data and applies it with t.
func Handle(ctx context.Context, t EventTracker, data []byte) error {
	m, err := DecodeMessage(data)
	if err != nil {
		return err
	}
	return t.TrackEmailEngagement(ctx, m.LeadID, m.Event)
}
