package engagement

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const defaultHandleTimeout = 10 * time.Second

// Subscriber consumes engagement events from a NATS subject. Members of the
// same queue group share the stream of events.
type Subscriber struct {
	tracker EventTracker
	timeout time.Duration
	sub     *nats.Subscription
}

// NewSubscriber creates a Subscriber. timeout bounds each event; zero uses
// the default.
func NewSubscriber(t EventTracker, timeout time.Duration) *Subscriber {
	if timeout <= 0 {
		timeout = defaultHandleTimeout
	}
	return &Subscriber{tracker: t, timeout: timeout}
}

// Start subscribes to subject in queue group queue.
func (s *Subscriber) Start(nc *nats.Conn, subject, queue string) error {
	sub, err := nc.QueueSubscribe(subject, queue, s.onMessage)
	if err != nil {
		return eris.Wrapf(err, "engagement: subscribe %s", subject)
	}
	s.sub = sub
	zap.L().Info("engagement: consuming events",
		zap.String("subject", subject),
		zap.String("queue", queue),
	)
	return nil
}

// Stop drains the subscription so in-flight events finish.
func (s *Subscriber) Stop() error {
	if s.sub == nil {
		return nil
	}
	return eris.Wrap(s.sub.Drain(), "engagement: drain subscription")
}

func (s *Subscriber) onMessage(msg *nats.Msg) {
	if err := s.handle(msg.Data); err != nil {
		zap.L().Warn("engagement: event rejected",
			zap.String("subject", msg.Subject),
			zap.Error(err),
		)
		return
	}
	if msg.Reply != "" {
		_ = msg.Respond([]byte(`{"status":"ok"}`))
	}
}

func (s *Subscriber) handle(data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return Handle(ctx, s.tracker, data)
}
