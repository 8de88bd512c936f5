package notify

import (
	"context"

	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/danisworo/go-commerce-api/internal/kafka"
	"github.com/danisworo/go-commerce-api/internal/orders"
)

// Deduper reports whether an event id was already handled, marking it on
// first sight.
type Deduper interface {
	Seen(ctx context.Context, eventID string) bool
}

// Service is the admin-notification sink for placed orders. It runs outside
// the order transaction; a failure here never affects the order that
// triggered it.
type Service struct {
	Dedup Deduper
	Log   zerolog.Logger
}

// HandleOrderPlaced is plugged into the consumer worker pool.
func (s *Service) HandleOrderPlaced(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := kafkax.UnmarshalEnvelope(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventOrderPlaced {
		return nil // ignore
	}
	if s.Dedup != nil && s.Dedup.Seen(ctx, env.EventID) {
		return nil
	}

	p, err := kafkax.UnwrapPayload[orders.OrderPlacedPayload](env.Payload)
	if err != nil {
		return err
	}

	units := 0
	for _, it := range p.Items {
		units += it.Qty
	}
	s.Log.Info().
		Str("event_id", env.EventID).
		Str("order_id", p.OrderID).
		Str("user_id", p.UserID).
		Int("items", len(p.Items)).
		Int("units", units).
		Str("trace_id", env.TraceID).
		Msg("order placed, admin notified")
	return nil
}
