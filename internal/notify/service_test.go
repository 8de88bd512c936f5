package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kafkax "github.com/danisworo/go-commerce-api/internal/kafka"
	"github.com/danisworo/go-commerce-api/internal/orders"
)

type memDedup map[string]bool

func (d memDedup) Seen(ctx context.Context, eventID string) bool {
	if d[eventID] {
		return true
	}
	d[eventID] = true
	return false
}

func placedMessage(t *testing.T, eventID string) kafkago.Message {
	t.Helper()
	env := orders.Envelope{
		EventID:       eventID,
		EventType:     orders.EventOrderPlaced,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      "shop-api",
		CorrelationID: "o1",
		Payload: kafkax.MustMarshal(orders.OrderPlacedPayload{
			OrderID: "o1",
			UserID:  "u1",
			Items:   []orders.LineItem{{ProductID: "p1", Qty: 2}},
		}),
	}
	return kafkago.Message{Key: orders.PartitionKey("o1"), Value: kafkax.MustMarshal(env)}
}

func TestHandleOrderPlaced(t *testing.T) {
	svc := &Service{Dedup: memDedup{}, Log: zerolog.Nop()}
	require.NoError(t, svc.HandleOrderPlaced(context.Background(), placedMessage(t, "ev1")))
}

func TestHandleOrderPlacedDedup(t *testing.T) {
	dedup := memDedup{}
	svc := &Service{Dedup: dedup, Log: zerolog.Nop()}

	require.NoError(t, svc.HandleOrderPlaced(context.Background(), placedMessage(t, "ev1")))
	assert.True(t, dedup["ev1"])
	// re-delivery is swallowed without error
	require.NoError(t, svc.HandleOrderPlaced(context.Background(), placedMessage(t, "ev1")))
}

func TestHandleIgnoresOtherEventTypes(t *testing.T) {
	dedup := memDedup{}
	svc := &Service{Dedup: dedup, Log: zerolog.Nop()}

	env := orders.Envelope{EventID: "ev2", EventType: "SomethingElse", Payload: json.RawMessage(`{}`)}
	m := kafkago.Message{Value: kafkax.MustMarshal(env)}
	require.NoError(t, svc.HandleOrderPlaced(context.Background(), m))
	assert.False(t, dedup["ev2"])
}

func TestHandleRejectsGarbage(t *testing.T) {
	svc := &Service{Dedup: memDedup{}, Log: zerolog.Nop()}
	err := svc.HandleOrderPlaced(context.Background(), kafkago.Message{Value: []byte("{nope")})
	assert.Error(t, err)
}
