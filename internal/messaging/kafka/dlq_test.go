package kafka

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func dlqValue(t *testing.T, record any) []byte {
	t.Helper()

	payload, err := json.Marshal(record)
	require.NoError(t, err)

	value, err := json.Marshal(envelope{
		ID:            "outbox-7",
		AggregateType: AggregateOrder,
		AggregateID:   "10250",
		EventType:     string(EventTypeLineAdded),
		Payload:       payload,
		PublishedAt:   time.Date(2026, 4, 12, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return value
}

func TestDecodeDLQMessage(t *testing.T) {
	t.Parallel()

	value := dlqValue(t, map[string]any{
		"outbox_id":      "outbox-7",
		"aggregate_type": AggregateOrder,
		"aggregate_id":   "10250",
		"event_type":     string(EventTypeLineAdded),
		"payload":        json.RawMessage(`{"order_id":10250}`),
		"publish_error":  "kafka: client has run out of available brokers",
	})

	entry, err := DecodeDLQMessage(value)
	require.NoError(t, err)
	require.Equal(t, "outbox-7", entry.Message.ID)
	require.Equal(t, "10250", entry.Message.AggregateID)
	require.Equal(t, string(EventTypeLineAdded), entry.Message.EventType)
	require.JSONEq(t, `{"order_id":10250}`, string(entry.Message.Payload))
	require.Contains(t, entry.PublishError, "out of available brokers")
}

func TestDecodeDLQMessage_FallsBackToEnvelopeMetadata(t *testing.T) {
	t.Parallel()

	value := dlqValue(t, map[string]any{
		"payload": json.RawMessage(`{"order_id":10250}`),
	})

	entry, err := DecodeDLQMessage(value)
	require.NoError(t, err)
	require.Equal(t, "outbox-7", entry.Message.ID)
	require.Equal(t, AggregateOrder, entry.Message.AggregateType)
	require.Equal(t, "10250", entry.Message.AggregateID)
}

func TestDecodeDLQMessage_Errors(t *testing.T) {
	t.Parallel()

	t.Run("not json", func(t *testing.T) {
		_, err := DecodeDLQMessage([]byte("plain text"))
		require.True(t, errors.Is(err, ErrNotDLQMessage))
	})

	t.Run("empty payload", func(t *testing.T) {
		_, err := DecodeDLQMessage([]byte(`{"id":"x","payload":null}`))
		require.True(t, errors.Is(err, ErrNotDLQMessage))
	})

	t.Run("nested payload is not an object", func(t *testing.T) {
		_, err := DecodeDLQMessage([]byte(`{"id":"x","payload":"oops"}`))
		require.Error(t, err)
		require.False(t, errors.Is(err, ErrNotDLQMessage))
	})

	t.Run("original payload missing", func(t *testing.T) {
		_, err := DecodeDLQMessage(dlqValue(t, map[string]any{"outbox_id": "outbox-7"}))
		require.Error(t, err)
		require.Contains(t, err.Error(), "no original payload")
	})
}
