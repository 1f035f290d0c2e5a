package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/comptoirs/internal/domain"
)

func lineAdded() domain.OutboxMessage {
	return domain.OutboxMessage{
		ID:            "outbox-1",
		AggregateType: AggregateOrder,
		AggregateID:   "99999",
		EventType:     string(EventTypeLineAdded),
		Payload:       []byte(`{"order_id":99999}`),
	}
}

func TestOutboxPublisher_Publish(t *testing.T) {
	fixed := time.Date(2026, 4, 12, 10, 0, 0, 0, time.UTC)

	sp := mocks.NewSyncProducer(t, nil)
	sp.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		assert.Equal(t, TopicOrderEvents, msg.Topic)
		assert.Equal(t, map[string]string{
			HeaderOutboxID:      "outbox-1",
			HeaderEventType:     string(EventTypeLineAdded),
			HeaderAggregateType: AggregateOrder,
		}, headerMap(msg))

		raw, err := msg.Value.Encode()
		require.NoError(t, err)
		var got envelope
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, "99999", got.AggregateID)
		assert.JSONEq(t, `{"order_id":99999}`, string(got.Payload))
		assert.True(t, got.PublishedAt.Equal(fixed))
		return nil
	})

	publisher := NewOutboxPublisher(NewProducerFromSync(sp, nil), "")
	publisher.now = func() time.Time { return fixed }
	assert.Equal(t, TopicOrderEvents, publisher.topic)

	require.NoError(t, publisher.Publish(lineAdded()))
	require.NoError(t, sp.Close())
}

func TestOutboxPublisher_KeyFallsBackToID(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	sp.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		key, err := msg.Key.Encode()
		require.NoError(t, err)
		assert.Equal(t, "outbox-1", string(key))
		return nil
	})

	msg := lineAdded()
	msg.AggregateID = ""
	msg.Payload = nil
	require.NoError(t, NewOutboxPublisher(NewProducerFromSync(sp, nil), TopicDeadLetterQueue).Publish(msg))
	require.NoError(t, sp.Close())
}

func TestOutboxPublisher_Errors(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	sp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	publisher := NewOutboxPublisher(NewProducerFromSync(sp, nil), TopicOrderEvents)

	require.ErrorIs(t, publisher.Publish(lineAdded()), sarama.ErrOutOfBrokers)

	broken := lineAdded()
	broken.Payload = []byte(`{not json`)
	require.Error(t, publisher.Publish(broken))
	require.NoError(t, sp.Close())

	require.ErrorIs(t, NewOutboxPublisher(nil, "").Publish(lineAdded()), errPublisherNotInitialized)
}
