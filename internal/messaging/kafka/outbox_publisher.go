package kafka

import (
	"encoding/json"
	"time"

	"github.com/go-faster/errors"

	"github.com/vladislavdragonenkov/comptoirs/internal/domain"
)

// Заголовки, по которым потребители маршрутизируют сообщения без разбора тела.
const (
	HeaderOutboxID      = "outbox-id"
	HeaderEventType     = "event-type"
	HeaderAggregateType = "aggregate-type"
)

var errPublisherNotInitialized = errors.New("kafka outbox publisher is not initialized")

// envelope: тело сообщения в topic: метаданные outbox и исходный payload.
type envelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

// OutboxTopicPublisher отправляет сообщения outbox в один topic. Ключ
// партиционирования: номер заказа, поэтому события заказа упорядочены.
type OutboxTopicPublisher struct {
	producer *Producer
	topic    string
	now      func() time.Time
}

// NewOutboxPublisher создаёт паблишер; пустой topic заменяется на TopicOrderEvents.
func NewOutboxPublisher(producer *Producer, topic string) *OutboxTopicPublisher {
	if topic == "" {
		topic = TopicOrderEvents
	}
	return &OutboxTopicPublisher{
		producer: producer,
		topic:    topic,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (p *OutboxTopicPublisher) Publish(msg domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return errPublisherNotInitialized
	}

	payload := json.RawMessage(msg.Payload)
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	body, err := json.Marshal(envelope{
		ID:            msg.ID,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID,
		EventType:     msg.EventType,
		Payload:       payload,
		PublishedAt:   p.now(),
	})
	if err != nil {
		return errors.Wrapf(err, "encode outbox %s", msg.ID)
	}

	key := msg.AggregateID
	if key == "" {
		key = msg.ID
	}
	return p.producer.Send(Record{
		Topic: p.topic,
		Key:   key,
		Value: body,
		Headers: map[string]string{
			HeaderOutboxID:      msg.ID,
			HeaderEventType:     msg.EventType,
			HeaderAggregateType: msg.AggregateType,
		},
	})
}

var _ domain.OutboxPublisher = (*OutboxTopicPublisher)(nil)
