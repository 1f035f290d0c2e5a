package kafka

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/vladislavdragonenkov/comptoirs/internal/domain"
)

// ErrNotDLQMessage: сообщение не похоже на запись DLQ outbox и пропускается.
var ErrNotDLQMessage = errors.New("message is not an outbox dlq record")

// dlqRecord повторяет формат, который outbox worker кладёт в payload DLQ-сообщения.
type dlqRecord struct {
	OutboxID      string          `json:"outbox_id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishError  string          `json:"publish_error"`
}

// DLQEntry: исходное outbox-сообщение, извлечённое из DLQ, и причина его отказа.
type DLQEntry struct {
	Message      domain.OutboxMessage
	PublishError string
}

// DecodeDLQMessage разбирает значение из DLQ topic: конверт outbox с вложенной
// записью DLQ. Возвращает ErrNotDLQMessage, если конверт не распознан.
func DecodeDLQMessage(value []byte) (DLQEntry, error) {
	var env envelope
	if err := json.Unmarshal(value, &env); err != nil || len(env.Payload) == 0 || string(env.Payload) == "null" {
		return DLQEntry{}, ErrNotDLQMessage
	}

	var record dlqRecord
	if err := json.Unmarshal(env.Payload, &record); err != nil {
		return DLQEntry{}, fmt.Errorf("decode dlq record: %w", err)
	}
	if len(record.Payload) == 0 {
		return DLQEntry{}, fmt.Errorf("dlq record %s has no original payload", firstNonEmpty(record.OutboxID, env.ID))
	}

	return DLQEntry{
		Message: domain.OutboxMessage{
			ID:            firstNonEmpty(record.OutboxID, env.ID),
			AggregateType: firstNonEmpty(record.AggregateType, env.AggregateType),
			AggregateID:   firstNonEmpty(record.AggregateID, env.AggregateID),
			EventType:     firstNonEmpty(record.EventType, env.EventType),
			Payload:       []byte(record.Payload),
		},
		PublishError: record.PublishError,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
