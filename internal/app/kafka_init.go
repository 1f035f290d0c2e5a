package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/comptoirs/internal/domain"
	"github.com/vladislavdragonenkov/comptoirs/internal/messaging/kafka"
)

// publishers: куда outbox-воркер отправляет сообщения.
type publishers struct {
	events domain.OutboxPublisher
	dlq    domain.OutboxPublisher
	close  func()
}

// initPublishers подключает Kafka, если заданы брокеры. Без Kafka или при
// ошибке подключения сообщения уходят в лог, чтобы outbox не копился.
func initPublishers(cfg KafkaConfig, logger *log.Entry) publishers {
	fallback := publishers{events: logPublisher{logger: logger.WithField("component", "outbox-log")}, close: func() {}}
	if len(cfg.Brokers) == 0 {
		logger.Info("kafka brokers are not configured, outbox messages go to the log")
		return fallback
	}

	producer, err := kafka.NewProducer(cfg.Brokers, cfg.ClientID)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return fallback
	}
	logger.WithField("brokers", cfg.Brokers).Info("kafka producer initialized")

	return publishers{
		events: kafka.NewOutboxPublisher(producer, cfg.Topic),
		dlq:    kafka.NewOutboxPublisher(producer, cfg.DLQTopic),
		close:  func() { closeKafka(producer, logger) },
	}
}

func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}
	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
		return
	}
	logger.Info("kafka producer closed")
}

// logPublisher «публикует» сообщение записью в лог.
type logPublisher struct {
	logger *log.Entry
}

func (p logPublisher) Publish(event domain.OutboxMessage) error {
	p.logger.WithFields(log.Fields{
		"outbox_id":    event.ID,
		"event_type":   event.EventType,
		"aggregate_id": event.AggregateID,
	}).Debug("outbox message")
	return nil
}
