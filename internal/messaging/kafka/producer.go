package kafka

import (
	"time"

	"github.com/IBM/sarama"
	"github.com/go-faster/errors"
	log "github.com/sirupsen/logrus"
)

// Record: одно сообщение для отправки. Headers попадают в заголовки Kafka.
type Record struct {
	Topic   string
	Key     string
	Value   []byte
	Headers map[string]string
}

func (r Record) message(now time.Time) *sarama.ProducerMessage {
	msg := &sarama.ProducerMessage{
		Topic:     r.Topic,
		Key:       sarama.StringEncoder(r.Key),
		Value:     sarama.ByteEncoder(r.Value),
		Timestamp: now,
	}
	for k, v := range r.Headers {
		msg.Headers = append(msg.Headers, sarama.RecordHeader{Key: []byte(k), Value: []byte(v)})
	}
	return msg
}

// Producer: синхронный отправитель с подтверждением от всех реплик.
type Producer struct {
	sync   sarama.SyncProducer
	logger *log.Entry
	now    func() time.Time
}

// producerConfig: идемпотентный продюсер: acks=all, один запрос в полёте.
func producerConfig(clientID string) *sarama.Config {
	cfg := sarama.NewConfig()
	if clientID != "" {
		cfg.ClientID = clientID
	}
	cfg.Producer.Idempotent = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Return.Successes = true
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Compression = sarama.CompressionSnappy
	cfg.Net.MaxOpenRequests = 1
	return cfg
}

func NewProducer(brokers []string, clientID string) (*Producer, error) {
	sp, err := sarama.NewSyncProducer(brokers, producerConfig(clientID))
	if err != nil {
		return nil, errors.Wrap(err, "create kafka producer")
	}
	return NewProducerFromSync(sp, nil), nil
}

// NewProducerFromSync оборачивает готовый SyncProducer, например из sarama/mocks.
func NewProducerFromSync(sp sarama.SyncProducer, logger *log.Entry) *Producer {
	if logger == nil {
		logger = log.WithField("component", "kafka-producer")
	}
	return &Producer{sync: sp, logger: logger, now: time.Now}
}

// Send отправляет запись и ждёт подтверждения брокера.
func (p *Producer) Send(r Record) error {
	fields := log.Fields{"topic": r.Topic, "key": r.Key}

	partition, offset, err := p.sync.SendMessage(r.message(p.now()))
	if err != nil {
		p.logger.WithError(err).WithFields(fields).Warn("kafka send failed")
		return errors.Wrapf(err, "send to %s", r.Topic)
	}
	p.logger.WithFields(fields).WithFields(log.Fields{
		"partition": partition,
		"offset":    offset,
	}).Debug("kafka record acknowledged")
	return nil
}

func (p *Producer) Close() error {
	if err := p.sync.Close(); err != nil {
		return errors.Wrap(err, "close kafka producer")
	}
	return nil
}
