// Package outbox переносит сообщения transactional outbox в брокер.
package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-faster/errors"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/comptoirs/internal/domain"
	"github.com/vladislavdragonenkov/comptoirs/internal/metrics"
)

// Исходы публикации в метриках.
const (
	resultSent       = "sent"
	resultRetryError = "retry_error"
	resultFailed     = "failed"
	resultDLQFailed  = "dlq_failed"
	resultDeferred   = "deferred"
)

// maxRetryDelay ограничивает рост паузы между попытками.
const maxRetryDelay = 5 * time.Second

// Config: параметры Worker. Нулевые значения заменяются умолчаниями.
type Config struct {
	PollInterval time.Duration
	BatchSize    int
	// MaxAttempts: число попыток публикации одного сообщения за проход.
	MaxAttempts int
	// RetryDelay: пауза перед второй попыткой; далее удваивается. 0: без пауз.
	RetryDelay time.Duration
	// DLQ получает сообщения, исчерпавшие попытки. nil: только статус failed.
	DLQ     domain.OutboxPublisher
	Logger  *log.Entry
	Metrics *metrics.OutboxMetrics
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	c.RetryDelay = max(c.RetryDelay, 0)
	if c.Logger == nil {
		c.Logger = log.WithField("component", "outbox-worker")
	}
	if c.Metrics == nil {
		c.Metrics = metrics.NewOutboxMetrics(nil)
	}
	return c
}

// Worker публикует ожидающие сообщения. Сообщения одного агрегата уходят
// в порядке записи: после неудачи остаток агрегата в партии откладывается.
type Worker struct {
	repo      domain.OutboxRepository
	publisher domain.OutboxPublisher
	cfg       Config
	now       func() time.Time
}

// dlqMessage: тело сообщения в DLQ.
type dlqMessage struct {
	OutboxID       string          `json:"outbox_id"`
	AggregateType  string          `json:"aggregate_type"`
	AggregateID    string          `json:"aggregate_id"`
	EventType      string          `json:"event_type"`
	Payload        json.RawMessage `json:"payload"`
	PublishError   string          `json:"publish_error"`
	DLQPublishedAt time.Time       `json:"dlq_published_at"`
}

func NewWorker(repo domain.OutboxRepository, publisher domain.OutboxPublisher, cfg Config) *Worker {
	return &Worker{
		repo:      repo,
		publisher: publisher,
		cfg:       cfg.withDefaults(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run опрашивает outbox раз в PollInterval до отмены ctx.
func (w *Worker) Run(ctx context.Context) error {
	if w.repo == nil || w.publisher == nil {
		w.cfg.Logger.Warn("outbox worker disabled: no repository or publisher")
		return nil
	}

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		w.ProcessOnce(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// ProcessOnce обрабатывает одну партию и возвращает число опубликованных сообщений.
func (w *Worker) ProcessOnce(ctx context.Context) int {
	if ctx.Err() != nil {
		return 0
	}
	defer w.observeBacklog(ctx)

	batch, err := w.repo.PullPending(ctx, w.cfg.BatchSize)
	if err != nil {
		w.cfg.Logger.WithError(err).Warn("pull pending outbox messages")
		return 0
	}

	blocked := make(map[string]struct{})
	sent := 0
	for _, msg := range batch {
		if ctx.Err() != nil {
			break
		}
		if _, stop := blocked[msg.AggregateID]; stop && msg.AggregateID != "" {
			w.cfg.Metrics.RecordPublish(resultDeferred)
			continue
		}
		if w.deliver(ctx, msg) {
			sent++
			continue
		}
		blocked[msg.AggregateID] = struct{}{}
	}
	return sent
}

// deliver публикует сообщение с повторами и фиксирует итог в репозитории.
func (w *Worker) deliver(ctx context.Context, msg domain.OutboxMessage) bool {
	logger := w.cfg.Logger.WithFields(log.Fields{
		"outbox_id":    msg.ID,
		"event_type":   msg.EventType,
		"aggregate_id": msg.AggregateID,
	})

	err := backoff.Retry(func() error {
		if err := w.publisher.Publish(msg); err != nil {
			w.cfg.Metrics.RecordPublish(resultRetryError)
			return err
		}
		return nil
	}, backoff.WithContext(w.retryPolicy(), ctx))

	switch {
	case err == nil:
		w.cfg.Metrics.RecordPublish(resultSent)
		if markErr := w.repo.MarkSent(ctx, msg.ID); markErr != nil {
			logger.WithError(markErr).Warn("mark outbox message sent")
		}
		return true
	case ctx.Err() != nil:
		return false
	}

	logger.WithError(err).WithField("attempts", w.cfg.MaxAttempts).Error("outbox message undeliverable")
	w.cfg.Metrics.RecordPublish(resultFailed)
	if dlqErr := w.deadLetter(msg, err); dlqErr != nil {
		logger.WithError(dlqErr).Warn("dead-letter outbox message")
		w.cfg.Metrics.RecordPublish(resultDLQFailed)
	}
	if markErr := w.repo.MarkFailed(ctx, msg.ID); markErr != nil {
		logger.WithError(markErr).Warn("mark outbox message failed")
	}
	return false
}

// retryPolicy: не более MaxAttempts вызовов, паузы RetryDelay, 2*RetryDelay, ...
func (w *Worker) retryPolicy() backoff.BackOff {
	var policy backoff.BackOff = &backoff.ZeroBackOff{}
	if w.cfg.RetryDelay > 0 {
		exp := &backoff.ExponentialBackOff{
			InitialInterval:     w.cfg.RetryDelay,
			RandomizationFactor: 0,
			Multiplier:          2,
			MaxInterval:         max(maxRetryDelay, w.cfg.RetryDelay),
			Stop:                backoff.Stop,
			Clock:               backoff.SystemClock,
		}
		exp.Reset()
		policy = exp
	}
	return backoff.WithMaxRetries(policy, uint64(w.cfg.MaxAttempts-1)) //nolint:gosec // MaxAttempts >= 1.
}

func (w *Worker) deadLetter(msg domain.OutboxMessage, cause error) error {
	if w.cfg.DLQ == nil {
		return nil
	}

	payload := json.RawMessage(msg.Payload)
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	body, err := json.Marshal(dlqMessage{
		OutboxID:       msg.ID,
		AggregateType:  msg.AggregateType,
		AggregateID:    msg.AggregateID,
		EventType:      msg.EventType,
		Payload:        payload,
		PublishError:   cause.Error(),
		DLQPublishedAt: w.now(),
	})
	if err != nil {
		return errors.Wrap(err, "encode dlq message")
	}

	dead := msg
	dead.Payload = body
	return w.cfg.DLQ.Publish(dead)
}

func (w *Worker) observeBacklog(ctx context.Context) {
	stats, err := w.repo.Stats(ctx)
	if err != nil {
		w.cfg.Logger.WithError(err).Debug("outbox backlog stats")
		return
	}
	var age time.Duration
	if stats.PendingCount > 0 && !stats.OldestPendingAt.IsZero() {
		age = w.now().Sub(stats.OldestPendingAt)
	}
	w.cfg.Metrics.SetBacklog(stats.PendingCount, age)
}
