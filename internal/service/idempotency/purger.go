// Package idempotency периодически вычищает просроченные заявки идемпотентности.
package idempotency

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/comptoirs/internal/domain"
	"github.com/vladislavdragonenkov/comptoirs/internal/metrics"
)

// Config: параметры Purger. Нулевые значения заменяются умолчаниями.
type Config struct {
	Interval  time.Duration
	BatchSize int
	Logger    *log.Entry
	Metrics   *metrics.CleanupMetrics
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = time.Minute
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 500
	}
	if c.Logger == nil {
		c.Logger = log.WithField("component", "idempotency-purger")
	}
	if c.Metrics == nil {
		c.Metrics = metrics.NewCleanupMetrics(nil)
	}
	return c
}

// Purger удаляет заявки, срок хранения которых истёк.
type Purger struct {
	repo domain.IdempotencyRepository
	cfg  Config
	now  func() time.Time
}

func NewPurger(repo domain.IdempotencyRepository, cfg Config) *Purger {
	return &Purger{
		repo: repo,
		cfg:  cfg.withDefaults(),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Run выполняет Sweep сразу и затем раз в Interval, пока ctx не отменён.
func (p *Purger) Run(ctx context.Context) error {
	if p.repo == nil {
		p.cfg.Logger.Warn("idempotency purger disabled: no repository")
		return nil
	}

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		p.tick(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (p *Purger) tick(ctx context.Context) {
	purged, err := p.Sweep(ctx, p.now())
	switch {
	case errors.Is(err, context.Canceled):
		return
	case err != nil:
		p.cfg.Metrics.RecordRun("error")
		p.cfg.Logger.WithError(err).WithField("purged", purged).Warn("idempotency purge failed")
		return
	}

	p.cfg.Metrics.RecordRun("ok")
	p.cfg.Metrics.SetLastDeleted(purged)
	if purged > 0 {
		p.cfg.Logger.WithField("purged", purged).Debug("expired idempotency claims purged")
	}
}

// Sweep удаляет заявки с ExpiresAt <= before порциями по BatchSize и
// возвращает их общее число. При ошибке возвращается уже удалённое количество.
func (p *Purger) Sweep(ctx context.Context, before time.Time) (int, error) {
	total := 0
	for ctx.Err() == nil {
		n, err := p.repo.PurgeExpired(ctx, before, p.cfg.BatchSize)
		total += n
		if n > 0 {
			p.cfg.Metrics.AddDeleted(n)
		}
		if err != nil || n < p.cfg.BatchSize {
			return total, err
		}
	}
	return total, ctx.Err()
}
