package idempotency

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/vladislavdragonenkov/comptoirs/internal/domain"
	"github.com/vladislavdragonenkov/comptoirs/internal/metrics"
	"github.com/vladislavdragonenkov/comptoirs/internal/storage/memory"
)

const addLine = "/comptoirs.v1.OrderService/AddLine"

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newPurger(repo domain.IdempotencyRepository, cfg Config) *Purger {
	cfg.Metrics = metrics.NewCleanupMetrics(prometheus.NewRegistry())
	return NewPurger(repo, cfg)
}

func TestSweep_MemoryRepository(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewIdempotencyRepository()
	now := time.Date(2026, 4, 12, 12, 0, 0, 0, time.UTC)

	for i := range 5 {
		scope := domain.IdempotencyScope{Method: addLine, Key: fmt.Sprintf("expired-%d", i)}
		_, err := repo.Claim(ctx, scope, "hash", now.Add(-time.Duration(i+1)*time.Minute))
		require.NoError(t, err)
	}
	alive := domain.IdempotencyScope{Method: addLine, Key: "alive"}
	_, err := repo.Claim(ctx, alive, "hash", now.Add(time.Hour))
	require.NoError(t, err)

	purged, err := newPurger(repo, Config{BatchSize: 2}).Sweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 5, purged)

	_, err = repo.Find(ctx, alive)
	require.NoError(t, err)
	_, err = repo.Find(ctx, domain.IdempotencyScope{Method: addLine, Key: "expired-0"})
	assert.ErrorIs(t, err, domain.ErrIdempotencyUnknownKey)
}

func TestSweep_StopsOnShortBatch(t *testing.T) {
	repo := &scriptedRepo{batches: []int{3, 3, 1, 3}}

	purged, err := newPurger(repo, Config{BatchSize: 3}).Sweep(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 7, purged)
	assert.Equal(t, 3, repo.callCount())
}

func TestSweep_ReportsProgressOnError(t *testing.T) {
	repo := &scriptedRepo{batches: []int{4}, failAt: 2, failure: errors.New("connection reset")}

	purged, err := newPurger(repo, Config{BatchSize: 4}).Sweep(context.Background(), time.Now())
	require.Error(t, err)
	assert.Equal(t, 4, purged)
}

func TestSweep_CanceledContext(t *testing.T) {
	repo := &scriptedRepo{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newPurger(repo, Config{}).Sweep(ctx, time.Now())
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, repo.callCount())
}

func TestRun_StopsOnCancel(t *testing.T) {
	repo := &scriptedRepo{}
	p := newPurger(repo, Config{Interval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return repo.callCount() >= 2 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("purger did not stop after cancel")
	}
}

func TestRun_NilRepository(t *testing.T) {
	require.NoError(t, newPurger(nil, Config{}).Run(context.Background()))
}

// scriptedRepo отдаёт заранее заданные размеры порций.
type scriptedRepo struct {
	mu      sync.Mutex
	batches []int
	failAt  int
	failure error
	calls   int
}

func (s *scriptedRepo) Claim(context.Context, domain.IdempotencyScope, string, time.Time) (domain.IdempotencyRecord, error) {
	panic("unexpected Claim")
}

func (s *scriptedRepo) Find(context.Context, domain.IdempotencyScope) (domain.IdempotencyRecord, error) {
	panic("unexpected Find")
}

func (s *scriptedRepo) Resolve(context.Context, domain.IdempotencyScope, domain.IdempotencyStatus, domain.IdempotencyOutcome) error {
	panic("unexpected Resolve")
}

func (s *scriptedRepo) PurgeExpired(context.Context, time.Time, int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if s.failAt > 0 && s.calls == s.failAt {
		return 0, s.failure
	}
	if len(s.batches) == 0 {
		return 0, nil
	}
	n := s.batches[0]
	s.batches = s.batches[1:]
	return n, nil
}

func (s *scriptedRepo) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
