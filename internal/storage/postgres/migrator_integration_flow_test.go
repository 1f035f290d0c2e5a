package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrator_PostgresStepsAndDrift(t *testing.T) {
	store := openRawPostgresStoreForIntegrationTest(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	require.NoError(t, store.MigrateDown(ctx, 100), "reset")

	steps := []struct {
		name        string
		run         func() error
		wantVersion int64
		wantPending int
	}{
		{"one up", func() error { return store.MigrateUp(ctx, 1) }, 1, 2},
		{"rest up", func() error { return store.MigrateUp(ctx, 0) }, 3, 0},
		{"repeated up", func() error { return store.MigrateUp(ctx, 0) }, 3, 0},
		{"default down", func() error { return store.MigrateDown(ctx, 0) }, 2, 1},
		{"down past start", func() error { return store.MigrateDown(ctx, 5) }, 0, 3},
		{"down on empty", func() error { return store.MigrateDown(ctx, 1) }, 0, 3},
		{"ensure schema", func() error { return store.EnsureSchema(ctx) }, 3, 0},
	}
	for _, step := range steps {
		require.NoError(t, step.run(), step.name)
		state, err := store.MigrationStatus(ctx)
		require.NoError(t, err, step.name)
		assert.Equal(t, step.wantVersion, state.Version, step.name)
		assert.Equal(t, int(step.wantVersion), state.Applied, step.name)
		assert.Len(t, state.Pending, step.wantPending, step.name)
		assert.Empty(t, state.Drifted, step.name)
	}

	_, err := store.DB().ExecContext(ctx, `UPDATE schema_migrations SET checksum = 'edited' WHERE version = 2`)
	require.NoError(t, err)
	state, err := store.MigrationStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"0002_orders"}, state.Drifted)
}

func TestMigrator_NilStore(t *testing.T) {
	var store *Store
	ctx := context.Background()

	require.ErrorIs(t, store.MigrateUp(ctx, 0), errStoreNotInitialized)
	require.ErrorIs(t, store.MigrateDown(ctx, 1), errStoreNotInitialized)
	_, err := store.MigrationStatus(ctx)
	require.ErrorIs(t, err, errStoreNotInitialized)
}
