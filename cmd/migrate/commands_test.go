package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/comptoirs/internal/storage/postgres"
)

type fakeStore struct {
	upSteps   []int
	downSteps []int
	state     postgres.MigrationState
	err       error
	closed    bool
}

func (f *fakeStore) MigrateUp(_ context.Context, steps int) error {
	f.upSteps = append(f.upSteps, steps)
	return f.err
}

func (f *fakeStore) MigrateDown(_ context.Context, steps int) error {
	f.downSteps = append(f.downSteps, steps)
	return f.err
}

func (f *fakeStore) MigrationStatus(context.Context) (postgres.MigrationState, error) {
	return f.state, nil
}

func (f *fakeStore) Close() error {
	f.closed = true
	return nil
}

func execute(t *testing.T, store *fakeStore, args ...string) (string, string, error) {
	t.Helper()

	var gotDSN string
	cmd := newRootCmdWith(func(_ context.Context, dsn string) (migrator, error) {
		gotDSN = dsn
		return store, nil
	})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), gotDSN, err
}

func TestUp(t *testing.T) {
	store := &fakeStore{state: postgres.MigrationState{Version: 3, Applied: 3}}

	out, dsn, err := execute(t, store, "up", "--dsn", "postgres://flag")
	require.NoError(t, err)
	assert.Equal(t, "postgres://flag", dsn)
	assert.Equal(t, []int{0}, store.upSteps)
	assert.Contains(t, out, "migrate up ok: version=3 applied=3 pending=0")
	assert.True(t, store.closed)
}

func TestDown_DefaultsToOneStep(t *testing.T) {
	store := &fakeStore{}

	_, _, err := execute(t, store, "down", "--dsn", "postgres://flag")
	require.NoError(t, err)
	assert.Equal(t, []int{1}, store.downSteps)

	_, _, err = execute(t, store, "down", "--dsn", "postgres://flag", "--steps", "3")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, store.downSteps)
}

func TestStatus_ListsPending(t *testing.T) {
	store := &fakeStore{state: postgres.MigrationState{
		Version: 1,
		Applied: 1,
		Pending: []string{"0002_orders"},
		Drifted: []string{"0001_catalog"},
	}}

	out, _, err := execute(t, store, "status", "--dsn", "postgres://flag")
	require.NoError(t, err)
	assert.Contains(t, out, "pending=1")
	assert.Contains(t, out, "pending 0002_orders")
	assert.Contains(t, out, "drifted 0001_catalog")
}

func TestDSNFallsBackToEnv(t *testing.T) {
	t.Setenv(envPostgresDSN, " postgres://env ")

	_, dsn, err := execute(t, &fakeStore{}, "status")
	require.NoError(t, err)
	assert.Equal(t, "postgres://env", dsn)
}

func TestMissingDSN(t *testing.T) {
	t.Setenv(envPostgresDSN, "")

	_, _, err := execute(t, &fakeStore{}, "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), envPostgresDSN)
}

func TestMigrationFailure(t *testing.T) {
	store := &fakeStore{err: errors.New("lock timeout")}

	_, _, err := execute(t, store, "up", "--dsn", "postgres://flag")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lock timeout")
	assert.True(t, store.closed)
}
