package orm_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/comptoirs/internal/fixtures"
	"github.com/vladislavdragonenkov/comptoirs/internal/storage/orm"
	"github.com/vladislavdragonenkov/comptoirs/internal/storage/postgres"
)

// Сравнивает декларативную и SQL-форму на одной базе PostgreSQL.
func TestCatalogRepository_PostgresEquivalence(t *testing.T) {
	dsn := strings.TrimSpace(os.Getenv("COMPTOIRS_POSTGRES_TEST_DSN"))
	if dsn == "" {
		t.Skip("COMPTOIRS_POSTGRES_TEST_DSN is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		t.Skipf("postgres is not available: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.MigrateUp(ctx, 0))
	_, err = store.Seed(ctx, fixtures.SmallData())
	require.NoError(t, err)

	gdb, err := orm.OpenPostgres(store.DB(), nil)
	require.NoError(t, err)

	raw := postgres.NewCatalogRepository(store)
	declarative := orm.NewCatalogRepository(gdb)

	for _, label := range []string{"Boissons", "Condiments"} {
		want, err := raw.ProductsByCategoryLabel(ctx, label)
		require.NoError(t, err)
		got, err := declarative.ProductsByCategoryLabel(ctx, label)
		require.NoError(t, err)
		if diff := cmp.Diff(want, got, decimalEqual); diff != "" {
			t.Fatalf("products for %q differ (-sql +orm):\n%s", label, diff)
		}
	}

	want, err := raw.UnitsSoldByCategory(ctx, fixtures.CategoryBeverages)
	require.NoError(t, err)
	got, err := declarative.UnitsSoldByCategory(ctx, fixtures.CategoryBeverages)
	require.NoError(t, err)
	require.Equal(t, want, got)

	tuples, err := declarative.UnitsSoldTuples(ctx, fixtures.CategoryBeverages)
	require.NoError(t, err)
	require.Len(t, tuples, len(want))
}
