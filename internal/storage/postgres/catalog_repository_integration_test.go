package postgres

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/comptoirs/internal/domain"
	"github.com/vladislavdragonenkov/comptoirs/internal/fixtures"
)

func TestCatalogRepository_PostgresQueries(t *testing.T) {
	store := openSeededStoreForIntegrationTest(t)
	repo := NewCatalogRepository(store)
	ctx := t.Context()

	products, err := repo.ProductsByCategoryLabel(ctx, "Boissons")
	require.NoError(t, err)
	refs := make([]int64, 0, len(products))
	for _, p := range products {
		refs = append(refs, p.Reference)
	}
	require.Equal(t, []int64{
		fixtures.ProductChartreus, fixtures.ProductIkura, fixtures.ProductChai, fixtures.ProductChang,
	}, refs)

	sold, err := repo.UnitsSoldByCategory(ctx, fixtures.CategoryBeverages)
	require.NoError(t, err)
	want := []domain.UnitsSold{{Name: "Chai", Units: 30}, {Name: "Chang", Units: 5}}
	if diff := cmp.Diff(want, sold); diff != "" {
		t.Fatalf("units sold mismatch (-want +got):\n%s", diff)
	}

	tuples, err := repo.(*catalogRepository).UnitsSoldTuples(ctx, fixtures.CategoryBeverages)
	require.NoError(t, err)
	require.Equal(t, [][]any{{"Chai", int64(30)}, {"Chang", int64(5)}}, tuples)

	none, err := repo.UnitsSoldByCategory(ctx, fixtures.CategoryCondiments)
	require.NoError(t, err)
	require.Empty(t, none)

	summaries, err := repo.ListProductSummaries(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, len(fixtures.SmallData().Products))

	chartreuse, err := repo.GetProduct(ctx, fixtures.ProductChartreus)
	require.NoError(t, err)
	require.True(t, chartreuse.Discontinued)

	_, err = repo.GetProduct(ctx, 1)
	require.ErrorIs(t, err, domain.ErrProductNotFound)

	category, err := repo.GetCategory(ctx, fixtures.CategoryCondiments)
	require.NoError(t, err)
	require.Equal(t, "Condiments", category.Label)
}

func TestCustomerRepository_PostgresGet(t *testing.T) {
	store := openSeededStoreForIntegrationTest(t)
	repo := NewCustomerRepository(store)

	customer, err := repo.Get(t.Context(), fixtures.CustomerComptoir)
	require.NoError(t, err)
	require.Equal(t, "Comptoir Test", customer.CompanyName)

	_, err = repo.Get(t.Context(), "NONE")
	require.ErrorIs(t, err, domain.ErrCustomerNotFound)
}
