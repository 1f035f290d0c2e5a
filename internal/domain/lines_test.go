package domain_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/comptoirs/internal/domain"
)

func storedLines() []domain.Line {
	return []domain.Line{
		{ID: 1, OrderID: 10, ProductRef: 98, Quantity: 20},
		{ID: 2, OrderID: 10, ProductRef: 99, Quantity: 5},
	}
}

func TestDiffLines_InsertForNewOrder(t *testing.T) {
	incoming := []domain.Line{
		{ProductRef: 98, Quantity: 4},
		{ProductRef: 99, Quantity: 99},
	}

	changes, err := domain.DiffLines(10, nil, incoming)
	require.NoError(t, err)

	require.Len(t, changes.Insert, 2)
	assert.Empty(t, changes.Update)
	assert.Empty(t, changes.Delete)
	for _, line := range changes.Insert {
		assert.Equal(t, int64(10), line.OrderID)
	}
}

func TestDiffLines_OrphanRemoval(t *testing.T) {
	stored := storedLines()
	incoming := stored[:1]

	changes, err := domain.DiffLines(10, stored, incoming)
	require.NoError(t, err)

	assert.Empty(t, changes.Insert)
	assert.Empty(t, changes.Update)
	require.Len(t, changes.Delete, 1)
	assert.Equal(t, int64(2), changes.Delete[0].ID)
}

func TestDiffLines_UpdateQuantity(t *testing.T) {
	stored := storedLines()
	incoming := storedLines()
	incoming[1].Quantity = 99

	changes, err := domain.DiffLines(10, stored, incoming)
	require.NoError(t, err)

	assert.Empty(t, changes.Insert)
	assert.Empty(t, changes.Delete)
	require.Len(t, changes.Update, 1)
	assert.Equal(t, int32(99), changes.Update[0].Quantity)
}

func TestDiffLines_NoChanges(t *testing.T) {
	changes, err := domain.DiffLines(10, storedLines(), storedLines())
	require.NoError(t, err)
	assert.True(t, changes.Empty())
}

func TestDiffLines_DuplicateProduct(t *testing.T) {
	incoming := []domain.Line{
		{ProductRef: 99, Quantity: 4},
		{ProductRef: 99, Quantity: 10},
	}

	changes, err := domain.DiffLines(10, nil, incoming)
	require.Error(t, err)
	assert.True(t, domain.IsIntegrityViolation(err))
	assert.True(t, changes.Empty())

	var dup *domain.DuplicateLineError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, int64(99), dup.ProductRef)
}

func TestDiffLines_DuplicateAgainstStoredLine(t *testing.T) {
	incoming := append(storedLines(), domain.Line{ProductRef: 98, Quantity: 1})

	_, err := domain.DiffLines(10, storedLines(), incoming)
	assert.True(t, domain.IsIntegrityViolation(err))
}

func TestDiffLines_RemoveThenReAddSameProduct(t *testing.T) {
	stored := storedLines()
	incoming := []domain.Line{stored[0], {ProductRef: 99, Quantity: 7}}

	changes, err := domain.DiffLines(10, stored, incoming)
	require.NoError(t, err)

	require.Len(t, changes.Delete, 1)
	require.Len(t, changes.Insert, 1)
	assert.Equal(t, int64(99), changes.Delete[0].ProductRef)
	assert.Equal(t, int64(99), changes.Insert[0].ProductRef)
}

func TestDiffLines_UnknownLine(t *testing.T) {
	incoming := []domain.Line{{ID: 77, OrderID: 10, ProductRef: 98, Quantity: 1}}

	_, err := domain.DiffLines(10, storedLines(), incoming)
	assert.ErrorIs(t, err, domain.ErrLineNotFound)
}

func TestDiffLines_ProductChangeRejected(t *testing.T) {
	incoming := storedLines()
	incoming[0].ProductRef = 97

	_, err := domain.DiffLines(10, storedLines(), incoming)
	assert.ErrorIs(t, err, domain.ErrLineImmutable)
}
