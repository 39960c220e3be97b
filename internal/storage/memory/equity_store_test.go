package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opening-trade-lab/internal/domain"
	"opening-trade-lab/internal/storage"
)

func TestEquityStore_InsertAndGet(t *testing.T) {
	store := NewEquityStore()
	ctx := context.Background()

	points := []*domain.EquityPoint{
		{Date: day("2024-01-03"), CapitalBefore: 10_100_000, CapitalAfter: 10_000_000},
		{Date: day("2024-01-02"), CapitalBefore: 10_000_000, CapitalAfter: 10_100_000},
	}
	require.NoError(t, store.InsertBulk(ctx, "run-1", points))

	got, err := store.GetByRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Date.Before(got[1].Date))
	assert.Equal(t, got[0].CapitalAfter, got[1].CapitalBefore)

	err = store.InsertBulk(ctx, "run-1", points[:1])
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// other runs are independent
	require.NoError(t, store.InsertBulk(ctx, "run-2", points[:1]))
	assert.ErrorIs(t, store.InsertBulk(ctx, "", points), storage.ErrInvalidInput)
}
