package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opening-trade-lab/internal/domain"
	"opening-trade-lab/internal/storage"
)

func makeCandles(minutes ...int) domain.CandleSeries {
	open := domain.NewClock(9, 0, 0)
	s := make(domain.CandleSeries, len(minutes))
	for i, m := range minutes {
		s[i] = domain.Candle{Time: open + domain.Clock(m*60), Open: 100, High: 101, Low: 99, Close: 100, Volume: int64(m + 1)}
	}
	return s
}

func TestCandleStore_InsertAndGetSorted(t *testing.T) {
	store := NewCandleStore()
	ctx := context.Background()
	d := day("2024-01-02")

	require.NoError(t, store.InsertBulk(ctx, d, "005930", makeCandles(2, 0)))
	require.NoError(t, store.InsertBulk(ctx, d, "005930", makeCandles(1)))

	series, err := store.GetSeries(ctx, d, "005930")
	require.NoError(t, err)
	require.Len(t, series, 3)
	assert.True(t, series.IsSorted())
	assert.Equal(t, int64(1), series[0].Volume)
}

func TestCandleStore_DuplicateTime(t *testing.T) {
	store := NewCandleStore()
	ctx := context.Background()
	d := day("2024-01-02")

	require.NoError(t, store.InsertBulk(ctx, d, "A", makeCandles(0, 1)))
	err := store.InsertBulk(ctx, d, "A", makeCandles(1, 2))
	assert.True(t, errors.Is(err, storage.ErrDuplicateKey))

	series, _ := store.GetSeries(ctx, d, "A")
	assert.Len(t, series, 2, "failed batch must not be applied")
}

func TestCandleStore_EmptyWhenMissing(t *testing.T) {
	store := NewCandleStore()

	series, err := store.GetSeries(context.Background(), day("2024-01-02"), "none")
	require.NoError(t, err)
	assert.Empty(t, series)
}

func TestCandleStore_ListCodes(t *testing.T) {
	store := NewCandleStore()
	ctx := context.Background()
	d := day("2024-01-02")

	require.NoError(t, store.InsertBulk(ctx, d, "B", makeCandles(0)))
	require.NoError(t, store.InsertBulk(ctx, d, "A", makeCandles(0)))
	require.NoError(t, store.InsertBulk(ctx, day("2024-01-03"), "C", makeCandles(0)))

	codes, err := store.ListCodes(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, codes)

	assert.ErrorIs(t, store.InsertBulk(ctx, d, "", makeCandles(0)), storage.ErrInvalidInput)
}
