package marketdata

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/rotor/internal/database"
)

var testDBCounter int

func testCache(t *testing.T) *PriceCache {
	t.Helper()
	testDBCounter++
	db, err := database.New(database.Config{
		Path:    fmt.Sprintf("file:cachetest%d?mode=memory&cache=shared", testDBCounter),
		Profile: database.ProfileCache,
		Name:    "prices-test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cache, err := NewPriceCache(db)
	require.NoError(t, err)
	return cache
}

func testBars(start time.Time, n int) []Bar {
	bars := make([]Bar, n)
	for i := range bars {
		price := 100 + float64(i)
		bars[i] = Bar{
			Date:     start.AddDate(0, 0, i),
			Open:     price - 0.5,
			High:     price + 1,
			Low:      price - 1,
			Close:    price,
			AdjClose: price * 0.98,
			Volume:   int64(1000 + i),
		}
	}
	return bars
}

func TestPriceCache_SaveAndLoad(t *testing.T) {
	cache := testCache(t)
	start := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, cache.SaveBars("AAPL", testBars(start, 5)))

	bars, err := cache.Bars("AAPL")
	require.NoError(t, err)
	require.Len(t, bars, 5)
	assert.Equal(t, start, bars[0].Date)
	assert.Equal(t, 100.0, bars[0].Close)
	assert.InDelta(t, 98.0, bars[0].AdjClose, 1e-9)
	assert.Equal(t, int64(1004), bars[4].Volume)
}

func TestPriceCache_UpsertOverwrites(t *testing.T) {
	cache := testCache(t)
	start := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, cache.SaveBars("AAPL", testBars(start, 3)))

	// Same dates, revised prices. Row count must not grow.
	revised := testBars(start, 3)
	for i := range revised {
		revised[i].Close = 500
	}
	require.NoError(t, cache.SaveBars("AAPL", revised))

	bars, err := cache.Bars("AAPL")
	require.NoError(t, err)
	require.Len(t, bars, 3)
	for _, b := range bars {
		assert.Equal(t, 500.0, b.Close)
	}
}

func TestPriceCache_LastDate(t *testing.T) {
	cache := testCache(t)

	_, ok, err := cache.LastDate("MSFT")
	require.NoError(t, err)
	assert.False(t, ok)

	start := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, cache.SaveBars("MSFT", testBars(start, 4)))

	last, ok, err := cache.LastDate("MSFT")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, start.AddDate(0, 0, 3), last)
}

func TestPriceCache_ClearIsPerSymbol(t *testing.T) {
	cache := testCache(t)
	start := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, cache.SaveBars("AAPL", testBars(start, 2)))
	require.NoError(t, cache.SaveBars("MSFT", testBars(start, 2)))
	require.NoError(t, cache.Clear("AAPL"))

	bars, err := cache.Bars("AAPL")
	require.NoError(t, err)
	assert.Empty(t, bars)

	bars, err = cache.Bars("MSFT")
	require.NoError(t, err)
	assert.Len(t, bars, 2)
}
