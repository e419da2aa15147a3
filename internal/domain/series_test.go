package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewPriceSeries_Validation(t *testing.T) {
	dates := []time.Time{day(2024, 1, 2), day(2024, 1, 3)}

	_, err := NewPriceSeries("AAA", dates, []float64{1.0})
	assert.Error(t, err, "length mismatch should be rejected")

	_, err = NewPriceSeries("AAA", nil, nil)
	assert.Error(t, err, "empty series should be rejected")

	_, err = NewPriceSeries("AAA", []time.Time{day(2024, 1, 3), day(2024, 1, 2)}, []float64{1, 2})
	assert.Error(t, err, "descending dates should be rejected")

	_, err = NewPriceSeries("AAA", []time.Time{day(2024, 1, 2), day(2024, 1, 2)}, []float64{1, 2})
	assert.Error(t, err, "duplicate dates should be rejected")

	s, err := NewPriceSeries("AAA", dates, []float64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, "AAA", s.Symbol())
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, day(2024, 1, 2), s.FirstDate())
	assert.Equal(t, day(2024, 1, 3), s.LastDate())
}

func TestTruncate(t *testing.T) {
	dates := []time.Time{day(2024, 1, 2), day(2024, 1, 3), day(2024, 1, 5)}
	s, err := NewPriceSeries("AAA", dates, []float64{10, 11, 12})
	require.NoError(t, err)

	// Asof on an observed date includes it.
	pit := s.Truncate(day(2024, 1, 3))
	require.NotNil(t, pit)
	assert.Equal(t, 2, pit.Len())
	assert.Equal(t, day(2024, 1, 3), pit.LastDate())

	// Asof between observations includes only earlier ones.
	pit = s.Truncate(day(2024, 1, 4))
	require.NotNil(t, pit)
	assert.Equal(t, 2, pit.Len())

	// Asof before the first observation yields nothing.
	assert.Nil(t, s.Truncate(day(2024, 1, 1)))

	// Asof past the end includes everything.
	pit = s.Truncate(day(2024, 2, 1))
	require.NotNil(t, pit)
	assert.Equal(t, 3, pit.Len())
}

func TestPriceOnOrBefore(t *testing.T) {
	dates := []time.Time{day(2024, 1, 2), day(2024, 1, 5)}
	s, err := NewPriceSeries("AAA", dates, []float64{10, 20})
	require.NoError(t, err)

	p, ok := s.PriceOnOrBefore(day(2024, 1, 2))
	require.True(t, ok)
	assert.Equal(t, 10.0, p)

	// Sparse calendar: a date between observations resolves to the most
	// recent earlier observation.
	p, ok = s.PriceOnOrBefore(day(2024, 1, 4))
	require.True(t, ok)
	assert.Equal(t, 10.0, p)

	p, ok = s.PriceOnOrBefore(day(2024, 1, 31))
	require.True(t, ok)
	assert.Equal(t, 20.0, p)

	_, ok = s.PriceOnOrBefore(day(2024, 1, 1))
	assert.False(t, ok)
}
