package series

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(n int) time.Time {
	return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func TestNewSortsAndDeduplicates(t *testing.T) {
	points := []PricePoint{
		{Date: day(2), Close: 102},
		{Date: day(0), Close: 100},
		{Date: day(1), Close: 101},
		{Date: day(2), Close: 202}, // resent candle, keep the last
	}

	s := New(points)
	require.Len(t, s, 3)
	assert.Equal(t, 100.0, s[0].Close)
	assert.Equal(t, 101.0, s[1].Close)
	assert.Equal(t, 202.0, s[2].Close)
}

func TestAlignIntersectsByDate(t *testing.T) {
	a := New([]PricePoint{
		{Date: day(0), Close: 1},
		{Date: day(1), Close: 2},
		{Date: day(3), Close: 4},
	})
	b := New([]PricePoint{
		{Date: day(1), Close: 10},
		{Date: day(2), Close: 20},
		{Date: day(3), Close: 30},
	})

	alignedA, alignedB := Align(a, b)
	require.Len(t, alignedA, 2)
	require.Len(t, alignedB, 2)
	assert.Equal(t, []float64{2, 4}, alignedA.Closes())
	assert.Equal(t, []float64{10, 30}, alignedB.Closes())
}

func TestSMABackfillsLeadingWindow(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	sma := SMA(values, 3)
	require.NotNil(t, sma)
	require.Len(t, sma, 5)

	// Indexes before the first full window replicate its value.
	assert.Equal(t, 2.0, sma[0])
	assert.Equal(t, 2.0, sma[1])
	assert.Equal(t, 2.0, sma[2])
	assert.Equal(t, 3.0, sma[3])
	assert.Equal(t, 4.0, sma[4])
}

func TestSMATooShort(t *testing.T) {
	assert.Nil(t, SMA([]float64{1, 2}, 3))
	assert.Nil(t, SMA(nil, 1))
	assert.Nil(t, SMA([]float64{1, 2, 3}, 0))
}

func TestPercentChange(t *testing.T) {
	assert.InDelta(t, 10.0, PercentChange(100, 110), 1e-9)
	assert.InDelta(t, -50.0, PercentChange(100, 50), 1e-9)
	assert.Equal(t, 0.0, PercentChange(0, 42))
}

func TestStdDevIsPopulation(t *testing.T) {
	// Population stddev of {2,4,4,4,5,5,7,9} is exactly 2.
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	assert.InDelta(t, 2.0, StdDev(values), 1e-9)
	assert.Equal(t, 0.0, StdDev(nil))
	assert.Equal(t, 0.0, StdDev([]float64{3, 3, 3}))
}

func TestLast(t *testing.T) {
	assert.Equal(t, PricePoint{}, PriceSeries{}.Last())
	s := New([]PricePoint{{Date: day(0), Close: 1}, {Date: day(1), Close: 2}})
	assert.Equal(t, 2.0, s.Last().Close)
}
