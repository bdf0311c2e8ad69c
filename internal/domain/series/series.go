// Package series holds the shared price-history kernel: OHLCV points,
// date-aligned series, rolling means and return helpers. Everything here is
// pure and allocation-light; the scoring packages build on it.
package series

import (
	"math"
	"sort"
	"time"
)

// PricePoint is a single OHLCV candle. Treated as an immutable value.
type PricePoint struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PriceSeries is an ordered sequence of candles, ascending by date with
// unique dates. Constructors normalize; computations assume the invariant.
type PriceSeries []PricePoint

// New sorts the points ascending by date and drops duplicate dates, keeping
// the last occurrence (exchanges occasionally resend the open candle).
func New(points []PricePoint) PriceSeries {
	sorted := make([]PricePoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	out := sorted[:0]
	for _, p := range sorted {
		if len(out) > 0 && out[len(out)-1].Date.Equal(p.Date) {
			out[len(out)-1] = p
			continue
		}
		out = append(out, p)
	}
	return PriceSeries(out)
}

// Closes returns the close column.
func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s))
	for i, p := range s {
		closes[i] = p.Close
	}
	return closes
}

// Volumes returns the volume column.
func (s PriceSeries) Volumes() []float64 {
	vols := make([]float64, len(s))
	for i, p := range s {
		vols[i] = p.Volume
	}
	return vols
}

// Last returns the most recent point. Zero value if the series is empty.
func (s PriceSeries) Last() PricePoint {
	if len(s) == 0 {
		return PricePoint{}
	}
	return s[len(s)-1]
}

// Align intersects two series by date, returning equal-length slices in
// ascending order. Points present in only one series are dropped.
func Align(a, b PriceSeries) (PriceSeries, PriceSeries) {
	dates := make(map[int64]PricePoint, len(b))
	for _, p := range b {
		dates[p.Date.Unix()] = p
	}

	alignedA := make(PriceSeries, 0, len(a))
	alignedB := make(PriceSeries, 0, len(a))
	for _, p := range a {
		if q, ok := dates[p.Date.Unix()]; ok {
			alignedA = append(alignedA, p)
			alignedB = append(alignedB, q)
		}
	}
	return alignedA, alignedB
}

// SMA computes a simple moving average over the given period. For indexes
// before the first full window the earliest fully-computed value is
// replicated backward, so the result never contains NaN and keeps the input
// length. Returns nil when the input is shorter than the period.
func SMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}

	out := make([]float64, len(values))
	var window float64
	for i := 0; i < period; i++ {
		window += values[i]
	}
	out[period-1] = window / float64(period)
	for i := period; i < len(values); i++ {
		window += values[i] - values[i-period]
		out[i] = window / float64(period)
	}
	for i := 0; i < period-1; i++ {
		out[i] = out[period-1]
	}
	return out
}

// PercentChange returns the percent change from a to b, 0 when a is 0.
func PercentChange(a, b float64) float64 {
	if a == 0 {
		return 0
	}
	return (b/a - 1) * 100
}

// Mean returns the arithmetic mean, 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the population standard deviation.
func StdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := Mean(values)
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)))
}
