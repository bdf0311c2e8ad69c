// Package momentum scores per-asset momentum from absolute returns, returns
// relative to the benchmark and volume confirmation, then aggregates scores
// to sector level. Component buckets use fixed breakpoints rather than
// continuous curves so scores are stable under small input noise.
package momentum

import (
	"github.com/rotorscan/rotorscan/internal/domain/errs"
	"github.com/rotorscan/rotorscan/internal/domain/series"
)

// MinPoints is the history length required to compute Metrics.
const MinPoints = 30

// Metrics holds the raw momentum measurements for one asset.
type Metrics struct {
	Return1d       float64 `json:"return_1d"`
	Return7d       float64 `json:"return_7d"`
	Return30d      float64 `json:"return_30d"`
	VsBenchmark1d  float64 `json:"vs_benchmark_1d"`
	VsBenchmark7d  float64 `json:"vs_benchmark_7d"`
	VsBenchmark30d float64 `json:"vs_benchmark_30d"`
	VolumeChange7d float64 `json:"volume_change_7d"`
}

// FromSeries computes Metrics from at least 30 ascending daily candles.
// When the benchmark is present its returns are subtracted to produce the
// relative components, so the benchmark scored against itself reports zero
// on all of them. Without a benchmark the relative components equal the
// absolute ones.
func FromSeries(symbol string, prices, benchmark series.PriceSeries) (Metrics, error) {
	if len(prices) < MinPoints {
		return Metrics{}, &errs.InsufficientDataError{Symbol: symbol, Required: MinPoints, Actual: len(prices)}
	}

	r1d, r7d, r30d := returnsOf(prices)
	m := Metrics{
		Return1d:       r1d,
		Return7d:       r7d,
		Return30d:      r30d,
		VsBenchmark1d:  r1d,
		VsBenchmark7d:  r7d,
		VsBenchmark30d: r30d,
		VolumeChange7d: volumeChange(prices),
	}

	if len(benchmark) >= MinPoints {
		b1d, b7d, b30d := returnsOf(benchmark)
		m.VsBenchmark1d = r1d - b1d
		m.VsBenchmark7d = r7d - b7d
		m.VsBenchmark30d = r30d - b30d
	}
	return m, nil
}

// Score computes the 0-100 composite: absolute momentum (max 40), momentum
// relative to benchmark (max 40), volume confirmation (max 20).
func Score(m Metrics) int {
	score := absoluteScore(m) + relativeScore(m) + volumeScore(m)
	if score > 100 {
		return 100
	}
	return score
}

func absoluteScore(m Metrics) int {
	score := 0

	switch {
	case m.Return1d > 5:
		score += 10
	case m.Return1d > 2:
		score += 8
	case m.Return1d > 0:
		score += 5
	case m.Return1d > -2:
		score += 3
	}

	// 7d is the decision timeframe and carries the most weight.
	switch {
	case m.Return7d > 15:
		score += 15
	case m.Return7d > 8:
		score += 12
	case m.Return7d > 3:
		score += 9
	case m.Return7d > 0:
		score += 6
	case m.Return7d > -5:
		score += 3
	}

	switch {
	case m.Return30d > 30:
		score += 15
	case m.Return30d > 15:
		score += 12
	case m.Return30d > 5:
		score += 9
	case m.Return30d > 0:
		score += 6
	case m.Return30d > -10:
		score += 3
	}
	return score
}

func relativeScore(m Metrics) int {
	score := 0

	switch {
	case m.VsBenchmark7d > 10:
		score += 25
	case m.VsBenchmark7d > 5:
		score += 20
	case m.VsBenchmark7d > 2:
		score += 15
	case m.VsBenchmark7d > 0:
		score += 10
	case m.VsBenchmark7d > -2:
		score += 5
	}

	switch {
	case m.VsBenchmark30d > 15:
		score += 15
	case m.VsBenchmark30d > 5:
		score += 10
	case m.VsBenchmark30d > 0:
		score += 7
	case m.VsBenchmark30d > -5:
		score += 3
	}
	return score
}

func volumeScore(m Metrics) int {
	switch {
	case m.VolumeChange7d > 50 && m.Return7d > 0:
		return 20
	case m.VolumeChange7d > 20 && m.Return7d > 0:
		return 15
	case m.VolumeChange7d > 0:
		return 10
	case m.VolumeChange7d > -20:
		return 5
	default:
		return 0
	}
}

func returnsOf(s series.PriceSeries) (r1d, r7d, r30d float64) {
	closes := s.Closes()
	last := closes[len(closes)-1]
	r1d = series.PercentChange(closes[len(closes)-2], last)
	r7d = series.PercentChange(closes[len(closes)-8], last)
	r30d = series.PercentChange(closes[0], last)
	return r1d, r7d, r30d
}

// volumeChange compares mean volume of the last 7 candles to the 7 before.
func volumeChange(s series.PriceSeries) float64 {
	vols := s.Volumes()
	if len(vols) < 14 {
		return 0
	}
	current := series.Mean(vols[len(vols)-7:])
	previous := series.Mean(vols[len(vols)-14 : len(vols)-7])
	if previous <= 0 {
		return 0
	}
	return (current/previous - 1) * 100
}
