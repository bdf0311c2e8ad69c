// Package rrg computes relative-rotation coordinates: an asset's RS-Ratio and
// RS-Momentum against a benchmark, both centered at 100, plus the rotation
// quadrant derived from them.
package rrg

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/rotorscan/rotorscan/internal/domain/errs"
	"github.com/rotorscan/rotorscan/internal/domain/series"
)

// Quadrant classifies an asset's rotation phase.
type Quadrant string

const (
	QuadrantLeading   Quadrant = "leading"
	QuadrantWeakening Quadrant = "weakening"
	QuadrantLagging   Quadrant = "lagging"
	QuadrantImproving Quadrant = "improving"
)

// Coordinate is the rotation position of one asset.
type Coordinate struct {
	Symbol       string   `json:"symbol"`
	RSRatio      float64  `json:"rs_ratio"`
	RSMomentum   float64  `json:"rs_momentum"`
	Quadrant     Quadrant `json:"quadrant"`
	PeriodReturn float64  `json:"period_return"`
}

// Exclusion attributes a symbol dropped from a batch to its reason.
type Exclusion struct {
	Symbol string `json:"symbol"`
	Reason string `json:"reason"`
}

// BatchResult holds the coordinates of the symbols that scored plus the
// attributed exclusions. Nothing is silently dropped.
type BatchResult struct {
	Coordinates []Coordinate `json:"coordinates"`
	Excluded    []Exclusion  `json:"excluded"`
}

const (
	DefaultRatioPeriod    = 10
	DefaultMomentumPeriod = 6

	// minExtra is the cushion beyond the two smoothing windows required
	// before a coordinate is considered trustworthy.
	minExtra = 5
)

// Engine computes relative-rotation coordinates. Stateless and safe for
// concurrent use.
type Engine struct {
	RatioPeriod    int
	MomentumPeriod int
}

// NewEngine returns an engine with the standard 10/6 smoothing windows.
func NewEngine() *Engine {
	return &Engine{RatioPeriod: DefaultRatioPeriod, MomentumPeriod: DefaultMomentumPeriod}
}

// MinPoints is the aligned history length required to score a symbol.
func (e *Engine) MinPoints() int {
	return e.RatioPeriod + e.MomentumPeriod + minExtra
}

// Calculate scores one asset against the benchmark. The two series are
// aligned by intersecting dates before any arithmetic.
func (e *Engine) Calculate(symbol string, asset, benchmark series.PriceSeries) (Coordinate, error) {
	alignedAsset, alignedBench := series.Align(asset, benchmark)
	if len(alignedAsset) < e.MinPoints() {
		return Coordinate{}, &errs.InsufficientDataError{
			Symbol:   symbol,
			Required: e.MinPoints(),
			Actual:   len(alignedAsset),
		}
	}

	rawRS := make([]float64, len(alignedAsset))
	for i := range alignedAsset {
		benchClose := alignedBench[i].Close
		if benchClose == 0 {
			return Coordinate{}, &errs.CalculationError{
				Symbol: symbol,
				Reason: fmt.Sprintf("benchmark close is zero at %s", alignedBench[i].Date.Format("2006-01-02")),
			}
		}
		rawRS[i] = alignedAsset[i].Close / benchClose
	}

	rsRatio, err := ratioSeries(symbol, rawRS, e.RatioPeriod)
	if err != nil {
		return Coordinate{}, err
	}
	momentum, err := ratioSeries(symbol, rsRatio, e.MomentumPeriod)
	if err != nil {
		return Coordinate{}, err
	}

	ratio := rsRatio[len(rsRatio)-1]
	mom := momentum[len(momentum)-1]
	closes := alignedAsset.Closes()
	periodReturn := series.PercentChange(closes[len(closes)-1-e.RatioPeriod], closes[len(closes)-1])

	return Coordinate{
		Symbol:       symbol,
		RSRatio:      ratio,
		RSMomentum:   mom,
		Quadrant:     Classify(ratio, mom),
		PeriodReturn: periodReturn,
	}, nil
}

// CalculateAll scores every symbol in the map against the benchmark. A
// missing benchmark is fatal for the batch; any other symbol's failure is
// logged, attributed and excluded.
func (e *Engine) CalculateAll(seriesMap map[string]series.PriceSeries, benchmarkSymbol string) (BatchResult, error) {
	benchmark, ok := seriesMap[benchmarkSymbol]
	if !ok {
		return BatchResult{}, &errs.ConfigurationError{
			Detail: "benchmark symbol " + benchmarkSymbol + " missing from series map",
		}
	}

	symbols := make([]string, 0, len(seriesMap))
	for symbol := range seriesMap {
		if symbol != benchmarkSymbol {
			symbols = append(symbols, symbol)
		}
	}
	sort.Strings(symbols)

	result := BatchResult{}
	for _, symbol := range symbols {
		coord, err := e.Calculate(symbol, seriesMap[symbol], benchmark)
		if err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("excluding symbol from rotation map")
			result.Excluded = append(result.Excluded, Exclusion{Symbol: symbol, Reason: err.Error()})
			continue
		}
		result.Coordinates = append(result.Coordinates, coord)
	}
	return result, nil
}

// Classify maps a coordinate pair onto a quadrant. The boundary is
// deliberately non-strict on both axes: an asset sitting exactly on
// (100, 100) is lagging, not leading.
func Classify(rsRatio, rsMomentum float64) Quadrant {
	switch {
	case rsRatio > 100 && rsMomentum > 100:
		return QuadrantLeading
	case rsRatio > 100:
		return QuadrantWeakening
	case rsMomentum <= 100:
		return QuadrantLagging
	default:
		return QuadrantImproving
	}
}

// ratioSeries normalizes each value by its rolling mean and recenters at 100.
func ratioSeries(symbol string, values []float64, period int) ([]float64, error) {
	sma := series.SMA(values, period)
	if sma == nil {
		return nil, &errs.InsufficientDataError{Symbol: symbol, Required: period, Actual: len(values)}
	}
	out := make([]float64, len(values))
	for i, v := range values {
		if sma[i] == 0 {
			return nil, &errs.CalculationError{Symbol: symbol, Reason: "degenerate moving average (zero)"}
		}
		out[i] = v / sma[i] * 100
	}
	return out, nil
}
