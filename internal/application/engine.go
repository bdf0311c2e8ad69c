// Package application orchestrates one evaluation cycle: it fans the
// snapshot out to the independent scorers, feeds their output to the regime
// and rotation stages, and returns a fully attributed result. The engine is
// stateless; cycles may run concurrently on separate snapshots.
package application

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/rotorscan/rotorscan/internal/domain/errs"
	"github.com/rotorscan/rotorscan/internal/domain/fragility"
	"github.com/rotorscan/rotorscan/internal/domain/liquidation"
	"github.com/rotorscan/rotorscan/internal/domain/momentum"
	"github.com/rotorscan/rotorscan/internal/domain/regime"
	"github.com/rotorscan/rotorscan/internal/domain/rotation"
	"github.com/rotorscan/rotorscan/internal/domain/rrg"
	"github.com/rotorscan/rotorscan/internal/metrics"
)

// Params is the static wiring of an engine: benchmark, category map, sector
// membership and estimator tuning.
type Params struct {
	Benchmark    string
	Categories   map[string]regime.Category
	Sectors      map[string][]string
	Liquidation  liquidation.Config
	MajorZoneUSD float64
}

// Exclusion attributes one unit (symbol or sector) dropped by a component.
type Exclusion struct {
	Component string `json:"component"`
	Symbol    string `json:"symbol"`
	Reason    string `json:"reason"`
}

// Result is the typed output of one cycle, handed to the presentation layer
// as-is. Partial results are normal: SymbolsScored of SymbolsTotal tells the
// reader how complete the cycle was.
type Result struct {
	CycleID   string    `json:"cycle_id"`
	Timestamp time.Time `json:"timestamp"`

	Rotation     rrg.BatchResult                `json:"rotation"`
	Regime       regime.Score                   `json:"regime"`
	Fragility    map[string]fragility.Score     `json:"fragility"`
	Liquidations map[string]liquidation.Heatmap `json:"liquidations"`
	MajorZones   map[string][]liquidation.Zone  `json:"major_zones"`

	BenchmarkScore  int                          `json:"benchmark_score"`
	Sectors         []momentum.SectorAggregate   `json:"sectors"`
	SectorDecisions []rotation.Decision          `json:"sector_decisions"`
	Verdict         rotation.Verdict             `json:"verdict"`
	TopPicks        []rotation.Pick              `json:"top_picks"`
	ActionGroups    []rotation.ActionGroup       `json:"action_groups"`

	Excluded      []Exclusion `json:"excluded"`
	SymbolsScored int         `json:"symbols_scored"`
	SymbolsTotal  int         `json:"symbols_total"`
}

// Engine runs evaluation cycles.
type Engine struct {
	params    Params
	rrg       *rrg.Engine
	estimator *liquidation.Estimator
	detector  *regime.Detector
	metrics   *metrics.Registry
}

// NewEngine validates the estimator config and wires the components.
func NewEngine(params Params, m *metrics.Registry) (*Engine, error) {
	estimator, err := liquidation.NewEstimator(params.Liquidation)
	if err != nil {
		return nil, err
	}
	if params.Benchmark == "" {
		return nil, &errs.ConfigurationError{Detail: "benchmark symbol not set"}
	}
	return &Engine{
		params:    params,
		rrg:       rrg.NewEngine(),
		estimator: estimator,
		detector:  regime.NewDetector(params.Categories),
		metrics:   m,
	}, nil
}

// Evaluate runs one full cycle over the snapshot. The benchmark history is
// the only hard requirement; every other failure degrades to an attributed
// exclusion.
func (e *Engine) Evaluate(snap *Snapshot) (*Result, error) {
	if _, ok := snap.Histories[e.params.Benchmark]; !ok {
		return nil, &errs.ConfigurationError{Detail: "benchmark " + e.params.Benchmark + " missing from snapshot"}
	}

	e.metrics.ActiveCycles.Inc()
	defer e.metrics.ActiveCycles.Dec()
	started := time.Now()

	result := &Result{
		CycleID:      uuid.NewString(),
		Timestamp:    started.UTC(),
		Fragility:    map[string]fragility.Score{},
		Liquidations: map[string]liquidation.Heatmap{},
		MajorZones:   map[string][]liquidation.Zone{},
	}
	for symbol, reason := range snap.FetchFailures {
		result.Excluded = append(result.Excluded, Exclusion{Component: "fetch", Symbol: symbol, Reason: reason})
	}

	// The four leaf scorers are independent; run them concurrently over the
	// shared read-only snapshot.
	var (
		wg           sync.WaitGroup
		batch        rrg.BatchResult
		batchErr     error
		metricsMap   map[string]momentum.Metrics
		momentumExcl []Exclusion
		derivExcl    []Exclusion
		derivMu      sync.Mutex
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		defer e.observe("rrg", time.Now())
		batch, batchErr = e.rrg.CalculateAll(snap.Histories, e.params.Benchmark)
	}()
	go func() {
		defer wg.Done()
		defer e.observe("momentum", time.Now())
		metricsMap, momentumExcl = e.scoreMomentum(snap)
	}()
	go func() {
		defer wg.Done()
		defer e.observe("derivatives", time.Now())
		for symbol, inputs := range snap.Derivatives {
			score, heatmap, zones, err := e.scoreDerivatives(symbol, inputs)
			derivMu.Lock()
			if err != nil {
				derivExcl = append(derivExcl, Exclusion{Component: "liquidation", Symbol: symbol, Reason: err.Error()})
			} else {
				result.Fragility[symbol] = score
				result.Liquidations[symbol] = heatmap
				result.MajorZones[symbol] = zones
			}
			derivMu.Unlock()
		}
	}()
	wg.Wait()

	if batchErr != nil {
		return nil, batchErr
	}
	for _, excl := range batch.Excluded {
		result.Excluded = append(result.Excluded, Exclusion{Component: "rrg", Symbol: excl.Symbol, Reason: excl.Reason})
		e.metrics.SymbolsExcluded.WithLabelValues("rrg", reasonKind(excl.Reason)).Inc()
	}
	result.Rotation = batch
	result.Excluded = append(result.Excluded, momentumExcl...)
	result.Excluded = append(result.Excluded, derivExcl...)

	// Downstream stages consume the leaf output.
	result.Regime = e.detector.Detect(batch.Coordinates)
	result.TopPicks = rotation.TopPicks(batch.Coordinates)
	result.ActionGroups = rotation.ActionGroups(batch.Coordinates)

	if benchMetrics, ok := metricsMap[e.params.Benchmark]; ok {
		result.BenchmarkScore = momentum.Score(benchMetrics)
	}

	sectorNames := make([]string, 0, len(e.params.Sectors))
	for name := range e.params.Sectors {
		sectorNames = append(sectorNames, name)
	}
	sort.Strings(sectorNames)

	for _, name := range sectorNames {
		agg, err := momentum.AggregateSector(name, e.params.Sectors[name], metricsMap)
		if err != nil {
			result.Excluded = append(result.Excluded, Exclusion{Component: "sector", Symbol: name, Reason: err.Error()})
			e.metrics.SymbolsExcluded.WithLabelValues("sector", reasonKind(err.Error())).Inc()
			continue
		}
		result.Sectors = append(result.Sectors, agg)
		result.SectorDecisions = append(result.SectorDecisions,
			rotation.Decide(agg, result.BenchmarkScore, result.Regime.Regime))
	}
	result.Verdict = rotation.Overall(result.Sectors, result.BenchmarkScore, result.Regime.Regime)

	result.SymbolsTotal = len(snap.Histories) + len(snap.FetchFailures)
	result.SymbolsScored = len(metricsMap)
	e.metrics.SymbolsScored.WithLabelValues("momentum").Add(float64(result.SymbolsScored))

	log.Info().
		Str("cycle_id", result.CycleID).
		Int("scored", result.SymbolsScored).
		Int("total", result.SymbolsTotal).
		Str("regime", string(result.Regime.Regime)).
		Str("verdict", string(result.Verdict.Signal)).
		Dur("elapsed", time.Since(started)).
		Msg("evaluation cycle complete")

	return result, nil
}

// scoreMomentum computes metrics for every symbol with history. Failures are
// attributed, never fatal.
func (e *Engine) scoreMomentum(snap *Snapshot) (map[string]momentum.Metrics, []Exclusion) {
	benchmark := snap.Histories[e.params.Benchmark]
	out := make(map[string]momentum.Metrics, len(snap.Histories))
	var excluded []Exclusion

	symbols := make([]string, 0, len(snap.Histories))
	for symbol := range snap.Histories {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	for _, symbol := range symbols {
		m, err := momentum.FromSeries(symbol, snap.Histories[symbol], benchmark)
		if err != nil {
			var insufficient *errs.InsufficientDataError
			if !errors.As(err, &insufficient) {
				log.Warn().Err(err).Str("symbol", symbol).Msg("momentum scoring failed")
			}
			excluded = append(excluded, Exclusion{Component: "momentum", Symbol: symbol, Reason: err.Error()})
			e.metrics.SymbolsExcluded.WithLabelValues("momentum", reasonKind(err.Error())).Inc()
			continue
		}
		out[symbol] = m
	}
	return out, excluded
}

func (e *Engine) scoreDerivatives(symbol string, in DerivInputs) (fragility.Score, liquidation.Heatmap, []liquidation.Zone, error) {
	score := fragility.Compute(fragility.Inputs{
		OpenInterestUSD: in.OpenInterestUSD,
		Bids:            in.Bids,
		Asks:            in.Asks,
		CurrentFunding:  in.CurrentFunding,
		Funding7d:       in.Funding7d,
		SpotPrice:       in.SpotPrice,
		PerpPrice:       in.PerpPrice,
	})

	heatmap, err := e.estimator.Estimate(symbol, in.SpotPrice, in.OpenInterestUSD, in.CurrentFunding)
	if err != nil {
		return fragility.Score{}, liquidation.Heatmap{}, nil, err
	}
	return score, heatmap, liquidation.MajorZones(heatmap, e.params.MajorZoneUSD), nil
}

func (e *Engine) observe(stage string, started time.Time) {
	e.metrics.CycleDuration.WithLabelValues(stage).Observe(time.Since(started).Seconds())
}

// reasonKind collapses free-form reasons into a low-cardinality label.
func reasonKind(reason string) string {
	switch {
	case strings.HasPrefix(reason, "insufficient"):
		return "insufficient_data"
	case strings.HasPrefix(reason, "calculation"):
		return "calculation"
	default:
		return "other"
	}
}
