package momentum

import (
	"sort"

	"github.com/rotorscan/rotorscan/internal/domain/errs"
)

// SectorAggregate is the arithmetic mean of the resolvable constituents'
// momentum measurements. A sector that resolves zero constituents fails with
// InsufficientData rather than reporting a score of 0, which would be
// indistinguishable from genuine capitulation.
type SectorAggregate struct {
	Sector           string  `json:"sector"`
	MomentumScore    int     `json:"momentum_score"`
	AvgReturn7d      float64 `json:"avg_return_7d"`
	AvgVsBenchmark7d float64 `json:"avg_vs_benchmark_7d"`
	ConstituentCount int     `json:"constituent_count"`
	TopPerformer     string  `json:"top_performer"`
}

// AggregateSector folds the per-asset metrics of the sector's constituents.
// Constituents missing from metricsBySymbol are skipped; the caller has
// already attributed why they are absent.
func AggregateSector(sector string, constituents []string, metricsBySymbol map[string]Metrics) (SectorAggregate, error) {
	resolved := make([]string, 0, len(constituents))
	for _, symbol := range constituents {
		if _, ok := metricsBySymbol[symbol]; ok {
			resolved = append(resolved, symbol)
		}
	}
	if len(resolved) == 0 {
		return SectorAggregate{}, &errs.InsufficientDataError{Symbol: sector, Required: 1, Actual: 0}
	}
	sort.Strings(resolved)

	var scoreSum, return7dSum, vsBenchSum float64
	top := resolved[0]
	for _, symbol := range resolved {
		m := metricsBySymbol[symbol]
		scoreSum += float64(Score(m))
		return7dSum += m.Return7d
		vsBenchSum += m.VsBenchmark7d
		// Alphabetical iteration makes the >-comparison a deterministic
		// alphabetical tie-break.
		if m.Return7d > metricsBySymbol[top].Return7d {
			top = symbol
		}
	}

	n := float64(len(resolved))
	return SectorAggregate{
		Sector:           sector,
		MomentumScore:    int(scoreSum / n),
		AvgReturn7d:      return7dSum / n,
		AvgVsBenchmark7d: vsBenchSum / n,
		ConstituentCount: len(resolved),
		TopPerformer:     top,
	}, nil
}
