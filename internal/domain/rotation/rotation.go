// Package rotation turns sector momentum, benchmark momentum and the macro
// regime into categorical rotation verdicts and recommended allocations. The
// decision tables are literal and fixed; a risk-off macro regime always
// forces a defensive branch regardless of sector strength.
package rotation

import (
	"fmt"
	"sort"

	"github.com/rotorscan/rotorscan/internal/domain/momentum"
	"github.com/rotorscan/rotorscan/internal/domain/regime"
)

// Signal is a categorical rotation verdict.
type Signal string

const (
	RotateIn      Signal = "ROTATE_IN"
	Watch         Signal = "WATCH"
	Neutral       Signal = "NEUTRAL"
	Avoid         Signal = "AVOID"
	RotateOut     Signal = "ROTATE_OUT"
	StayBenchmark Signal = "STAY_BENCHMARK"
)

// Thresholds of the sector decision matrix, in momentum points and percent.
const (
	strongScoreEdge = 15
	rotateScoreEdge = 10
	rotateReturnPct = 5
	exitReturnPct   = -5
)

// Decision is the per-sector verdict.
type Decision struct {
	Sector string `json:"sector"`
	Signal Signal `json:"signal"`
	Rotate bool   `json:"rotate"`
	Reason string `json:"reason"`
}

// Verdict is the portfolio-level recommendation across all sectors.
type Verdict struct {
	Signal        Signal                     `json:"signal"`
	Reason        string                     `json:"reason"`
	Allocation    map[string]string          `json:"recommended_allocation"`
	BestSector    string                     `json:"best_sector,omitempty"`
	RankedSectors []momentum.SectorAggregate `json:"ranked_sectors"`
}

// Decide applies the fixed decision matrix to one sector. The macro regime
// dominates: under risk_off no amount of sector strength can produce
// ROTATE_IN, and ROTATE_IN additionally requires risk_on.
func Decide(sector momentum.SectorAggregate, benchmarkScore int, macro regime.Regime) Decision {
	diff := sector.MomentumScore - benchmarkScore
	vsBench := sector.AvgVsBenchmark7d

	if macro == regime.RiskOff {
		if diff > strongScoreEdge && vsBench > rotateReturnPct {
			return Decision{
				Sector: sector.Sector,
				Signal: Watch,
				Reason: "strong momentum but macro risk-off; wait for improvement",
			}
		}
		return Decision{
			Sector: sector.Sector,
			Signal: Avoid,
			Reason: "risk-off environment; stay in benchmark or stables",
		}
	}

	if diff > rotateScoreEdge && vsBench > rotateReturnPct {
		if macro == regime.RiskOn {
			return Decision{
				Sector: sector.Sector,
				Signal: RotateIn,
				Rotate: true,
				Reason: fmt.Sprintf("strong momentum + supportive macro; consider %s", sector.TopPerformer),
			}
		}
		return Decision{
			Sector: sector.Sector,
			Signal: Watch,
			Reason: "good momentum but macro not fully supportive; small position only",
		}
	}

	if diff > 0 && vsBench > 0 {
		return Decision{
			Sector: sector.Sector,
			Signal: Neutral,
			Reason: "slight outperformance; not enough edge to rotate",
		}
	}

	if vsBench < exitReturnPct {
		return Decision{
			Sector: sector.Sector,
			Signal: RotateOut,
			Reason: "sector underperforming benchmark; exit positions",
		}
	}

	return Decision{
		Sector: sector.Sector,
		Signal: Neutral,
		Reason: "no clear signal; maintain current allocation",
	}
}

// Overall produces the portfolio-level verdict. Sectors are ranked by
// momentum score descending with alphabetical tie-break so output order is
// reproducible.
func Overall(sectors []momentum.SectorAggregate, benchmarkScore int, macro regime.Regime) Verdict {
	ranked := make([]momentum.SectorAggregate, len(sectors))
	copy(ranked, sectors)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].MomentumScore != ranked[j].MomentumScore {
			return ranked[i].MomentumScore > ranked[j].MomentumScore
		}
		return ranked[i].Sector < ranked[j].Sector
	})

	outperforming := 0
	for _, s := range ranked {
		if s.MomentumScore > benchmarkScore {
			outperforming++
		}
	}

	if outperforming == 0 {
		return Verdict{
			Signal: StayBenchmark,
			Reason: "no sector consistently outperforming the benchmark",
			Allocation: map[string]string{
				"benchmark": "70-80%",
				"stables":   "20-30%",
			},
			RankedSectors: ranked,
		}
	}

	if macro == regime.RiskOff {
		return Verdict{
			Signal: Avoid,
			Reason: fmt.Sprintf("%d sectors showing momentum but macro unfavorable", outperforming),
			Allocation: map[string]string{
				"benchmark":   "50%",
				"stables":     "40%",
				"best_sector": "10% max",
			},
			RankedSectors: ranked,
		}
	}

	best := ranked[0]
	if best.MomentumScore > benchmarkScore+strongScoreEdge {
		return Verdict{
			Signal: RotateIn,
			Reason: fmt.Sprintf("%s score %d vs benchmark %d", best.Sector, best.MomentumScore, benchmarkScore),
			Allocation: map[string]string{
				"benchmark": "40%",
				best.Sector: "30%",
				"stables":   "30%",
			},
			BestSector:    best.Sector,
			RankedSectors: ranked,
		}
	}

	return Verdict{
		Signal: Neutral,
		Reason: "some sectors showing strength; partial rotation acceptable",
		Allocation: map[string]string{
			"benchmark":    "60%",
			"best_sectors": "25%",
			"stables":      "15%",
		},
		RankedSectors: ranked,
	}
}
