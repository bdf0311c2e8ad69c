// Package regime aggregates per-asset rotation quadrants into a macro
// risk-on/risk-off/neutral reading on a [-10, 10] scale.
package regime

import (
	"fmt"

	"github.com/rotorscan/rotorscan/internal/domain/rrg"
)

// Regime is the macro risk classification.
type Regime string

const (
	RiskOn  Regime = "risk_on"
	RiskOff Regime = "risk_off"
	Neutral Regime = "neutral"
)

// Category splits tracked symbols into the two sides of the risk trade.
type Category string

const (
	CategoryRisk      Category = "risk"
	CategorySafeHaven Category = "safe_haven"
)

// Classification thresholds on the normalized score.
const (
	riskOnThreshold  = 3.0
	riskOffThreshold = -3.0
)

// quadrantWeights scores each rotation phase for regime aggregation.
var quadrantWeights = map[rrg.Quadrant]int{
	rrg.QuadrantLeading:   2,
	rrg.QuadrantImproving: 1,
	rrg.QuadrantWeakening: -1,
	rrg.QuadrantLagging:   -2,
}

// Score is the detector output.
type Score struct {
	Regime      Regime  `json:"regime"`
	Value       float64 `json:"score"`
	RiskSummary string  `json:"risk_summary"`
	SafeSummary string  `json:"safe_summary"`
}

// Detector maps symbols to categories. Symbols without a category are
// ignored; they contribute to neither side of the trade.
type Detector struct {
	categories map[string]Category
}

// NewDetector builds a detector from the configured category map.
func NewDetector(categories map[string]Category) *Detector {
	return &Detector{categories: categories}
}

// Detect computes the macro regime from a set of rotation coordinates.
// Risk assets accelerating push the score up, safe havens accelerating pull
// it down. The raw net score is normalized by the maximum absolute score the
// classified set could produce, then scaled to ±10.
func (d *Detector) Detect(coords []rrg.Coordinate) Score {
	var riskScore, safeScore, classified int
	riskCounts := map[rrg.Quadrant]int{}
	safeCounts := map[rrg.Quadrant]int{}

	for _, c := range coords {
		w := quadrantWeights[c.Quadrant]
		switch d.categories[c.Symbol] {
		case CategoryRisk:
			riskScore += w
			riskCounts[c.Quadrant]++
			classified++
		case CategorySafeHaven:
			safeScore += w
			safeCounts[c.Quadrant]++
			classified++
		}
	}

	var normalized float64
	if classified > 0 {
		maxPossible := float64(2 * classified)
		normalized = float64(riskScore-safeScore) / maxPossible * 10
	}

	return Score{
		Regime:      classify(normalized),
		Value:       normalized,
		RiskSummary: summarize(riskCounts),
		SafeSummary: summarize(safeCounts),
	}
}

func classify(score float64) Regime {
	switch {
	case score >= riskOnThreshold:
		return RiskOn
	case score <= riskOffThreshold:
		return RiskOff
	default:
		return Neutral
	}
}

func summarize(counts map[rrg.Quadrant]int) string {
	order := []rrg.Quadrant{rrg.QuadrantLeading, rrg.QuadrantImproving, rrg.QuadrantWeakening, rrg.QuadrantLagging}
	out := ""
	for _, q := range order {
		if counts[q] == 0 {
			continue
		}
		if out != "" {
			out += ", "
		}
		out += fmt.Sprintf("%d %s", counts[q], q)
	}
	if out == "" {
		return "none"
	}
	return out
}
