package regime

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rotorscan/rotorscan/internal/domain/rrg"
)

var testCategories = map[string]Category{
	"SOL":  CategoryRisk,
	"AVAX": CategoryRisk,
	"PAXG": CategorySafeHaven,
}

func coord(symbol string, q rrg.Quadrant) rrg.Coordinate {
	return rrg.Coordinate{Symbol: symbol, Quadrant: q}
}

func TestDetectRiskOnAtFullTilt(t *testing.T) {
	d := NewDetector(testCategories)
	score := d.Detect([]rrg.Coordinate{
		coord("SOL", rrg.QuadrantLeading),
		coord("AVAX", rrg.QuadrantLeading),
		coord("PAXG", rrg.QuadrantLagging),
	})

	// (+4 - (-2)) over a max of 6, scaled to ±10.
	assert.InDelta(t, 10.0, score.Value, 1e-9)
	assert.Equal(t, RiskOn, score.Regime)
	assert.Equal(t, "2 leading", score.RiskSummary)
	assert.Equal(t, "1 lagging", score.SafeSummary)
}

func TestDetectRiskOff(t *testing.T) {
	d := NewDetector(testCategories)
	score := d.Detect([]rrg.Coordinate{
		coord("SOL", rrg.QuadrantLagging),
		coord("AVAX", rrg.QuadrantLagging),
		coord("PAXG", rrg.QuadrantLeading),
	})

	assert.InDelta(t, -10.0, score.Value, 1e-9)
	assert.Equal(t, RiskOff, score.Regime)
}

func TestDetectNeutralWhenBalanced(t *testing.T) {
	d := NewDetector(testCategories)
	score := d.Detect([]rrg.Coordinate{
		coord("SOL", rrg.QuadrantImproving),
		coord("PAXG", rrg.QuadrantImproving),
	})

	assert.InDelta(t, 0.0, score.Value, 1e-9)
	assert.Equal(t, Neutral, score.Regime)
}

func TestDetectThresholds(t *testing.T) {
	// One risk asset improving against one idle safe haven: (+1-0)/4*10 = 2.5,
	// inside the neutral band.
	d := NewDetector(testCategories)
	score := d.Detect([]rrg.Coordinate{
		coord("SOL", rrg.QuadrantImproving),
		coord("PAXG", rrg.QuadrantWeakening), // -1 on the safe side
	})

	// (+1 - (-1)) / 4 * 10 = 5.0, above the risk-on threshold.
	assert.InDelta(t, 5.0, score.Value, 1e-9)
	assert.Equal(t, RiskOn, score.Regime)
}

func TestDetectIgnoresUnclassifiedSymbols(t *testing.T) {
	d := NewDetector(testCategories)
	with := d.Detect([]rrg.Coordinate{
		coord("SOL", rrg.QuadrantLeading),
		coord("UNKNOWN", rrg.QuadrantLagging),
	})
	without := d.Detect([]rrg.Coordinate{
		coord("SOL", rrg.QuadrantLeading),
	})

	assert.Equal(t, without.Value, with.Value)
	assert.Equal(t, without.Regime, with.Regime)
}

func TestDetectEmptyIsNeutral(t *testing.T) {
	d := NewDetector(testCategories)
	score := d.Detect(nil)
	assert.Equal(t, Neutral, score.Regime)
	assert.Equal(t, 0.0, score.Value)
	assert.Equal(t, "none", score.RiskSummary)
}
