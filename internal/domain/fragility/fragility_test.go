package fragility

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDepth2PctWindow(t *testing.T) {
	mid := 100.0
	bids := []BookLevel{
		{Price: 99, Quantity: 10}, // inside, 990 notional
		{Price: 97, Quantity: 10}, // outside the -2% window
	}
	asks := []BookLevel{
		{Price: 101, Quantity: 10}, // inside, 1010 notional
		{Price: 103, Quantity: 10}, // outside the +2% window
	}

	assert.InDelta(t, 2000.0, Depth2Pct(bids, asks, mid), 1e-9)
}

func TestLiquidityDensity(t *testing.T) {
	// OI at 500x near-book depth lands mid-scale.
	assert.InDelta(t, 50.0, LiquidityDensity(500_000, 1000), 1e-9)
	assert.InDelta(t, 1.0, LiquidityDensity(1_000_000, 100_000), 1e-9)
	// Empty book means any size moves the market.
	assert.Equal(t, 100.0, LiquidityDensity(1_000_000, 0))
	assert.Equal(t, 100.0, LiquidityDensity(1_000_000, -5))
	// Clamped above.
	assert.Equal(t, 100.0, LiquidityDensity(1e12, 100_000))
}

func TestFundingDeviationNeutralPolicies(t *testing.T) {
	// Fewer than 3 samples is insufficient signal, not an extreme.
	assert.Equal(t, 50.0, FundingDeviation(0.01, []float64{0.0001, 0.0002}))
	assert.Equal(t, 50.0, FundingDeviation(0.01, nil))
	// Zero variance likewise.
	assert.Equal(t, 50.0, FundingDeviation(0.01, []float64{0.0001, 0.0001, 0.0001}))
}

func TestFundingDeviationScaling(t *testing.T) {
	// History {1,3} around current 4: mean 2, population std 1, z=2 -> 40.
	history := []float64{1, 3, 1, 3}
	assert.InDelta(t, 40.0, FundingDeviation(4, history), 1e-9)
	// Far outlier clamps at 100.
	assert.Equal(t, 100.0, FundingDeviation(100, history))
}

func TestBasisTension(t *testing.T) {
	// 1% dislocation scales to 10 points.
	assert.InDelta(t, 10.0, BasisTension(100, 101), 1e-9)
	assert.InDelta(t, 10.0, BasisTension(100, 99), 1e-9)
	// 10%+ dislocation saturates.
	assert.Equal(t, 100.0, BasisTension(100, 112))
	// No spot anchor degrades to neutral.
	assert.Equal(t, 50.0, BasisTension(0, 101))
	assert.Equal(t, 50.0, BasisTension(-1, 101))
}

func TestComputeCompositeAndLevels(t *testing.T) {
	in := Inputs{
		OpenInterestUSD: 500_000,
		Bids:            []BookLevel{{Price: 100, Quantity: 10}},
		Asks:            []BookLevel{},
		CurrentFunding:  0.0001,
		Funding7d:       []float64{0.0001, 0.0001, 0.0001},
		SpotPrice:       100,
		PerpPrice:       100,
	}

	score := Compute(in)
	// Depth is 1000 so the density component lands at 50; funding is
	// neutral 50 and the basis is flat.
	assert.InDelta(t, 50.0, score.LiquidityDensity, 1e-9)
	assert.Equal(t, 50.0, score.FundingDeviation)
	assert.Equal(t, 0.0, score.BasisTension)
	assert.InDelta(t, 33.3, score.Phi, 0.2)
	assert.Equal(t, LevelCaution, score.Level)
}

func TestLevelBuckets(t *testing.T) {
	cases := []struct {
		phi  float64
		want Level
	}{
		{0, LevelStable},
		{25, LevelStable},
		{25.1, LevelCaution},
		{50, LevelCaution},
		{50.1, LevelFragile},
		{75, LevelFragile},
		{75.1, LevelCritical},
		{100, LevelCritical},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, levelFor(tc.phi), "phi=%v", tc.phi)
	}
}

func TestComputeIsStateless(t *testing.T) {
	in := Inputs{
		OpenInterestUSD: 1_000_000,
		Bids:            []BookLevel{{Price: 49900, Quantity: 2}},
		Asks:            []BookLevel{{Price: 50100, Quantity: 2}},
		CurrentFunding:  0.0004,
		Funding7d:       []float64{0.0001, 0.0002, 0.0003, 0.0002},
		SpotPrice:       50000,
		PerpPrice:       50050,
	}
	first := Compute(in)
	second := Compute(in)
	require.Equal(t, first, second)
}
