// Package fragility computes the composite market-fragility score Φ from
// liquidity density, funding deviation and spot/perp basis. All three
// components and Φ itself live on a 0-100 scale.
package fragility

import (
	"math"

	"github.com/rotorscan/rotorscan/internal/domain/series"
)

// neutralScore is the explicit "insufficient signal" value: components that
// cannot be measured report 50 rather than collapsing to 0 or 100.
const neutralScore = 50.0

// depthWindow bounds the order-book liquidity window at ±2% of mid.
const depthWindow = 0.02

// Level buckets Φ for presentation.
type Level string

const (
	LevelStable   Level = "stable"
	LevelCaution  Level = "caution"
	LevelFragile  Level = "fragile"
	LevelCritical Level = "critical"
)

// BookLevel is one side of an order-book snapshot entry.
type BookLevel struct {
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
}

// Inputs is the immutable snapshot a score is computed from.
type Inputs struct {
	OpenInterestUSD float64
	Bids            []BookLevel
	Asks            []BookLevel
	CurrentFunding  float64
	Funding7d       []float64
	SpotPrice       float64
	PerpPrice       float64
}

// Score is the composite fragility result.
type Score struct {
	LiquidityDensity float64 `json:"l_d"`
	FundingDeviation float64 `json:"f_sigma"`
	BasisTension     float64 `json:"b_z"`
	Phi              float64 `json:"phi"`
	Level            Level   `json:"level"`
	Depth2PctUSD     float64 `json:"depth_2pct_usd"`
}

// Compute produces a fresh Score from the snapshot. Never reuses prior
// state; every cycle recomputes all components.
func Compute(in Inputs) Score {
	mid := (in.SpotPrice + in.PerpPrice) / 2
	depth := Depth2Pct(in.Bids, in.Asks, mid)

	ld := LiquidityDensity(in.OpenInterestUSD, depth)
	fs := FundingDeviation(in.CurrentFunding, in.Funding7d)
	bz := BasisTension(in.SpotPrice, in.PerpPrice)
	phi := (ld + fs + bz) / 3

	return Score{
		LiquidityDensity: ld,
		FundingDeviation: fs,
		BasisTension:     bz,
		Phi:              phi,
		Level:            levelFor(phi),
		Depth2PctUSD:     depth,
	}
}

// Depth2Pct sums bid notional at price >= mid*0.98 and ask notional at
// price <= mid*1.02.
func Depth2Pct(bids, asks []BookLevel, mid float64) float64 {
	lower := mid * (1 - depthWindow)
	upper := mid * (1 + depthWindow)

	var depth float64
	for _, b := range bids {
		if b.Price >= lower {
			depth += b.Price * b.Quantity
		}
	}
	for _, a := range asks {
		if a.Price <= upper {
			depth += a.Price * a.Quantity
		}
	}
	return depth
}

// LiquidityDensity (L_d) measures open interest against near-book liquidity.
// Zero or negative depth means maximal fragility: any size moves the market.
func LiquidityDensity(oiUSD, depth2PctUSD float64) float64 {
	if depth2PctUSD <= 0 {
		return 100
	}
	return clamp(oiUSD / (depth2PctUSD * 10))
}

// FundingDeviation (F_sigma) measures how far current funding sits from its
// trailing mean, in population standard deviations scaled by 20. Fewer than
// 3 samples or zero variance is insufficient signal, not an extreme.
func FundingDeviation(currentFunding float64, funding7d []float64) float64 {
	if len(funding7d) < 3 {
		return neutralScore
	}
	std := series.StdDev(funding7d)
	if std == 0 {
		return neutralScore
	}
	z := math.Abs(currentFunding-series.Mean(funding7d)) / std
	return clamp(z * 20)
}

// BasisTension (B_z) measures the spot/perp dislocation. A non-positive spot
// price cannot anchor the basis, so the component degrades to neutral.
func BasisTension(spot, perp float64) float64 {
	if spot <= 0 {
		return neutralScore
	}
	return clamp(math.Abs(spot-perp) / spot * 1000)
}

func levelFor(phi float64) Level {
	switch {
	case phi <= 25:
		return LevelStable
	case phi <= 50:
		return LevelCaution
	case phi <= 75:
		return LevelFragile
	default:
		return LevelCritical
	}
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
