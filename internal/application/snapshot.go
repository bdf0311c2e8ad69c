package application

import (
	"github.com/rotorscan/rotorscan/internal/domain/fragility"
	"github.com/rotorscan/rotorscan/internal/domain/series"
)

// Snapshot is the immutable input to one evaluation cycle. The caller owns
// it; the engine only reads. Concurrent cycles must each receive their own
// snapshot.
type Snapshot struct {
	// Histories holds daily series for every symbol the cycle may touch:
	// benchmark, universe and sector constituents.
	Histories map[string]series.PriceSeries

	// FetchFailures attributes symbols the collaborator could not supply.
	// They surface in the result's exclusions; nothing is silently dropped.
	FetchFailures map[string]string

	// Derivatives holds the per-symbol derivative inputs for fragility and
	// liquidation estimation, keyed by canonical symbol.
	Derivatives map[string]DerivInputs
}

// DerivInputs is the derivative-side state of one symbol at snapshot time.
type DerivInputs struct {
	OpenInterestUSD float64
	Bids            []fragility.BookLevel
	Asks            []fragility.BookLevel
	CurrentFunding  float64
	Funding7d       []float64
	SpotPrice       float64
	PerpPrice       float64
}
