package application

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/rotorscan/rotorscan/internal/infrastructure/providers"
)

// BuildSnapshot assembles an immutable cycle input from the collaborator:
// histories for every tracked symbol plus derivative state for the symbols
// under fragility watch. Fetch failures become attributed exclusions, never
// aborts.
func BuildSnapshot(ctx context.Context, fetcher *providers.Fetcher, symbols, derivSymbols []string) *Snapshot {
	histories, failures := fetcher.FetchHistories(ctx, symbols)

	snap := &Snapshot{
		Histories:     histories,
		FetchFailures: make(map[string]string, len(failures)),
		Derivatives:   make(map[string]DerivInputs, len(derivSymbols)),
	}
	for symbol, err := range failures {
		snap.FetchFailures[symbol] = err.Error()
	}

	for _, symbol := range derivSymbols {
		deriv, err := fetcher.FetchDerivatives(ctx, symbol)
		if err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("derivative snapshot unavailable")
			snap.FetchFailures[symbol+":derivatives"] = err.Error()
			continue
		}
		snap.Derivatives[symbol] = DerivInputs{
			OpenInterestUSD: deriv.OpenInterestUSD,
			Bids:            deriv.OrderBook.Bids,
			Asks:            deriv.OrderBook.Asks,
			CurrentFunding:  deriv.Funding.Current,
			Funding7d:       deriv.Funding.History,
			SpotPrice:       deriv.SpotPrice,
			PerpPrice:       deriv.PerpPrice,
		}
	}
	return snap
}
