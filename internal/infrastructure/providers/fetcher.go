package providers

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rotorscan/rotorscan/internal/domain/series"
	"github.com/rotorscan/rotorscan/internal/infrastructure/cache"
	"github.com/rotorscan/rotorscan/internal/metrics"
)

// DerivSnapshot bundles the derivative-side inputs for one symbol.
type DerivSnapshot struct {
	Symbol    string    `json:"symbol"`
	OrderBook OrderBook `json:"order_book"`
	Funding   Funding   `json:"funding"`
	// OpenInterestUSD is contracts converted at the current spot price.
	OpenInterestUSD float64 `json:"open_interest_usd"`
	SpotPrice       float64 `json:"spot_price"`
	PerpPrice       float64 `json:"perp_price"`
}

// Fetcher fans out history requests with bounded parallelism and per-symbol
// timeouts. One symbol's failure never blocks or fails the others; failures
// are captured per task and returned alongside the successes.
type Fetcher struct {
	registry *Registry
	history  *cache.Populate
	metrics  *metrics.Registry

	maxConcurrent int
	perFetch      time.Duration
	historyDays   int
	bookDepth     int
	fundingLags   int
}

// NewFetcher wires the fan-out fetcher. historyDays controls how much daily
// history is requested; 200 comfortably covers every scorer's minimum.
func NewFetcher(registry *Registry, history *cache.Populate, m *metrics.Registry, maxConcurrent int, perFetch time.Duration) *Fetcher {
	return &Fetcher{
		registry:      registry,
		history:       history,
		metrics:       m,
		maxConcurrent: maxConcurrent,
		perFetch:      perFetch,
		historyDays:   200,
		bookDepth:     100,
		fundingLags:   21, // 7 days of 8h periods
	}
}

// FetchHistories loads daily price series for all symbols. The returned maps
// together cover every requested symbol: each is either fetched or attributed
// with the error that excluded it.
func (f *Fetcher) FetchHistories(ctx context.Context, symbols []string) (map[string]series.PriceSeries, map[string]error) {
	var mu sync.Mutex
	histories := make(map[string]series.PriceSeries, len(symbols))
	failures := make(map[string]error)

	sem := make(chan struct{}, f.maxConcurrent)
	var wg sync.WaitGroup
	for _, symbol := range symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			fetchCtx, cancel := context.WithTimeout(ctx, f.perFetch)
			defer cancel()

			s, err := f.History(fetchCtx, symbol)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures[symbol] = err
				return
			}
			histories[symbol] = s
		}(symbol)
	}
	wg.Wait()

	if len(failures) > 0 {
		log.Warn().Int("failed", len(failures)).Int("fetched", len(histories)).Msg("partial history fetch")
	}
	return histories, failures
}

// History loads one symbol's daily candles through the TTL cache; concurrent
// callers for the same symbol share a single upstream fetch.
func (f *Fetcher) History(ctx context.Context, symbol string) (series.PriceSeries, error) {
	raw, hit, err := f.history.GetOrFetch(ctx, "history:"+symbol, func(ctx context.Context) ([]byte, error) {
		s, err := f.registry.Klines(ctx, symbol, f.historyDays)
		if err != nil {
			return nil, err
		}
		return json.Marshal(s)
	})
	if err != nil {
		f.metrics.CacheMisses.WithLabelValues("history").Inc()
		return nil, err
	}
	if hit {
		f.metrics.CacheHits.WithLabelValues("history").Inc()
	} else {
		f.metrics.CacheMisses.WithLabelValues("history").Inc()
	}

	var s series.PriceSeries
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return s, nil
}

// FetchDerivatives loads the order book, funding, open interest and tickers
// for one symbol. Never cached: fragility must see the current book.
func (f *Fetcher) FetchDerivatives(ctx context.Context, symbol string) (DerivSnapshot, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, f.perFetch)
	defer cancel()

	tickers, err := f.registry.Tickers(fetchCtx, symbol)
	if err != nil {
		return DerivSnapshot{}, err
	}
	book, err := f.registry.OrderBook(fetchCtx, symbol, f.bookDepth)
	if err != nil {
		return DerivSnapshot{}, err
	}
	funding, err := f.registry.Funding(fetchCtx, symbol, f.fundingLags)
	if err != nil {
		return DerivSnapshot{}, err
	}
	oiContracts, err := f.registry.OpenInterest(fetchCtx, symbol)
	if err != nil {
		return DerivSnapshot{}, err
	}

	return DerivSnapshot{
		Symbol:          symbol,
		OrderBook:       book,
		Funding:         funding,
		OpenInterestUSD: oiContracts * tickers.Spot,
		SpotPrice:       tickers.Spot,
		PerpPrice:       tickers.Perp,
	}, nil
}
