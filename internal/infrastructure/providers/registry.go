package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/rotorscan/rotorscan/internal/domain/errs"
	"github.com/rotorscan/rotorscan/internal/domain/series"
	"github.com/rotorscan/rotorscan/internal/metrics"
)

// Registry routes requests across providers in priority order, failing over
// when a provider errors or lacks the capability. Symbols are kept in
// canonical base form (BTC, ETH) and translated per exchange.
type Registry struct {
	providers []Provider
	metrics   *metrics.Registry
}

// NewRegistry builds a registry from the priority-ordered provider list.
func NewRegistry(ordered []Provider, m *metrics.Registry) *Registry {
	return &Registry{providers: ordered, metrics: m}
}

// MapSymbol translates a canonical base symbol to the exchange's pair
// notation against USDT.
func MapSymbol(provider, symbol string) string {
	base := strings.ToUpper(symbol)
	switch provider {
	case "binance":
		return base + "USDT"
	default: // okx, kucoin
		return base + "-USDT"
	}
}

// Klines fetches daily candles, trying providers in order.
func (r *Registry) Klines(ctx context.Context, symbol string, limit int) (series.PriceSeries, error) {
	var lastErr error
	for _, p := range r.providers {
		r.metrics.ProviderRequests.WithLabelValues(p.Name(), "klines").Inc()
		s, err := p.Klines(ctx, MapSymbol(p.Name(), symbol), limit)
		if err == nil && len(s) > 0 {
			return s, nil
		}
		if err == nil {
			err = &errs.DataFetchError{Provider: p.Name(), Symbol: symbol, Err: fmt.Errorf("empty series")}
		}
		r.metrics.ProviderErrors.WithLabelValues(p.Name(), "klines").Inc()
		log.Debug().Err(err).Str("provider", p.Name()).Str("symbol", symbol).Msg("klines failover")
		lastErr = err
	}
	return nil, lastErr
}

// OrderBook fetches a book snapshot, trying providers in order.
func (r *Registry) OrderBook(ctx context.Context, symbol string, depth int) (OrderBook, error) {
	var lastErr error
	for _, p := range r.providers {
		r.metrics.ProviderRequests.WithLabelValues(p.Name(), "orderbook").Inc()
		book, err := p.OrderBook(ctx, MapSymbol(p.Name(), symbol), depth)
		if err == nil {
			return book, nil
		}
		r.metrics.ProviderErrors.WithLabelValues(p.Name(), "orderbook").Inc()
		lastErr = err
	}
	return OrderBook{}, lastErr
}

// Funding fetches current + trailing funding, trying providers in order.
func (r *Registry) Funding(ctx context.Context, symbol string, periods int) (Funding, error) {
	var lastErr error
	for _, p := range r.providers {
		r.metrics.ProviderRequests.WithLabelValues(p.Name(), "funding").Inc()
		f, err := p.Funding(ctx, MapSymbol(p.Name(), symbol), periods)
		if err == nil {
			return f, nil
		}
		r.metrics.ProviderErrors.WithLabelValues(p.Name(), "funding").Inc()
		lastErr = err
	}
	return Funding{}, lastErr
}

// OpenInterest fetches OI in contracts, trying providers in order.
func (r *Registry) OpenInterest(ctx context.Context, symbol string) (float64, error) {
	var lastErr error
	for _, p := range r.providers {
		r.metrics.ProviderRequests.WithLabelValues(p.Name(), "open_interest").Inc()
		oi, err := p.OpenInterest(ctx, MapSymbol(p.Name(), symbol))
		if err == nil {
			return oi, nil
		}
		r.metrics.ProviderErrors.WithLabelValues(p.Name(), "open_interest").Inc()
		lastErr = err
	}
	return 0, lastErr
}

// Tickers fetches spot+perp prices, trying providers in order.
func (r *Registry) Tickers(ctx context.Context, symbol string) (Tickers, error) {
	var lastErr error
	for _, p := range r.providers {
		r.metrics.ProviderRequests.WithLabelValues(p.Name(), "tickers").Inc()
		t, err := p.Tickers(ctx, MapSymbol(p.Name(), symbol))
		if err == nil {
			return t, nil
		}
		r.metrics.ProviderErrors.WithLabelValues(p.Name(), "tickers").Inc()
		lastErr = err
	}
	return Tickers{}, lastErr
}
