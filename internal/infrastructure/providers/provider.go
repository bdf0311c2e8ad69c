// Package providers implements the upstream data collaborators: keyless REST
// clients for Binance, OKX and KuCoin behind a priority-ordered registry,
// with per-host rate limiting and circuit breaking. The scoring core never
// imports this package directly; it consumes the snapshots produced here.
package providers

import (
	"context"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/rotorscan/rotorscan/internal/domain/fragility"
	"github.com/rotorscan/rotorscan/internal/domain/series"
)

// Provider is one exchange's public market-data surface.
type Provider interface {
	Name() string

	// Klines returns up to limit daily candles, ascending.
	Klines(ctx context.Context, symbol string, limit int) (series.PriceSeries, error)

	// OrderBook returns a bid/ask snapshot of the given depth.
	OrderBook(ctx context.Context, symbol string, depth int) (OrderBook, error)

	// Funding returns the current funding rate plus trailing history.
	Funding(ctx context.Context, symbol string, periods int) (Funding, error)

	// OpenInterest returns open interest in base-unit contracts.
	OpenInterest(ctx context.Context, symbol string) (float64, error)

	// Tickers returns the current spot and perpetual prices.
	Tickers(ctx context.Context, symbol string) (Tickers, error)
}

// OrderBook is a raw snapshot of both sides of the book.
type OrderBook struct {
	Bids []fragility.BookLevel `json:"bids"`
	Asks []fragility.BookLevel `json:"asks"`
}

// Funding bundles the current rate with its trailing periods.
type Funding struct {
	Current float64   `json:"current"`
	History []float64 `json:"history"`
}

// Tickers pairs the spot and perpetual prices of one symbol.
type Tickers struct {
	Spot float64 `json:"spot"`
	Perp float64 `json:"perp"`
}

// guard wraps the shared per-provider protections: token-bucket rate limit
// and a circuit breaker that trips on consecutive or proportional failures.
type guard struct {
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

func newGuard(name string, rps float64, burst int) *guard {
	settings := gobreaker.Settings{Name: name}
	settings.Interval = 60 * time.Second
	settings.Timeout = 60 * time.Second
	settings.ReadyToTrip = func(counts gobreaker.Counts) bool {
		if counts.ConsecutiveFailures >= 3 {
			return true
		}
		if counts.Requests < 20 {
			return false
		}
		return float64(counts.TotalFailures)/float64(counts.Requests) > 0.05
	}
	return &guard{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// do runs fn behind the limiter and breaker.
func (g *guard) do(ctx context.Context, fn func() (any, error)) (any, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return g.breaker.Execute(fn)
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
