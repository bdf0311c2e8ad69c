package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rotorscan/rotorscan/internal/domain/series"
	"github.com/rotorscan/rotorscan/internal/metrics"
)

// stubProvider returns canned data or a fixed error and records the symbols
// it was asked for.
type stubProvider struct {
	name   string
	series series.PriceSeries
	err    error
	asked  []string
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Klines(_ context.Context, symbol string, _ int) (series.PriceSeries, error) {
	s.asked = append(s.asked, symbol)
	return s.series, s.err
}

func (s *stubProvider) OrderBook(_ context.Context, symbol string, _ int) (OrderBook, error) {
	s.asked = append(s.asked, symbol)
	return OrderBook{}, s.err
}

func (s *stubProvider) Funding(_ context.Context, symbol string, _ int) (Funding, error) {
	s.asked = append(s.asked, symbol)
	return Funding{Current: 0.0001}, s.err
}

func (s *stubProvider) OpenInterest(_ context.Context, symbol string) (float64, error) {
	s.asked = append(s.asked, symbol)
	return 42, s.err
}

func (s *stubProvider) Tickers(_ context.Context, symbol string) (Tickers, error) {
	s.asked = append(s.asked, symbol)
	return Tickers{Spot: 100, Perp: 101}, s.err
}

func someSeries() series.PriceSeries {
	return series.New([]series.PricePoint{
		{Date: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), Close: 100},
	})
}

func TestMapSymbol(t *testing.T) {
	assert.Equal(t, "BTCUSDT", MapSymbol("binance", "btc"))
	assert.Equal(t, "BTC-USDT", MapSymbol("okx", "BTC"))
	assert.Equal(t, "SOL-USDT", MapSymbol("kucoin", "SOL"))
}

func TestRegistryFailsOverInPriorityOrder(t *testing.T) {
	down := &stubProvider{name: "binance", err: errors.New("503")}
	up := &stubProvider{name: "okx", series: someSeries()}
	r := NewRegistry([]Provider{down, up}, metrics.NewRegistry())

	s, err := r.Klines(context.Background(), "BTC", 200)
	require.NoError(t, err)
	assert.Len(t, s, 1)

	// Each provider saw its own pair notation.
	assert.Equal(t, []string{"BTCUSDT"}, down.asked)
	assert.Equal(t, []string{"BTC-USDT"}, up.asked)
}

func TestRegistryTreatsEmptySeriesAsFailure(t *testing.T) {
	empty := &stubProvider{name: "binance"}
	full := &stubProvider{name: "okx", series: someSeries()}
	r := NewRegistry([]Provider{empty, full}, metrics.NewRegistry())

	s, err := r.Klines(context.Background(), "ETH", 200)
	require.NoError(t, err)
	assert.Len(t, s, 1)
	assert.Len(t, full.asked, 1)
}

func TestRegistryReturnsLastErrorWhenAllFail(t *testing.T) {
	last := errors.New("rate limited")
	r := NewRegistry([]Provider{
		&stubProvider{name: "binance", err: errors.New("503")},
		&stubProvider{name: "okx", err: last},
	}, metrics.NewRegistry())

	_, err := r.Klines(context.Background(), "BTC", 200)
	require.ErrorIs(t, err, last)
}

func TestRegistryDerivativeFailover(t *testing.T) {
	down := &stubProvider{name: "binance", err: errors.New("maintenance")}
	up := &stubProvider{name: "okx"}
	r := NewRegistry([]Provider{down, up}, metrics.NewRegistry())
	ctx := context.Background()

	_, err := r.OrderBook(ctx, "BTC", 100)
	require.NoError(t, err)
	funding, err := r.Funding(ctx, "BTC", 21)
	require.NoError(t, err)
	assert.Equal(t, 0.0001, funding.Current)
	oi, err := r.OpenInterest(ctx, "BTC")
	require.NoError(t, err)
	assert.Equal(t, 42.0, oi)
	tickers, err := r.Tickers(ctx, "BTC")
	require.NoError(t, err)
	assert.Equal(t, 100.0, tickers.Spot)
}
