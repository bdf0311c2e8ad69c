package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotorscan/rotorscan/internal/domain/errs"
	"github.com/rotorscan/rotorscan/internal/domain/fragility"
	"github.com/rotorscan/rotorscan/internal/domain/series"
)

// Binance serves spot data from api.binance.com and derivatives data from
// fapi.binance.com, all keyless public endpoints.
type Binance struct {
	spotURL    string
	futuresURL string
	client     *http.Client
	guard      *guard
}

// NewBinance creates a Binance provider with the given rate budget.
func NewBinance(timeout time.Duration, rps float64, burst int) *Binance {
	return &Binance{
		spotURL:    "https://api.binance.com",
		futuresURL: "https://fapi.binance.com",
		client:     newHTTPClient(timeout),
		guard:      newGuard("binance", rps, burst),
	}
}

func (b *Binance) Name() string { return "binance" }

func (b *Binance) Klines(ctx context.Context, symbol string, limit int) (series.PriceSeries, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", "1d")
	params.Set("limit", strconv.Itoa(limit))

	var raw [][]any
	if err := b.getJSON(ctx, b.spotURL+"/api/v3/klines?"+params.Encode(), symbol, &raw); err != nil {
		return nil, err
	}

	points := make([]series.PricePoint, 0, len(raw))
	for _, k := range raw {
		// kline layout: openTime, open, high, low, close, volume, ...
		if len(k) < 6 {
			continue
		}
		openTime, ok := k[0].(float64)
		if !ok {
			continue
		}
		points = append(points, series.PricePoint{
			Date:   time.UnixMilli(int64(openTime)).UTC(),
			Open:   parseField(k[1]),
			High:   parseField(k[2]),
			Low:    parseField(k[3]),
			Close:  parseField(k[4]),
			Volume: parseField(k[5]),
		})
	}
	return series.New(points), nil
}

func (b *Binance) OrderBook(ctx context.Context, symbol string, depth int) (OrderBook, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("limit", strconv.Itoa(depth))

	var raw struct {
		Bids [][]string `json:"bids"`
		Asks [][]string `json:"asks"`
	}
	if err := b.getJSON(ctx, b.spotURL+"/api/v3/depth?"+params.Encode(), symbol, &raw); err != nil {
		return OrderBook{}, err
	}
	return OrderBook{Bids: parseBookSide(raw.Bids), Asks: parseBookSide(raw.Asks)}, nil
}

func (b *Binance) Funding(ctx context.Context, symbol string, periods int) (Funding, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("limit", strconv.Itoa(periods))

	var raw []struct {
		FundingRate string `json:"fundingRate"`
	}
	if err := b.getJSON(ctx, b.futuresURL+"/fapi/v1/fundingRate?"+params.Encode(), symbol, &raw); err != nil {
		return Funding{}, err
	}
	if len(raw) == 0 {
		return Funding{}, &errs.DataFetchError{Provider: b.Name(), Symbol: symbol, Err: fmt.Errorf("empty funding history")}
	}

	history := make([]float64, 0, len(raw))
	for _, r := range raw {
		rate, err := strconv.ParseFloat(r.FundingRate, 64)
		if err != nil {
			continue
		}
		history = append(history, rate)
	}
	return Funding{Current: history[len(history)-1], History: history}, nil
}

func (b *Binance) OpenInterest(ctx context.Context, symbol string) (float64, error) {
	var raw struct {
		OpenInterest string `json:"openInterest"`
	}
	if err := b.getJSON(ctx, b.futuresURL+"/fapi/v1/openInterest?symbol="+url.QueryEscape(symbol), symbol, &raw); err != nil {
		return 0, err
	}
	oi, err := strconv.ParseFloat(raw.OpenInterest, 64)
	if err != nil {
		return 0, &errs.DataFetchError{Provider: b.Name(), Symbol: symbol, Err: err}
	}
	return oi, nil
}

func (b *Binance) Tickers(ctx context.Context, symbol string) (Tickers, error) {
	var spot struct {
		Price string `json:"price"`
	}
	if err := b.getJSON(ctx, b.spotURL+"/api/v3/ticker/price?symbol="+url.QueryEscape(symbol), symbol, &spot); err != nil {
		return Tickers{}, err
	}

	var perp struct {
		MarkPrice string `json:"markPrice"`
	}
	if err := b.getJSON(ctx, b.futuresURL+"/fapi/v1/premiumIndex?symbol="+url.QueryEscape(symbol), symbol, &perp); err != nil {
		return Tickers{}, err
	}

	spotPrice, _ := strconv.ParseFloat(spot.Price, 64)
	perpPrice, _ := strconv.ParseFloat(perp.MarkPrice, 64)
	return Tickers{Spot: spotPrice, Perp: perpPrice}, nil
}

func (b *Binance) getJSON(ctx context.Context, rawURL, symbol string, out any) error {
	_, err := b.guard.do(ctx, func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := b.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		return nil, json.Unmarshal(body, out)
	})
	if err != nil {
		return &errs.DataFetchError{Provider: b.Name(), Symbol: symbol, Err: err}
	}
	return nil
}

func parseField(v any) float64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func parseBookSide(levels [][]string) []fragility.BookLevel {
	out := make([]fragility.BookLevel, 0, len(levels))
	for _, l := range levels {
		if len(l) < 2 {
			continue
		}
		price, err1 := strconv.ParseFloat(l[0], 64)
		qty, err2 := strconv.ParseFloat(l[1], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		out = append(out, fragility.BookLevel{Price: price, Quantity: qty})
	}
	return out
}
