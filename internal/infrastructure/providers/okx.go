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

// OKX serves market data from www.okx.com v5 public endpoints. Responses are
// wrapped in a {code, data} envelope; code "0" is success.
type OKX struct {
	baseURL string
	client  *http.Client
	guard   *guard
}

// NewOKX creates an OKX provider with the given rate budget.
func NewOKX(timeout time.Duration, rps float64, burst int) *OKX {
	return &OKX{
		baseURL: "https://www.okx.com",
		client:  newHTTPClient(timeout),
		guard:   newGuard("okx", rps, burst),
	}
}

func (o *OKX) Name() string { return "okx" }

func (o *OKX) Klines(ctx context.Context, symbol string, limit int) (series.PriceSeries, error) {
	params := url.Values{}
	params.Set("instId", symbol)
	params.Set("bar", "1D")
	params.Set("limit", strconv.Itoa(limit))

	var data [][]string
	if err := o.getData(ctx, "/api/v5/market/candles?"+params.Encode(), symbol, &data); err != nil {
		return nil, err
	}

	// Candle layout (newest first): ts, open, high, low, close, vol, ...
	points := make([]series.PricePoint, 0, len(data))
	for _, c := range data {
		if len(c) < 6 {
			continue
		}
		ts, err := strconv.ParseInt(c[0], 10, 64)
		if err != nil {
			continue
		}
		points = append(points, series.PricePoint{
			Date:   time.UnixMilli(ts).UTC(),
			Open:   parseString(c[1]),
			High:   parseString(c[2]),
			Low:    parseString(c[3]),
			Close:  parseString(c[4]),
			Volume: parseString(c[5]),
		})
	}
	return series.New(points), nil
}

func (o *OKX) OrderBook(ctx context.Context, symbol string, depth int) (OrderBook, error) {
	params := url.Values{}
	params.Set("instId", symbol)
	params.Set("sz", strconv.Itoa(depth))

	var data []struct {
		Bids [][]string `json:"bids"`
		Asks [][]string `json:"asks"`
	}
	if err := o.getData(ctx, "/api/v5/market/books?"+params.Encode(), symbol, &data); err != nil {
		return OrderBook{}, err
	}
	if len(data) == 0 {
		return OrderBook{}, &errs.DataFetchError{Provider: o.Name(), Symbol: symbol, Err: fmt.Errorf("empty order book")}
	}
	return OrderBook{Bids: parseOKXSide(data[0].Bids), Asks: parseOKXSide(data[0].Asks)}, nil
}

func (o *OKX) Funding(ctx context.Context, symbol string, periods int) (Funding, error) {
	instID := symbol + "-SWAP"

	var current []struct {
		FundingRate string `json:"fundingRate"`
	}
	if err := o.getData(ctx, "/api/v5/public/funding-rate?instId="+url.QueryEscape(instID), symbol, &current); err != nil {
		return Funding{}, err
	}
	if len(current) == 0 {
		return Funding{}, &errs.DataFetchError{Provider: o.Name(), Symbol: symbol, Err: fmt.Errorf("no funding rate")}
	}

	params := url.Values{}
	params.Set("instId", instID)
	params.Set("limit", strconv.Itoa(periods))
	var history []struct {
		FundingRate string `json:"fundingRate"`
	}
	if err := o.getData(ctx, "/api/v5/public/funding-rate-history?"+params.Encode(), symbol, &history); err != nil {
		return Funding{}, err
	}

	rates := make([]float64, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- { // newest first -> ascending
		rates = append(rates, parseString(history[i].FundingRate))
	}
	return Funding{Current: parseString(current[0].FundingRate), History: rates}, nil
}

func (o *OKX) OpenInterest(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("instType", "SWAP")
	params.Set("instId", symbol+"-SWAP")

	var data []struct {
		OI string `json:"oi"`
	}
	if err := o.getData(ctx, "/api/v5/public/open-interest?"+params.Encode(), symbol, &data); err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, &errs.DataFetchError{Provider: o.Name(), Symbol: symbol, Err: fmt.Errorf("no open interest")}
	}
	return parseString(data[0].OI), nil
}

func (o *OKX) Tickers(ctx context.Context, symbol string) (Tickers, error) {
	var spot []struct {
		Last string `json:"last"`
	}
	if err := o.getData(ctx, "/api/v5/market/ticker?instId="+url.QueryEscape(symbol), symbol, &spot); err != nil {
		return Tickers{}, err
	}
	var perp []struct {
		Last string `json:"last"`
	}
	if err := o.getData(ctx, "/api/v5/market/ticker?instId="+url.QueryEscape(symbol+"-SWAP"), symbol, &perp); err != nil {
		return Tickers{}, err
	}
	if len(spot) == 0 || len(perp) == 0 {
		return Tickers{}, &errs.DataFetchError{Provider: o.Name(), Symbol: symbol, Err: fmt.Errorf("empty ticker")}
	}
	return Tickers{Spot: parseString(spot[0].Last), Perp: parseString(perp[0].Last)}, nil
}

func (o *OKX) getData(ctx context.Context, path, symbol string, out any) error {
	_, err := o.guard.do(ctx, func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+path, nil)
		if err != nil {
			return nil, err
		}
		resp, err := o.client.Do(req)
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

		var envelope struct {
			Code string          `json:"code"`
			Msg  string          `json:"msg"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, err
		}
		if envelope.Code != "0" {
			return nil, fmt.Errorf("okx error %s: %s", envelope.Code, envelope.Msg)
		}
		return nil, json.Unmarshal(envelope.Data, out)
	})
	if err != nil {
		return &errs.DataFetchError{Provider: o.Name(), Symbol: symbol, Err: err}
	}
	return nil
}

func parseString(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func parseOKXSide(levels [][]string) []fragility.BookLevel {
	out := make([]fragility.BookLevel, 0, len(levels))
	for _, l := range levels {
		if len(l) < 2 {
			continue
		}
		out = append(out, fragility.BookLevel{Price: parseString(l[0]), Quantity: parseString(l[1])})
	}
	return out
}
