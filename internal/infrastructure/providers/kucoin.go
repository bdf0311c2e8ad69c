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

// KuCoin is the third-priority spot provider. It carries no derivatives
// endpoints here, so funding and open interest report unsupported and the
// registry falls through to a provider that has them.
type KuCoin struct {
	baseURL string
	client  *http.Client
	guard   *guard
}

// ErrUnsupported marks a capability a provider does not offer.
var ErrUnsupported = fmt.Errorf("capability not supported")

// NewKuCoin creates a KuCoin provider with the given rate budget.
func NewKuCoin(timeout time.Duration, rps float64, burst int) *KuCoin {
	return &KuCoin{
		baseURL: "https://api.kucoin.com",
		client:  newHTTPClient(timeout),
		guard:   newGuard("kucoin", rps, burst),
	}
}

func (k *KuCoin) Name() string { return "kucoin" }

func (k *KuCoin) Klines(ctx context.Context, symbol string, limit int) (series.PriceSeries, error) {
	end := time.Now().Unix()
	start := end - int64(limit)*86400

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("type", "1day")
	params.Set("startAt", strconv.FormatInt(start, 10))
	params.Set("endAt", strconv.FormatInt(end, 10))

	var data [][]string
	if err := k.getData(ctx, "/api/v1/market/candles?"+params.Encode(), symbol, &data); err != nil {
		return nil, err
	}

	// Candle layout (newest first): time, open, close, high, low, volume, turnover
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
			Date:   time.Unix(ts, 0).UTC(),
			Open:   parseString(c[1]),
			Close:  parseString(c[2]),
			High:   parseString(c[3]),
			Low:    parseString(c[4]),
			Volume: parseString(c[5]),
		})
	}
	return series.New(points), nil
}

func (k *KuCoin) OrderBook(ctx context.Context, symbol string, _ int) (OrderBook, error) {
	var data struct {
		Bids [][]string `json:"bids"`
		Asks [][]string `json:"asks"`
	}
	if err := k.getData(ctx, "/api/v1/market/orderbook/level2_100?symbol="+url.QueryEscape(symbol), symbol, &data); err != nil {
		return OrderBook{}, err
	}
	return OrderBook{Bids: parseKuCoinSide(data.Bids), Asks: parseKuCoinSide(data.Asks)}, nil
}

func (k *KuCoin) Funding(_ context.Context, symbol string, _ int) (Funding, error) {
	return Funding{}, &errs.DataFetchError{Provider: k.Name(), Symbol: symbol, Err: ErrUnsupported}
}

func (k *KuCoin) OpenInterest(_ context.Context, symbol string) (float64, error) {
	return 0, &errs.DataFetchError{Provider: k.Name(), Symbol: symbol, Err: ErrUnsupported}
}

func (k *KuCoin) Tickers(ctx context.Context, symbol string) (Tickers, error) {
	var data struct {
		Price string `json:"price"`
	}
	if err := k.getData(ctx, "/api/v1/market/orderbook/level1?symbol="+url.QueryEscape(symbol), symbol, &data); err != nil {
		return Tickers{}, err
	}
	price := parseString(data.Price)
	// No perp market here; report spot for both so the basis reads zero
	// rather than fabricating a dislocation.
	return Tickers{Spot: price, Perp: price}, nil
}

func (k *KuCoin) getData(ctx context.Context, path, symbol string, out any) error {
	_, err := k.guard.do(ctx, func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.baseURL+path, nil)
		if err != nil {
			return nil, err
		}
		resp, err := k.client.Do(req)
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
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, err
		}
		if envelope.Code != "200000" {
			return nil, fmt.Errorf("kucoin error %s", envelope.Code)
		}
		return nil, json.Unmarshal(envelope.Data, out)
	})
	if err != nil {
		return &errs.DataFetchError{Provider: k.Name(), Symbol: symbol, Err: err}
	}
	return nil
}

func parseKuCoinSide(levels [][]string) []fragility.BookLevel {
	out := make([]fragility.BookLevel, 0, len(levels))
	for _, l := range levels {
		if len(l) < 2 {
			continue
		}
		out = append(out, fragility.BookLevel{Price: parseString(l[0]), Quantity: parseString(l[1])})
	}
	return out
}
