// Package liquidation distributes open interest across assumed leverage
// tiers to estimate where forced liquidations would cluster. The output is
// an estimate derived from crowding assumptions and must never be presented
// as actual exchange liquidation data; realized events arrive on a separate
// stream and are merged only at the presentation boundary.
package liquidation

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"

	"github.com/rotorscan/rotorscan/internal/domain/errs"
)

// Disclaimer accompanies every estimated heatmap.
const Disclaimer = "Calculated from OI + leverage distribution assumptions. Not actual pending liquidations."

// DataType tags a liquidation record's provenance.
type DataType string

const (
	Estimated DataType = "ESTIMATED"
	Realized  DataType = "REALIZED"
)

// Side of the positions a level would liquidate.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// maintenanceFactor approximates a ~10% maintenance-margin requirement.
const maintenanceFactor = 0.9

// Config controls the estimator. TierWeights must sum to 1.0.
type Config struct {
	TierWeights       map[int]float64
	WindowPct         float64
	BucketGranularity float64
}

// DefaultConfig reflects the assumed leverage distribution of perp traders.
func DefaultConfig() Config {
	return Config{
		TierWeights: map[int]float64{
			5:   0.10,
			10:  0.25,
			20:  0.30,
			50:  0.25,
			100: 0.10,
		},
		WindowPct:         0.20,
		BucketGranularity: 1000,
	}
}

// Validate enforces the weight-sum invariant.
func (c Config) Validate() error {
	var sum float64
	for lev, w := range c.TierWeights {
		if lev <= 0 || w < 0 {
			return &errs.ConfigurationError{Detail: "leverage tiers must be positive with non-negative weights"}
		}
		sum += w
	}
	if math.Abs(sum-1.0) > 1e-9 {
		return &errs.ConfigurationError{Detail: "leverage tier weights must sum to 1.0"}
	}
	if c.WindowPct <= 0 || c.BucketGranularity <= 0 {
		return &errs.ConfigurationError{Detail: "window and bucket granularity must be positive"}
	}
	return nil
}

// Heatmap is the estimated liquidation-price distribution. The level maps
// are keyed by bucket price; on the wire the keys become decimal strings
// because JSON objects cannot carry numeric keys.
type Heatmap struct {
	Symbol           string
	CurrentPrice     float64
	LongLevels       map[float64]float64
	ShortLevels      map[float64]float64
	TotalLongAtRisk  float64
	TotalShortAtRisk float64
	LongRatio        float64
	ShortRatio       float64
	DataType         DataType
	Disclaimer       string
}

// heatmapJSON is the wire shape of a Heatmap.
type heatmapJSON struct {
	Symbol           string             `json:"symbol"`
	CurrentPrice     float64            `json:"current_price"`
	LongLevels       map[string]float64 `json:"long_liquidations"`
	ShortLevels      map[string]float64 `json:"short_liquidations"`
	TotalLongAtRisk  float64            `json:"total_long_at_risk"`
	TotalShortAtRisk float64            `json:"total_short_at_risk"`
	LongRatio        float64            `json:"long_ratio"`
	ShortRatio       float64            `json:"short_ratio"`
	DataType         DataType           `json:"data_type"`
	Disclaimer       string             `json:"disclaimer"`
}

func (h Heatmap) MarshalJSON() ([]byte, error) {
	return json.Marshal(heatmapJSON{
		Symbol:           h.Symbol,
		CurrentPrice:     h.CurrentPrice,
		LongLevels:       levelsToWire(h.LongLevels),
		ShortLevels:      levelsToWire(h.ShortLevels),
		TotalLongAtRisk:  h.TotalLongAtRisk,
		TotalShortAtRisk: h.TotalShortAtRisk,
		LongRatio:        h.LongRatio,
		ShortRatio:       h.ShortRatio,
		DataType:         h.DataType,
		Disclaimer:       h.Disclaimer,
	})
}

func (h *Heatmap) UnmarshalJSON(data []byte) error {
	var wire heatmapJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	longLevels, err := levelsFromWire(wire.LongLevels)
	if err != nil {
		return err
	}
	shortLevels, err := levelsFromWire(wire.ShortLevels)
	if err != nil {
		return err
	}
	*h = Heatmap{
		Symbol:           wire.Symbol,
		CurrentPrice:     wire.CurrentPrice,
		LongLevels:       longLevels,
		ShortLevels:      shortLevels,
		TotalLongAtRisk:  wire.TotalLongAtRisk,
		TotalShortAtRisk: wire.TotalShortAtRisk,
		LongRatio:        wire.LongRatio,
		ShortRatio:       wire.ShortRatio,
		DataType:         wire.DataType,
		Disclaimer:       wire.Disclaimer,
	}
	return nil
}

func levelsToWire(levels map[float64]float64) map[string]float64 {
	if levels == nil {
		return nil
	}
	out := make(map[string]float64, len(levels))
	for price, usd := range levels {
		out[strconv.FormatFloat(price, 'f', -1, 64)] = usd
	}
	return out
}

func levelsFromWire(levels map[string]float64) (map[float64]float64, error) {
	if levels == nil {
		return nil, nil
	}
	out := make(map[float64]float64, len(levels))
	for key, usd := range levels {
		price, err := strconv.ParseFloat(key, 64)
		if err != nil {
			return nil, err
		}
		out[price] = usd
	}
	return out, nil
}

// Zone is a major liquidation cluster near the current price.
type Zone struct {
	Price       float64 `json:"price"`
	NotionalUSD float64 `json:"usd_notional"`
	Side        Side    `json:"side"`
	DistancePct float64 `json:"distance_pct"`
}

// Event is a realized liquidation reported by an exchange stream. It shares
// the DataType tag so the two sources stay distinguishable end to end.
type Event struct {
	Symbol      string   `json:"symbol"`
	Price       float64  `json:"price"`
	NotionalUSD float64  `json:"usd_notional"`
	Side        Side     `json:"side"`
	DataType    DataType `json:"data_type"`
}

// Estimator spreads OI across leverage tiers. Stateless.
type Estimator struct {
	cfg Config
}

// NewEstimator validates the tier table before returning an estimator.
func NewEstimator(cfg Config) (*Estimator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Estimator{cfg: cfg}, nil
}

// LongRatio maps the sign and magnitude of funding to the assumed share of
// OI held long. Positive funding means longs pay shorts, i.e. long crowding.
// The step bands capture direction only, not precise positioning.
func LongRatio(fundingRate float64) float64 {
	switch {
	case fundingRate > 0.0005:
		return 0.60
	case fundingRate > 0.0002:
		return 0.55
	case fundingRate < -0.0005:
		return 0.40
	case fundingRate < -0.0002:
		return 0.45
	default:
		return 0.50
	}
}

// LiquidationPrice computes the forced-exit price for a position entered at
// entry with the given leverage.
func LiquidationPrice(entry float64, leverage int, side Side) float64 {
	m := maintenanceFactor / float64(leverage)
	if side == SideLong {
		return entry * (1 - m)
	}
	return entry * (1 + m)
}

// Estimate builds the heatmap for one symbol. Levels are bucketed to the
// configured granularity and restricted to the ±window around current price.
func (e *Estimator) Estimate(symbol string, currentPrice, oiUSD, fundingRate float64) (Heatmap, error) {
	if currentPrice <= 0 {
		return Heatmap{}, &errs.CalculationError{Symbol: symbol, Reason: "non-positive current price"}
	}

	longRatio := LongRatio(fundingRate)
	shortRatio := 1 - longRatio
	longOI := oiUSD * longRatio
	shortOI := oiUSD * shortRatio

	minPrice := currentPrice * (1 - e.cfg.WindowPct)
	maxPrice := currentPrice * (1 + e.cfg.WindowPct)

	hm := Heatmap{
		Symbol:       symbol,
		CurrentPrice: currentPrice,
		LongLevels:   map[float64]float64{},
		ShortLevels:  map[float64]float64{},
		LongRatio:    longRatio,
		ShortRatio:   shortRatio,
		DataType:     Estimated,
		Disclaimer:   Disclaimer,
	}

	for _, lev := range e.leverages() {
		weight := e.cfg.TierWeights[lev]

		longLiq := LiquidationPrice(currentPrice, lev, SideLong)
		if longLiq >= minPrice && longLiq < currentPrice {
			bucket := e.bucket(longLiq)
			hm.LongLevels[bucket] += longOI * weight
			hm.TotalLongAtRisk += longOI * weight
		}

		shortLiq := LiquidationPrice(currentPrice, lev, SideShort)
		if shortLiq > currentPrice && shortLiq <= maxPrice {
			bucket := e.bucket(shortLiq)
			hm.ShortLevels[bucket] += shortOI * weight
			hm.TotalShortAtRisk += shortOI * weight
		}
	}
	return hm, nil
}

// MajorZones lists clusters at or above the notional threshold, nearest to
// the current price first. Ties break on ascending price so output order is
// reproducible.
func MajorZones(hm Heatmap, thresholdUSD float64) []Zone {
	zones := make([]Zone, 0, len(hm.LongLevels)+len(hm.ShortLevels))
	appendZones := func(levels map[float64]float64, side Side) {
		for price, usd := range levels {
			if usd >= thresholdUSD {
				zones = append(zones, Zone{
					Price:       price,
					NotionalUSD: usd,
					Side:        side,
					DistancePct: math.Abs(price-hm.CurrentPrice) / hm.CurrentPrice * 100,
				})
			}
		}
	}
	appendZones(hm.LongLevels, SideLong)
	appendZones(hm.ShortLevels, SideShort)

	sort.Slice(zones, func(i, j int) bool {
		if zones[i].DistancePct != zones[j].DistancePct {
			return zones[i].DistancePct < zones[j].DistancePct
		}
		return zones[i].Price < zones[j].Price
	})
	return zones
}

func (e *Estimator) bucket(price float64) float64 {
	return math.Round(price/e.cfg.BucketGranularity) * e.cfg.BucketGranularity
}

func (e *Estimator) leverages() []int {
	levs := make([]int, 0, len(e.cfg.TierWeights))
	for lev := range e.cfg.TierWeights {
		levs = append(levs, lev)
	}
	sort.Ints(levs)
	return levs
}
