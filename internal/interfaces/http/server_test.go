package http

import (
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rotorscan/rotorscan/internal/application"
	"github.com/rotorscan/rotorscan/internal/domain/fragility"
	"github.com/rotorscan/rotorscan/internal/domain/liquidation"
	"github.com/rotorscan/rotorscan/internal/domain/regime"
)

type stubEvents struct {
	events []liquidation.Event
}

func (s *stubEvents) Recent(string) []liquidation.Event { return s.events }

func newTestServer(events EventSource) *Server {
	return NewServer(Config{Host: "127.0.0.1", Port: 0}, prometheus.NewRegistry(), events)
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(nethttp.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func sampleResult() *application.Result {
	return &application.Result{
		CycleID: "test-cycle",
		Regime:  regime.Score{Regime: regime.Neutral},
		Fragility: map[string]fragility.Score{
			"BTC": {Phi: 42, Level: fragility.LevelCaution},
		},
		Liquidations: map[string]liquidation.Heatmap{
			"BTC": {
				Symbol:       "BTC",
				CurrentPrice: 50000,
				LongLevels:   map[float64]float64{45500: 250_000_000, 47750: 300_000_000},
				ShortLevels:  map[float64]float64{54500: 250_000_000},
				DataType:     liquidation.Estimated,
				Disclaimer:   liquidation.Disclaimer,
			},
		},
		MajorZones:    map[string][]liquidation.Zone{},
		SymbolsScored: 3,
		SymbolsTotal:  4,
	}
}

func TestHealthBeforeFirstCycle(t *testing.T) {
	s := newTestServer(nil)
	rec := get(t, s, "/health")
	require.Equal(t, nethttp.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["has_result"])
}

func TestEndpointsUnavailableBeforeFirstCycle(t *testing.T) {
	s := newTestServer(nil)
	for _, path := range []string{"/rrg", "/regime", "/sectors", "/verdict", "/fragility/BTC", "/liquidations/BTC"} {
		rec := get(t, s, path)
		assert.Equal(t, nethttp.StatusServiceUnavailable, rec.Code, path)
	}
}

func TestFragilityEndpoint(t *testing.T) {
	s := newTestServer(nil)
	s.Publish(sampleResult())

	rec := get(t, s, "/fragility/BTC")
	require.Equal(t, nethttp.StatusOK, rec.Code)
	var score fragility.Score
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &score))
	assert.Equal(t, 42.0, score.Phi)

	rec = get(t, s, "/fragility/DOGE")
	assert.Equal(t, nethttp.StatusNotFound, rec.Code)
}

func TestLiquidationsMergeRealizedBesideEstimated(t *testing.T) {
	events := &stubEvents{events: []liquidation.Event{
		{Symbol: "BTC", Price: 49000, NotionalUSD: 1_000_000, Side: liquidation.SideLong, DataType: liquidation.Realized},
	}}
	s := newTestServer(events)
	s.Publish(sampleResult())

	rec := get(t, s, "/liquidations/BTC")
	require.Equal(t, nethttp.StatusOK, rec.Code)

	var body struct {
		Estimated liquidation.Heatmap `json:"estimated"`
		Realized  []liquidation.Event `json:"realized"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	// The two sources sit side by side, each keeping its provenance tag.
	assert.Equal(t, liquidation.Estimated, body.Estimated.DataType)
	assert.Equal(t, liquidation.Disclaimer, body.Estimated.Disclaimer)
	require.Len(t, body.Realized, 1)
	assert.Equal(t, liquidation.Realized, body.Realized[0].DataType)
}

func TestLiquidationsBodyIsDecodableJSON(t *testing.T) {
	s := newTestServer(nil)
	s.Publish(sampleResult())

	rec := get(t, s, "/liquidations/BTC")
	require.Equal(t, nethttp.StatusOK, rec.Code)

	// The populated level maps must reach the client intact; a partial
	// write after the 200 header would fail to decode here.
	var body struct {
		Estimated liquidation.Heatmap `json:"estimated"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, sampleResult().Liquidations["BTC"].LongLevels, body.Estimated.LongLevels)
	assert.Equal(t, sampleResult().Liquidations["BTC"].ShortLevels, body.Estimated.ShortLevels)
}

func TestLiquidationsWithoutStream(t *testing.T) {
	s := newTestServer(nil)
	s.Publish(sampleResult())

	rec := get(t, s, "/liquidations/BTC")
	require.Equal(t, nethttp.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	_, hasRealized := body["realized"]
	assert.False(t, hasRealized)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(nil)
	rec := get(t, s, "/metrics")
	assert.Equal(t, nethttp.StatusOK, rec.Code)
}
