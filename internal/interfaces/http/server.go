// Package http serves the engine's latest evaluation result over a
// read-only JSON API. Handlers only format typed records; all computation
// happens in the evaluation cycle.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/rotorscan/rotorscan/internal/application"
	"github.com/rotorscan/rotorscan/internal/domain/liquidation"
)

// EventSource supplies recent realized liquidation events. The merge of
// ESTIMATED and REALIZED data happens here, at the presentation boundary,
// and nowhere else.
type EventSource interface {
	Recent(symbol string) []liquidation.Event
}

// Config holds server settings.
type Config struct {
	Host string
	Port int
}

// Server is the read-only API server. The latest result is swapped in
// atomically after each cycle.
type Server struct {
	router *mux.Router
	server *http.Server
	events EventSource

	mu     sync.RWMutex
	latest *application.Result
}

// NewServer wires routes and the Prometheus registry. events may be nil when
// the realized-liquidation stream is disabled.
func NewServer(cfg Config, gatherer prometheus.Gatherer, events EventSource) *Server {
	s := &Server{
		router: mux.NewRouter(),
		events: events,
	}
	s.setupRoutes(gatherer)

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes(gatherer prometheus.Gatherer) {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/rrg", s.handleRotation).Methods(http.MethodGet)
	s.router.HandleFunc("/regime", s.handleRegime).Methods(http.MethodGet)
	s.router.HandleFunc("/fragility/{symbol}", s.handleFragility).Methods(http.MethodGet)
	s.router.HandleFunc("/liquidations/{symbol}", s.handleLiquidations).Methods(http.MethodGet)
	s.router.HandleFunc("/sectors", s.handleSectors).Methods(http.MethodGet)
	s.router.HandleFunc("/verdict", s.handleVerdict).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
}

// Publish swaps in the result of a completed cycle.
func (s *Server) Publish(result *application.Result) {
	s.mu.Lock()
	s.latest = result
	s.mu.Unlock()
}

// Start serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("http shutdown")
		}
	}()

	log.Info().Str("addr", s.server.Addr).Msg("http server listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) snapshot() *application.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	result := s.snapshot()
	status := map[string]any{"status": "ok", "has_result": result != nil}
	if result != nil {
		status["cycle_id"] = result.CycleID
		status["timestamp"] = result.Timestamp
		status["coverage"] = fmt.Sprintf("%d of %d symbols scored", result.SymbolsScored, result.SymbolsTotal)
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleRotation(w http.ResponseWriter, r *http.Request) {
	result := s.snapshot()
	if result == nil {
		writeError(w, http.StatusServiceUnavailable, "no evaluation cycle has completed yet")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"coordinates":   result.Rotation.Coordinates,
		"excluded":      result.Rotation.Excluded,
		"top_picks":     result.TopPicks,
		"action_groups": result.ActionGroups,
	})
}

func (s *Server) handleRegime(w http.ResponseWriter, _ *http.Request) {
	result := s.snapshot()
	if result == nil {
		writeError(w, http.StatusServiceUnavailable, "no evaluation cycle has completed yet")
		return
	}
	writeJSON(w, http.StatusOK, result.Regime)
}

func (s *Server) handleFragility(w http.ResponseWriter, r *http.Request) {
	result := s.snapshot()
	if result == nil {
		writeError(w, http.StatusServiceUnavailable, "no evaluation cycle has completed yet")
		return
	}
	symbol := mux.Vars(r)["symbol"]
	score, ok := result.Fragility[symbol]
	if !ok {
		writeError(w, http.StatusNotFound, "no fragility score for "+symbol)
		return
	}
	writeJSON(w, http.StatusOK, score)
}

func (s *Server) handleLiquidations(w http.ResponseWriter, r *http.Request) {
	result := s.snapshot()
	if result == nil {
		writeError(w, http.StatusServiceUnavailable, "no evaluation cycle has completed yet")
		return
	}
	symbol := mux.Vars(r)["symbol"]
	heatmap, ok := result.Liquidations[symbol]
	if !ok {
		writeError(w, http.StatusNotFound, "no liquidation estimate for "+symbol)
		return
	}

	payload := map[string]any{
		"estimated":   heatmap,
		"major_zones": result.MajorZones[symbol],
	}
	// Realized events sit beside the estimate, each record carrying its own
	// data_type tag; they are never summed together.
	if s.events != nil {
		payload["realized"] = s.events.Recent(symbol)
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleSectors(w http.ResponseWriter, _ *http.Request) {
	result := s.snapshot()
	if result == nil {
		writeError(w, http.StatusServiceUnavailable, "no evaluation cycle has completed yet")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"benchmark_score": result.BenchmarkScore,
		"sectors":         result.Sectors,
		"decisions":       result.SectorDecisions,
		"excluded":        result.Excluded,
	})
}

func (s *Server) handleVerdict(w http.ResponseWriter, _ *http.Request) {
	result := s.snapshot()
	if result == nil {
		writeError(w, http.StatusServiceUnavailable, "no evaluation cycle has completed yet")
		return
	}
	writeJSON(w, http.StatusOK, result.Verdict)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("response encode failed")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
