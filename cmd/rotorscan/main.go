// Command rotorscan runs the market rotation scanner: a one-shot scan that
// prints the latest evaluation, or a long-running service that re-evaluates
// on an interval and serves results over HTTP.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rotorscan/rotorscan/internal/application"
	"github.com/rotorscan/rotorscan/internal/config"
	"github.com/rotorscan/rotorscan/internal/domain/liquidation"
	"github.com/rotorscan/rotorscan/internal/domain/regime"
	"github.com/rotorscan/rotorscan/internal/infrastructure/cache"
	"github.com/rotorscan/rotorscan/internal/infrastructure/providers"
	"github.com/rotorscan/rotorscan/internal/infrastructure/stream"
	httpapi "github.com/rotorscan/rotorscan/internal/interfaces/http"
	applog "github.com/rotorscan/rotorscan/internal/log"
	"github.com/rotorscan/rotorscan/internal/metrics"
)

var version = "dev"

var (
	flagConfig   string
	flagLogLevel string
	flagPretty   bool
	flagJSON     bool
	flagInterval time.Duration
	flagStream   bool
)

func main() {
	root := &cobra.Command{
		Use:           "rotorscan",
		Short:         "Crypto sector rotation and fragility scanner",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			applog.Setup(flagLogLevel, flagPretty)
		},
	}
	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", "config/rotorscan.yaml", "config file path")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level (trace|debug|info|warn|error)")
	root.PersistentFlags().BoolVar(&flagPretty, "pretty", false, "human-readable console logs")

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Run one evaluation cycle and print the result",
		RunE:  runScan,
	}
	scanCmd.Flags().BoolVar(&flagJSON, "json", false, "emit the full result as JSON")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run continuous evaluation cycles behind the HTTP API",
		RunE:  runServe,
	}
	serveCmd.Flags().DurationVar(&flagInterval, "interval", 5*time.Minute, "time between evaluation cycles")
	serveCmd.Flags().BoolVar(&flagStream, "stream", true, "collect realized liquidations from the exchange feed")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the rotorscan version",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println("rotorscan " + version)
		},
	}

	root.AddCommand(scanCmd, serveCmd, versionCmd)

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// app bundles the wired components shared by scan and serve.
type app struct {
	cfg      *config.Config
	registry *metrics.Registry
	promReg  *prometheus.Registry
	fetcher  *providers.Fetcher
	engine   *application.Engine
	store    cache.Store
	symbols  []string
	derivs   []string
}

func buildApp(cfg *config.Config) (*app, error) {
	m := metrics.NewRegistry()
	promReg := prometheus.NewRegistry()
	if err := m.Register(promReg); err != nil {
		return nil, err
	}

	var store cache.Store
	if cfg.Cache.RedisAddr != "" {
		store = cache.NewRedisStore(cfg.Cache.RedisAddr, cfg.Cache.RedisDB, "rotorscan:")
	} else {
		store = cache.NewTTLStore(time.Duration(cfg.Cache.CleanupSeconds) * time.Second)
	}
	populate := cache.NewPopulate(store, time.Duration(cfg.Cache.TTLSeconds)*time.Second)

	timeout := time.Duration(cfg.Providers.TimeoutSeconds) * time.Second
	ordered := make([]providers.Provider, 0, len(cfg.Providers.Priority))
	for _, name := range cfg.Providers.Priority {
		switch name {
		case "binance":
			ordered = append(ordered, providers.NewBinance(timeout, cfg.Providers.RequestsPerSec, cfg.Providers.Burst))
		case "okx":
			ordered = append(ordered, providers.NewOKX(timeout, cfg.Providers.RequestsPerSec, cfg.Providers.Burst))
		case "kucoin":
			ordered = append(ordered, providers.NewKuCoin(timeout, cfg.Providers.RequestsPerSec, cfg.Providers.Burst))
		default:
			return nil, fmt.Errorf("unknown provider %q in priority list", name)
		}
	}
	registry := providers.NewRegistry(ordered, m)
	fetcher := providers.NewFetcher(registry, populate, m, cfg.Providers.MaxConcurrent, timeout)

	categories := make(map[string]regime.Category)
	for symbol, cat := range cfg.Categories() {
		switch cat {
		case "risk":
			categories[symbol] = regime.CategoryRisk
		case "safe_haven":
			categories[symbol] = regime.CategorySafeHaven
		}
	}

	sectors := make(map[string][]string, len(cfg.Sectors))
	for name, sector := range cfg.Sectors {
		sectors[name] = sector.Coins
	}

	engine, err := application.NewEngine(application.Params{
		Benchmark:  cfg.Benchmark,
		Categories: categories,
		Sectors:    sectors,
		Liquidation: liquidation.Config{
			TierWeights:       cfg.Liquidation.TierWeights,
			WindowPct:         cfg.Liquidation.WindowPct,
			BucketGranularity: cfg.Liquidation.BucketGranularity,
		},
		MajorZoneUSD: cfg.Liquidation.MajorZoneUSD,
	}, m)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		registry: m,
		promReg:  promReg,
		fetcher:  fetcher,
		engine:   engine,
		store:    store,
		symbols:  trackedSymbols(cfg),
		derivs:   derivSymbols(cfg),
	}, nil
}

// trackedSymbols is the union of benchmark, universe and sector constituents.
func trackedSymbols(cfg *config.Config) []string {
	seen := map[string]bool{cfg.Benchmark: true}
	for _, u := range cfg.Universe {
		seen[u.Symbol] = true
	}
	for _, sector := range cfg.Sectors {
		for _, coin := range sector.Coins {
			seen[coin] = true
		}
	}
	out := make([]string, 0, len(seen))
	for symbol := range seen {
		out = append(out, symbol)
	}
	sort.Strings(out)
	return out
}

// derivSymbols is the fragility watch list: the configured universe.
func derivSymbols(cfg *config.Config) []string {
	out := make([]string, 0, len(cfg.Universe))
	for _, u := range cfg.Universe {
		out = append(out, u.Symbol)
	}
	sort.Strings(out)
	return out
}

func (a *app) runCycle(ctx context.Context) (*application.Result, error) {
	snap := application.BuildSnapshot(ctx, a.fetcher, a.symbols, a.derivs)
	return a.engine.Evaluate(snap)
}

func runScan(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	a, err := buildApp(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	result, err := a.runCycle(ctx)
	if err != nil {
		return err
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	printResult(result)
	return nil
}

func printResult(r *application.Result) {
	fmt.Printf("cycle %s  %s\n", r.CycleID, r.Timestamp.Format(time.RFC3339))
	fmt.Printf("coverage: %d of %d symbols scored\n\n", r.SymbolsScored, r.SymbolsTotal)

	fmt.Printf("regime: %s (%.2f)  risk: %s  safe: %s\n\n",
		r.Regime.Regime, r.Regime.Value, r.Regime.RiskSummary, r.Regime.SafeSummary)

	fmt.Println("rotation quadrants:")
	for _, c := range r.Rotation.Coordinates {
		fmt.Printf("  %-6s %-10s ratio %7.2f  momentum %7.2f  return %+6.2f%%\n",
			c.Symbol, c.Quadrant, c.RSRatio, c.RSMomentum, c.PeriodReturn)
	}
	fmt.Println()

	if len(r.TopPicks) > 0 {
		fmt.Println("top picks:")
		for _, p := range r.TopPicks {
			fmt.Printf("  #%d %-6s momentum %7.2f  return %+6.2f%%\n",
				p.Rank, p.Symbol, p.RSMomentum, p.PeriodReturn)
		}
		fmt.Println()
	}

	fmt.Printf("benchmark momentum score: %d\n", r.BenchmarkScore)
	fmt.Println("sectors:")
	for _, s := range r.Sectors {
		fmt.Printf("  %-10s score %3d  7d %+6.2f%%  vs bench %+6.2f%%  top %s (%d coins)\n",
			s.Sector, s.MomentumScore, s.AvgReturn7d, s.AvgVsBenchmark7d, s.TopPerformer, s.ConstituentCount)
	}
	fmt.Println()

	for _, d := range r.SectorDecisions {
		fmt.Printf("  %-10s %-14s %s\n", d.Sector, d.Signal, d.Reason)
	}
	fmt.Printf("\nverdict: %s  %s\n", r.Verdict.Signal, r.Verdict.Reason)
	for asset, share := range r.Verdict.Allocation {
		fmt.Printf("  %-12s %s\n", asset, share)
	}

	if len(r.Fragility) > 0 {
		fmt.Println("\nfragility:")
		symbols := make([]string, 0, len(r.Fragility))
		for s := range r.Fragility {
			symbols = append(symbols, s)
		}
		sort.Strings(symbols)
		for _, s := range symbols {
			f := r.Fragility[s]
			fmt.Printf("  %-6s phi %5.1f  %-8s (density %.0f funding %.0f basis %.0f)\n",
				s, f.Phi, f.Level, f.LiquidityDensity, f.FundingDeviation, f.BasisTension)
		}
	}

	if len(r.Excluded) > 0 {
		fmt.Println("\nexcluded:")
		for _, e := range r.Excluded {
			fmt.Printf("  [%s] %s: %s\n", e.Component, e.Symbol, e.Reason)
		}
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	a, err := buildApp(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var events httpapi.EventSource
	if flagStream {
		collector := stream.NewCollector(a.derivs, 2048)
		go collector.Run(ctx)
		events = collector
	}

	server := httpapi.NewServer(httpapi.Config{Host: cfg.HTTP.Host, Port: cfg.HTTP.Port}, a.promReg, events)

	go func() {
		ticker := time.NewTicker(flagInterval)
		defer ticker.Stop()
		for {
			result, err := a.runCycle(ctx)
			if err != nil {
				log.Error().Err(err).Msg("evaluation cycle failed")
			} else {
				server.Publish(result)
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return server.Start(ctx)
}
