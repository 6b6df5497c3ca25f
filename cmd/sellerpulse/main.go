package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/amzops/sellerpulse/internal/aggregator"
	"github.com/amzops/sellerpulse/internal/cache"
	"github.com/amzops/sellerpulse/internal/config"
	"github.com/amzops/sellerpulse/internal/diagnosis"
	httpiface "github.com/amzops/sellerpulse/internal/interfaces/http"
	"github.com/amzops/sellerpulse/internal/llm"
	"github.com/amzops/sellerpulse/internal/persistence/postgres"
	"github.com/amzops/sellerpulse/internal/rules"
)

const (
	appName = "sellerpulse"
	version = "v1.3.0"
)

var (
	configPath    string
	overridesPath string
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Inventory snapshot aggregation and product diagnosis for Amazon sellers",
		Version: version,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config (defaults apply when empty)")
	rootCmd.PersistentFlags().StringVar(&overridesPath, "rule-thresholds", "", "optional rule threshold override file")

	aggregateCmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Run one snapshot aggregation pass",
		RunE:  runAggregate,
	}
	aggregateCmd.Flags().String("date", "", "target date YYYY-MM-DD (default: yesterday)")
	aggregateCmd.Flags().String("strategy", "", "replace or merge (default from config)")

	diagnoseCmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Diagnose one product from its latest snapshots or an input file",
		RunE:  runDiagnose,
	}
	diagnoseCmd.Flags().String("asin", "", "product ASIN")
	diagnoseCmd.Flags().String("warehouse", "", "warehouse/marketplace location")
	diagnoseCmd.Flags().String("input", "", "JSON file with a ProductAnalysisData record")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP surface (health, metrics, aggregate, diagnose)",
		RunE:  runServe,
	}
	serveCmd.Flags().String("addr", "", "listen address (default from config)")

	rootCmd.AddCommand(aggregateCmd, diagnoseCmd, serveCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

// app holds the wired components for one command invocation.
type app struct {
	cfg          *config.Config
	aggregator   *aggregator.Aggregator
	orchestrator *diagnosis.Orchestrator
	close        func()
}

func buildApp(needDB bool) (*app, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	ruleThresholds := rules.DefaultThresholds()
	if overridesPath != "" {
		loaded, err := rules.LoadThresholds(overridesPath)
		if err != nil {
			return nil, err
		}
		ruleThresholds = loaded
	}
	rulesEngine := rules.NewEngineWithThresholds(ruleThresholds)
	engine := diagnosis.NewEngine(diagnosisThresholds(cfg.Diagnosis), rulesEngine)

	var generator llm.Generator
	if cfg.LLM.Endpoint != "" {
		generator = llm.NewClient(llm.Config{
			Endpoint:      cfg.LLM.Endpoint,
			Model:         cfg.LLM.Model,
			APIKey:        cfg.LLM.APIKey(),
			Timeout:       cfg.LLM.Timeout(),
			RatePerSecond: cfg.LLM.RatePerSecond,
			Burst:         cfg.LLM.Burst,
		})
	}

	a := &app{cfg: cfg, close: func() {}}

	if !needDB {
		a.orchestrator = diagnosis.NewOrchestrator(engine, generator, nil, cfg.LLM.Required)
		return a, nil
	}

	db, err := postgres.Connect(cfg.Database.DSN, cfg.Database.MaxOpenConns)
	if err != nil {
		return nil, err
	}
	a.close = func() { _ = db.Close() }

	analyticsRepo := postgres.NewAnalyticsRepo(db, cfg.Database.Timeout())
	snapshotRepo := postgres.NewSnapshotRepo(db, cfg.Database.Timeout())

	var snapshots diagnosis.SnapshotSource = snapshotRepo
	var invalidator aggregator.Invalidator
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		snapCache := cache.New(rdb, snapshotRepo, cfg.Redis.TTL())
		snapshots = snapCache
		invalidator = snapCache
	}

	a.aggregator = aggregator.New(analyticsRepo, snapshotRepo, invalidator, aggregator.Config{
		LookbackDays:    cfg.Aggregator.LookbackDays,
		MinGroupRecords: cfg.Aggregator.MinGroupRecords,
		Workers:         cfg.Aggregator.Workers,
	})
	a.orchestrator = diagnosis.NewOrchestrator(engine, generator, snapshots, cfg.LLM.Required)

	return a, nil
}

// diagnosisThresholds maps config overrides (percent-denominated) onto the
// engine's ratio thresholds, keeping defaults for zero values.
func diagnosisThresholds(dc config.DiagnosisConfig) diagnosis.Thresholds {
	t := diagnosis.DefaultThresholds()
	if dc.ShortageTurnoverDays > 0 {
		t.ShortageTurnoverDays = dc.ShortageTurnoverDays
	}
	if dc.ExcessTurnoverDays > 0 {
		t.ExcessTurnoverDays = dc.ExcessTurnoverDays
	}
	if dc.AcoasHighPct > 0 {
		t.AcoasHigh = dc.AcoasHighPct / 100
	}
	if dc.AcoasLowPct > 0 {
		t.AcoasLow = dc.AcoasLowPct / 100
	}
	if dc.CtrLowPct > 0 {
		t.CtrLow = dc.CtrLowPct / 100
	}
	if dc.ConversionLowFactor > 0 {
		t.ConversionLowFactor = dc.ConversionLowFactor
	}
	if dc.EffectiveDailyRevenue > 0 {
		t.EffectiveDailyRevenue = dc.EffectiveDailyRevenue
	}
	if dc.MinCompleteness > 0 {
		t.MinCompleteness = dc.MinCompleteness
	}
	if dc.MaxMissingDays > 0 {
		t.MaxMissingDays = dc.MaxMissingDays
	}
	if dc.MaxRegenerations > 0 {
		t.MaxRegenerations = dc.MaxRegenerations
	}
	return t
}

func runAggregate(cmd *cobra.Command, args []string) error {
	a, err := buildApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	opts := aggregator.RunOptions{
		Strategy: aggregator.Strategy(a.cfg.Aggregator.Strategy),
	}
	if s, _ := cmd.Flags().GetString("strategy"); s != "" {
		opts.Strategy = aggregator.Strategy(s)
	}
	if d, _ := cmd.Flags().GetString("date"); d != "" {
		t, err := time.Parse("2006-01-02", d)
		if err != nil {
			return fmt.Errorf("invalid --date %q: %w", d, err)
		}
		opts.TargetDate = t
	}

	summary, err := a.aggregator.Run(signalContext(), opts)
	if err != nil {
		return err
	}

	return json.NewEncoder(os.Stdout).Encode(summary)
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	input, _ := cmd.Flags().GetString("input")
	asin, _ := cmd.Flags().GetString("asin")
	warehouse, _ := cmd.Flags().GetString("warehouse")

	a, err := buildApp(input == "")
	if err != nil {
		return err
	}
	defer a.close()

	ctx := signalContext()

	var result *diagnosis.Result
	switch {
	case input != "":
		data, err := os.ReadFile(input)
		if err != nil {
			return fmt.Errorf("failed to read input file: %w", err)
		}
		var product diagnosis.ProductAnalysisData
		if err := json.Unmarshal(data, &product); err != nil {
			return fmt.Errorf("failed to parse input file: %w", err)
		}
		result, err = a.orchestrator.Analyze(ctx, product)
		if err != nil {
			return err
		}
	case asin != "" && warehouse != "":
		result, err = a.orchestrator.AnalyzeASIN(ctx, asin, warehouse)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("either --input or both --asin and --warehouse are required")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := buildApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	addr := a.cfg.HTTP.Addr
	if flagAddr, _ := cmd.Flags().GetString("addr"); flagAddr != "" {
		addr = flagAddr
	}

	server := httpiface.NewServer(a.aggregator, a.orchestrator)
	return server.ListenAndServe(signalContext(), addr)
}

// signalContext cancels on SIGINT/SIGTERM.
func signalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx
}
