package main

import (
	"context"
	"errors"
	"flag"
	"os"
	ossignal "os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/sammysam254/aitraderke/internal/broker"
	"github.com/sammysam254/aitraderke/internal/classifier"
	"github.com/sammysam254/aitraderke/internal/config"
	"github.com/sammysam254/aitraderke/internal/engine"
	"github.com/sammysam254/aitraderke/internal/execution"
	"github.com/sammysam254/aitraderke/internal/journal"
	"github.com/sammysam254/aitraderke/internal/metrics"
	"github.com/sammysam254/aitraderke/internal/strategy"
	"github.com/sammysam254/aitraderke/internal/util"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML config")
	flag.Parse()

	// Broker credentials live in .env, never in the config file.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// A present-but-broken file is a hard error; only a missing file
		// falls back to the demo defaults.
		if !errors.Is(err, os.ErrNotExist) {
			lg := util.NewLogger("info")
			lg.Fatal().Err(err).Str("path", *configPath).Msg("load config")
		}
		cfg = config.Default()
	}
	log := util.NewLogger(cfg.App.LogLevel)
	if err != nil {
		log.Warn().Str("path", *configPath).Msg("config file missing, using defaults")
	}
	log.Info().Str("env", cfg.App.Env).Str("broker", cfg.Broker.Kind).Msg("starting")

	_ = metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	gateway, err := broker.New(cfg.Broker, util.Component(log, "broker"))
	if err != nil {
		log.Fatal().Err(err).Msg("build broker")
	}
	if err := gateway.Connect(ctx); err != nil {
		log.Fatal().Err(err).Msg("connect broker")
	}
	defer gateway.Disconnect()

	model := classifier.NewModel(cfg.Classifier.Lookback)
	if cfg.Classifier.ModelPath != "" {
		if err := model.Load(cfg.Classifier.ModelPath); err != nil {
			log.Warn().Err(err).Str("path", cfg.Classifier.ModelPath).Msg("model unavailable, trading on rule signal only")
		}
	}
	defer model.Close()

	scorer := strategy.Build(cfg.Strategy.Mode, cfg.Strategy)
	gate := strategy.NewGate(cfg.Classifier.ConfidenceOverride)
	analyzer := engine.NewAnalyzer(scorer, gate, model)

	feed := journal.NewFeed(cfg.Journal.Capacity)
	var recorder *journal.JSONLRecorder
	if cfg.Journal.DecisionsPath != "" {
		recorder, err = journal.NewJSONLRecorder(cfg.Journal.DecisionsPath)
		if err != nil {
			log.Fatal().Err(err).Msg("open decision journal")
		}
		defer recorder.Close()
	}

	exec := execution.NewExecutor(gateway, util.Component(log, "exec"))
	scanner := engine.NewScanner(*cfg, gateway, analyzer, exec, feed, recorder, util.Component(log, "scanner"))
	monitor := engine.NewMonitor(*cfg, gateway, analyzer, exec, feed, recorder, util.Component(log, "monitor"))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); scanner.Run(ctx) }()
	go func() { defer wg.Done(); monitor.Run(ctx) }()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	wg.Wait()
}
