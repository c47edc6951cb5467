package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/sammysam254/aitraderke/internal/broker"
	"github.com/sammysam254/aitraderke/internal/classifier"
	"github.com/sammysam254/aitraderke/internal/config"
	"github.com/sammysam254/aitraderke/internal/engine"
	"github.com/sammysam254/aitraderke/internal/risk"
	"github.com/sammysam254/aitraderke/internal/strategy"
	"github.com/sammysam254/aitraderke/internal/util"
)

// analyze runs one pipeline pass for a symbol and prints the verdict, for
// eyeballing a setup before letting the scanner trade it.
func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML config")
	symbol := flag.String("symbol", "EURUSD", "symbol to analyze")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
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

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
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
			log.Warn().Err(err).Msg("model unavailable, rule signal only")
		}
	}
	defer model.Close()

	scorer := strategy.Build(cfg.Strategy.Mode, cfg.Strategy)
	analyzer := engine.NewAnalyzer(scorer, strategy.NewGate(cfg.Classifier.ConfidenceOverride), model)

	bars, err := gateway.HistoricalBars(ctx, *symbol, cfg.Broker.Timeframe, cfg.Scanner.Bars)
	if err != nil {
		log.Fatal().Err(err).Str("sym", *symbol).Msg("fetch bars")
	}
	analysis, err := analyzer.Analyze(bars)
	if err != nil {
		log.Fatal().Err(err).Msg("analyze")
	}

	final := analysis.Last()
	scores := analysis.LastScores()
	last := bars[len(bars)-1]

	fmt.Printf("%s %s close=%.5f\n", *symbol, cfg.Broker.Timeframe, last.Close)
	fmt.Printf("scores buy=%.1f sell=%.1f gap=%.1f\n", scores.Buy, scores.Sell, scores.Gap())
	fmt.Printf("signal %s confidence=%.2f classifier=%v\n", final.Direction, final.Confidence, analysis.ClassifierReady)

	if final.Direction != 0 {
		quote, err := gateway.CurrentPrice(ctx, *symbol)
		if err != nil {
			log.Fatal().Err(err).Msg("fetch price")
		}
		entry := quote.Entry(final.Direction)
		stop, target := risk.Targets(entry, final.Direction, analysis.LastATR(), scores)
		fmt.Printf("entry=%.5f stop=%.5f target=%.5f\n", entry, stop, target)

		account, err := gateway.AccountInfo(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("fetch account")
		}
		stopPips := math.Abs(entry-stop) / engine.PipSize(*symbol)
		limits := risk.Limits{
			RiskFraction: cfg.Risk.RiskFraction,
			PipValue:     cfg.Risk.PipValue,
			MinLot:       cfg.Risk.MinLot,
			MaxLot:       cfg.Risk.MaxLot,
		}
		sized := risk.PositionSize(account.Balance, stopPips, final.Confidence, limits)
		staked := risk.StakeSize(cfg.Risk.StakeUSD, stopPips, limits)
		fmt.Printf("balance=%.2f risk-sized=%.2f lots, stake-sized=%.2f lots\n",
			account.Balance, sized, staked)
	}

	if final.Confidence < cfg.Scanner.EntryConfidence {
		fmt.Println("verdict: below entry confidence, scanner would skip")
		os.Exit(0)
	}
	fmt.Println("verdict: scanner would trade this")
}
