package engine

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sammysam254/aitraderke/internal/broker"
	"github.com/sammysam254/aitraderke/internal/config"
	"github.com/sammysam254/aitraderke/internal/execution"
	"github.com/sammysam254/aitraderke/internal/journal"
	"github.com/sammysam254/aitraderke/internal/metrics"
	"github.com/sammysam254/aitraderke/internal/risk"
	"github.com/sammysam254/aitraderke/internal/signal"
)

// Scanner sweeps the symbol universe on a fixed interval and opens a
// position when the fused signal clears the entry confidence bar. One failed
// symbol never aborts the sweep; a failed sweep backs off before the next.
type Scanner struct {
	cfg      config.Config
	gateway  broker.Gateway
	analyzer *Analyzer
	exec     *execution.Executor
	feed     *journal.Feed
	recorder *journal.JSONLRecorder
	log      zerolog.Logger
}

// NewScanner wires the entry loop.
func NewScanner(cfg config.Config, gateway broker.Gateway, analyzer *Analyzer, exec *execution.Executor, feed *journal.Feed, recorder *journal.JSONLRecorder, log zerolog.Logger) *Scanner {
	return &Scanner{
		cfg:      cfg,
		gateway:  gateway,
		analyzer: analyzer,
		exec:     exec,
		feed:     feed,
		recorder: recorder,
		log:      log,
	}
}

// Run blocks until the context is canceled, sweeping every interval.
func (s *Scanner) Run(ctx context.Context) {
	interval := time.Duration(s.cfg.Scanner.IntervalSecs) * time.Second
	backoff := time.Duration(s.cfg.Scanner.BackoffSecs) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info().Strs("symbols", s.cfg.Broker.Symbols).Dur("interval", interval).Msg("scanner started")
	for {
		if err := s.sweep(ctx); err != nil {
			metrics.LoopErrorsTotal.WithLabelValues("scanner").Inc()
			s.log.Error().Err(err).Dur("backoff", backoff).Msg("sweep failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// sweep runs one pass over every configured symbol.
func (s *Scanner) sweep(ctx context.Context) error {
	open, err := s.gateway.OpenPositions(ctx)
	if err != nil {
		return fmt.Errorf("open positions: %w", err)
	}
	held := make(map[string]bool, len(open))
	for _, pos := range open {
		held[pos.Symbol] = true
	}

	for _, symbol := range s.cfg.Broker.Symbols {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		metrics.ScansTotal.WithLabelValues(symbol).Inc()
		if held[symbol] {
			continue
		}
		if err := s.scanSymbol(ctx, symbol); err != nil {
			metrics.LoopErrorsTotal.WithLabelValues("scanner").Inc()
			s.log.Warn().Err(err).Str("sym", symbol).Msg("scan skipped")
		}
	}
	return nil
}

// scanSymbol analyzes one symbol and places an order if warranted.
func (s *Scanner) scanSymbol(ctx context.Context, symbol string) error {
	bars, err := s.gateway.HistoricalBars(ctx, symbol, s.cfg.Broker.Timeframe, s.cfg.Scanner.Bars)
	if err != nil {
		return fmt.Errorf("bars: %w", err)
	}
	analysis, err := s.analyzer.Analyze(bars)
	if err != nil {
		return err
	}

	final := analysis.Last()
	if final.Direction == signal.None || final.Confidence < s.cfg.Scanner.EntryConfidence {
		s.log.Debug().
			Str("sym", symbol).
			Str("dir", final.Direction.String()).
			Float64("conf", final.Confidence).
			Msg("no entry")
		return nil
	}

	quote, err := s.gateway.CurrentPrice(ctx, symbol)
	if err != nil {
		return fmt.Errorf("price: %w", err)
	}
	entry := quote.Entry(final.Direction)
	stop, target := risk.Targets(entry, final.Direction, analysis.LastATR(), analysis.LastScores())

	stopPips := math.Abs(entry-stop) / PipSize(symbol)
	limits := risk.Limits{
		RiskFraction: s.cfg.Risk.RiskFraction,
		PipValue:     s.cfg.Risk.PipValue,
		MinLot:       s.cfg.Risk.MinLot,
		MaxLot:       s.cfg.Risk.MaxLot,
	}
	lots := risk.StakeSize(s.cfg.Risk.StakeUSD, stopPips, limits)

	result, err := s.exec.Submit(ctx, broker.OrderRequest{
		Symbol:     symbol,
		Direction:  final.Direction,
		Volume:     lots,
		Price:      entry,
		StopLoss:   stop,
		TakeProfit: target,
		Comment:    "auto-scan",
	})
	if err != nil {
		return err
	}

	s.feed.Append(journal.Success, fmt.Sprintf("%s %s %.2f lots @ %.5f (conf %.2f)",
		symbol, final.Direction, result.Volume, result.Price, final.Confidence))
	s.recorder.Record(journal.Decision{
		Time:       time.Now(),
		Symbol:     symbol,
		Action:     "open",
		Direction:  final.Direction,
		Confidence: final.Confidence,
		Ticket:     result.Ticket,
		Lots:       result.Volume,
	})
	return nil
}

// PipSize returns the price increment of one pip for the symbol. JPY pairs
// quote two decimals fewer; gold trades in tenths.
func PipSize(symbol string) float64 {
	switch {
	case strings.Contains(symbol, "JPY"):
		return 0.01
	case strings.HasPrefix(symbol, "XAU"):
		return 0.1
	default:
		return 0.0001
	}
}
