package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/sammysam254/aitraderke/internal/broker"
	"github.com/sammysam254/aitraderke/internal/config"
	"github.com/sammysam254/aitraderke/internal/execution"
	"github.com/sammysam254/aitraderke/internal/journal"
	"github.com/sammysam254/aitraderke/internal/metrics"
	"github.com/sammysam254/aitraderke/internal/signal"
)

// Close reasons recorded on every monitor exit.
const (
	ReasonHold           = "hold"
	ReasonProfitReversal = "profit_signal_reversal"
	ReasonMomentumDecay  = "profit_momentum_decay"
	ReasonLossLimit      = "loss_limit"
	ReasonStrongReversal = "strong_reversal"
)

// momentumSpan is how many bars back the momentum check reaches.
const momentumSpan = 4

// Decision is the monitor's verdict for one position snapshot.
type Decision struct {
	Close  bool
	Reason string
}

// Monitor polls open positions and closes them when the exit rules fire.
// Each position is evaluated in isolation; an error on one never blocks the
// rest of the poll.
type Monitor struct {
	cfg      config.Config
	gateway  broker.Gateway
	analyzer *Analyzer
	exec     *execution.Executor
	feed     *journal.Feed
	recorder *journal.JSONLRecorder
	log      zerolog.Logger
}

// NewMonitor wires the supervision loop.
func NewMonitor(cfg config.Config, gateway broker.Gateway, analyzer *Analyzer, exec *execution.Executor, feed *journal.Feed, recorder *journal.JSONLRecorder, log zerolog.Logger) *Monitor {
	return &Monitor{
		cfg:      cfg,
		gateway:  gateway,
		analyzer: analyzer,
		exec:     exec,
		feed:     feed,
		recorder: recorder,
		log:      log,
	}
}

// Run blocks until the context is canceled, polling every interval.
func (m *Monitor) Run(ctx context.Context) {
	interval := time.Duration(m.cfg.Monitor.PollSecs) * time.Second
	backoff := time.Duration(m.cfg.Monitor.BackoffSecs) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.log.Info().Dur("interval", interval).Msg("monitor started")
	for {
		if err := m.poll(ctx); err != nil {
			metrics.LoopErrorsTotal.WithLabelValues("monitor").Inc()
			m.log.Error().Err(err).Dur("backoff", backoff).Msg("poll failed")
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

// poll evaluates every open position once.
func (m *Monitor) poll(ctx context.Context) error {
	positions, err := m.gateway.OpenPositions(ctx)
	if err != nil {
		return fmt.Errorf("open positions: %w", err)
	}
	for _, pos := range positions {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := m.supervise(ctx, pos); err != nil {
			metrics.LoopErrorsTotal.WithLabelValues("monitor").Inc()
			m.log.Warn().Err(err).Str("ticket", pos.Ticket).Str("sym", pos.Symbol).Msg("position skipped")
		}
	}
	return nil
}

func (m *Monitor) supervise(ctx context.Context, pos broker.Position) error {
	bars, err := m.gateway.HistoricalBars(ctx, pos.Symbol, m.cfg.Broker.Timeframe, m.cfg.Monitor.Bars)
	if err != nil {
		return fmt.Errorf("bars: %w", err)
	}
	analysis, err := m.analyzer.Analyze(bars)
	if err != nil {
		return err
	}

	decision := Evaluate(pos, analysis, m.cfg.Monitor)
	if !decision.Close {
		return nil
	}

	m.feed.Append(journal.Warning, fmt.Sprintf("closing %s %s (%s, P&L $%.2f)",
		pos.Symbol, pos.Direction, decision.Reason, pos.Profit))
	if err := m.exec.Close(ctx, pos, decision.Reason); err != nil {
		return err
	}
	m.recorder.Record(journal.Decision{
		Time:   time.Now(),
		Symbol: pos.Symbol,
		Action: "close",
		Ticket: pos.Ticket,
		Reason: decision.Reason,
		Profit: pos.Profit,
	})
	return nil
}

// Evaluate applies the exit rules to one position against a fresh analysis:
//
//   - any profit plus a reversed signal takes the profit;
//   - profit past the floor with stalling momentum takes the profit;
//   - loss past the hard limit cuts unconditionally;
//   - loss past the early-cut line with a strongly reversed score cuts early;
//   - otherwise hold.
func Evaluate(pos broker.Position, a *Analysis, cfg config.Monitor) Decision {
	final := a.Last()
	reversed := final.Direction != signal.None && final.Direction == pos.Direction.Opposite()

	switch {
	case pos.Profit > 0:
		if reversed {
			return Decision{Close: true, Reason: ReasonProfitReversal}
		}
		if pos.Profit > cfg.ProfitFloorUSD && momentumStalled(a, cfg.MomentumATRFraction) {
			return Decision{Close: true, Reason: ReasonMomentumDecay}
		}
	case pos.Profit < cfg.LossLimitUSD:
		return Decision{Close: true, Reason: ReasonLossLimit}
	case pos.Profit < cfg.EarlyCutUSD:
		scores := a.LastScores()
		var margin float64
		if pos.Direction == signal.Buy {
			margin = scores.Sell - scores.Buy
		} else {
			margin = scores.Buy - scores.Sell
		}
		if reversed && margin > cfg.ReversalMargin {
			return Decision{Close: true, Reason: ReasonStrongReversal}
		}
	}
	return Decision{Reason: ReasonHold}
}

// momentumStalled reports whether price movement over the recent span has
// dropped below the given fraction of ATR.
func momentumStalled(a *Analysis, atrFraction float64) bool {
	n := len(a.Bars)
	if n <= momentumSpan || a.LastATR() <= 0 {
		return false
	}
	move := math.Abs(a.Bars[n-1].Close - a.Bars[n-1-momentumSpan].Close)
	return move < a.LastATR()*atrFraction
}
