package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/sammysam254/aitraderke/internal/broker"
	"github.com/sammysam254/aitraderke/internal/config"
	"github.com/sammysam254/aitraderke/internal/execution"
	"github.com/sammysam254/aitraderke/internal/journal"
	"github.com/sammysam254/aitraderke/internal/market"
	"github.com/sammysam254/aitraderke/internal/signal"
	"github.com/sammysam254/aitraderke/internal/strategy"
)

// loopGateway scripts the broker surface for the loop tests.
type loopGateway struct {
	bars      []market.Bar
	barsErr   error
	quote     broker.Quote
	positions []broker.Position
	placed    []broker.OrderRequest
	closed    []string
}

func (g *loopGateway) Connect(ctx context.Context) error { return nil }
func (g *loopGateway) Disconnect() error                 { return nil }

func (g *loopGateway) HistoricalBars(ctx context.Context, symbol, timeframe string, count int) ([]market.Bar, error) {
	if g.barsErr != nil {
		return nil, g.barsErr
	}
	return g.bars, nil
}

func (g *loopGateway) CurrentPrice(ctx context.Context, symbol string) (broker.Quote, error) {
	return g.quote, nil
}

func (g *loopGateway) PlaceOrder(ctx context.Context, req broker.OrderRequest) (*broker.OrderResult, error) {
	g.placed = append(g.placed, req)
	return &broker.OrderResult{Ticket: "t-1", Volume: req.Volume, Price: req.Price}, nil
}

func (g *loopGateway) ClosePosition(ctx context.Context, ticket string) error {
	g.closed = append(g.closed, ticket)
	return nil
}

func (g *loopGateway) OpenPositions(ctx context.Context) ([]broker.Position, error) {
	return g.positions, nil
}

func (g *loopGateway) AccountInfo(ctx context.Context) (*broker.Account, error) {
	return &broker.Account{Balance: 10000, Currency: "USD"}, nil
}

func scannerConfig() config.Config {
	cfg := *config.Default()
	cfg.Broker.Symbols = []string{"EURUSD"}
	return cfg
}

func newTestScanner(cfg config.Config, gateway *loopGateway, model *stubClassifier) *Scanner {
	analyzer := NewAnalyzer(testScorer(), strategy.NewGate(cfg.Classifier.ConfidenceOverride), model)
	exec := execution.NewExecutor(gateway, zerolog.Nop())
	return NewScanner(cfg, gateway, analyzer, exec, journal.NewFeed(10), nil, zerolog.Nop())
}

func TestSweepPlacesOrderOnStrongSignal(t *testing.T) {
	gateway := &loopGateway{
		bars:  syntheticBars(200),
		quote: broker.Quote{Bid: 1.1000, Ask: 1.1002},
	}
	scanner := newTestScanner(scannerConfig(), gateway, &stubClassifier{dir: signal.Buy, conf: 0.9})

	if err := scanner.sweep(context.Background()); err != nil {
		t.Fatalf("sweep returned error: %v", err)
	}
	if len(gateway.placed) != 1 {
		t.Fatalf("expected one order, got %d", len(gateway.placed))
	}
	req := gateway.placed[0]
	if req.Direction != signal.Buy {
		t.Fatalf("unexpected direction: %v", req.Direction)
	}
	if req.Volume < 0.01 || req.Volume > 2.0 {
		t.Fatalf("lot size outside broker band: %.2f", req.Volume)
	}
	if !(req.StopLoss < req.Price && req.Price < req.TakeProfit) {
		t.Fatalf("buy order stops out of order: %.5f %.5f %.5f", req.StopLoss, req.Price, req.TakeProfit)
	}
}

func TestSweepSkipsHeldSymbol(t *testing.T) {
	gateway := &loopGateway{
		bars:      syntheticBars(200),
		quote:     broker.Quote{Bid: 1.1000, Ask: 1.1002},
		positions: []broker.Position{{Ticket: "t-0", Symbol: "EURUSD", Direction: signal.Buy}},
	}
	scanner := newTestScanner(scannerConfig(), gateway, &stubClassifier{dir: signal.Buy, conf: 0.9})

	if err := scanner.sweep(context.Background()); err != nil {
		t.Fatalf("sweep returned error: %v", err)
	}
	if len(gateway.placed) != 0 {
		t.Fatalf("held symbol must not be re-entered, got %d orders", len(gateway.placed))
	}
}

func TestSweepSkipsLowConfidence(t *testing.T) {
	gateway := &loopGateway{
		bars:  syntheticBars(200),
		quote: broker.Quote{Bid: 1.1000, Ask: 1.1002},
	}
	scanner := newTestScanner(scannerConfig(), gateway, &stubClassifier{dir: signal.Buy, conf: 0.5})

	if err := scanner.sweep(context.Background()); err != nil {
		t.Fatalf("sweep returned error: %v", err)
	}
	if len(gateway.placed) != 0 {
		t.Fatalf("confidence below the entry floor must not trade, got %d orders", len(gateway.placed))
	}
}

func TestSweepSurvivesSymbolFailure(t *testing.T) {
	gateway := &loopGateway{barsErr: errors.New("feed down")}
	scanner := newTestScanner(scannerConfig(), gateway, &stubClassifier{dir: signal.Buy, conf: 0.9})

	// One broken symbol is skipped, not fatal to the sweep.
	if err := scanner.sweep(context.Background()); err != nil {
		t.Fatalf("sweep should isolate symbol failures, got %v", err)
	}
	if len(gateway.placed) != 0 {
		t.Fatalf("no orders expected when data is unavailable")
	}
}

func TestPollClosesPastLossLimit(t *testing.T) {
	gateway := &loopGateway{
		bars: syntheticBars(200),
		positions: []broker.Position{{
			Ticket:    "t-5",
			Symbol:    "EURUSD",
			Direction: signal.Buy,
			Profit:    -12,
		}},
	}
	cfg := scannerConfig()
	analyzer := NewAnalyzer(testScorer(), strategy.NewGate(cfg.Classifier.ConfidenceOverride), &stubClassifier{dir: signal.None, conf: 0.5})
	exec := execution.NewExecutor(gateway, zerolog.Nop())
	monitor := NewMonitor(cfg, gateway, analyzer, exec, journal.NewFeed(10), nil, zerolog.Nop())

	if err := monitor.poll(context.Background()); err != nil {
		t.Fatalf("poll returned error: %v", err)
	}
	if len(gateway.closed) != 1 || gateway.closed[0] != "t-5" {
		t.Fatalf("expected the losing position closed, got %v", gateway.closed)
	}
}

func TestPollIsolatesPositionFailures(t *testing.T) {
	gateway := &loopGateway{
		barsErr: errors.New("feed down"),
		positions: []broker.Position{
			{Ticket: "t-7", Symbol: "EURUSD", Direction: signal.Buy, Profit: -12},
			{Ticket: "t-8", Symbol: "GBPUSD", Direction: signal.Sell, Profit: -12},
		},
	}
	cfg := scannerConfig()
	analyzer := NewAnalyzer(testScorer(), strategy.NewGate(cfg.Classifier.ConfidenceOverride), &stubClassifier{dir: signal.None, conf: 0.5})
	exec := execution.NewExecutor(gateway, zerolog.Nop())
	monitor := NewMonitor(cfg, gateway, analyzer, exec, journal.NewFeed(10), nil, zerolog.Nop())

	// Analysis fails for every position; the poll still completes and
	// touches nothing.
	if err := monitor.poll(context.Background()); err != nil {
		t.Fatalf("poll should isolate position failures, got %v", err)
	}
	if len(gateway.closed) != 0 {
		t.Fatalf("no closes expected without analysis, got %v", gateway.closed)
	}
}

func TestPollHoldsHealthyPosition(t *testing.T) {
	gateway := &loopGateway{
		bars: syntheticBars(200),
		positions: []broker.Position{{
			Ticket:    "t-6",
			Symbol:    "EURUSD",
			Direction: signal.Buy,
			Profit:    -3,
		}},
	}
	cfg := scannerConfig()
	analyzer := NewAnalyzer(testScorer(), strategy.NewGate(cfg.Classifier.ConfidenceOverride), &stubClassifier{dir: signal.None, conf: 0.5})
	exec := execution.NewExecutor(gateway, zerolog.Nop())
	monitor := NewMonitor(cfg, gateway, analyzer, exec, journal.NewFeed(10), nil, zerolog.Nop())

	if err := monitor.poll(context.Background()); err != nil {
		t.Fatalf("poll returned error: %v", err)
	}
	if len(gateway.closed) != 0 {
		t.Fatalf("moderate loss must be held, got closes %v", gateway.closed)
	}
}
