package broker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sammysam254/aitraderke/internal/config"
	"github.com/sammysam254/aitraderke/internal/signal"
)

func newTestSim() *Sim {
	s := NewSim(config.Sim{StartingBalance: 10000, Spread: 0.0002})
	fixed := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return fixed })
	return s
}

func TestSimHistoricalBarsDeterministic(t *testing.T) {
	s := newTestSim()
	ctx := context.Background()

	a, err := s.HistoricalBars(ctx, "EURUSD", "M5", 100)
	if err != nil {
		t.Fatalf("HistoricalBars returned error: %v", err)
	}
	b, err := s.HistoricalBars(ctx, "EURUSD", "M5", 100)
	if err != nil {
		t.Fatalf("HistoricalBars returned error: %v", err)
	}
	if len(a) != 100 {
		t.Fatalf("expected 100 bars, got %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("repeat fetch diverged at bar %d", i)
		}
	}
	for i := 1; i < len(a); i++ {
		if !a[i].Time.After(a[i-1].Time) {
			t.Fatalf("bars out of order at %d", i)
		}
	}
}

func TestSimHistoricalBarsPerSymbol(t *testing.T) {
	s := newTestSim()
	ctx := context.Background()

	eur, _ := s.HistoricalBars(ctx, "EURUSD", "M5", 50)
	jpy, _ := s.HistoricalBars(ctx, "USDJPY", "M5", 50)
	if eur[49].Close == jpy[49].Close {
		t.Fatalf("different symbols should follow different paths")
	}
	if jpy[49].Close < 100 {
		t.Fatalf("USDJPY should price near its base, got %.3f", jpy[49].Close)
	}
}

func TestSimQuoteSpread(t *testing.T) {
	s := newTestSim()
	quote, err := s.CurrentPrice(context.Background(), "EURUSD")
	if err != nil {
		t.Fatalf("CurrentPrice returned error: %v", err)
	}
	if quote.Ask <= quote.Bid {
		t.Fatalf("ask must sit above bid: %.6f <= %.6f", quote.Ask, quote.Bid)
	}
}

func TestSimOrderLifecycle(t *testing.T) {
	s := newTestSim()
	ctx := context.Background()
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}

	quote, _ := s.CurrentPrice(ctx, "EURUSD")
	result, err := s.PlaceOrder(ctx, OrderRequest{
		Symbol:     "EURUSD",
		Direction:  signal.Buy,
		Volume:     0.1,
		StopLoss:   quote.Ask - 0.0020,
		TakeProfit: quote.Ask + 0.0040,
	})
	if err != nil {
		t.Fatalf("PlaceOrder returned error: %v", err)
	}
	if result.Ticket == "" {
		t.Fatalf("expected a ticket")
	}
	if result.Price != quote.Ask {
		t.Fatalf("buy should fill at the ask: %.6f vs %.6f", result.Price, quote.Ask)
	}

	positions, err := s.OpenPositions(ctx)
	if err != nil {
		t.Fatalf("OpenPositions returned error: %v", err)
	}
	if len(positions) != 1 || positions[0].Ticket != result.Ticket {
		t.Fatalf("expected the placed position, got %+v", positions)
	}

	if err := s.ClosePosition(ctx, result.Ticket); err != nil {
		t.Fatalf("ClosePosition returned error: %v", err)
	}
	positions, _ = s.OpenPositions(ctx)
	if len(positions) != 0 {
		t.Fatalf("expected no open positions after close, got %d", len(positions))
	}

	// With a frozen clock the close exits at the bid, so the spread is the
	// whole realized loss.
	account, err := s.AccountInfo(ctx)
	if err != nil {
		t.Fatalf("AccountInfo returned error: %v", err)
	}
	if account.Balance >= 10000 {
		t.Fatalf("round trip across the spread should cost money, balance %.2f", account.Balance)
	}
	if account.Balance < 9990 {
		t.Fatalf("spread cost implausibly large, balance %.2f", account.Balance)
	}
}

func TestSimRejectsInvalidVolume(t *testing.T) {
	s := newTestSim()
	_, err := s.PlaceOrder(context.Background(), OrderRequest{
		Symbol: "EURUSD", Direction: signal.Buy, Volume: 0.001,
	})
	var reject *RejectError
	if !errors.As(err, &reject) || reject.Reason != RejectInvalidVolume {
		t.Fatalf("expected invalid volume rejection, got %v", err)
	}
}

func TestSimRejectsInvalidStops(t *testing.T) {
	s := newTestSim()
	ctx := context.Background()
	quote, _ := s.CurrentPrice(ctx, "EURUSD")

	// Stop above entry on a buy is inverted.
	_, err := s.PlaceOrder(ctx, OrderRequest{
		Symbol:     "EURUSD",
		Direction:  signal.Buy,
		Volume:     0.1,
		StopLoss:   quote.Ask + 0.0020,
		TakeProfit: quote.Ask + 0.0040,
	})
	var reject *RejectError
	if !errors.As(err, &reject) || reject.Reason != RejectInvalidStops {
		t.Fatalf("expected invalid stops rejection, got %v", err)
	}
}

func TestSimRejectsInsufficientMargin(t *testing.T) {
	s := NewSim(config.Sim{StartingBalance: 50, Spread: 0.0002})
	_, err := s.PlaceOrder(context.Background(), OrderRequest{
		Symbol: "EURUSD", Direction: signal.Sell, Volume: 1,
	})
	var reject *RejectError
	if !errors.As(err, &reject) || reject.Reason != RejectInsufficientMargin {
		t.Fatalf("expected margin rejection, got %v", err)
	}
}

func TestSimAccountEquityMarksOpenPositions(t *testing.T) {
	s := newTestSim()
	ctx := context.Background()
	_, err := s.PlaceOrder(ctx, OrderRequest{Symbol: "EURUSD", Direction: signal.Buy, Volume: 0.1})
	if err != nil {
		t.Fatalf("PlaceOrder returned error: %v", err)
	}
	account, err := s.AccountInfo(ctx)
	if err != nil {
		t.Fatalf("AccountInfo returned error: %v", err)
	}
	if account.Margin != 100 {
		t.Fatalf("expected 0.1 lots to reserve $100 margin, got %.2f", account.Margin)
	}
	if account.Equity >= account.Balance {
		t.Fatalf("open position marked across the spread should show a paper loss")
	}
}

func TestIsRequote(t *testing.T) {
	if !IsRequote(&RejectError{Reason: RejectRequote}) {
		t.Fatalf("requote rejection should be retryable")
	}
	if IsRequote(&RejectError{Reason: RejectInvalidStops}) {
		t.Fatalf("non-requote rejection must not be retryable")
	}
	if IsRequote(errors.New("plain")) {
		t.Fatalf("plain error must not be retryable")
	}
}
