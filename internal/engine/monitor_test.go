package engine

import (
	"testing"

	"github.com/sammysam254/aitraderke/internal/broker"
	"github.com/sammysam254/aitraderke/internal/config"
	"github.com/sammysam254/aitraderke/internal/market"
	"github.com/sammysam254/aitraderke/internal/signal"
)

func monitorConfig() config.Monitor {
	return config.Monitor{
		LossLimitUSD:        -10,
		EarlyCutUSD:         -7,
		ProfitFloorUSD:      2,
		MomentumATRFraction: 0.3,
		ReversalMargin:      3,
	}
}

// fakeAnalysis fabricates the pieces Evaluate reads: the fused decision for
// the last bar, its score vector, recent closes, and the current ATR.
func fakeAnalysis(dir signal.Direction, buy, sell, lastMove, atr float64) *Analysis {
	n := 10
	bars := make([]market.Bar, n)
	for i := range bars {
		bars[i].Close = 1.1000
	}
	bars[n-1].Close = bars[n-1-momentumSpan].Close + lastMove

	scores := make([]signal.ScoreVector, n)
	scores[n-1] = signal.ScoreVector{Buy: buy, Sell: sell}
	finals := make([]signal.Final, n)
	finals[n-1] = signal.Final{Direction: dir, Confidence: 0.8}

	atrs := make([]float64, n)
	atrs[n-1] = atr
	return &Analysis{
		Bars:   bars,
		Ind:    &market.IndicatorSet{ATR: atrs, RSI: make([]float64, n)},
		Scores: scores,
		Final:  finals,
	}
}

func TestEvaluateProfitSignalReversal(t *testing.T) {
	pos := broker.Position{Direction: signal.Buy, Profit: 5}
	a := fakeAnalysis(signal.Sell, 1, 6, 0.0010, 0.0010)

	d := Evaluate(pos, a, monitorConfig())
	if !d.Close || d.Reason != ReasonProfitReversal {
		t.Fatalf("expected profit reversal close, got %+v", d)
	}
}

func TestEvaluateProfitHeldWithoutReversal(t *testing.T) {
	pos := broker.Position{Direction: signal.Buy, Profit: 5}
	// Signal still agrees and momentum is healthy.
	a := fakeAnalysis(signal.Buy, 6, 1, 0.0010, 0.0010)

	d := Evaluate(pos, a, monitorConfig())
	if d.Close {
		t.Fatalf("healthy winner should be held, got %+v", d)
	}
	if d.Reason != ReasonHold {
		t.Fatalf("unexpected reason: %s", d.Reason)
	}
}

func TestEvaluateMomentumDecay(t *testing.T) {
	pos := broker.Position{Direction: signal.Buy, Profit: 5}
	// No reversal, but price barely moved against a healthy ATR.
	a := fakeAnalysis(signal.None, 3, 2, 0.0001, 0.0010)

	d := Evaluate(pos, a, monitorConfig())
	if !d.Close || d.Reason != ReasonMomentumDecay {
		t.Fatalf("expected momentum decay close, got %+v", d)
	}
}

func TestEvaluateSmallProfitSurvivesMomentumDecay(t *testing.T) {
	pos := broker.Position{Direction: signal.Buy, Profit: 1}
	a := fakeAnalysis(signal.None, 3, 2, 0.0001, 0.0010)

	d := Evaluate(pos, a, monitorConfig())
	if d.Close {
		t.Fatalf("profit below the floor must not trigger the momentum rule, got %+v", d)
	}
}

func TestEvaluateLossLimit(t *testing.T) {
	pos := broker.Position{Direction: signal.Sell, Profit: -12}
	// Even a still-agreeing signal cannot save a trade past the hard limit.
	a := fakeAnalysis(signal.Sell, 1, 6, 0.0010, 0.0010)

	d := Evaluate(pos, a, monitorConfig())
	if !d.Close || d.Reason != ReasonLossLimit {
		t.Fatalf("expected loss limit close, got %+v", d)
	}
}

func TestEvaluateStrongReversalCutsEarly(t *testing.T) {
	pos := broker.Position{Direction: signal.Buy, Profit: -8}
	// Sell leads buy by more than the reversal margin.
	a := fakeAnalysis(signal.Sell, 1, 5, 0.0010, 0.0010)

	d := Evaluate(pos, a, monitorConfig())
	if !d.Close || d.Reason != ReasonStrongReversal {
		t.Fatalf("expected strong reversal close, got %+v", d)
	}
}

func TestEvaluateWeakReversalHolds(t *testing.T) {
	pos := broker.Position{Direction: signal.Buy, Profit: -8}
	// Reversed, but the score margin is inside the tolerance.
	a := fakeAnalysis(signal.Sell, 3, 5, 0.0010, 0.0010)

	d := Evaluate(pos, a, monitorConfig())
	if d.Close {
		t.Fatalf("weak reversal should hold for the hard limit, got %+v", d)
	}
}

func TestEvaluateModerateLossHolds(t *testing.T) {
	pos := broker.Position{Direction: signal.Buy, Profit: -5}
	a := fakeAnalysis(signal.Sell, 1, 6, 0.0010, 0.0010)

	d := Evaluate(pos, a, monitorConfig())
	if d.Close {
		t.Fatalf("loss inside both floors should be held, got %+v", d)
	}
}
