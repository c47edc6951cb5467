package strategy

import (
	"github.com/sammysam254/aitraderke/internal/market"
	"github.com/sammysam254/aitraderke/internal/signal"
)

// Filter suppresses raw directions on bars where conditions make the score
// unreliable. Each rule independently zeroes the affected bars; the input
// slice is never mutated.
func (s *Scorer) Filter(dirs []signal.Direction, ind *market.IndicatorSet) []signal.Direction {
	out := make([]signal.Direction, len(dirs))
	copy(out, dirs)

	for i := range out {
		if out[i] == signal.None {
			continue
		}
		// Extreme oscillator: no buying into overbought, no selling into
		// oversold.
		if out[i] == signal.Buy && ind.RSI[i] > s.params.RSIOverbought {
			out[i] = signal.None
			continue
		}
		if out[i] == signal.Sell && ind.RSI[i] < s.params.RSIOversold {
			out[i] = signal.None
			continue
		}
		// Weak trend.
		if ind.ADX[i] < s.params.FilterADXFloor {
			out[i] = signal.None
			continue
		}
		// Low volatility: range below half its rolling mean.
		if ind.ATRMean50[i] > 0 && ind.ATR[i] < ind.ATRMean50[i]*0.5 {
			out[i] = signal.None
		}
	}

	// Anti-flicker: a direction only survives when the raw series already
	// agreed on each of the previous N bars. Trades signal frequency for
	// reliability; the scalping variant runs with this disabled.
	if s.params.Persistence > 0 {
		for i := range out {
			if out[i] == signal.None {
				continue
			}
			for k := 1; k <= s.params.Persistence; k++ {
				if i-k < 0 || dirs[i-k] != dirs[i] {
					out[i] = signal.None
					break
				}
			}
		}
	}

	return out
}
