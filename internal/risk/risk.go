// Package risk derives stop-loss, take-profit, and position size from signal
// strength, volatility, and classifier confidence.
package risk

import (
	"math"

	"github.com/sammysam254/aitraderke/internal/signal"
)

// Parameters is the sized order intent: where to cut, where to take, how big.
type Parameters struct {
	StopLoss   float64
	TakeProfit float64
	Lots       float64
}

// Limits encodes broker guard-rails and the account risk policy.
type Limits struct {
	RiskFraction float64 // fraction of balance risked per trade
	PipValue     float64 // account-currency value of one pip per lot
	MinLot       float64
	MaxLot       float64
}

// Stop and target distances are ATR multiples tiered by normalized signal
// strength: stronger signals get wider room to run.
const (
	strongStrength = 0.7
	mediumStrength = 0.5
)

// Targets computes stop and take-profit prices for an entry. Buy targets sit
// above entry with the stop below; sell is the mirror image.
func Targets(entry float64, dir signal.Direction, atr float64, scores signal.ScoreVector) (stop, target float64) {
	stopMul, profitMul := multipliers(scores.Strength())
	stopDistance := atr * stopMul
	profitDistance := atr * profitMul

	if dir == signal.Buy {
		return entry - stopDistance, entry + profitDistance
	}
	return entry + stopDistance, entry - profitDistance
}

func multipliers(strength float64) (stopMul, profitMul float64) {
	switch {
	case strength > strongStrength:
		return 1.2, 2.0
	case strength > mediumStrength:
		return 1.0, 1.5
	default:
		return 0.8, 1.2
	}
}

// PositionSize converts account balance and stop distance into lots, scaled
// down when the classifier is less certain. Weak signals still trade, just
// small.
func PositionSize(balance, stopPips, confidence float64, l Limits) float64 {
	if stopPips <= 0 || l.PipValue <= 0 {
		return l.MinLot
	}
	baseRisk := balance * l.RiskFraction

	var riskMultiplier float64
	switch {
	case confidence > 0.8:
		riskMultiplier = 1.0
	case confidence > 0.6:
		riskMultiplier = 0.75
	case confidence > 0.4:
		riskMultiplier = 0.5
	default:
		riskMultiplier = 0.3
	}

	lots := baseRisk * riskMultiplier / (stopPips * l.PipValue)
	return l.Clamp(round2(lots))
}

// StakeSize is the caller-driven variant used by manual and auto-trade entry
// points: a fixed account-currency stake divided by the stop distance in pips.
func StakeSize(stakeUSD, stopPips float64, l Limits) float64 {
	if stopPips <= 0 || l.PipValue <= 0 {
		return l.MinLot
	}
	lots := stakeUSD / (stopPips * l.PipValue)
	return l.Clamp(round2(lots))
}

// Clamp bounds a lot size to the broker's [min, max] band.
func (l Limits) Clamp(lots float64) float64 {
	return math.Max(l.MinLot, math.Min(lots, l.MaxLot))
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
