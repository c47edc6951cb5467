// Package strategy turns indicator and pattern series into trade signals:
// weighted scoring, noise filtering, and fusion with the classifier.
package strategy

import (
	"github.com/sammysam254/aitraderke/internal/market"
	"github.com/sammysam254/aitraderke/internal/pattern"
	"github.com/sammysam254/aitraderke/internal/signal"
)

// Sub-score weights. Trend dominates, momentum and patterns confirm,
// volatility positioning times the entry.
const (
	weightTrend      = 3.0
	weightMomentum   = 2.5
	weightVolatility = 2.0
	weightPattern    = 2.5
	volumeBonus      = 0.5

	rsiNeutralLow  = 40.0
	rsiNeutralHigh = 60.0
)

// Params carries the tuned thresholds for one scoring variant.
type Params struct {
	MinBars        int
	MinScoreGap    float64
	TrendADXFloor  float64
	FilterADXFloor float64
	RSIOverbought  float64
	RSIOversold    float64
	Persistence    int // zero disables the anti-flicker rule
}

// Scorer computes per-bar score vectors and raw directions for a bar window.
type Scorer struct {
	params Params
}

// NewScorer builds a scorer for the given parameter bundle.
func NewScorer(params Params) *Scorer {
	if params.MinBars <= 0 {
		params.MinBars = 100
	}
	if params.MinScoreGap <= 0 {
		params.MinScoreGap = 2
	}
	return &Scorer{params: params}
}

// Params returns the scorer's parameter bundle.
func (s *Scorer) Params() Params { return s.params }

// Score sums the four weighted sub-scores per direction for every bar and
// derives the raw direction. Windows below the minimum bar count yield an
// all-zero series: too little history is a hard precondition, not an error.
func (s *Scorer) Score(bars []market.Bar, ind *market.IndicatorSet, flags *pattern.Flags) ([]signal.ScoreVector, []signal.Direction) {
	n := len(bars)
	scores := make([]signal.ScoreVector, n)
	dirs := make([]signal.Direction, n)
	if n < s.params.MinBars {
		return scores, dirs
	}

	for i := 0; i < n; i++ {
		close := bars[i].Close

		// Trend: price above/below both EMAs, MACD histogram agreeing,
		// ADX confirming the move is trending at all.
		trending := ind.ADX[i] > s.params.TrendADXFloor
		if trending && close > ind.EMAFast[i] && ind.EMAFast[i] > ind.EMASlow[i] && ind.MACDDiff[i] > 0 {
			scores[i].Buy += weightTrend
		}
		if trending && close < ind.EMAFast[i] && ind.EMAFast[i] < ind.EMASlow[i] && ind.MACDDiff[i] < 0 {
			scores[i].Sell += weightTrend
		}

		// Momentum: RSI inside the neutral band with stochastic and ROC
		// agreeing in direction.
		neutral := ind.RSI[i] > rsiNeutralLow && ind.RSI[i] < rsiNeutralHigh
		if neutral && ind.StochK[i] > ind.StochD[i] && ind.ROC[i] > 0 {
			scores[i].Buy += weightMomentum
		}
		if neutral && ind.StochK[i] < ind.StochD[i] && ind.ROC[i] < 0 {
			scores[i].Sell += weightMomentum
		}

		// Volatility: expanding range with price positioned between the
		// channel midline and the band edge on the entry side.
		expanding := ind.ATRMean10[i] > 0 && ind.ATR[i] > ind.ATRMean10[i]
		if expanding && close < ind.BBMid[i] && close > ind.BBLow[i] {
			scores[i].Buy += weightVolatility
		}
		if expanding && close > ind.BBMid[i] && close < ind.BBHigh[i] {
			scores[i].Sell += weightVolatility
		}

		// Patterns.
		if flags.Bullish(i) {
			scores[i].Buy += weightPattern
		}
		if flags.Bearish(i) {
			scores[i].Sell += weightPattern
		}

		// Volume confirmation boosts both sides equally: ties are not
		// direction-discriminating.
		if ind.VolumeMean[i] > 0 && bars[i].Volume > ind.VolumeMean[i] {
			scores[i].Buy += volumeBonus
			scores[i].Sell += volumeBonus
		}

		dirs[i] = s.direction(scores[i])
	}

	return scores, dirs
}

// direction requires the winning side to lead by the minimum gap, not just a
// majority, which suppresses marginal calls on noisy bars.
func (s *Scorer) direction(v signal.ScoreVector) signal.Direction {
	switch {
	case v.Buy > v.Sell && v.Buy-v.Sell >= s.params.MinScoreGap:
		return signal.Buy
	case v.Sell > v.Buy && v.Sell-v.Buy >= s.params.MinScoreGap:
		return signal.Sell
	default:
		return signal.None
	}
}
