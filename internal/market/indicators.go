package market

import (
	"fmt"

	talib "github.com/markcheno/go-talib"
)

// Fixed indicator parameters shared by both strategy variants.
const (
	emaFastLen    = 12
	emaSlowLen    = 26
	macdSignalLen = 9
	adxLen        = 14
	rsiLen        = 14
	stochLen      = 14
	stochSmooth   = 3
	rocLen        = 12
	atrLen        = 14
	bbLen         = 20
	bbMul         = 2.0

	atrShortMeanLen = 10
	atrLongMeanLen  = 50
	volumeMeanLen   = 10
)

// MinBars is the smallest window Compute accepts. The longest warmup is the
// 50-bar rolling ATR mean stacked on the 14-bar ATR.
const MinBars = atrLongMeanLen + atrLen

// IndicatorSet maps each bar index to the indicator values the scoring engine
// and classifier consume. All slices share the length of the input window;
// entries inside an indicator's warmup region are zero.
type IndicatorSet struct {
	EMAFast  []float64
	EMASlow  []float64
	MACDDiff []float64
	ADX      []float64
	RSI      []float64
	StochK   []float64
	StochD   []float64
	ROC      []float64
	ATR      []float64
	BBHigh   []float64
	BBMid    []float64
	BBLow    []float64
	BBWidth  []float64

	ATRMean10  []float64
	ATRMean50  []float64
	VolumeMean []float64
}

// Len reports the number of bars the set was computed over.
func (s *IndicatorSet) Len() int { return len(s.RSI) }

// Compute derives the full indicator set for a bar window. It is a pure
// function of its input: same bars, same output.
func Compute(bars []Bar) (*IndicatorSet, error) {
	if len(bars) < MinBars {
		return nil, fmt.Errorf("compute indicators: need at least %d bars, got %d", MinBars, len(bars))
	}

	closes := Closes(bars)
	highs := Highs(bars)
	lows := Lows(bars)
	volumes := Volumes(bars)

	set := &IndicatorSet{
		EMAFast: talib.Ema(closes, emaFastLen),
		EMASlow: talib.Ema(closes, emaSlowLen),
		ADX:     talib.Adx(highs, lows, closes, adxLen),
		RSI:     talib.Rsi(closes, rsiLen),
		ROC:     talib.Roc(closes, rocLen),
		ATR:     talib.Atr(highs, lows, closes, atrLen),
	}

	_, _, hist := talib.Macd(closes, emaFastLen, emaSlowLen, macdSignalLen)
	set.MACDDiff = hist

	set.StochK, set.StochD = talib.Stoch(highs, lows, closes,
		stochLen, stochSmooth, talib.SMA, stochSmooth, talib.SMA)

	set.BBHigh, set.BBMid, set.BBLow = talib.BBands(closes, bbLen, bbMul, bbMul, talib.SMA)
	set.BBWidth = make([]float64, len(closes))
	for i := range set.BBWidth {
		set.BBWidth[i] = set.BBHigh[i] - set.BBLow[i]
	}

	set.ATRMean10 = talib.Sma(set.ATR, atrShortMeanLen)
	set.ATRMean50 = talib.Sma(set.ATR, atrLongMeanLen)
	set.VolumeMean = talib.Sma(volumes, volumeMeanLen)

	return set, nil
}
