// Package pattern flags candlestick and price-action formations over a bar
// window. Every detector is a pure function of the window: no state survives
// between calls and no pattern depends on another pattern's output.
package pattern

import (
	"math"

	"github.com/sammysam254/aitraderke/internal/market"
)

const (
	doubleWindow     = 20
	doubleTolerance  = 0.002 // prior extremum matched within 0.2%
	levelWindow      = 50
	levelTolerance   = 0.001 // support/resistance touched within 0.1%
	starBodyFraction = 0.3
)

// Flags records, per bar, which formations completed on that bar.
type Flags struct {
	BullishEngulfing []bool
	BearishEngulfing []bool
	Hammer           []bool
	ShootingStar     []bool
	MorningStar      []bool
	EveningStar      []bool
	DoubleBottom     []bool
	DoubleTop        []bool
	SupportBounce    []bool
	ResistanceReject []bool
}

// Bullish reports whether any bullish formation fired at bar i.
func (f *Flags) Bullish(i int) bool {
	return f.BullishEngulfing[i] || f.Hammer[i] || f.MorningStar[i] ||
		f.DoubleBottom[i] || f.SupportBounce[i]
}

// Bearish reports whether any bearish formation fired at bar i.
func (f *Flags) Bearish(i int) bool {
	return f.BearishEngulfing[i] || f.ShootingStar[i] || f.EveningStar[i] ||
		f.DoubleTop[i] || f.ResistanceReject[i]
}

// Detect computes every pattern series for the window.
func Detect(bars []market.Bar) *Flags {
	n := len(bars)
	f := &Flags{
		BullishEngulfing: make([]bool, n),
		BearishEngulfing: make([]bool, n),
		Hammer:           make([]bool, n),
		ShootingStar:     make([]bool, n),
		MorningStar:      make([]bool, n),
		EveningStar:      make([]bool, n),
		DoubleBottom:     make([]bool, n),
		DoubleTop:        make([]bool, n),
		SupportBounce:    make([]bool, n),
		ResistanceReject: make([]bool, n),
	}

	for i := range bars {
		cur := bars[i]
		body := math.Abs(cur.Close - cur.Open)
		upperShadow := cur.High - math.Max(cur.Close, cur.Open)
		lowerShadow := math.Min(cur.Close, cur.Open) - cur.Low

		f.Hammer[i] = lowerShadow > body*2 && upperShadow < body*0.5
		f.ShootingStar[i] = upperShadow > body*2 && lowerShadow < body*0.5

		if i >= 1 {
			prev := bars[i-1]
			f.BullishEngulfing[i] = prev.Close < prev.Open &&
				cur.Close > cur.Open &&
				cur.Open < prev.Close && cur.Close > prev.Open
			f.BearishEngulfing[i] = prev.Close > prev.Open &&
				cur.Close < cur.Open &&
				cur.Open > prev.Close && cur.Close < prev.Open
		}

		if i >= 2 {
			first := bars[i-2]
			middle := bars[i-1]
			firstBody := math.Abs(first.Close - first.Open)
			smallBody := math.Abs(middle.Close-middle.Open) < firstBody*starBodyFraction

			f.MorningStar[i] = first.Close < first.Open && smallBody &&
				cur.Close > cur.Open && middle.Open < first.Close
			f.EveningStar[i] = first.Close > first.Open && smallBody &&
				cur.Close < cur.Open && middle.Open > first.Close
		}
	}

	detectDoubleBottom(bars, f.DoubleBottom)
	detectDoubleTop(bars, f.DoubleTop)
	detectLevelTouches(bars, f.SupportBounce, f.ResistanceReject)

	return f
}

// detectDoubleBottom marks bars whose low revisits a prior local minimum
// within the tolerance band. A bar is a local minimum when its low is the
// lowest of the trailing window.
func detectDoubleBottom(bars []market.Bar, out []bool) {
	if len(bars) < doubleWindow*2 {
		return
	}
	isLocalMin := localExtrema(bars, doubleWindow, false)
	for i := doubleWindow; i < len(bars); i++ {
		if !isLocalMin[i] {
			continue
		}
		// Closest prior local minimum inside the look-back window.
		for j := i - 1; j >= i-doubleWindow; j-- {
			if !isLocalMin[j] {
				continue
			}
			ref := bars[j].Low
			if ref > 0 && math.Abs(bars[i].Low-ref)/ref < doubleTolerance {
				out[i] = true
			}
			break
		}
	}
}

func detectDoubleTop(bars []market.Bar, out []bool) {
	if len(bars) < doubleWindow*2 {
		return
	}
	isLocalMax := localExtrema(bars, doubleWindow, true)
	for i := doubleWindow; i < len(bars); i++ {
		if !isLocalMax[i] {
			continue
		}
		for j := i - 1; j >= i-doubleWindow; j-- {
			if !isLocalMax[j] {
				continue
			}
			ref := bars[j].High
			if ref > 0 && math.Abs(bars[i].High-ref)/ref < doubleTolerance {
				out[i] = true
			}
			break
		}
	}
}

// detectLevelTouches marks bullish candles printed at the rolling support and
// bearish candles printed at the rolling resistance.
func detectLevelTouches(bars []market.Bar, bounce, reject []bool) {
	for i := levelWindow - 1; i < len(bars); i++ {
		support := bars[i].Low
		resistance := bars[i].High
		for j := i - levelWindow + 1; j <= i; j++ {
			if bars[j].Low < support {
				support = bars[j].Low
			}
			if bars[j].High > resistance {
				resistance = bars[j].High
			}
		}
		if support > 0 && (bars[i].Low-support)/support < levelTolerance {
			bounce[i] = bars[i].Close > bars[i].Open
		}
		if resistance > 0 && (resistance-bars[i].High)/resistance < levelTolerance {
			reject[i] = bars[i].Close < bars[i].Open
		}
	}
}

// localExtrema reports, per bar, whether the bar is the extreme of its
// trailing window (inclusive).
func localExtrema(bars []market.Bar, window int, max bool) []bool {
	out := make([]bool, len(bars))
	for i := window - 1; i < len(bars); i++ {
		extreme := true
		for j := i - window + 1; j < i; j++ {
			if max && bars[j].High > bars[i].High {
				extreme = false
				break
			}
			if !max && bars[j].Low < bars[i].Low {
				extreme = false
				break
			}
		}
		out[i] = extreme
	}
	return out
}
