package pattern

import (
	"testing"

	"github.com/sammysam254/aitraderke/internal/market"
)

// flat returns n doji-free neutral bars around the given price.
func flat(n int, price float64) []market.Bar {
	bars := make([]market.Bar, n)
	for i := range bars {
		bars[i] = market.Bar{
			Open:  price,
			High:  price + 0.0010,
			Low:   price - 0.0010,
			Close: price + 0.0002,
		}
	}
	return bars
}

func TestBullishEngulfing(t *testing.T) {
	bars := flat(10, 1.1000)
	// Red candle then a green candle whose body swallows it.
	bars[8] = market.Bar{Open: 1.1010, High: 1.1012, Low: 1.0995, Close: 1.1000}
	bars[9] = market.Bar{Open: 1.0998, High: 1.1020, Low: 1.0996, Close: 1.1015}

	f := Detect(bars)
	if !f.BullishEngulfing[9] {
		t.Fatalf("expected bullish engulfing at bar 9")
	}
	if f.BearishEngulfing[9] {
		t.Fatalf("did not expect bearish engulfing at bar 9")
	}
	if !f.Bullish(9) {
		t.Fatalf("bar 9 should read bullish")
	}
}

func TestBearishEngulfing(t *testing.T) {
	bars := flat(10, 1.1000)
	bars[8] = market.Bar{Open: 1.1000, High: 1.1012, Low: 1.0998, Close: 1.1010}
	bars[9] = market.Bar{Open: 1.1012, High: 1.1014, Low: 1.0990, Close: 1.0995}

	f := Detect(bars)
	if !f.BearishEngulfing[9] {
		t.Fatalf("expected bearish engulfing at bar 9")
	}
	if !f.Bearish(9) {
		t.Fatalf("bar 9 should read bearish")
	}
}

func TestHammerAndShootingStar(t *testing.T) {
	bars := flat(5, 1.1000)
	// Long lower shadow, tiny upper shadow.
	bars[2] = market.Bar{Open: 1.1000, High: 1.1004, Low: 1.0970, Close: 1.1003}
	// Long upper shadow, tiny lower shadow.
	bars[4] = market.Bar{Open: 1.1000, High: 1.1030, Low: 1.09965, Close: 1.0997}

	f := Detect(bars)
	if !f.Hammer[2] {
		t.Fatalf("expected hammer at bar 2")
	}
	if !f.ShootingStar[4] {
		t.Fatalf("expected shooting star at bar 4")
	}
}

func TestMorningStar(t *testing.T) {
	bars := flat(6, 1.1000)
	// Big red, small-bodied gap-down middle, then green.
	bars[3] = market.Bar{Open: 1.1040, High: 1.1042, Low: 1.0998, Close: 1.1000}
	bars[4] = market.Bar{Open: 1.0995, High: 1.0999, Low: 1.0990, Close: 1.0996}
	bars[5] = market.Bar{Open: 1.0997, High: 1.1030, Low: 1.0995, Close: 1.1025}

	f := Detect(bars)
	if !f.MorningStar[5] {
		t.Fatalf("expected morning star at bar 5")
	}
}

func TestDoubleBottom(t *testing.T) {
	bars := flat(45, 1.1000)
	// Two matching troughs inside the look-back window; second revisits the
	// first within tolerance.
	bars[25] = market.Bar{Open: 1.0960, High: 1.0990, Low: 1.0900, Close: 1.0965}
	bars[40] = market.Bar{Open: 1.0960, High: 1.0990, Low: 1.0899, Close: 1.0970}

	f := Detect(bars)
	if !f.DoubleBottom[40] {
		t.Fatalf("expected double bottom at bar 40")
	}
}

func TestDoubleTop(t *testing.T) {
	bars := flat(45, 1.1000)
	bars[25] = market.Bar{Open: 1.1040, High: 1.1100, Low: 1.1010, Close: 1.1035}
	bars[40] = market.Bar{Open: 1.1040, High: 1.1101, Low: 1.1010, Close: 1.1030}

	f := Detect(bars)
	if !f.DoubleTop[40] {
		t.Fatalf("expected double top at bar 40")
	}
}

func TestLevelTouches(t *testing.T) {
	bars := flat(60, 1.1000)
	// Green candle printed on the rolling low.
	bars[55] = market.Bar{Open: 1.0992, High: 1.1005, Low: 1.0990, Close: 1.1002}

	f := Detect(bars)
	if !f.SupportBounce[55] {
		t.Fatalf("expected support bounce at bar 55")
	}
}

func TestDetectSeriesAligned(t *testing.T) {
	bars := flat(30, 1.1)
	f := Detect(bars)
	for name, s := range map[string][]bool{
		"BullishEngulfing": f.BullishEngulfing,
		"DoubleBottom":     f.DoubleBottom,
		"SupportBounce":    f.SupportBounce,
	} {
		if len(s) != len(bars) {
			t.Fatalf("%s has %d entries, want %d", name, len(s), len(bars))
		}
	}
}
