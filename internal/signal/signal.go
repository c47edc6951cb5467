// Package signal standardizes payloads shared between the scoring, fusion, and
// monitoring layers.
package signal

// Direction is the side of a trade decision: +1 buy, -1 sell, 0 no trade.
type Direction int

const (
	Sell Direction = -1
	None Direction = 0
	Buy  Direction = 1
)

// Opposite returns the reversed direction; None stays None.
func (d Direction) Opposite() Direction { return -d }

func (d Direction) String() string {
	switch d {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "NONE"
	}
}

// ScoreVector carries the weighted buy/sell sub-score sums for a single bar.
// Both fields are sums of non-negative weighted terms and never go negative.
type ScoreVector struct {
	Buy  float64
	Sell float64
}

// Gap is the absolute lead of the winning side over the losing side.
func (v ScoreVector) Gap() float64 {
	if v.Buy >= v.Sell {
		return v.Buy - v.Sell
	}
	return v.Sell - v.Buy
}

// Strength normalizes the winning score against the total across both sides.
// The total is floored at 1 so an all-quiet bar reads as zero strength, not NaN.
func (v ScoreVector) Strength() float64 {
	total := v.Buy + v.Sell
	if total < 1 {
		total = 1
	}
	if v.Buy >= v.Sell {
		return v.Buy / total
	}
	return v.Sell / total
}

// Final is the fused trade decision for one bar. Confidence is always the
// classifier's confidence, regardless of which fusion branch produced the
// direction.
type Final struct {
	Direction  Direction
	Confidence float64
}
