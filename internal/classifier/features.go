package classifier

import "github.com/sammysam254/aitraderke/internal/market"

// FeatureCount is the width of one bar's feature vector. It must match the
// model's export shape.
const FeatureCount = 6

// Features builds one row per bar from the indicator set. Bounded oscillators
// are rescaled to [0,1]; unbounded series are passed through, the model's own
// normalization layer handles them.
func Features(ind *market.IndicatorSet) [][]float32 {
	n := ind.Len()
	rows := make([][]float32, n)
	for i := 0; i < n; i++ {
		rows[i] = []float32{
			float32(ind.RSI[i] / 100),
			float32(ind.MACDDiff[i]),
			float32(ind.ADX[i] / 100),
			float32(ind.StochK[i] / 100),
			float32(ind.ROC[i]),
			float32(ind.BBWidth[i]),
		}
	}
	return rows
}
