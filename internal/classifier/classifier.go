// Package classifier wraps the statistical model that predicts per-bar trade
// direction and confidence from indicator features.
package classifier

import (
	"errors"

	"github.com/sammysam254/aitraderke/internal/market"
	"github.com/sammysam254/aitraderke/internal/signal"
)

// ErrUntrained is returned when a prediction is requested before any model has
// been fitted or loaded. Callers decide whether to trigger training; the core
// never substitutes a default confidence.
var ErrUntrained = errors.New("classifier: model not trained")

// Output is the classifier's prediction aligned 1:1 with the trailing bars it
// was computed over: Directions[k] and Confidence[k] belong to the bar at
// index Offset+k of the input window.
type Output struct {
	Offset     int
	Directions []signal.Direction
	Confidence []float64
}

// At returns the prediction for absolute bar index i, or (None, 0, false)
// when the index falls outside the covered trailing range.
func (o Output) At(i int) (signal.Direction, float64, bool) {
	k := i - o.Offset
	if k < 0 || k >= len(o.Directions) {
		return signal.None, 0, false
	}
	return o.Directions[k], o.Confidence[k], true
}

// Classifier is the capability surface the fusion layer depends on.
type Classifier interface {
	// Predict derives directions and confidences for the trailing bars of
	// the indicator set. Returns ErrUntrained before a model is available.
	Predict(ind *market.IndicatorSet) (Output, error)
	// Trained reports whether a fitted model is loaded.
	Trained() bool
}
