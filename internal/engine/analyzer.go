// Package engine runs the two polling loops: the scanner that opens
// positions and the monitor that supervises them. Both share one analysis
// pipeline so an entry decision and an exit decision always see the same
// signal for the same bars.
package engine

import (
	"errors"
	"fmt"

	"github.com/sammysam254/aitraderke/internal/classifier"
	"github.com/sammysam254/aitraderke/internal/market"
	"github.com/sammysam254/aitraderke/internal/pattern"
	"github.com/sammysam254/aitraderke/internal/signal"
	"github.com/sammysam254/aitraderke/internal/strategy"
)

// Analysis is one full pipeline pass over a bar window.
type Analysis struct {
	Bars     []market.Bar
	Ind      *market.IndicatorSet
	Flags    *pattern.Flags
	Scores   []signal.ScoreVector
	Raw      []signal.Direction
	Filtered []signal.Direction
	Final    []signal.Final

	// ClassifierReady is false when the model is untrained; Final then
	// carries the filtered rule direction with zero confidence, which keeps
	// the monitor decisive while the entry threshold holds the scanner back.
	ClassifierReady bool
}

// Last returns the decision for the most recent bar.
func (a *Analysis) Last() signal.Final {
	if len(a.Final) == 0 {
		return signal.Final{}
	}
	return a.Final[len(a.Final)-1]
}

// LastScores returns the score vector for the most recent bar.
func (a *Analysis) LastScores() signal.ScoreVector {
	if len(a.Scores) == 0 {
		return signal.ScoreVector{}
	}
	return a.Scores[len(a.Scores)-1]
}

// LastATR returns the ATR of the most recent bar.
func (a *Analysis) LastATR() float64 {
	if a.Ind == nil || len(a.Ind.ATR) == 0 {
		return 0
	}
	return a.Ind.ATR[len(a.Ind.ATR)-1]
}

// Analyzer chains indicators, patterns, scoring, filtering, and fusion.
type Analyzer struct {
	scorer *strategy.Scorer
	gate   strategy.Gate
	model  classifier.Classifier
}

// NewAnalyzer wires the pipeline stages together.
func NewAnalyzer(scorer *strategy.Scorer, gate strategy.Gate, model classifier.Classifier) *Analyzer {
	return &Analyzer{scorer: scorer, gate: gate, model: model}
}

// Analyze runs the full pipeline over one bar window.
func (a *Analyzer) Analyze(bars []market.Bar) (*Analysis, error) {
	ind, err := market.Compute(bars)
	if err != nil {
		return nil, fmt.Errorf("indicators: %w", err)
	}
	flags := pattern.Detect(bars)
	scores, raw := a.scorer.Score(bars, ind, flags)
	filtered := a.scorer.Filter(raw, ind)

	analysis := &Analysis{
		Bars:     bars,
		Ind:      ind,
		Flags:    flags,
		Scores:   scores,
		Raw:      raw,
		Filtered: filtered,
	}

	out, err := a.model.Predict(ind)
	switch {
	case errors.Is(err, classifier.ErrUntrained):
		finals := make([]signal.Final, len(filtered))
		for i, dir := range filtered {
			finals[i] = signal.Final{Direction: dir}
		}
		analysis.Final = finals
	case err != nil:
		return nil, fmt.Errorf("classifier: %w", err)
	default:
		analysis.Final = a.gate.Fuse(filtered, out)
		analysis.ClassifierReady = true
	}
	return analysis, nil
}
