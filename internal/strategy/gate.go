package strategy

import (
	"github.com/sammysam254/aitraderke/internal/classifier"
	"github.com/sammysam254/aitraderke/internal/signal"
)

// Gate fuses the filtered rule signal with the classifier's prediction into
// the final trade decision.
type Gate struct {
	// ConfidenceOverride lets the classifier assert a direction on
	// conviction alone, without rule agreement.
	ConfidenceOverride float64
}

// NewGate builds a gate with the given override threshold.
func NewGate(override float64) Gate {
	if override <= 0 {
		override = 0.75
	}
	return Gate{ConfidenceOverride: override}
}

// Fuse evaluates the fusion rule per bar:
//
//   - rule and classifier agree on a non-zero direction: take it;
//   - classifier alone, above the override threshold: take the classifier;
//   - otherwise no trade.
//
// The final confidence is always the classifier's value, whichever branch
// fired. Bars before the classifier's coverage fuse to no-trade.
func (g Gate) Fuse(dirs []signal.Direction, out classifier.Output) []signal.Final {
	finals := make([]signal.Final, len(dirs))
	for i := range dirs {
		mlDir, conf, ok := out.At(i)
		if !ok {
			continue
		}
		finals[i].Confidence = conf
		switch {
		case dirs[i] != signal.None && dirs[i] == mlDir:
			finals[i].Direction = dirs[i]
		case mlDir != signal.None && conf > g.ConfidenceOverride:
			finals[i].Direction = mlDir
		}
	}
	return finals
}
