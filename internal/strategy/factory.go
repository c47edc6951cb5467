package strategy

import (
	"strings"

	"github.com/sammysam254/aitraderke/internal/config"
)

// Build returns a scorer for the configured variant. The scalping variant
// trades every qualifying bar; the standard variant adds the anti-flicker
// persistence rule on top of the same scoring.
func Build(mode string, cfg config.Strategy) *Scorer {
	params := Params{
		MinBars:        cfg.MinBars,
		MinScoreGap:    cfg.MinScoreGap,
		TrendADXFloor:  cfg.TrendADXFloor,
		FilterADXFloor: cfg.FilterADXFloor,
		RSIOverbought:  cfg.RSIOverbought,
		RSIOversold:    cfg.RSIOversold,
	}
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "standard", "swing":
		params.Persistence = cfg.Persistence
	default: // "", "scalp", "scalping"
		params.Persistence = 0
	}
	return NewScorer(params)
}
