package broker

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sammysam254/aitraderke/internal/config"
)

// New builds the gateway named by config. Unknown kinds fail fast at startup
// rather than mid-loop.
func New(cfg config.Broker, log zerolog.Logger) (Gateway, error) {
	switch cfg.Kind {
	case "", "sim":
		return NewSim(cfg.Sim), nil
	case "deriv":
		return NewDeriv(cfg.Deriv, log), nil
	case "oanda":
		return NewOanda(cfg.Oanda, log), nil
	case "mt5":
		return nil, fmt.Errorf("broker: mt5 requires the desktop terminal bridge; use deriv or oanda for headless runs")
	default:
		return nil, fmt.Errorf("broker: unknown kind %q", cfg.Kind)
	}
}
