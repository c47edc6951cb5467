// Package execution handles order lifecycle against the broker gateway.
package execution

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/sammysam254/aitraderke/internal/broker"
	"github.com/sammysam254/aitraderke/internal/metrics"
)

// Executor submits orders and closes through the gateway, logging every
// attempt and retrying a requote exactly once with a refreshed price.
type Executor struct {
	gateway broker.Gateway
	log     zerolog.Logger
}

// NewExecutor wraps a gateway with logging and metrics.
func NewExecutor(gateway broker.Gateway, log zerolog.Logger) *Executor {
	return &Executor{gateway: gateway, log: log}
}

// Submit places a market order. On a requote it refreshes the price and
// resubmits once; any second rejection is returned as-is.
func (e *Executor) Submit(ctx context.Context, req broker.OrderRequest) (*broker.OrderResult, error) {
	result, err := e.gateway.PlaceOrder(ctx, req)
	if broker.IsRequote(err) {
		e.log.Warn().Str("sym", req.Symbol).Msg("requote, retrying with fresh price")
		quote, qerr := e.gateway.CurrentPrice(ctx, req.Symbol)
		if qerr != nil {
			return nil, qerr
		}
		req.Price = quote.Entry(req.Direction)
		result, err = e.gateway.PlaceOrder(ctx, req)
	}
	if err != nil {
		e.log.Error().Err(err).Str("sym", req.Symbol).Str("side", req.Direction.String()).Float64("lots", req.Volume).Msg("order rejected")
		return nil, err
	}
	metrics.OrdersTotal.WithLabelValues(req.Symbol, req.Direction.String()).Inc()
	e.log.Info().
		Str("sym", req.Symbol).
		Str("side", req.Direction.String()).
		Float64("lots", result.Volume).
		Float64("px", result.Price).
		Str("ticket", result.Ticket).
		Msg("order filled")
	return result, nil
}

// Close exits a position by ticket and records the reason.
func (e *Executor) Close(ctx context.Context, pos broker.Position, reason string) error {
	if err := e.gateway.ClosePosition(ctx, pos.Ticket); err != nil {
		e.log.Error().Err(err).Str("ticket", pos.Ticket).Str("sym", pos.Symbol).Msg("close failed")
		return err
	}
	metrics.ClosesTotal.WithLabelValues(pos.Symbol, reason).Inc()
	e.log.Info().
		Str("ticket", pos.Ticket).
		Str("sym", pos.Symbol).
		Str("reason", reason).
		Float64("profit", pos.Profit).
		Msg("position closed")
	return nil
}
