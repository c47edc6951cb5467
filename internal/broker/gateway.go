// Package broker hosts the gateway capability surface and its variants. The
// broker is the source of truth for price, profit, and open-state; the engine
// only derives decisions from snapshots and issues intents.
package broker

import (
	"context"
	"time"

	"github.com/sammysam254/aitraderke/internal/market"
	"github.com/sammysam254/aitraderke/internal/signal"
)

// Quote is the current bid/ask for a symbol.
type Quote struct {
	Bid  float64
	Ask  float64
	Time time.Time
}

// Entry returns the side-appropriate entry price: buys lift the ask, sells
// hit the bid.
func (q Quote) Entry(dir signal.Direction) float64 {
	if dir == signal.Buy {
		return q.Ask
	}
	return q.Bid
}

// Position is a broker-side open trade snapshot, read fresh each poll.
type Position struct {
	Ticket       string
	Symbol       string
	Direction    signal.Direction
	Volume       float64
	EntryPrice   float64
	StopLoss     float64
	TakeProfit   float64
	CurrentPrice float64
	Profit       float64
	OpenedAt     time.Time
}

// OrderRequest is a market order intent.
type OrderRequest struct {
	Symbol     string
	Direction  signal.Direction
	Volume     float64
	Price      float64 // advisory; brokers fill at their own quote
	StopLoss   float64
	TakeProfit float64
	Comment    string
}

// OrderResult reports a successful placement.
type OrderResult struct {
	Ticket string
	Volume float64
	Price  float64
}

// Account is the broker-side account snapshot.
type Account struct {
	Balance    float64
	Equity     float64
	Margin     float64
	FreeMargin float64
	Currency   string
}

// Gateway is the uniform capability set every broker variant satisfies.
// Every call honors its context deadline so one slow endpoint cannot stall a
// polling cycle indefinitely.
type Gateway interface {
	Connect(ctx context.Context) error
	Disconnect() error
	HistoricalBars(ctx context.Context, symbol, timeframe string, count int) ([]market.Bar, error)
	CurrentPrice(ctx context.Context, symbol string) (Quote, error)
	PlaceOrder(ctx context.Context, req OrderRequest) (*OrderResult, error)
	ClosePosition(ctx context.Context, ticket string) error
	OpenPositions(ctx context.Context) ([]Position, error)
	AccountInfo(ctx context.Context) (*Account, error)
}
