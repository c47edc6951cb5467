package broker

import (
	"context"
	"hash/fnv"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sammysam254/aitraderke/internal/config"
	"github.com/sammysam254/aitraderke/internal/market"
	"github.com/sammysam254/aitraderke/internal/signal"
)

// Standard forex contract: one lot moves the account by contractSize units of
// quote currency per unit of price change.
const contractSize = 100000

// marginPerLot assumes 1:100 leverage on the standard contract.
const marginPerLot = 1000

const simEpsilon = 1e-9

// Sim is the in-process gateway used for demo mode and tests. It synthesizes
// deterministic price paths per symbol and keeps a virtual account with
// decimal cash arithmetic so repeated fills never drift.
type Sim struct {
	mu        sync.Mutex
	cash      decimal.Decimal
	realized  decimal.Decimal
	spread    float64
	positions map[string]*Position
	now       func() time.Time
}

// NewSim builds a simulated gateway from config.
func NewSim(cfg config.Sim) *Sim {
	return &Sim{
		cash:      decimal.NewFromFloat(cfg.StartingBalance),
		spread:    cfg.Spread,
		positions: make(map[string]*Position),
		now:       time.Now,
	}
}

// SetClock overrides the time source; tests use it for reproducible paths.
func (s *Sim) SetClock(now func() time.Time) { s.now = now }

// Connect and Disconnect are no-ops: the simulated book lives in process and
// needs no session.
func (s *Sim) Connect(ctx context.Context) error { return nil }

func (s *Sim) Disconnect() error { return nil }

// HistoricalBars synthesizes a deterministic OHLCV window ending at the
// current (timeframe-aligned) bar. The same symbol and anchor always produce
// the same window.
func (s *Sim) HistoricalBars(ctx context.Context, symbol, timeframe string, count int) ([]market.Bar, error) {
	if count <= 0 {
		return nil, ErrNoData
	}
	step := timeframeDuration(timeframe)
	anchor := s.now().Truncate(step)
	base := basePrice(symbol)

	bars := make([]market.Bar, count)
	for i := 0; i < count; i++ {
		idx := anchor.Unix()/int64(step.Seconds()) - int64(count-1-i)
		open := syntheticPrice(symbol, base, idx)
		close := syntheticPrice(symbol, base, idx+1)
		high := math.Max(open, close) * (1 + 0.0003)
		low := math.Min(open, close) * (1 - 0.0003)
		bars[i] = market.Bar{
			Time:   anchor.Add(-step * time.Duration(count-1-i)),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  close,
			Volume: 1000 + float64(hashIndex(symbol, idx)%500),
		}
	}
	return bars, nil
}

func (s *Sim) CurrentPrice(ctx context.Context, symbol string) (Quote, error) {
	step := timeframeDuration("M5")
	idx := s.now().Truncate(step).Unix()/int64(step.Seconds()) + 1
	mid := syntheticPrice(symbol, basePrice(symbol), idx)
	half := mid * s.spread / 2
	return Quote{Bid: mid - half, Ask: mid + half, Time: s.now()}, nil
}

func (s *Sim) PlaceOrder(ctx context.Context, req OrderRequest) (*OrderResult, error) {
	quote, err := s.CurrentPrice(ctx, req.Symbol)
	if err != nil {
		return nil, err
	}
	fill := quote.Entry(req.Direction)

	if req.Volume < 0.01 || req.Volume > 100 {
		return nil, &RejectError{Reason: RejectInvalidVolume}
	}
	if !stopsValid(req.Direction, fill, req.StopLoss, req.TakeProfit) {
		return nil, &RejectError{Reason: RejectInvalidStops}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	required := decimal.NewFromFloat(req.Volume * marginPerLot)
	if s.cash.Sub(required).IsNegative() {
		return nil, &RejectError{Reason: RejectInsufficientMargin}
	}

	ticket := uuid.NewString()
	s.positions[ticket] = &Position{
		Ticket:       ticket,
		Symbol:       req.Symbol,
		Direction:    req.Direction,
		Volume:       req.Volume,
		EntryPrice:   fill,
		StopLoss:     req.StopLoss,
		TakeProfit:   req.TakeProfit,
		CurrentPrice: fill,
		OpenedAt:     s.now(),
	}
	return &OrderResult{Ticket: ticket, Volume: req.Volume, Price: fill}, nil
}

func (s *Sim) ClosePosition(ctx context.Context, ticket string) error {
	s.mu.Lock()
	pos, ok := s.positions[ticket]
	s.mu.Unlock()
	if !ok {
		return &RejectError{Reason: RejectUnknown, Detail: "position not found"}
	}

	quote, err := s.CurrentPrice(ctx, pos.Symbol)
	if err != nil {
		return err
	}
	// Close against the opposite side of the book.
	exit := quote.Entry(pos.Direction.Opposite())
	profit := positionProfit(pos.Direction, pos.EntryPrice, exit, pos.Volume)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.positions[ticket]; !ok {
		return &RejectError{Reason: RejectUnknown, Detail: "position not found"}
	}
	delta := decimal.NewFromFloat(profit)
	s.cash = s.cash.Add(delta)
	s.realized = s.realized.Add(delta)
	delete(s.positions, ticket)
	return nil
}

// OpenPositions marks every position to the current synthetic quote before
// returning the snapshot.
func (s *Sim) OpenPositions(ctx context.Context) ([]Position, error) {
	s.mu.Lock()
	tickets := make([]string, 0, len(s.positions))
	for t := range s.positions {
		tickets = append(tickets, t)
	}
	s.mu.Unlock()

	out := make([]Position, 0, len(tickets))
	for _, t := range tickets {
		s.mu.Lock()
		pos, ok := s.positions[t]
		if !ok {
			s.mu.Unlock()
			continue
		}
		snapshot := *pos
		s.mu.Unlock()

		quote, err := s.CurrentPrice(ctx, snapshot.Symbol)
		if err != nil {
			continue
		}
		mark := quote.Entry(snapshot.Direction.Opposite())
		snapshot.CurrentPrice = mark
		snapshot.Profit = positionProfit(snapshot.Direction, snapshot.EntryPrice, mark, snapshot.Volume)

		s.mu.Lock()
		if live, ok := s.positions[t]; ok {
			live.CurrentPrice = snapshot.CurrentPrice
			live.Profit = snapshot.Profit
		}
		s.mu.Unlock()
		out = append(out, snapshot)
	}
	return out, nil
}

func (s *Sim) AccountInfo(ctx context.Context) (*Account, error) {
	positions, err := s.OpenPositions(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	balance, _ := s.cash.Float64()
	equity := balance
	var margin float64
	for _, pos := range positions {
		equity += pos.Profit
		margin += pos.Volume * marginPerLot
	}
	return &Account{
		Balance:    balance,
		Equity:     equity,
		Margin:     margin,
		FreeMargin: equity - margin,
		Currency:   "USD",
	}, nil
}

func positionProfit(dir signal.Direction, entry, current, volume float64) float64 {
	return (current - entry) * float64(dir) * volume * contractSize
}

func stopsValid(dir signal.Direction, entry, stop, target float64) bool {
	if stop == 0 && target == 0 {
		return true
	}
	if dir == signal.Buy {
		return stop < entry+simEpsilon && target > entry-simEpsilon
	}
	return stop > entry-simEpsilon && target < entry+simEpsilon
}

func timeframeDuration(tf string) time.Duration {
	switch tf {
	case "M1":
		return time.Minute
	case "M15":
		return 15 * time.Minute
	case "M30":
		return 30 * time.Minute
	case "H1":
		return time.Hour
	case "H4":
		return 4 * time.Hour
	case "D1":
		return 24 * time.Hour
	default: // M5
		return 5 * time.Minute
	}
}

func basePrice(symbol string) float64 {
	switch symbol {
	case "USDJPY":
		return 148.0
	case "XAUUSD":
		return 2300.0
	default:
		return 1.1
	}
}

// syntheticPrice is a smooth pseudo-random walk: a slow sine cycle plus
// deterministic per-bar noise derived from the symbol and bar index.
func syntheticPrice(symbol string, base float64, idx int64) float64 {
	cycle := math.Sin(float64(idx)/40) * 0.004
	noise := (float64(hashIndex(symbol, idx)%2000)/1000 - 1) * 0.0008
	return base * (1 + cycle + noise)
}

func hashIndex(symbol string, idx int64) uint64 {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(idx >> (8 * i))
	}
	h.Write(buf[:])
	return h.Sum64()
}
