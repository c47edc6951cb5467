package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/sammysam254/aitraderke/internal/config"
	"github.com/sammysam254/aitraderke/internal/market"
	"github.com/sammysam254/aitraderke/internal/signal"
)

// Deriv speaks the Deriv JSON-RPC websocket API. Requests carry a req_id; a
// reader goroutine routes each response to the waiting call. Contracts are
// stake-based, so lots convert to a USD stake on the way out and back again
// when listing the portfolio.
type Deriv struct {
	cfg   config.Deriv
	token string
	log   zerolog.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	pending map[int64]chan json.RawMessage
	reqID   atomic.Int64
}

// lots-to-stake conversion used by the original integration.
const derivStakePerLot = 10

// NewDeriv builds the gateway; the API token comes from the environment.
func NewDeriv(cfg config.Deriv, log zerolog.Logger) *Deriv {
	return &Deriv{
		cfg:     cfg,
		token:   os.Getenv("DERIV_API_TOKEN"),
		log:     log,
		pending: make(map[int64]chan json.RawMessage),
	}
}

func (d *Deriv) Connect(ctx context.Context) error {
	if d.token == "" {
		return fmt.Errorf("deriv: DERIV_API_TOKEN not set")
	}
	url := fmt.Sprintf("%s?app_id=%s", d.cfg.Endpoint, d.cfg.AppID)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("deriv: dial %s: %w", url, err)
	}

	d.mu.Lock()
	d.conn = conn
	d.mu.Unlock()
	go d.readLoop(conn)

	var auth struct {
		Authorize struct {
			LoginID string `json:"loginid"`
		} `json:"authorize"`
	}
	if err := d.call(ctx, map[string]any{"authorize": d.token}, &auth); err != nil {
		_ = d.Disconnect()
		return fmt.Errorf("deriv: authorize: %w", err)
	}
	d.log.Info().Str("loginid", auth.Authorize.LoginID).Msg("deriv authorized")
	return nil
}

func (d *Deriv) Disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return nil
	}
	err := d.conn.Close()
	d.conn = nil
	return err
}

func (d *Deriv) readLoop(conn *websocket.Conn) {
	for {
		var envelope struct {
			ReqID int64 `json:"req_id"`
		}
		_, payload, err := conn.ReadMessage()
		if err != nil {
			d.failPending(err)
			return
		}
		if json.Unmarshal(payload, &envelope) != nil || envelope.ReqID == 0 {
			continue
		}
		d.mu.Lock()
		ch, ok := d.pending[envelope.ReqID]
		if ok {
			delete(d.pending, envelope.ReqID)
		}
		d.mu.Unlock()
		if ok {
			ch <- json.RawMessage(payload)
		}
	}
}

func (d *Deriv) failPending(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, ch := range d.pending {
		close(ch)
		delete(d.pending, id)
	}
}

// dropPending forgets an in-flight request the caller gave up on, so the
// pending table cannot grow across timed-out calls.
func (d *Deriv) dropPending(id int64) {
	d.mu.Lock()
	delete(d.pending, id)
	d.mu.Unlock()
}

// call sends one request and decodes the matching response, honoring both the
// caller's context and the configured timeout.
func (d *Deriv) call(ctx context.Context, req map[string]any, out any) error {
	id := d.reqID.Add(1)
	req["req_id"] = id
	ch := make(chan json.RawMessage, 1)

	d.mu.Lock()
	conn := d.conn
	if conn == nil {
		d.mu.Unlock()
		return fmt.Errorf("deriv: not connected")
	}
	d.pending[id] = ch
	err := conn.WriteJSON(req)
	d.mu.Unlock()
	if err != nil {
		return fmt.Errorf("deriv: write: %w", err)
	}

	timeout := time.Duration(d.cfg.TimeoutSecs) * time.Second
	select {
	case <-ctx.Done():
		d.dropPending(id)
		return ctx.Err()
	case <-time.After(timeout):
		d.dropPending(id)
		return fmt.Errorf("deriv: request %d timed out after %s", id, timeout)
	case payload, ok := <-ch:
		if !ok {
			return fmt.Errorf("deriv: connection lost")
		}
		var apiErr struct {
			Error *struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal(payload, &apiErr); err == nil && apiErr.Error != nil {
			return derivReject(apiErr.Error.Code, apiErr.Error.Message)
		}
		return json.Unmarshal(payload, out)
	}
}

// derivReject maps API error codes onto the structured reject taxonomy.
func derivReject(code, message string) error {
	switch {
	case strings.Contains(code, "InsufficientBalance"):
		return &RejectError{Reason: RejectInsufficientMargin, Detail: message}
	case strings.Contains(code, "MarketIsClosed"):
		return &RejectError{Reason: RejectMarketClosed, Detail: message}
	case strings.Contains(code, "PriceMoved"):
		return &RejectError{Reason: RejectRequote, Detail: message}
	case strings.Contains(code, "ContractBuyValidationError"):
		return &RejectError{Reason: RejectInvalidVolume, Detail: message}
	default:
		return &RejectError{Reason: RejectUnknown, Detail: fmt.Sprintf("%s: %s", code, message)}
	}
}

// derivSymbol converts a six-letter forex pair to Deriv's frx notation;
// synthetic indices pass through untouched.
func derivSymbol(symbol string) string {
	if strings.HasPrefix(symbol, "frx") {
		return symbol
	}
	if len(symbol) == 6 {
		return "frx" + symbol
	}
	return symbol
}

func (d *Deriv) HistoricalBars(ctx context.Context, symbol, timeframe string, count int) ([]market.Bar, error) {
	var resp struct {
		Candles []struct {
			Epoch int64   `json:"epoch"`
			Open  float64 `json:"open"`
			High  float64 `json:"high"`
			Low   float64 `json:"low"`
			Close float64 `json:"close"`
		} `json:"candles"`
	}
	err := d.call(ctx, map[string]any{
		"ticks_history":     derivSymbol(symbol),
		"adjust_start_time": 1,
		"count":             count,
		"end":               "latest",
		"start":             1,
		"style":             "candles",
		"granularity":       int(timeframeDuration(timeframe).Seconds()),
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Candles) == 0 {
		return nil, ErrNoData
	}
	bars := make([]market.Bar, len(resp.Candles))
	for i, c := range resp.Candles {
		bars[i] = market.Bar{
			Time:  time.Unix(c.Epoch, 0).UTC(),
			Open:  c.Open,
			High:  c.High,
			Low:   c.Low,
			Close: c.Close,
			// Deriv does not report volume.
		}
	}
	return bars, nil
}

func (d *Deriv) CurrentPrice(ctx context.Context, symbol string) (Quote, error) {
	var resp struct {
		Tick struct {
			Quote float64 `json:"quote"`
			Epoch int64   `json:"epoch"`
		} `json:"tick"`
	}
	err := d.call(ctx, map[string]any{"ticks": derivSymbol(symbol), "subscribe": 0}, &resp)
	if err != nil {
		return Quote{}, err
	}
	if resp.Tick.Quote == 0 {
		return Quote{}, ErrNoData
	}
	spot := resp.Tick.Quote
	return Quote{Bid: spot, Ask: spot * 1.0001, Time: time.Unix(resp.Tick.Epoch, 0)}, nil
}

func (d *Deriv) PlaceOrder(ctx context.Context, req OrderRequest) (*OrderResult, error) {
	contractType := "CALL"
	if req.Direction == signal.Sell {
		contractType = "PUT"
	}
	stake := req.Volume * derivStakePerLot

	var resp struct {
		Buy struct {
			ContractID int64   `json:"contract_id"`
			BuyPrice   float64 `json:"buy_price"`
		} `json:"buy"`
	}
	err := d.call(ctx, map[string]any{
		"buy":   1,
		"price": stake,
		"parameters": map[string]any{
			"contract_type": contractType,
			"symbol":        derivSymbol(req.Symbol),
			"duration":      5,
			"duration_unit": "m",
			"basis":         "stake",
			"amount":        stake,
		},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Buy.ContractID == 0 {
		return nil, &RejectError{Reason: RejectUnknown, Detail: "empty buy response"}
	}
	return &OrderResult{
		Ticket: fmt.Sprintf("%d", resp.Buy.ContractID),
		Volume: req.Volume,
		Price:  resp.Buy.BuyPrice,
	}, nil
}

func (d *Deriv) ClosePosition(ctx context.Context, ticket string) error {
	var resp struct {
		Sell struct {
			SoldFor float64 `json:"sold_for"`
		} `json:"sell"`
	}
	// price 0 sells at market.
	return d.call(ctx, map[string]any{"sell": ticket, "price": 0}, &resp)
}

func (d *Deriv) OpenPositions(ctx context.Context) ([]Position, error) {
	var resp struct {
		Portfolio struct {
			Contracts []struct {
				ContractID   int64   `json:"contract_id"`
				Symbol       string  `json:"symbol"`
				ContractType string  `json:"contract_type"`
				BuyPrice     float64 `json:"buy_price"`
				BidPrice     float64 `json:"bid_price"`
				Profit       float64 `json:"profit"`
				PurchaseTime int64   `json:"purchase_time"`
			} `json:"contracts"`
		} `json:"portfolio"`
	}
	if err := d.call(ctx, map[string]any{"portfolio": 1}, &resp); err != nil {
		return nil, err
	}
	positions := make([]Position, 0, len(resp.Portfolio.Contracts))
	for _, c := range resp.Portfolio.Contracts {
		dir := signal.Buy
		if c.ContractType == "PUT" {
			dir = signal.Sell
		}
		current := c.BidPrice
		if current == 0 {
			current = c.BuyPrice
		}
		positions = append(positions, Position{
			Ticket:       fmt.Sprintf("%d", c.ContractID),
			Symbol:       strings.TrimPrefix(c.Symbol, "frx"),
			Direction:    dir,
			Volume:       c.BuyPrice / derivStakePerLot,
			EntryPrice:   c.BuyPrice,
			CurrentPrice: current,
			Profit:       c.Profit,
			OpenedAt:     time.Unix(c.PurchaseTime, 0),
		})
	}
	return positions, nil
}

func (d *Deriv) AccountInfo(ctx context.Context) (*Account, error) {
	var resp struct {
		Balance struct {
			Balance  float64 `json:"balance"`
			Currency string  `json:"currency"`
		} `json:"balance"`
	}
	if err := d.call(ctx, map[string]any{"balance": 1}, &resp); err != nil {
		return nil, err
	}
	// Deriv does not separate equity and margin from balance.
	return &Account{
		Balance:    resp.Balance.Balance,
		Equity:     resp.Balance.Balance,
		FreeMargin: resp.Balance.Balance,
		Currency:   resp.Balance.Currency,
	}, nil
}
