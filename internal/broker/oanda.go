package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sammysam254/aitraderke/internal/config"
	"github.com/sammysam254/aitraderke/internal/market"
	"github.com/sammysam254/aitraderke/internal/signal"
)

const (
	oandaPracticeURL = "https://api-fxpractice.oanda.com"
	oandaLiveURL     = "https://api-fxtrade.oanda.com"
)

// Oanda talks to the OANDA v3 REST API. Credentials come from the
// environment; config only selects practice vs live and the timeout.
type Oanda struct {
	baseURL   string
	apiKey    string
	accountID string
	client    *http.Client
	log       zerolog.Logger
}

// NewOanda builds the REST gateway. OANDA_API_KEY and OANDA_ACCOUNT_ID must
// be set in the environment.
func NewOanda(cfg config.Oanda, log zerolog.Logger) *Oanda {
	base := cfg.BaseURL
	if base == "" {
		if cfg.Practice {
			base = oandaPracticeURL
		} else {
			base = oandaLiveURL
		}
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Oanda{
		baseURL:   base,
		apiKey:    os.Getenv("OANDA_API_KEY"),
		accountID: os.Getenv("OANDA_ACCOUNT_ID"),
		client:    &http.Client{Timeout: timeout},
		log:       log,
	}
}

func (o *Oanda) Connect(ctx context.Context) error {
	if o.apiKey == "" || o.accountID == "" {
		return fmt.Errorf("oanda: OANDA_API_KEY and OANDA_ACCOUNT_ID must be set")
	}
	var resp struct {
		Account struct {
			Currency string `json:"currency"`
		} `json:"account"`
	}
	if err := o.get(ctx, "/v3/accounts/"+o.accountID, nil, &resp); err != nil {
		return fmt.Errorf("oanda: connect: %w", err)
	}
	o.log.Info().Str("account", o.accountID).Str("currency", resp.Account.Currency).Msg("oanda connected")
	return nil
}

func (o *Oanda) Disconnect() error { return nil }

func (o *Oanda) get(ctx context.Context, path string, query url.Values, out any) error {
	return o.do(ctx, http.MethodGet, path, query, nil, out)
}

func (o *Oanda) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := o.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return oandaReject(resp.StatusCode, payload)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(payload, out)
}

// oandaReject converts an error response into the reject taxonomy using the
// rejectReason field OANDA attaches to failed fills.
func oandaReject(status int, payload []byte) error {
	var body struct {
		ErrorMessage           string `json:"errorMessage"`
		OrderRejectTransaction struct {
			RejectReason string `json:"rejectReason"`
		} `json:"orderRejectTransaction"`
	}
	_ = json.Unmarshal(payload, &body)
	detail := body.ErrorMessage
	if detail == "" {
		detail = fmt.Sprintf("http %d", status)
	}
	switch reason := body.OrderRejectTransaction.RejectReason; {
	case strings.Contains(reason, "INSUFFICIENT_MARGIN"):
		return &RejectError{Reason: RejectInsufficientMargin, Detail: detail}
	case strings.Contains(reason, "MARKET_HALTED"):
		return &RejectError{Reason: RejectMarketClosed, Detail: detail}
	case strings.Contains(reason, "LOSS_ORDER") || strings.Contains(reason, "PROFIT_ORDER"):
		return &RejectError{Reason: RejectInvalidStops, Detail: detail}
	case strings.Contains(reason, "UNITS"):
		return &RejectError{Reason: RejectInvalidVolume, Detail: detail}
	default:
		return &RejectError{Reason: RejectUnknown, Detail: detail}
	}
}

// oandaSymbol inserts the underscore OANDA expects: EURUSD becomes EUR_USD.
func oandaSymbol(symbol string) string {
	s := strings.ReplaceAll(symbol, "/", "_")
	if !strings.Contains(s, "_") && len(s) == 6 {
		return s[:3] + "_" + s[3:]
	}
	return s
}

func oandaGranularity(timeframe string) string {
	switch timeframe {
	case "D1":
		return "D"
	case "W1":
		return "W"
	case "M1", "M5", "M15", "M30", "H1", "H4":
		return timeframe
	default:
		return "M5"
	}
}

func (o *Oanda) HistoricalBars(ctx context.Context, symbol, timeframe string, count int) ([]market.Bar, error) {
	var resp struct {
		Candles []struct {
			Time     time.Time `json:"time"`
			Complete bool      `json:"complete"`
			Volume   float64   `json:"volume"`
			Mid      struct {
				O float64 `json:"o,string"`
				H float64 `json:"h,string"`
				L float64 `json:"l,string"`
				C float64 `json:"c,string"`
			} `json:"mid"`
		} `json:"candles"`
	}
	query := url.Values{
		"count":       {strconv.Itoa(count)},
		"granularity": {oandaGranularity(timeframe)},
		"price":       {"M"},
	}
	err := o.get(ctx, "/v3/instruments/"+oandaSymbol(symbol)+"/candles", query, &resp)
	if err != nil {
		return nil, err
	}
	bars := make([]market.Bar, 0, len(resp.Candles))
	for _, c := range resp.Candles {
		if !c.Complete {
			continue
		}
		bars = append(bars, market.Bar{
			Time:   c.Time,
			Open:   c.Mid.O,
			High:   c.Mid.H,
			Low:    c.Mid.L,
			Close:  c.Mid.C,
			Volume: c.Volume,
		})
	}
	if len(bars) == 0 {
		return nil, ErrNoData
	}
	return bars, nil
}

func (o *Oanda) CurrentPrice(ctx context.Context, symbol string) (Quote, error) {
	var resp struct {
		Prices []struct {
			Time time.Time `json:"time"`
			Bids []struct {
				Price float64 `json:"price,string"`
			} `json:"bids"`
			Asks []struct {
				Price float64 `json:"price,string"`
			} `json:"asks"`
		} `json:"prices"`
	}
	query := url.Values{"instruments": {oandaSymbol(symbol)}}
	err := o.get(ctx, "/v3/accounts/"+o.accountID+"/pricing", query, &resp)
	if err != nil {
		return Quote{}, err
	}
	if len(resp.Prices) == 0 || len(resp.Prices[0].Bids) == 0 || len(resp.Prices[0].Asks) == 0 {
		return Quote{}, ErrNoData
	}
	p := resp.Prices[0]
	return Quote{Bid: p.Bids[0].Price, Ask: p.Asks[0].Price, Time: p.Time}, nil
}

func (o *Oanda) PlaceOrder(ctx context.Context, req OrderRequest) (*OrderResult, error) {
	// OANDA orders are unit-denominated; negative units sell.
	units := int(req.Volume * contractSize)
	if req.Direction == signal.Sell {
		units = -units
	}

	order := map[string]any{
		"instrument":   oandaSymbol(req.Symbol),
		"units":        strconv.Itoa(units),
		"type":         "MARKET",
		"timeInForce":  "FOK",
		"positionFill": "DEFAULT",
	}
	if req.StopLoss != 0 {
		order["stopLossOnFill"] = map[string]string{"price": formatPrice(req.StopLoss)}
	}
	if req.TakeProfit != 0 {
		order["takeProfitOnFill"] = map[string]string{"price": formatPrice(req.TakeProfit)}
	}

	var resp struct {
		OrderFillTransaction struct {
			ID          string  `json:"id"`
			Price       float64 `json:"price,string"`
			TradeOpened struct {
				TradeID string `json:"tradeID"`
			} `json:"tradeOpened"`
		} `json:"orderFillTransaction"`
	}
	err := o.do(ctx, http.MethodPost, "/v3/accounts/"+o.accountID+"/orders", nil, map[string]any{"order": order}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.OrderFillTransaction.TradeOpened.TradeID == "" {
		return nil, &RejectError{Reason: RejectUnknown, Detail: "order not filled"}
	}
	return &OrderResult{
		Ticket: resp.OrderFillTransaction.TradeOpened.TradeID,
		Volume: req.Volume,
		Price:  resp.OrderFillTransaction.Price,
	}, nil
}

func (o *Oanda) ClosePosition(ctx context.Context, ticket string) error {
	return o.do(ctx, http.MethodPut, "/v3/accounts/"+o.accountID+"/trades/"+ticket+"/close", nil, nil, nil)
}

func (o *Oanda) OpenPositions(ctx context.Context) ([]Position, error) {
	var resp struct {
		Trades []struct {
			ID            string    `json:"id"`
			Instrument    string    `json:"instrument"`
			Price         float64   `json:"price,string"`
			CurrentUnits  float64   `json:"currentUnits,string"`
			UnrealizedPL  float64   `json:"unrealizedPL,string"`
			OpenTime      time.Time `json:"openTime"`
			StopLossOrder struct {
				Price float64 `json:"price,string"`
			} `json:"stopLossOrder"`
			TakeProfitOrder struct {
				Price float64 `json:"price,string"`
			} `json:"takeProfitOrder"`
		} `json:"trades"`
	}
	if err := o.get(ctx, "/v3/accounts/"+o.accountID+"/openTrades", nil, &resp); err != nil {
		return nil, err
	}
	positions := make([]Position, 0, len(resp.Trades))
	for _, t := range resp.Trades {
		dir := signal.Buy
		if t.CurrentUnits < 0 {
			dir = signal.Sell
		}
		positions = append(positions, Position{
			Ticket:       t.ID,
			Symbol:       strings.ReplaceAll(t.Instrument, "_", ""),
			Direction:    dir,
			Volume:       absFloat(t.CurrentUnits) / contractSize,
			EntryPrice:   t.Price,
			StopLoss:     t.StopLossOrder.Price,
			TakeProfit:   t.TakeProfitOrder.Price,
			CurrentPrice: t.Price,
			Profit:       t.UnrealizedPL,
			OpenedAt:     t.OpenTime,
		})
	}
	return positions, nil
}

func (o *Oanda) AccountInfo(ctx context.Context) (*Account, error) {
	var resp struct {
		Account struct {
			Balance         float64 `json:"balance,string"`
			NAV             float64 `json:"NAV,string"`
			MarginUsed      float64 `json:"marginUsed,string"`
			MarginAvailable float64 `json:"marginAvailable,string"`
			Currency        string  `json:"currency"`
		} `json:"account"`
	}
	if err := o.get(ctx, "/v3/accounts/"+o.accountID, nil, &resp); err != nil {
		return nil, err
	}
	return &Account{
		Balance:    resp.Account.Balance,
		Equity:     resp.Account.NAV,
		Margin:     resp.Account.MarginUsed,
		FreeMargin: resp.Account.MarginAvailable,
		Currency:   resp.Account.Currency,
	}, nil
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', 5, 64)
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
