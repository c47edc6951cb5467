// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Broker selects the gateway variant and the instruments it trades. Credentials
// are never stored here; the factory reads them from the environment.
type Broker struct {
	Kind      string   `yaml:"kind"` // sim, deriv, oanda, mt5
	Symbols   []string `yaml:"symbols"`
	Timeframe string   `yaml:"timeframe"`
	Deriv     Deriv    `yaml:"deriv"`
	Oanda     Oanda    `yaml:"oanda"`
	Sim       Sim      `yaml:"sim"`
}

// Deriv configures the websocket gateway endpoint.
type Deriv struct {
	AppID       string `yaml:"app_id"`
	Endpoint    string `yaml:"endpoint"`
	Demo        bool   `yaml:"demo"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// Oanda configures the REST gateway endpoint.
type Oanda struct {
	BaseURL     string `yaml:"base_url"`
	Practice    bool   `yaml:"practice"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// Sim configures the in-process gateway used for demo mode and tests.
type Sim struct {
	StartingBalance float64 `yaml:"starting_balance"`
	Spread          float64 `yaml:"spread"` // fractional, applied around mid
}

// Strategy specifies the active scoring variant along with its tuned
// thresholds. The numeric defaults are heuristics, not derived values; they
// are configuration precisely so they can be retuned without a rebuild.
type Strategy struct {
	Mode           string  `yaml:"mode"` // scalp or standard
	MinBars        int     `yaml:"min_bars"`
	MinScoreGap    float64 `yaml:"min_score_gap"`
	TrendADXFloor  float64 `yaml:"trend_adx_floor"`
	FilterADXFloor float64 `yaml:"filter_adx_floor"`
	RSIOverbought  float64 `yaml:"rsi_overbought"`
	RSIOversold    float64 `yaml:"rsi_oversold"`
	Persistence    int     `yaml:"persistence"` // standard variant only
}

// Classifier points at the trained model artifact.
type Classifier struct {
	ModelPath          string  `yaml:"model_path"`
	Lookback           int     `yaml:"lookback"`
	ConfidenceOverride float64 `yaml:"confidence_override"`
}

// Risk encodes sizing guard-rails shared by every entry path.
type Risk struct {
	RiskFraction float64 `yaml:"risk_fraction"`
	PipValue     float64 `yaml:"pip_value"`
	MinLot       float64 `yaml:"min_lot"`
	MaxLot       float64 `yaml:"max_lot"`
	StakeUSD     float64 `yaml:"stake_usd"`
}

// Scanner tunes the auto-trading loop.
type Scanner struct {
	IntervalSecs    int     `yaml:"interval_secs"`
	Bars            int     `yaml:"bars"`
	EntryConfidence float64 `yaml:"entry_confidence"`
	BackoffSecs     int     `yaml:"backoff_secs"`
}

// Monitor tunes the open-position supervision loop. Loss floors are negative
// dollar amounts.
type Monitor struct {
	PollSecs            int     `yaml:"poll_secs"`
	Bars                int     `yaml:"bars"`
	BackoffSecs         int     `yaml:"backoff_secs"`
	LossLimitUSD        float64 `yaml:"loss_limit_usd"`
	EarlyCutUSD         float64 `yaml:"early_cut_usd"`
	ProfitFloorUSD      float64 `yaml:"profit_floor_usd"`
	MomentumATRFraction float64 `yaml:"momentum_atr_fraction"`
	ReversalMargin      float64 `yaml:"reversal_margin"`
}

// Journal bounds the in-memory diagnostic ring and the decision record file.
type Journal struct {
	Capacity      int    `yaml:"capacity"`
	DecisionsPath string `yaml:"decisions_path"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App        App        `yaml:"app"`
	Broker     Broker     `yaml:"broker"`
	Strategy   Strategy   `yaml:"strategy"`
	Classifier Classifier `yaml:"classifier"`
	Risk       Risk       `yaml:"risk"`
	Scanner    Scanner    `yaml:"scanner"`
	Monitor    Monitor    `yaml:"monitor"`
	Journal    Journal    `yaml:"journal"`
}

// Load reads a YAML file from disk and hydrates a Config struct, filling
// defaults for anything the file leaves unset.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	config.ApplyDefaults()
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Default returns a fully populated configuration suitable for demo mode.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills every zero-valued field with its tuned default.
func (c *Config) ApplyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "aitraderke"
	}
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.MetricsAddr == "" {
		c.App.MetricsAddr = ":9180"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}

	if c.Broker.Kind == "" {
		c.Broker.Kind = "sim"
	}
	if len(c.Broker.Symbols) == 0 {
		c.Broker.Symbols = []string{"EURUSD", "GBPUSD", "USDJPY", "AUDUSD", "XAUUSD"}
	}
	if c.Broker.Timeframe == "" {
		c.Broker.Timeframe = "M5"
	}
	if c.Broker.Deriv.AppID == "" {
		c.Broker.Deriv.AppID = "1089"
	}
	if c.Broker.Deriv.Endpoint == "" {
		c.Broker.Deriv.Endpoint = "wss://ws.binaryws.com/websockets/v3"
	}
	if c.Broker.Deriv.TimeoutSecs <= 0 {
		c.Broker.Deriv.TimeoutSecs = 15
	}
	if c.Broker.Oanda.BaseURL == "" {
		if c.Broker.Oanda.Practice {
			c.Broker.Oanda.BaseURL = "https://api-fxpractice.oanda.com"
		} else {
			c.Broker.Oanda.BaseURL = "https://api-fxtrade.oanda.com"
		}
	}
	if c.Broker.Oanda.TimeoutSecs <= 0 {
		c.Broker.Oanda.TimeoutSecs = 15
	}
	if c.Broker.Sim.StartingBalance <= 0 {
		c.Broker.Sim.StartingBalance = 10000
	}
	if c.Broker.Sim.Spread <= 0 {
		c.Broker.Sim.Spread = 0.0002
	}

	if c.Strategy.Mode == "" {
		c.Strategy.Mode = "scalp"
	}
	if c.Strategy.MinBars <= 0 {
		c.Strategy.MinBars = 100
	}
	if c.Strategy.MinScoreGap <= 0 {
		c.Strategy.MinScoreGap = 2
	}
	if c.Strategy.TrendADXFloor <= 0 {
		c.Strategy.TrendADXFloor = 20
	}
	if c.Strategy.FilterADXFloor <= 0 {
		c.Strategy.FilterADXFloor = 15
	}
	if c.Strategy.RSIOverbought <= 0 {
		c.Strategy.RSIOverbought = 75
	}
	if c.Strategy.RSIOversold <= 0 {
		c.Strategy.RSIOversold = 25
	}
	if c.Strategy.Persistence <= 0 {
		c.Strategy.Persistence = 3
	}

	if c.Classifier.Lookback <= 0 {
		c.Classifier.Lookback = 60
	}
	if c.Classifier.ConfidenceOverride <= 0 {
		c.Classifier.ConfidenceOverride = 0.75
	}

	if c.Risk.RiskFraction <= 0 {
		c.Risk.RiskFraction = 0.02
	}
	if c.Risk.PipValue <= 0 {
		c.Risk.PipValue = 10
	}
	if c.Risk.MinLot <= 0 {
		c.Risk.MinLot = 0.01
	}
	if c.Risk.MaxLot <= 0 {
		c.Risk.MaxLot = 2.0
	}
	if c.Risk.StakeUSD <= 0 {
		c.Risk.StakeUSD = 10
	}

	if c.Scanner.IntervalSecs <= 0 {
		c.Scanner.IntervalSecs = 60
	}
	if c.Scanner.Bars <= 0 {
		c.Scanner.Bars = 500
	}
	if c.Scanner.EntryConfidence <= 0 {
		c.Scanner.EntryConfidence = 0.70
	}
	if c.Scanner.BackoffSecs <= 0 {
		c.Scanner.BackoffSecs = 60
	}

	if c.Monitor.PollSecs <= 0 {
		c.Monitor.PollSecs = 10
	}
	if c.Monitor.Bars <= 0 {
		c.Monitor.Bars = 200
	}
	if c.Monitor.BackoffSecs <= 0 {
		c.Monitor.BackoffSecs = 60
	}
	if c.Monitor.LossLimitUSD >= 0 {
		c.Monitor.LossLimitUSD = -10
	}
	if c.Monitor.EarlyCutUSD >= 0 {
		c.Monitor.EarlyCutUSD = -7
	}
	if c.Monitor.ProfitFloorUSD <= 0 {
		c.Monitor.ProfitFloorUSD = 2
	}
	if c.Monitor.MomentumATRFraction <= 0 {
		c.Monitor.MomentumATRFraction = 0.3
	}
	if c.Monitor.ReversalMargin <= 0 {
		c.Monitor.ReversalMargin = 3
	}

	if c.Journal.Capacity <= 0 {
		c.Journal.Capacity = 100
	}
}
