package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/icarus-trading/icarus/pkg/common"
	"github.com/icarus-trading/icarus/pkg/utility/fixed"
)

// Duration parses yaml scalars like "5s" or "30m".
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	System     SystemConfig     `yaml:"system"`
	Database   DatabaseConfig   `yaml:"database"`
	Trading    TradingConfig    `yaml:"trading"`
	Strategies []StrategyConfig `yaml:"strategies"`
	Meta       MetaConfig       `yaml:"meta"`
	Risk       RiskConfig       `yaml:"risk"`
	Forks      ForkConfig       `yaml:"forks"`
	MarketData MarketDataConfig `yaml:"market_data"`
	Exchange   ExchangeConfig   `yaml:"exchange"`
	Web        WebConfig        `yaml:"web"`
	Notify     NotifyConfig     `yaml:"notifications"`
}

type SystemConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
	MinConns int    `yaml:"min_conns"`
	MaxConns int    `yaml:"max_conns"`
}

type TradingConfig struct {
	Mode                common.TradeMode `yaml:"mode"`
	LiveConfirmed       bool             `yaml:"live_trading_confirmed"`
	InitialCapital      fixed.Point      `yaml:"initial_capital"`
	PositionSizePct     fixed.Point      `yaml:"position_size_pct"`
	ExitPct             fixed.Point      `yaml:"exit_pct"`
	FeePct              fixed.Point      `yaml:"fee_pct"`
	SlippagePct         fixed.Point      `yaml:"slippage_pct"`
	MinNotional         fixed.Point      `yaml:"min_notional"`
	DustThreshold       fixed.Point      `yaml:"dust_threshold"`
	PerformanceInterval Duration         `yaml:"performance_interval"`
	Symbols             []string         `yaml:"symbols"`
}

type StrategyConfig struct {
	Name    string            `yaml:"name"`
	Type    string            `yaml:"type"`
	Symbol  string            `yaml:"symbol"`
	Enabled bool              `yaml:"enabled"`
	Params  map[string]string `yaml:"params"`
}

type MetaConfig struct {
	RebalanceInterval Duration    `yaml:"rebalance_interval"`
	MinAllocationPct  fixed.Point `yaml:"min_allocation_pct"`
	MaxAllocationPct  fixed.Point `yaml:"max_allocation_pct"`
	ChangeThreshold   fixed.Point `yaml:"change_threshold"`
}

type RiskConfig struct {
	MaxPositionSizePct     fixed.Point `yaml:"max_position_size_pct"`
	MaxDailyLossPct        fixed.Point `yaml:"max_daily_loss_pct"`
	MaxExposurePct         fixed.Point `yaml:"max_exposure_pct"`
	MaxStrategyDrawdownPct fixed.Point `yaml:"max_strategy_drawdown_pct"`
	CheckInterval          Duration    `yaml:"check_interval"`
}

type ForkConfig struct {
	Enabled         bool     `yaml:"enabled"`
	CLIPath         string   `yaml:"cli_path"`
	ServiceID       string   `yaml:"service_id"`
	MaxConcurrent   int      `yaml:"max_concurrent"`
	DefaultTTL      Duration `yaml:"default_ttl"`
	CleanupInterval Duration `yaml:"cleanup_interval"`
}

type MarketDataConfig struct {
	Source       string   `yaml:"source"`
	StreamURL    string   `yaml:"stream_url"`
	TickInterval Duration `yaml:"tick_interval"`
}

type ExchangeConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
}

type WebConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type NotifyConfig struct {
	Enabled        bool   `yaml:"enabled"`
	PushoverUser   string `yaml:"pushover_user"`
	PushoverToken  string `yaml:"pushover_token"`
	PushoverDevice string `yaml:"pushover_device"`
}

// envRe matches ${VAR} and ${VAR:default}.
var envRe = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::([^}]*))?\}`)

// interpolate substitutes ${VAR} and ${VAR:default} references with
// environment values. An unset variable without a default expands to the
// empty string.
func interpolate(raw []byte) []byte {
	return envRe.ReplaceAllFunc(raw, func(match []byte) []byte {
		groups := envRe.FindSubmatch(match)
		if value, ok := os.LookupEnv(string(groups[1])); ok {
			return []byte(value)
		}
		return groups[2]
	})
}

// Load reads a .env file if present, then parses and validates the yaml
// config at path.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(interpolate(raw), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		System: SystemConfig{
			Name:        "icarus",
			Environment: "development",
			LogLevel:    "info",
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			SSLMode:  "disable",
			MinConns: 5,
			MaxConns: 20,
		},
		Trading: TradingConfig{
			Mode:                common.TradeModePaper,
			InitialCapital:      fixed.FromInt(10000, 0),
			PositionSizePct:     fixed.FromInt(20, 0),
			ExitPct:             fixed.FromInt(50, 0),
			FeePct:              fixed.FromInt(1, 1),
			SlippagePct:         fixed.FromInt(1, 1),
			MinNotional:         fixed.FromInt(10, 0),
			DustThreshold:       fixed.FromInt(1, 4),
			PerformanceInterval: Duration(15 * time.Minute),
		},
		Meta: MetaConfig{
			RebalanceInterval: Duration(time.Hour),
			MinAllocationPct:  fixed.FromInt(5, 0),
			MaxAllocationPct:  fixed.FromInt(50, 0),
			ChangeThreshold:   fixed.FromInt(5, 0),
		},
		Risk: RiskConfig{
			MaxPositionSizePct:     fixed.FromInt(20, 0),
			MaxDailyLossPct:        fixed.FromInt(5, 0),
			MaxExposurePct:         fixed.FromInt(80, 0),
			MaxStrategyDrawdownPct: fixed.FromInt(10, 0),
			CheckInterval:          Duration(5 * time.Second),
		},
		Forks: ForkConfig{
			CLIPath:         "tsdb",
			MaxConcurrent:   3,
			DefaultTTL:      Duration(time.Hour),
			CleanupInterval: Duration(30 * time.Minute),
		},
		MarketData: MarketDataConfig{
			Source:       "synthetic",
			TickInterval: Duration(time.Second),
		},
		Web: WebConfig{
			Addr: ":8080",
		},
	}
}

// Validate fails fast on settings that would be unsafe to run with. Live
// trading requires exchange credentials.
func (c *Config) Validate() error {
	switch c.Trading.Mode {
	case common.TradeModePaper, common.TradeModeLive:
	default:
		return fmt.Errorf("invalid trading mode %q", c.Trading.Mode)
	}
	if c.Trading.Mode == common.TradeModeLive {
		if !c.Trading.LiveConfirmed {
			return fmt.Errorf("live trading requires live_trading_confirmed: true")
		}
		if c.Exchange.APIKey == "" || c.Exchange.APISecret == "" {
			return fmt.Errorf("live trading requires exchange credentials")
		}
	}
	if !c.Trading.InitialCapital.IsPos() {
		return fmt.Errorf("initial capital must be positive")
	}
	if !c.Trading.PositionSizePct.IsPos() || c.Trading.PositionSizePct.Gt(fixed.Hundred) {
		return fmt.Errorf("position size pct must be in (0, 100]")
	}
	if c.Meta.MinAllocationPct.Gt(c.Meta.MaxAllocationPct) {
		return fmt.Errorf("min allocation pct exceeds max")
	}
	if c.Risk.CheckInterval.Std() <= 0 {
		return fmt.Errorf("risk check interval must be positive")
	}
	if c.Forks.Enabled && c.Forks.MaxConcurrent <= 0 {
		return fmt.Errorf("fork max_concurrent must be positive")
	}
	if c.Notify.Enabled && (c.Notify.PushoverUser == "" || c.Notify.PushoverToken == "") {
		return fmt.Errorf("notifications require pushover user and token")
	}
	if len(c.Trading.Symbols) == 0 {
		return fmt.Errorf("at least one trading symbol is required")
	}
	for _, s := range c.Strategies {
		if s.Name == "" || s.Type == "" {
			return fmt.Errorf("strategy entries need name and type")
		}
	}
	return nil
}
