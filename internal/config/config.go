package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Trading212 Trading212Config `yaml:"trading212"`
	Trading    TradingConfig    `yaml:"trading"`
	Sector     SectorConfig     `yaml:"sector"`
	Symbols    SymbolsConfig    `yaml:"symbols"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Web        WebConfig        `yaml:"web"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type Trading212Config struct {
	APIKey      string `yaml:"api_key"`
	APISecret   string `yaml:"api_secret"`
	Environment string `yaml:"environment"` // demo or live
}

type TradingConfig struct {
	MinMarketCap     float64 `yaml:"min_market_cap"`
	WashSaleDays     int     `yaml:"wash_sale_days"`
	StaleSignalDays  int     `yaml:"stale_signal_days"`
	MaxSignalAgeDays int     `yaml:"max_signal_age_days"`

	LowConviction   float64 `yaml:"low_conviction"`
	HighConviction  float64 `yaml:"high_conviction"`
	BasePositionPct float64 `yaml:"base_position_pct"`
	MaxPositionPct  float64 `yaml:"max_position_pct"`
	MinTradeAmount  float64 `yaml:"min_trade_amount"`
	CashBufferPct   float64 `yaml:"cash_buffer_pct"`
}

type SectorConfig struct {
	DefaultETF string            `yaml:"default_etf"`
	Map        map[string]string `yaml:"map"` // ticker -> sector ETF
}

type SymbolsConfig struct {
	DefaultSuffix string            `yaml:"default_suffix"`
	Overrides     map[string]string `yaml:"overrides"` // ticker -> Trading212 symbol
}

type SchedulerConfig struct {
	MarketOpenHour  int `yaml:"market_open_hour"`  // Eastern Time
	MarketCloseHour int `yaml:"market_close_hour"` // Eastern Time

	MarketHoursMinMinutes int `yaml:"market_hours_min_minutes"`
	MarketHoursMaxMinutes int `yaml:"market_hours_max_minutes"`
	OffHoursMinutes       int `yaml:"off_hours_minutes"`

	JitterMinSeconds int `yaml:"jitter_min_seconds"`
	JitterMaxSeconds int `yaml:"jitter_max_seconds"`
}

type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

type WebConfig struct {
	Port int `yaml:"port"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

func Load(path string) (*Config, error) {
	// API credentials come from the environment; .env is optional.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if key := os.Getenv("TRADING212_API_KEY"); key != "" {
		cfg.Trading212.APIKey = key
	}
	if secret := os.Getenv("TRADING212_API_SECRET"); secret != "" {
		cfg.Trading212.APISecret = secret
	}
	if env := os.Getenv("TRADING212_ENV"); env != "" {
		cfg.Trading212.Environment = env
	}

	setDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Trading212.Environment == "" {
		cfg.Trading212.Environment = "demo"
	}
	if cfg.Trading.MinMarketCap == 0 {
		cfg.Trading.MinMarketCap = 300_000_000
	}
	if cfg.Trading.WashSaleDays == 0 {
		cfg.Trading.WashSaleDays = 30
	}
	if cfg.Trading.StaleSignalDays == 0 {
		cfg.Trading.StaleSignalDays = 45
	}
	if cfg.Trading.MaxSignalAgeDays == 0 {
		cfg.Trading.MaxSignalAgeDays = 90
	}
	if cfg.Trading.LowConviction == 0 {
		cfg.Trading.LowConviction = 15_000
	}
	if cfg.Trading.HighConviction == 0 {
		cfg.Trading.HighConviction = 250_000
	}
	if cfg.Trading.BasePositionPct == 0 {
		cfg.Trading.BasePositionPct = 0.02
	}
	if cfg.Trading.MaxPositionPct == 0 {
		cfg.Trading.MaxPositionPct = 0.06
	}
	if cfg.Trading.MinTradeAmount == 0 {
		cfg.Trading.MinTradeAmount = 100
	}
	if cfg.Trading.CashBufferPct == 0 {
		cfg.Trading.CashBufferPct = 0.05
	}
	if cfg.Sector.DefaultETF == "" {
		cfg.Sector.DefaultETF = "SPY"
	}
	if cfg.Symbols.DefaultSuffix == "" {
		cfg.Symbols.DefaultSuffix = "_US_EQ"
	}
	if cfg.Scheduler.MarketOpenHour == 0 {
		cfg.Scheduler.MarketOpenHour = 9
	}
	if cfg.Scheduler.MarketCloseHour == 0 {
		cfg.Scheduler.MarketCloseHour = 18
	}
	if cfg.Scheduler.MarketHoursMinMinutes == 0 {
		cfg.Scheduler.MarketHoursMinMinutes = 10
	}
	if cfg.Scheduler.MarketHoursMaxMinutes == 0 {
		cfg.Scheduler.MarketHoursMaxMinutes = 15
	}
	if cfg.Scheduler.OffHoursMinutes == 0 {
		cfg.Scheduler.OffHoursMinutes = 240
	}
	if cfg.Scheduler.JitterMinSeconds == 0 {
		cfg.Scheduler.JitterMinSeconds = 30
	}
	if cfg.Scheduler.JitterMaxSeconds == 0 {
		cfg.Scheduler.JitterMaxSeconds = 180
	}
	if cfg.Web.Port == 0 {
		cfg.Web.Port = 8080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

func (c *Config) Validate() error {
	if c.Trading212.APIKey == "" || c.Trading212.APISecret == "" {
		return fmt.Errorf("trading212 credentials are required (TRADING212_API_KEY / TRADING212_API_SECRET)")
	}
	if c.Trading212.Environment != "demo" && c.Trading212.Environment != "live" {
		return fmt.Errorf("trading212.environment must be demo or live, got %q", c.Trading212.Environment)
	}
	if c.Trading.StaleSignalDays >= c.Trading.MaxSignalAgeDays {
		return fmt.Errorf("trading.stale_signal_days (%d) must be below trading.max_signal_age_days (%d)",
			c.Trading.StaleSignalDays, c.Trading.MaxSignalAgeDays)
	}
	if c.Trading.LowConviction >= c.Trading.HighConviction {
		return fmt.Errorf("trading.low_conviction must be below trading.high_conviction")
	}
	if c.Trading.BasePositionPct > c.Trading.MaxPositionPct {
		return fmt.Errorf("trading.base_position_pct must not exceed trading.max_position_pct")
	}
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == 0 {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}
	return nil
}

func (c *Config) IsLive() bool {
	return c.Trading212.Environment == "live"
}

// BaseURL returns the Trading212 API endpoint for the configured environment.
func (c *Config) BaseURL() string {
	if c.IsLive() {
		return "https://live.trading212.com"
	}
	return "https://demo.trading212.com"
}
