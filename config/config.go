// Package config loads application configuration: credentials and addresses
// from environment variables, strategy tuning from a YAML settings file.
package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Alpaca credentials
	AlpacaAPIKey    string
	AlpacaAPISecret string
	AlpacaAPIURL    string
	AlpacaDataURL   string

	// Infrastructure
	DatabasePath  string
	RedisAddr     string
	RedisPassword string
	MetricsAddr   string
	GatewayAddr   string

	// Trading
	Symbols      string
	DryRun       bool
	SettingsPath string
}

// Settings holds strategy tuning loaded from the YAML settings file.
type Settings struct {
	Indicators struct {
		RSIPeriod int `yaml:"rsi_period"`
		SMAPeriod int `yaml:"sma_period"`
		EMASpan   int `yaml:"ema_span"`
	} `yaml:"indicators"`

	Signals struct {
		RSIOversold   float64 `yaml:"rsi_oversold"`
		RSIOverbought float64 `yaml:"rsi_overbought"`
	} `yaml:"signals"`

	Executor struct {
		PollIntervalSeconds  int  `yaml:"poll_interval_seconds"`
		TradeOnlyMarketHours bool `yaml:"trade_only_market_hours"`
	} `yaml:"executor"`

	Risk struct {
		Balance         float64 `yaml:"balance"`
		MaxDailyLossPct float64 `yaml:"max_daily_loss_pct"`
		RiskPerTradePct float64 `yaml:"risk_per_trade_pct"`
	} `yaml:"risk"`

	Notifications struct {
		WebhookURL string `yaml:"webhook_url"`
	} `yaml:"notifications"`
}

// Load reads configuration from environment variables with sensible defaults.
// Broker credentials are required unless DRY_RUN is enabled.
func Load() *Config {
	cfg := &Config{
		AlpacaAPIKey:    os.Getenv("ALPACA_API_KEY"),
		AlpacaAPISecret: os.Getenv("ALPACA_API_SECRET"),
		AlpacaAPIURL:    getEnv("ALPACA_API_URL", "https://paper-api.alpaca.markets"),
		AlpacaDataURL:   getEnv("ALPACA_DATA_URL", "https://data.alpaca.markets"),

		DatabasePath:  getEnv("DATABASE_PATH", "data/stockbot.db"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9091"),
		GatewayAddr:   getEnv("GATEWAY_ADDR", ":8080"),

		Symbols:      getEnv("SYMBOLS", "AAPL,MSFT,GOOG"),
		DryRun:       strings.EqualFold(getEnv("DRY_RUN", "true"), "true"),
		SettingsPath: getEnv("SETTINGS_PATH", "config/settings.yaml"),
	}

	if !cfg.DryRun && (cfg.AlpacaAPIKey == "" || cfg.AlpacaAPISecret == "") {
		log.Fatalf("[config] ALPACA_API_KEY and ALPACA_API_SECRET are required when DRY_RUN=false")
	}
	return cfg
}

// ParseSymbols splits the SYMBOLS env string into a deduplicated, uppercased
// slice, preserving order.
func (c *Config) ParseSymbols() []string {
	seen := make(map[string]bool)
	var symbols []string
	for _, p := range strings.Split(c.Symbols, ",") {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		symbols = append(symbols, p)
	}
	return symbols
}

// LoadSettings reads and validates the YAML settings file. Missing values
// fall back to defaults; invalid values are an error.
func LoadSettings(path string) (*Settings, error) {
	s := DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("[config] settings file %s not found, using defaults", path)
			return s, nil
		}
		return nil, fmt.Errorf("read settings: %w", err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("settings %s: %w", path, err)
	}
	return s, nil
}

// DefaultSettings returns the built-in strategy defaults.
func DefaultSettings() *Settings {
	s := &Settings{}
	s.Indicators.RSIPeriod = 14
	s.Indicators.SMAPeriod = 20
	s.Indicators.EMASpan = 50
	s.Signals.RSIOversold = 30
	s.Signals.RSIOverbought = 70
	s.Executor.PollIntervalSeconds = 10
	s.Executor.TradeOnlyMarketHours = true
	s.Risk.Balance = 10000
	s.Risk.MaxDailyLossPct = 2
	s.Risk.RiskPerTradePct = 1
	return s
}

func (s *Settings) validate() error {
	if s.Indicators.RSIPeriod <= 0 || s.Indicators.SMAPeriod <= 0 || s.Indicators.EMASpan <= 0 {
		return fmt.Errorf("indicator periods must be positive")
	}
	if s.Signals.RSIOversold >= s.Signals.RSIOverbought {
		return fmt.Errorf("rsi_oversold (%v) must be below rsi_overbought (%v)",
			s.Signals.RSIOversold, s.Signals.RSIOverbought)
	}
	if s.Executor.PollIntervalSeconds <= 0 {
		return fmt.Errorf("poll_interval_seconds must be positive")
	}
	if s.Risk.Balance <= 0 || s.Risk.MaxDailyLossPct <= 0 || s.Risk.RiskPerTradePct <= 0 {
		return fmt.Errorf("risk balance and percentages must be positive")
	}
	return nil
}

// PollInterval returns the executor poll interval as a duration.
func (s *Settings) PollInterval() time.Duration {
	return time.Duration(s.Executor.PollIntervalSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}
