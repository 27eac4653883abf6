package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Alpaca     Alpaca     `mapstructure:"alpaca"`
	MarketData MarketData `mapstructure:"market_data"`
	Trading    Trading    `mapstructure:"trading"`
	State      State      `mapstructure:"state"`
	Logger     Logger     `mapstructure:"logger"`
	Server     Server     `mapstructure:"server"`
	Database   Database   `mapstructure:"database"`
}

// Alpaca holds the configuration for the brokerage account API.
type Alpaca struct {
	Endpoint       string        `mapstructure:"endpoint"`
	ApiKey         string        `mapstructure:"apiKey"`
	SecretKey      string        `mapstructure:"secretKey"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// MarketData holds the configuration for the price history source.
type MarketData struct {
	BaseURL         string        `mapstructure:"base_url"`
	Interval        string        `mapstructure:"interval"`
	Range           string        `mapstructure:"range"`
	RateLimit       float64       `mapstructure:"rate_limit"`
	RateLimitBurst  int           `mapstructure:"rate_limit_burst"`
	Timeout         time.Duration `mapstructure:"timeout"`
	BreakerFailures uint32        `mapstructure:"breaker_failures"`
	BreakerTimeout  time.Duration `mapstructure:"breaker_timeout"`
}

// Trading holds the configuration for the trading cycle.
type Trading struct {
	LookbackWindow   int           `mapstructure:"lookback_window"`
	DailyBudget      float64       `mapstructure:"daily_budget"`
	PerTradeNotional float64       `mapstructure:"per_trade_notional"`
	DropThreshold    float64       `mapstructure:"drop_threshold"`
	RiseThreshold    float64       `mapstructure:"rise_threshold"`
	Forgiveness      float64       `mapstructure:"forgiveness"`
	MarketOpen       string        `mapstructure:"market_open"`
	MarketClose      string        `mapstructure:"market_close"`
	ShortInterval    time.Duration `mapstructure:"short_interval"`
	LongInterval     time.Duration `mapstructure:"long_interval"`
	OrderDelay       time.Duration `mapstructure:"order_delay"`
	DryRun           bool          `mapstructure:"dry_run"`
	Seed             int64         `mapstructure:"seed"`
	Universe         []string      `mapstructure:"universe"`
	ApiPort          int           `mapstructure:"api_port"`
}

// State holds the location of the daily state records.
type State struct {
	Dir string `mapstructure:"dir"`
}

// Server holds the configuration for the dashboard web server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the trade journal database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("alpaca.endpoint", "https://paper-api.alpaca.markets/v2")
	v.SetDefault("alpaca.apiKey", "")
	v.SetDefault("alpaca.secretKey", "")
	v.SetDefault("alpaca.rate_limit", 3) // requests per second
	v.SetDefault("alpaca.rate_limit_burst", 1)
	v.SetDefault("alpaca.timeout", "10s")

	v.SetDefault("market_data.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("market_data.interval", "1d")
	v.SetDefault("market_data.range", "1mo")
	v.SetDefault("market_data.rate_limit", 5)
	v.SetDefault("market_data.rate_limit_burst", 2)
	v.SetDefault("market_data.timeout", "10s")
	v.SetDefault("market_data.breaker_failures", 5)
	v.SetDefault("market_data.breaker_timeout", "2m")

	v.SetDefault("trading.lookback_window", 5)
	v.SetDefault("trading.daily_budget", 5.0)
	v.SetDefault("trading.per_trade_notional", 5.0)
	v.SetDefault("trading.drop_threshold", 5.0)
	v.SetDefault("trading.rise_threshold", 5.0)
	v.SetDefault("trading.forgiveness", 0.1)
	v.SetDefault("trading.market_open", "14:30")
	v.SetDefault("trading.market_close", "20:00")
	v.SetDefault("trading.short_interval", "30m")
	v.SetDefault("trading.long_interval", "24h")
	v.SetDefault("trading.order_delay", "500ms")
	v.SetDefault("trading.dry_run", true)
	v.SetDefault("trading.seed", 0)
	v.SetDefault("trading.api_port", 8081)

	v.SetDefault("state.dir", "./data/state")
	v.SetDefault("database.dsn", "./data/journal.db")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("server.port", 8080)
}

// LoadConfig reads configuration from file or environment variables.
// A .env file in the working directory is loaded first if present.
func LoadConfig(path string) (config Config, err error) {
	// Missing .env is normal outside development.
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("yml")

	// Allow environment variables to override config file
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return config, fmt.Errorf("failed to read config: %w", err)
		}
		err = nil
	}

	if err = v.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("failed to decode config: %w", err)
	}

	err = config.Validate()
	return
}

// Validate checks the trading tunables for values the engine cannot work with.
func (c *Config) Validate() error {
	t := c.Trading
	if t.LookbackWindow < 1 {
		return fmt.Errorf("trading.lookback_window must be at least 1, got %d", t.LookbackWindow)
	}
	if t.DailyBudget < 0 {
		return fmt.Errorf("trading.daily_budget must not be negative, got %f", t.DailyBudget)
	}
	if t.PerTradeNotional <= 0 {
		return fmt.Errorf("trading.per_trade_notional must be positive, got %f", t.PerTradeNotional)
	}
	if t.Forgiveness < 0 {
		return fmt.Errorf("trading.forgiveness must not be negative, got %f", t.Forgiveness)
	}
	if t.DropThreshold <= 0 || t.RiseThreshold <= 0 {
		return errors.New("trading.drop_threshold and trading.rise_threshold must be positive")
	}
	if t.ShortInterval <= 0 || t.LongInterval <= 0 {
		return errors.New("trading.short_interval and trading.long_interval must be positive")
	}
	if t.OrderDelay < 0 {
		return errors.New("trading.order_delay must not be negative")
	}

	if _, _, err := ParseMarketHours(t.MarketOpen, t.MarketClose); err != nil {
		return err
	}

	if c.State.Dir == "" {
		return errors.New("state.dir must be set")
	}
	return nil
}

// ParseClock parses an "HH:MM" time of day into an offset from midnight.
func ParseClock(value string) (time.Duration, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// ParseMarketHours parses the trading window boundaries as offsets from UTC
// midnight. open must be before close.
func ParseMarketHours(open, close string) (time.Duration, time.Duration, error) {
	o, err := ParseClock(open)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid trading.market_open %q: %w", open, err)
	}
	c, err := ParseClock(close)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid trading.market_close %q: %w", close, err)
	}
	if o >= c {
		return 0, 0, fmt.Errorf("trading.market_open %s must be before trading.market_close %s", open, close)
	}
	return o, c, nil
}
