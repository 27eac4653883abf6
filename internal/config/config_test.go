package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(body), 0o644))
	return dir
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Trading.LookbackWindow)
	assert.Equal(t, 5.0, cfg.Trading.DailyBudget)
	assert.Equal(t, 5.0, cfg.Trading.PerTradeNotional)
	assert.Equal(t, 0.1, cfg.Trading.Forgiveness)
	assert.Equal(t, "14:30", cfg.Trading.MarketOpen)
	assert.Equal(t, "20:00", cfg.Trading.MarketClose)
	assert.Equal(t, 30*time.Minute, cfg.Trading.ShortInterval)
	assert.Equal(t, 24*time.Hour, cfg.Trading.LongInterval)
	assert.Equal(t, 500*time.Millisecond, cfg.Trading.OrderDelay)
	assert.True(t, cfg.Trading.DryRun)
	assert.Equal(t, "1d", cfg.MarketData.Interval)
	assert.Equal(t, "1mo", cfg.MarketData.Range)
}

func TestLoadConfig_FileOverrides(t *testing.T) {
	dir := writeConfig(t, `
trading:
  lookback_window: 10
  daily_budget: 25
  short_interval: 5m
  market_open: "13:30"
  universe: [AAPL, MSFT]
state:
  dir: /tmp/bot-state
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Trading.LookbackWindow)
	assert.Equal(t, 25.0, cfg.Trading.DailyBudget)
	assert.Equal(t, 5*time.Minute, cfg.Trading.ShortInterval)
	assert.Equal(t, "13:30", cfg.Trading.MarketOpen)
	assert.Equal(t, []string{"AAPL", "MSFT"}, cfg.Trading.Universe)
	assert.Equal(t, "/tmp/bot-state", cfg.State.Dir)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("TRADING_DAILY_BUDGET", "40")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 40.0, cfg.Trading.DailyBudget)
}

func TestLoadConfig_InvalidHours(t *testing.T) {
	dir := writeConfig(t, `
trading:
  market_open: "21:00"
  market_close: "20:00"
`)

	_, err := LoadConfig(dir)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "must be before")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Trading: Trading{
				LookbackWindow:   5,
				DailyBudget:      5,
				PerTradeNotional: 5,
				DropThreshold:    5,
				RiseThreshold:    5,
				Forgiveness:      0.1,
				MarketOpen:       "14:30",
				MarketClose:      "20:00",
				ShortInterval:    time.Minute,
				LongInterval:     time.Hour,
			},
			State: State{Dir: "state"},
		}
	}

	testCases := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "zero window", mutate: func(c *Config) { c.Trading.LookbackWindow = 0 }, errMsg: "lookback_window"},
		{name: "negative budget", mutate: func(c *Config) { c.Trading.DailyBudget = -1 }, errMsg: "daily_budget"},
		{name: "zero notional", mutate: func(c *Config) { c.Trading.PerTradeNotional = 0 }, errMsg: "per_trade_notional"},
		{name: "negative forgiveness", mutate: func(c *Config) { c.Trading.Forgiveness = -0.1 }, errMsg: "forgiveness"},
		{name: "bad open", mutate: func(c *Config) { c.Trading.MarketOpen = "9am" }, errMsg: "market_open"},
		{name: "zero interval", mutate: func(c *Config) { c.Trading.ShortInterval = 0 }, errMsg: "short_interval"},
		{name: "missing state dir", mutate: func(c *Config) { c.State.Dir = "" }, errMsg: "state.dir"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.errMsg == "" {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tc.errMsg)
			}
		})
	}
}

func TestParseMarketHours(t *testing.T) {
	testCases := []struct {
		name   string
		open   string
		close  string
		errMsg string
	}{
		{name: "defaults", open: "14:30", close: "20:00"},
		{name: "bad open", open: "9am", close: "20:00", errMsg: "market_open"},
		{name: "bad close", open: "14:30", close: "24:00", errMsg: "market_close"},
		{name: "inverted", open: "20:00", close: "14:30", errMsg: "must be before"},
		{name: "empty window", open: "14:30", close: "14:30", errMsg: "must be before"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			open, closing, err := ParseMarketHours(tc.open, tc.close)
			if tc.errMsg != "" {
				assert.ErrorContains(t, err, tc.errMsg)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, 14*time.Hour+30*time.Minute, open)
			assert.Equal(t, 20*time.Hour, closing)
		})
	}
}
