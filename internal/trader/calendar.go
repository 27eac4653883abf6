package trader

import (
	"time"

	"five-percent-bot-go/internal/config"
)

// TradingHours is the tradable window as offsets from UTC midnight.
// The window is [Open, Close).
type TradingHours struct {
	Open  time.Duration
	Close time.Duration
}

// DefaultTradingHours is 14:30–20:00 UTC, inside regular US session hours.
var DefaultTradingHours = TradingHours{
	Open:  14*time.Hour + 30*time.Minute,
	Close: 20 * time.Hour,
}

// ParseTradingHours parses "HH:MM" UTC boundaries.
func ParseTradingHours(open, close string) (TradingHours, error) {
	o, c, err := config.ParseMarketHours(open, close)
	if err != nil {
		return TradingHours{}, err
	}
	return TradingHours{Open: o, Close: c}, nil
}

// IsEligibleNow reports whether now is a weekday inside the trading window,
// both judged in UTC.
func IsEligibleNow(now time.Time, hours TradingHours) bool {
	now = now.UTC()
	switch now.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	offset := now.Sub(midnight)
	return offset >= hours.Open && offset < hours.Close
}
