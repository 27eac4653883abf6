package models

import "gorm.io/gorm"

// Trade statuses stored in the journal.
const (
	TradeStatusSubmitted = "SUBMITTED"
	TradeStatusFailed    = "FAILED"
	TradeStatusSimulated = "SIMULATED"
)

// Trade represents one attempted order in the trade journal.
type Trade struct {
	gorm.Model
	TradingDay    string  `gorm:"index" json:"trading_day"`
	Symbol        string  `json:"symbol"`
	Side          string  `json:"side"` // "BUY" or "SELL"
	Price         float64 `json:"price"`
	Notional      float64 `json:"notional"`
	ClientOrderID string  `gorm:"uniqueIndex" json:"client_order_id"`
	Status        string  `json:"status"`
	Error         string  `json:"error,omitempty"`
	Timestamp     int64   `json:"timestamp"`
	IsSimulation  bool    `json:"is_simulation"`
}
