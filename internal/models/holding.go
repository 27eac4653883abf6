package models

import "sort"

// Order sides.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// DayLayout is the layout of a trading day key.
const DayLayout = "2006-01-02"

// Holdings maps a held symbol to its entry price. A symbol is held at most once.
type Holdings map[string]float64

// Clone returns an independent copy. A nil receiver yields an empty map.
func (h Holdings) Clone() Holdings {
	out := make(Holdings, len(h))
	for symbol, price := range h {
		out[symbol] = price
	}
	return out
}

// Symbols returns the held symbols in sorted order.
func (h Holdings) Symbols() []string {
	symbols := make([]string, 0, len(h))
	for symbol := range h {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// Has reports whether symbol is held.
func (h Holdings) Has(symbol string) bool {
	_, ok := h[symbol]
	return ok
}

// DailyRecord is the persisted outcome of one trading day's cycle.
// Its existence marks the day as run.
type DailyRecord struct {
	Date      string   `json:"date"`
	Holdings  Holdings `json:"holdings"`
	CreatedAt string   `json:"created_at"`
}

// TradeIntent is a single order decided during a cycle.
type TradeIntent struct {
	Symbol string
	Price  float64
	Side   string
}
