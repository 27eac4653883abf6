package trader

import (
	"context"
	"math/rand"

	"five-percent-bot-go/internal/marketdata"
	"five-percent-bot-go/internal/models"
	"go.uber.org/zap"
)

// Rules are the tunables of the five percent rule.
type Rules struct {
	PerTradeNotional float64
	DropThreshold    float64 // percent, buy at or below -DropThreshold+Forgiveness
	RiseThreshold    float64 // percent, sell at or above RiseThreshold-Forgiveness
	Forgiveness      float64 // percentage points
	Interval         marketdata.Interval
	Range            marketdata.Range
}

// DefaultRules is a 5% band with 0.1 points of forgiveness and $5 per trade.
var DefaultRules = Rules{
	PerTradeNotional: 5.0,
	DropThreshold:    5.0,
	RiseThreshold:    5.0,
	Forgiveness:      0.1,
	Interval:         marketdata.Interval1d,
	Range:            marketdata.Range1mo,
}

// Selector picks buys from the universe and sells from the holdings.
// Calls to the market data provider are made one at a time.
type Selector struct {
	logger *zap.Logger
	market marketdata.Provider
	rules  Rules
	rng    *rand.Rand
}

// NewSelector creates a selector. rng drives the universe traversal order.
func NewSelector(logger *zap.Logger, market marketdata.Provider, rules Rules, rng *rand.Rand) *Selector {
	return &Selector{
		logger: logger.Named("selector"),
		market: market,
		rules:  rules,
		rng:    rng,
	}
}

// SelectBuys walks the universe in a fresh random order and picks symbols whose
// price fell by at least the drop threshold over window periods. Every pick
// costs one per-trade notional; the walk stops once the budget cannot pay for
// another. Symbols in excluding are never picked.
func (s *Selector) SelectBuys(ctx context.Context, window int, budget float64, universe []string, excluding models.Holdings) map[string]float64 {
	buys := make(map[string]float64)
	remaining := budget
	limit := s.buyLimit()

	for _, symbol := range shuffled(s.rng, universe) {
		if remaining < s.rules.PerTradeNotional || ctx.Err() != nil {
			break
		}
		if excluding.Has(symbol) {
			continue
		}
		if _, picked := buys[symbol]; picked {
			continue
		}

		change, price, err := s.windowChange(ctx, symbol, window)
		if err != nil {
			s.logger.Debug("Skipping symbol without signal", zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		if change > limit {
			continue
		}

		s.logger.Info("Found buy candidate",
			zap.String("symbol", symbol),
			zap.Float64("change_pct", change),
			zap.Float64("price", price))
		buys[symbol] = price
		remaining -= s.rules.PerTradeNotional
	}

	return buys
}

// SelectSells returns the holdings whose latest price is at least the rise
// threshold above their entry price. Positions without data are kept.
func (s *Selector) SelectSells(ctx context.Context, holdings models.Holdings, window int) map[string]float64 {
	sells := make(map[string]float64)
	limit := s.sellLimit()

	for _, symbol := range holdings.Symbols() {
		if ctx.Err() != nil {
			break
		}
		entry := holdings[symbol]
		change, price, err := s.entryChange(ctx, symbol, entry, window)
		if err != nil {
			s.logger.Warn("Keeping position without price data", zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		if change < limit {
			s.logger.Debug("Holding position",
				zap.String("symbol", symbol),
				zap.Float64("change_pct", change))
			continue
		}

		s.logger.Info("Found sell candidate",
			zap.String("symbol", symbol),
			zap.Float64("entry_price", entry),
			zap.Float64("price", price),
			zap.Float64("change_pct", change))
		sells[symbol] = price
	}

	return sells
}
