package trader

import (
	"context"

	"five-percent-bot-go/internal/alpaca"
	"five-percent-bot-go/internal/models"
	"go.uber.org/zap"
)

// execute submits intents one by one, pausing between orders. Holdings are
// updated only for successful submissions; failures are logged and skipped.
// Submissions are detached from ctx cancellation so a shutdown cannot cut
// a batch short.
func (e *Engine) execute(ctx context.Context, day string, holdings models.Holdings, intents []models.TradeIntent) {
	ctx = context.WithoutCancel(ctx)

	for i, intent := range intents {
		// The price becomes the entry price; a position without one can never be sold.
		if intent.Side == models.SideBuy && intent.Price <= 0 {
			e.logger.Warn("Skipping buy without a valid price",
				zap.String("symbol", intent.Symbol),
				zap.Float64("price", intent.Price))
			continue
		}
		if i > 0 && e.cfg.Trading.OrderDelay > 0 {
			e.sleep(e.cfg.Trading.OrderDelay)
		}

		order := alpaca.Order{
			Symbol:        intent.Symbol,
			Side:          intent.Side,
			Type:          alpaca.OrderTypeMarket,
			Notional:      e.notionalFor(intent, holdings),
			ClientOrderID: e.newID(),
		}
		l := e.logger.With(
			zap.String("trading_day", day),
			zap.String("symbol", order.Symbol),
			zap.String("side", order.Side),
			zap.Float64("notional", order.Notional),
			zap.Float64("price", intent.Price),
		)

		status := models.TradeStatusSubmitted
		var err error
		if e.cfg.Trading.DryRun {
			l.Warn("Dry run enabled. No real order will be submitted.")
			status = models.TradeStatusSimulated
		} else {
			l.Info("Submitting order...")
			err = e.account.SubmitOrder(ctx, order)
		}

		if err != nil {
			status = models.TradeStatusFailed
			l.Error("Failed to submit order", zap.Error(err))
		}
		e.metrics.Orders.WithLabelValues(order.Side, status).Inc()
		e.journal(l, day, intent, order, status, err)

		if err != nil {
			continue
		}
		switch intent.Side {
		case models.SideBuy:
			holdings[intent.Symbol] = intent.Price
		case models.SideSell:
			delete(holdings, intent.Symbol)
		}
	}
}

// notionalFor is the per-trade notional for a buy and the position's current
// value for a sell.
func (e *Engine) notionalFor(intent models.TradeIntent, holdings models.Holdings) float64 {
	notional := e.cfg.Trading.PerTradeNotional
	if intent.Side == models.SideSell {
		if entry := holdings[intent.Symbol]; entry > 0 {
			notional = notional * intent.Price / entry
		}
	}
	return notional
}

// journal records the attempt. The daily record is the source of truth, so a
// journal failure is only logged.
func (e *Engine) journal(l *zap.Logger, day string, intent models.TradeIntent, order alpaca.Order, status string, submitErr error) {
	if e.db == nil {
		return
	}
	trade := models.Trade{
		TradingDay:    day,
		Symbol:        order.Symbol,
		Side:          order.Side,
		Price:         intent.Price,
		Notional:      order.Notional,
		ClientOrderID: order.ClientOrderID,
		Status:        status,
		Timestamp:     e.now().UnixMilli(),
		IsSimulation:  e.cfg.Trading.DryRun,
	}
	if submitErr != nil {
		trade.Error = submitErr.Error()
	}

	if err := e.db.Create(&trade).Error; err != nil {
		l.Error("Failed to save trade record to database", zap.Error(err))
		return
	}
	l.Debug("Saved trade record", zap.Uint("trade_id", trade.ID))
}
