package trader

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"five-percent-bot-go/internal/alpaca"
	"five-percent-bot-go/internal/config"
	"five-percent-bot-go/internal/marketdata"
	"five-percent-bot-go/internal/models"
	"five-percent-bot-go/internal/state"
	"five-percent-bot-go/internal/universe"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Engine runs the daily five percent cycle on a schedule.
type Engine struct {
	UUID      string
	Name      string
	StartTime time.Time

	logger   *zap.Logger
	cfg      *config.Config
	account  alpaca.RestClientInterface
	store    state.StoreInterface
	db       *gorm.DB
	selector *Selector
	metrics  *Metrics
	hours    TradingHours
	universe []string

	now   func() time.Time
	sleep func(time.Duration)
	newID func() string

	mu         sync.RWMutex
	lastStatus CycleStatus
}

// CycleStatus describes the most recent cycle invocation.
type CycleStatus struct {
	Outcome    string    `json:"outcome"`
	TradingDay string    `json:"trading_day,omitempty"`
	At         time.Time `json:"at"`
	Holdings   int       `json:"holdings"`
	Error      string    `json:"error,omitempty"`
}

// NewEngine creates a new trading engine.
func NewEngine(logger *zap.Logger, cfg *config.Config, account alpaca.RestClientInterface, market marketdata.Provider, store state.StoreInterface, db *gorm.DB) (*Engine, error) {
	hours, err := ParseTradingHours(cfg.Trading.MarketOpen, cfg.Trading.MarketClose)
	if err != nil {
		return nil, err
	}
	interval, rng, err := marketdata.ValidateCombo(cfg.MarketData.Interval, cfg.MarketData.Range)
	if err != nil {
		return nil, err
	}

	seed := cfg.Trading.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rules := Rules{
		PerTradeNotional: cfg.Trading.PerTradeNotional,
		DropThreshold:    cfg.Trading.DropThreshold,
		RiseThreshold:    cfg.Trading.RiseThreshold,
		Forgiveness:      cfg.Trading.Forgiveness,
		Interval:         interval,
		Range:            rng,
	}
	logger = logger.Named("engine")

	return &Engine{
		UUID:      uuid.NewString(),
		Name:      "five-percent-rule",
		StartTime: time.Now(),
		logger:    logger,
		cfg:       cfg,
		account:   account,
		store:     store,
		db:        db,
		selector:  NewSelector(logger, market, rules, rand.New(rand.NewSource(seed))),
		metrics:   NewMetrics(),
		hours:     hours,
		universe:  universe.Resolve(cfg.Trading.Universe),
		now:       time.Now,
		sleep:     time.Sleep,
		newID:     uuid.NewString,
	}, nil
}

// Metrics returns the engine's collectors.
func (e *Engine) Metrics() *Metrics {
	return e.metrics
}

// Status returns the outcome of the most recent cycle.
func (e *Engine) Status() CycleStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastStatus
}

func (e *Engine) setStatus(status CycleStatus) {
	e.mu.Lock()
	e.lastStatus = status
	e.mu.Unlock()
	e.metrics.Cycles.WithLabelValues(status.Outcome).Inc()
}

// Run repeats the cycle until ctx is cancelled. After an executed cycle it
// waits the long interval, otherwise the short one. Cancellation ends a wait
// immediately but never interrupts order submission.
func (e *Engine) Run(ctx context.Context) {
	e.logger.Info("Starting trading cycle loop",
		zap.String("uuid", e.UUID),
		zap.Int("universe", len(e.universe)),
		zap.Bool("dry_run", e.cfg.Trading.DryRun))

	for {
		if ctx.Err() != nil {
			e.logger.Info("Stopping trading engine...")
			return
		}

		executed, err := e.RunCycle(ctx)
		wait := e.cfg.Trading.ShortInterval
		switch {
		case err != nil:
			e.logger.Error("Trading cycle failed, will retry", zap.Error(err), zap.Duration("retry_in", wait))
		case executed:
			wait = e.cfg.Trading.LongInterval
			e.logger.Info("Trade cycle executed", zap.Duration("next_check_in", wait))
		default:
			e.logger.Info("No action taken this cycle", zap.Duration("next_check_in", wait))
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			e.logger.Info("Stopping trading engine...")
			return
		case <-timer.C:
		}
	}
}

// RunCycle performs at most one decision per trading day. It reports whether
// orders were decided and the day was recorded. Only state store failures are
// returned as errors.
func (e *Engine) RunCycle(ctx context.Context) (bool, error) {
	start := e.now()
	l := e.logger.With(zap.Time("now", start.UTC()))

	if !IsEligibleNow(start, e.hours) {
		l.Debug("Market window closed")
		e.setStatus(CycleStatus{Outcome: OutcomeMarketClosed, At: start})
		return false, nil
	}

	today := start.UTC().Format(models.DayLayout)
	l = l.With(zap.String("trading_day", today))

	ran, err := e.store.HasRun(today)
	if err != nil {
		return false, e.storageFailure(start, today, fmt.Errorf("could not check daily record: %w", err))
	}
	if ran {
		l.Debug("Cycle already ran today")
		e.setStatus(CycleStatus{Outcome: OutcomeAlreadyRan, TradingDay: today, At: start})
		return false, nil
	}

	prevDay, prev, found, err := e.store.LoadLatest()
	if err != nil {
		return false, e.storageFailure(start, today, fmt.Errorf("could not load prior state: %w", err))
	}

	window := e.cfg.Trading.LookbackWindow
	budget := e.cfg.Trading.DailyBudget
	holdings := models.Holdings{}
	var sells, buys map[string]float64

	if !found {
		l.Info("No prior state, first run buys only")
		buys = e.selector.SelectBuys(ctx, window, budget, e.universe, holdings)
	} else {
		holdings = prev.Holdings.Clone()
		l.Info("Loaded prior state", zap.String("prior_day", prevDay), zap.Int("holdings", len(holdings)))

		sells = e.selector.SelectSells(ctx, holdings, window)
		if e.canAffordBuys(ctx, budget) {
			buys = e.selector.SelectBuys(ctx, window, budget, e.universe, holdings)
		}
	}

	// Nothing has been submitted yet, so a shutdown here abandons the cycle cleanly.
	if ctx.Err() != nil {
		e.setStatus(CycleStatus{Outcome: OutcomeCancelled, TradingDay: today, At: start})
		return false, ctx.Err()
	}

	e.metrics.Candidates.WithLabelValues(models.SideSell).Add(float64(len(sells)))
	e.metrics.Candidates.WithLabelValues(models.SideBuy).Add(float64(len(buys)))

	intents := append(intentsFor(sells, models.SideSell), intentsFor(buys, models.SideBuy)...)
	e.execute(ctx, today, holdings, intents)

	if err := e.store.Persist(today, holdings); err != nil {
		return false, e.storageFailure(start, today, fmt.Errorf("could not persist daily record: %w", err))
	}

	e.metrics.Holdings.Set(float64(len(holdings)))
	e.metrics.CycleDuration.Observe(e.now().Sub(start).Seconds())
	e.setStatus(CycleStatus{Outcome: OutcomeExecuted, TradingDay: today, At: start, Holdings: len(holdings)})
	l.Info("Daily record persisted",
		zap.Int("sells", len(sells)),
		zap.Int("buys", len(buys)),
		zap.Strings("holdings", holdings.Symbols()))
	return true, nil
}

func (e *Engine) storageFailure(at time.Time, day string, err error) error {
	e.setStatus(CycleStatus{Outcome: OutcomeStorageFailure, TradingDay: day, At: at, Error: err.Error()})
	return err
}

// canAffordBuys is the solvency guard: buys only when the balance exceeds the budget.
func (e *Engine) canAffordBuys(ctx context.Context, budget float64) bool {
	balance, err := e.account.GetBalance(ctx)
	if err != nil {
		e.logger.Warn("Could not read account balance, skipping buys", zap.Error(err))
		return false
	}
	e.metrics.Balance.Set(balance)
	if balance <= budget {
		e.logger.Info("Balance does not cover daily budget, skipping buys",
			zap.Float64("balance", balance),
			zap.Float64("budget", budget))
		return false
	}
	return true
}

// intentsFor turns a symbol→price selection into intents in symbol order.
func intentsFor(selection map[string]float64, side string) []models.TradeIntent {
	symbols := make([]string, 0, len(selection))
	for symbol := range selection {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	intents := make([]models.TradeIntent, 0, len(symbols))
	for _, symbol := range symbols {
		intents = append(intents, models.TradeIntent{Symbol: symbol, Price: selection[symbol], Side: side})
	}
	return intents
}
