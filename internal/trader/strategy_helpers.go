package trader

import (
	"context"
	"fmt"
	"math/rand"

	"five-percent-bot-go/internal/marketdata"
)

func (s *Selector) buyLimit() float64 {
	return -s.rules.DropThreshold + s.rules.Forgiveness
}

func (s *Selector) sellLimit() float64 {
	return s.rules.RiseThreshold - s.rules.Forgiveness
}

// windowChange is the percent change of symbol over the last window periods
// and its latest close.
func (s *Selector) windowChange(ctx context.Context, symbol string, window int) (float64, float64, error) {
	series, err := s.market.FetchSeries(ctx, symbol, s.rules.Interval, s.rules.Range)
	if err != nil {
		return 0, 0, err
	}
	return series.PercentChange(window)
}

// entryChange is the percent change from entry to the latest close of symbol.
func (s *Selector) entryChange(ctx context.Context, symbol string, entry float64, window int) (float64, float64, error) {
	series, err := s.market.FetchSeries(ctx, symbol, s.rules.Interval, s.rules.Range)
	if err != nil {
		return 0, 0, err
	}
	// The series must still cover the lookback window to be trusted.
	if len(series.Bars) < window+1 {
		return 0, 0, fmt.Errorf("%w: need %d points", marketdata.ErrInsufficientData, window+1)
	}
	price, err := series.Latest()
	if err != nil {
		return 0, 0, err
	}
	change, err := marketdata.ChangeFrom(entry, price)
	if err != nil {
		return 0, 0, err
	}
	return change, price, nil
}

// shuffled returns universe in a uniformly random order without modifying it.
func shuffled(rng *rand.Rand, universe []string) []string {
	out := make([]string, len(universe))
	for i, j := range rng.Perm(len(universe)) {
		out[i] = universe[j]
	}
	return out
}
