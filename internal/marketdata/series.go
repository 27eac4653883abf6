package marketdata

import (
	"errors"
	"fmt"
)

// ErrInsufficientData means the series cannot produce a signal: too few
// points for the window, a zero reference price, or a missing latest close.
var ErrInsufficientData = errors.New("insufficient data")

// Bar is one period of a price series.
type Bar struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// Series is a time-ordered price series; index 0 is the oldest bar.
type Series struct {
	Symbol string
	Bars   []Bar
}

// Latest returns the most recent close. A non-positive close is a missing
// value from the provider, not a price.
func (s *Series) Latest() (float64, error) {
	if s == nil || len(s.Bars) == 0 {
		return 0, ErrInsufficientData
	}
	latest := s.Bars[len(s.Bars)-1].Close
	if latest <= 0 {
		return 0, fmt.Errorf("%w: no latest close", ErrInsufficientData)
	}
	return latest, nil
}

// PercentChange returns the change in percent from the close window periods
// before the latest close to the latest close, along with the latest close.
func (s *Series) PercentChange(window int) (change float64, latest float64, err error) {
	if window < 1 {
		return 0, 0, fmt.Errorf("%w: window %d", ErrInsufficientData, window)
	}
	if s == nil || len(s.Bars) < window+1 {
		return 0, 0, fmt.Errorf("%w: need %d points", ErrInsufficientData, window+1)
	}
	latest, err = s.Latest()
	if err != nil {
		return 0, 0, err
	}
	old := s.Bars[len(s.Bars)-1-window].Close
	if old == 0 {
		return 0, latest, fmt.Errorf("%w: zero reference price", ErrInsufficientData)
	}
	return (latest - old) / old * 100, latest, nil
}

// ChangeFrom returns the change in percent from reference to current.
func ChangeFrom(reference, current float64) (float64, error) {
	if reference == 0 {
		return 0, fmt.Errorf("%w: zero reference price", ErrInsufficientData)
	}
	return (current - reference) / reference * 100, nil
}
