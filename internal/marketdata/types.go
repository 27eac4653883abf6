package marketdata

import (
	"errors"
	"fmt"
	"slices"
)

// Interval is the bar granularity of a price series.
type Interval string

// Range is how far back a price series reaches.
type Range string

const (
	Interval1m  Interval = "1m"
	Interval2m  Interval = "2m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval30m Interval = "30m"
	Interval60m Interval = "60m"
	Interval1d  Interval = "1d"
	Interval5d  Interval = "5d"
	Interval1wk Interval = "1wk"
	Interval1mo Interval = "1mo"
	Interval3mo Interval = "3mo"
)

const (
	Range1d  Range = "1d"
	Range5d  Range = "5d"
	Range1mo Range = "1mo"
	Range3mo Range = "3mo"
	Range6mo Range = "6mo"
	Range1y  Range = "1y"
	Range2y  Range = "2y"
	Range5y  Range = "5y"
	Range10y Range = "10y"
	RangeYTD Range = "ytd"
	RangeMax Range = "max"
)

// ErrInvalidCombo is returned when a range is not served at an interval.
var ErrInvalidCombo = errors.New("invalid interval/range combination")

var longRanges = []Range{Range1mo, Range3mo, Range6mo, Range1y, Range2y, Range5y, Range10y, RangeYTD, RangeMax}

// validRanges lists the ranges the chart endpoint serves for each interval.
var validRanges = map[Interval][]Range{
	Interval1m:  {Range1d, Range5d},
	Interval2m:  {Range1d, Range5d},
	Interval5m:  {Range1d, Range5d, Range1mo},
	Interval15m: {Range1d, Range5d, Range1mo},
	Interval30m: {Range1d, Range5d, Range1mo},
	Interval60m: {Range5d, Range1mo, Range3mo},
	Interval1d:  append([]Range{Range5d}, longRanges...),
	Interval5d:  longRanges,
	Interval1wk: longRanges,
	Interval1mo: longRanges[1:],
	Interval3mo: {Range1y, Range2y, Range5y, Range10y, RangeMax},
}

// IsValidCombo reports whether rng can be requested at interval.
func IsValidCombo(interval Interval, rng Range) bool {
	return slices.Contains(validRanges[interval], rng)
}

// ValidateCombo parses raw interval and range names and checks the pair.
func ValidateCombo(interval, rng string) (Interval, Range, error) {
	i, r := Interval(interval), Range(rng)
	if !IsValidCombo(i, r) {
		return "", "", fmt.Errorf("%w: %s / %s", ErrInvalidCombo, interval, rng)
	}
	return i, r, nil
}
