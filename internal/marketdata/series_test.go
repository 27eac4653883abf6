package marketdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seriesOf(closes ...float64) *Series {
	s := &Series{Symbol: "TEST"}
	for _, c := range closes {
		s.Bars = append(s.Bars, Bar{Close: c})
	}
	return s
}

func TestPercentChange(t *testing.T) {
	testCases := []struct {
		name     string
		series   *Series
		window   int
		expected float64
		latest   float64
		err      bool
	}{
		{name: "Drop over window", series: seriesOf(50, 100, 101, 99, 94), window: 3, expected: -6, latest: 94},
		{name: "Gain over window", series: seriesOf(100, 110), window: 1, expected: 10, latest: 110},
		{name: "Exactly window+1 points", series: seriesOf(100, 1, 1, 95), window: 3, expected: -5, latest: 95},
		{name: "Too few points", series: seriesOf(100, 95), window: 2, err: true},
		{name: "Zero reference price", series: seriesOf(0, 95), window: 1, err: true},
		{name: "Missing latest close", series: seriesOf(100, 0), window: 1, err: true},
		{name: "Negative latest close", series: seriesOf(100, 101, -1), window: 2, err: true},
		{name: "Nil series", series: nil, window: 1, err: true},
		{name: "Zero window", series: seriesOf(1, 2), window: 0, err: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			change, latest, err := tc.series.PercentChange(tc.window)
			if tc.err {
				assert.ErrorIs(t, err, ErrInsufficientData)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tc.expected, change, 1e-9)
			assert.Equal(t, tc.latest, latest)
		})
	}
}

func TestLatestAndChangeFrom(t *testing.T) {
	latest, err := seriesOf(1, 2, 3).Latest()
	assert.NoError(t, err)
	assert.Equal(t, 3.0, latest)

	_, err = seriesOf().Latest()
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = seriesOf(1, 2, 0).Latest()
	assert.ErrorIs(t, err, ErrInsufficientData)

	change, err := ChangeFrom(100, 105)
	assert.NoError(t, err)
	assert.InDelta(t, 5.0, change, 1e-9)

	_, err = ChangeFrom(0, 105)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestValidateCombo(t *testing.T) {
	i, r, err := ValidateCombo("1d", "1mo")
	assert.NoError(t, err)
	assert.Equal(t, Interval1d, i)
	assert.Equal(t, Range1mo, r)

	assert.True(t, IsValidCombo(Interval1mo, Range3mo))
	assert.False(t, IsValidCombo(Interval1mo, Range1mo))
	assert.False(t, IsValidCombo(Interval60m, Range1d))
	assert.True(t, IsValidCombo(Interval3mo, RangeMax))
	assert.False(t, IsValidCombo(Interval3mo, RangeYTD))

	_, _, err = ValidateCombo("7h", "1mo")
	assert.ErrorIs(t, err, ErrInvalidCombo)
}
