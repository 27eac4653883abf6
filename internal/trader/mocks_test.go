package trader

import (
	"context"

	"five-percent-bot-go/internal/alpaca"
	"five-percent-bot-go/internal/marketdata"
	"github.com/stretchr/testify/mock"
)

// MockAccount is a mock implementation of the alpaca.RestClientInterface.
type MockAccount struct {
	mock.Mock
}

func (m *MockAccount) GetBalance(ctx context.Context) (float64, error) {
	args := m.Called()
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockAccount) GetPortfolioValue(ctx context.Context) (float64, error) {
	args := m.Called()
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockAccount) SubmitOrder(ctx context.Context, order alpaca.Order) error {
	args := m.Called(order.Symbol, order.Side, order.Notional)
	return args.Error(0)
}

// MockMarketData is a mock implementation of the marketdata.Provider.
type MockMarketData struct {
	mock.Mock
}

func (m *MockMarketData) FetchSeries(ctx context.Context, symbol string, interval marketdata.Interval, rng marketdata.Range) (*marketdata.Series, error) {
	args := m.Called(symbol)
	series, _ := args.Get(0).(*marketdata.Series)
	return series, args.Error(1)
}

// seriesOf builds a series from closes, oldest first.
func seriesOf(closes ...float64) *marketdata.Series {
	s := &marketdata.Series{Symbol: "TEST"}
	for _, c := range closes {
		s.Bars = append(s.Bars, marketdata.Bar{Close: c})
	}
	return s
}
