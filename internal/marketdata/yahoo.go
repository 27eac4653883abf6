package marketdata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"five-percent-bot-go/internal/config"
	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const userAgent = "Mozilla/5.0" // the chart endpoint rejects library user agents

// Provider fetches historical price series.
type Provider interface {
	FetchSeries(ctx context.Context, symbol string, interval Interval, rng Range) (*Series, error)
}

// YahooClient reads price history from the Yahoo Finance chart endpoint.
type YahooClient struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

var _ Provider = (*YahooClient)(nil)

// NewYahooClient creates a chart client with rate limiting and a circuit breaker.
func NewYahooClient(cfg *config.MarketData, logger *zap.Logger) *YahooClient {
	logger = logger.Named("marketdata")
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", userAgent)

	return &YahooClient{
		client:  client,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst),
		breaker: newBreaker(cfg.BreakerFailures, cfg.BreakerTimeout, logger),
	}
}

func newBreaker(failures uint32, timeout time.Duration, logger *zap.Logger) *gobreaker.CircuitBreaker {
	if failures == 0 {
		failures = 5
	}
	st := gobreaker.Settings{
		Name:    "yahoo-chart",
		Timeout: timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// A symbol without data is an answer, not an outage.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errNotFound) || errors.Is(err, ErrInsufficientData)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}
	return gobreaker.NewCircuitBreaker(st)
}

var errNotFound = errors.New("symbol not found")

// chartResponse mirrors the parts of the chart payload that carry bars.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchSeries returns the bars of symbol at interval over rng.
func (c *YahooClient) FetchSeries(ctx context.Context, symbol string, interval Interval, rng Range) (*Series, error) {
	if symbol == "" {
		return nil, errors.New("symbol is empty")
	}
	if !IsValidCombo(interval, rng) {
		return nil, fmt.Errorf("%w: %s / %s", ErrInvalidCombo, interval, rng)
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, symbol, interval, rng)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", symbol, err)
	}
	return out.(*Series), nil
}

func (c *YahooClient) fetch(ctx context.Context, symbol string, interval Interval, rng Range) (*Series, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	var payload chartResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("symbol", symbol).
		SetQueryParam("interval", string(interval)).
		SetQueryParam("range", string(rng)).
		SetResult(&payload).
		SetError(&payload).
		Get("/v8/finance/chart/{symbol}")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, errNotFound
	}
	if resp.IsError() {
		return nil, fmt.Errorf("request failed with status %s", resp.Status())
	}

	return parseChart(symbol, &payload)
}

func valueAt(values []*float64, i int) float64 {
	if values[i] == nil {
		return 0
	}
	return *values[i]
}

// parseChart flattens the chart payload into bars. Null values become zero.
func parseChart(symbol string, payload *chartResponse) (*Series, error) {
	if payload.Chart.Error != nil {
		return nil, fmt.Errorf("%w: %s", errNotFound, payload.Chart.Error.Description)
	}
	if len(payload.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: missing chart result", ErrInsufficientData)
	}
	result := payload.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%w: missing quote indicators", ErrInsufficientData)
	}
	quote := result.Indicators.Quote[0]

	n := len(result.Timestamp)
	if len(quote.Open) != n || len(quote.High) != n || len(quote.Low) != n ||
		len(quote.Close) != n || len(quote.Volume) != n {
		return nil, errors.New("mismatched array sizes in chart data")
	}

	series := &Series{Symbol: symbol, Bars: make([]Bar, n)}
	for i, ts := range result.Timestamp {
		series.Bars[i] = Bar{
			Date:   time.Unix(ts, 0).UTC().Format("2006-01-02"),
			Open:   valueAt(quote.Open, i),
			High:   valueAt(quote.High, i),
			Low:    valueAt(quote.Low, i),
			Close:  valueAt(quote.Close, i),
			Volume: valueAt(quote.Volume, i),
		}
	}
	return series, nil
}
