package alpaca

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"five-percent-bot-go/internal/config"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	OrderTypeMarket = "MARKET"
	OrderTypeLimit  = "LIMIT"
	OrderSideBuy    = "BUY"
	OrderSideSell   = "SELL"

	timeInForceDay = "day"
	maxRetries     = 3
)

// Order is a notional order submitted to the brokerage.
type Order struct {
	Symbol        string
	Side          string  // OrderSideBuy or OrderSideSell
	Type          string  // OrderTypeMarket or OrderTypeLimit
	Notional      float64 // currency amount
	LimitPrice    float64 // only for OrderTypeLimit
	ClientOrderID string
}

// RestClientInterface defines the brokerage account operations used by the engine.
type RestClientInterface interface {
	GetBalance(ctx context.Context) (float64, error)
	GetPortfolioValue(ctx context.Context) (float64, error)
	SubmitOrder(ctx context.Context, order Order) error
}

// RestClient is a client for the Alpaca trading REST API.
// It implements the RestClientInterface.
type RestClient struct {
	client    *resty.Client
	apiKey    string
	secretKey string
	logger    *zap.Logger
	limiter   *rate.Limiter
	backoff   func(attempt int) time.Duration
}

// ensure RestClient implements the interface
var _ RestClientInterface = (*RestClient)(nil)

// NewRestClient creates a new Alpaca REST API client.
func NewRestClient(cfg *config.Alpaca, logger *zap.Logger) *RestClient {
	logger = logger.Named("alpaca")
	if strings.Contains(cfg.Endpoint, "paper-api") {
		logger.Warn("Using Alpaca paper trading endpoint")
	} else {
		logger.Info("Using Alpaca endpoint", zap.String("endpoint", cfg.Endpoint))
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.Endpoint, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("APCA-API-KEY-ID", cfg.ApiKey).
		SetHeader("APCA-API-SECRET-KEY", cfg.SecretKey).
		SetHeader("Accept", "application/json")

	return &RestClient{
		client:    client,
		apiKey:    cfg.ApiKey,
		secretKey: cfg.SecretKey,
		logger:    logger,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst),
		backoff:   exponentialBackoff,
	}
}

// exponentialBackoff yields 1s, 2s, 4s.
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt))) * time.Second
}

func (c *RestClient) configured() error {
	if c.apiKey == "" || c.secretKey == "" {
		return errors.New("alpaca credentials are not configured")
	}
	return nil
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (c *RestClient) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error

	for i := 0; i < maxRetries; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err = req.SetContext(ctx).Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil
		}

		shouldRetry := false
		var retryAfter time.Duration

		if err == nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests || statusCode == 418 {
				shouldRetry = true
				if seconds, convErr := strconv.Atoi(resp.Header().Get("Retry-After")); convErr == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 {
				shouldRetry = true
			}
		} else if ctx.Err() == nil {
			shouldRetry = true
		}

		if !shouldRetry {
			if err != nil {
				return nil, fmt.Errorf("request failed: %w", err)
			}
			return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
		}
		if err == nil {
			err = fmt.Errorf("status %s: %s", resp.Status(), resp.String())
		}
		if i == maxRetries-1 {
			break
		}

		if retryAfter == 0 {
			retryAfter = c.backoff(i)
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}

// accountResponse is the subset of the /account payload the bot reads.
type accountResponse struct {
	ID            string `json:"id"`
	AccountNumber string `json:"account_number"`
	Cash          string `json:"cash"`
	Equity        string `json:"equity"`
}

func (c *RestClient) getAccount(ctx context.Context) (*accountResponse, error) {
	if err := c.configured(); err != nil {
		return nil, err
	}
	req := c.client.R().SetResult(&accountResponse{})

	resp, err := c.doRequest(ctx, http.MethodGet, "/account", req)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return resp.Result().(*accountResponse), nil
}

func parseAmount(field, value string) (float64, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, value, err)
	}
	return d.InexactFloat64(), nil
}

// GetBalance returns the account's cash balance.
func (c *RestClient) GetBalance(ctx context.Context) (float64, error) {
	account, err := c.getAccount(ctx)
	if err != nil {
		return 0, err
	}
	return parseAmount("cash", account.Cash)
}

// GetPortfolioValue returns the account's equity.
func (c *RestClient) GetPortfolioValue(ctx context.Context) (float64, error) {
	account, err := c.getAccount(ctx)
	if err != nil {
		return 0, err
	}
	return parseAmount("equity", account.Equity)
}

// orderRequest is the body of POST /orders.
type orderRequest struct {
	Symbol        string `json:"symbol"`
	Notional      string `json:"notional"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	TimeInForce   string `json:"time_in_force"`
	LimitPrice    string `json:"limit_price,omitempty"`
	ClientOrderID string `json:"client_order_id,omitempty"`
}

// OrderResponse is the subset of the order payload the bot logs.
type OrderResponse struct {
	ID            string `json:"id"`
	ClientOrderID string `json:"client_order_id"`
	Symbol        string `json:"symbol"`
	Status        string `json:"status"`
	Notional      string `json:"notional"`
	Side          string `json:"side"`
}

func buildOrderRequest(order Order) (orderRequest, error) {
	if order.Symbol == "" {
		return orderRequest{}, errors.New("order symbol is empty")
	}
	if order.Side != OrderSideBuy && order.Side != OrderSideSell {
		return orderRequest{}, fmt.Errorf("unknown order side %q", order.Side)
	}
	if order.Notional <= 0 {
		return orderRequest{}, fmt.Errorf("order notional must be positive, got %f", order.Notional)
	}

	body := orderRequest{
		Symbol: order.Symbol,
		// Notional orders accept at most two decimal places.
		Notional:      decimal.NewFromFloat(order.Notional).Round(2).StringFixed(2),
		Side:          strings.ToLower(order.Side),
		TimeInForce:   timeInForceDay,
		ClientOrderID: order.ClientOrderID,
	}

	switch order.Type {
	case OrderTypeMarket, "":
		body.Type = "market"
	case OrderTypeLimit:
		if order.LimitPrice <= 0 {
			return orderRequest{}, errors.New("limit order requires a positive limit price")
		}
		body.Type = "limit"
		body.LimitPrice = decimal.NewFromFloat(order.LimitPrice).String()
	default:
		return orderRequest{}, fmt.Errorf("unknown order type %q", order.Type)
	}
	return body, nil
}

// SubmitOrder places a new notional order.
func (c *RestClient) SubmitOrder(ctx context.Context, order Order) error {
	if err := c.configured(); err != nil {
		return err
	}
	body, err := buildOrderRequest(order)
	if err != nil {
		return fmt.Errorf("invalid order: %w", err)
	}

	req := c.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&OrderResponse{})

	resp, err := c.doRequest(ctx, http.MethodPost, "/orders", req)
	if err != nil {
		c.logger.Error("Failed to submit order after multiple attempts",
			zap.Error(err),
			zap.String("symbol", order.Symbol),
			zap.String("side", order.Side),
		)
		return fmt.Errorf("failed to submit order: %w", err)
	}

	result := resp.Result().(*OrderResponse)
	c.logger.Info("Successfully submitted order",
		zap.String("order_id", result.ID),
		zap.String("symbol", result.Symbol),
		zap.String("status", result.Status),
	)
	return nil
}
