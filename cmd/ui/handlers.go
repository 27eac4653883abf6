package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"five-percent-bot-go/internal/models"
	"five-percent-bot-go/internal/state"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultTradeLimit = 100

// RecordReader is the read side of the daily state store.
type RecordReader interface {
	LoadLatest() (string, models.DailyRecord, bool, error)
	Load(day string) (models.DailyRecord, error)
	Days() ([]string, error)
}

var _ RecordReader = (*state.Store)(nil)

// APIHandler holds dependencies for the API endpoints.
type APIHandler struct {
	log     *zap.Logger
	db      *gorm.DB
	records RecordReader
	now     func() time.Time
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(log *zap.Logger, db *gorm.DB, records RecordReader) *APIHandler {
	return &APIHandler{log: log, db: db, records: records, now: time.Now}
}

// Register attaches the API routes to r.
func (h *APIHandler) Register(r *mux.Router) {
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", h.StatusHandler).Methods(http.MethodGet)
	api.HandleFunc("/trades", h.TradesHandler).Methods(http.MethodGet)
	api.HandleFunc("/statistics", h.StatisticsHandler).Methods(http.MethodGet)
	api.HandleFunc("/days", h.DaysHandler).Methods(http.MethodGet)
	api.HandleFunc("/holdings", h.LatestHoldingsHandler).Methods(http.MethodGet)
	api.HandleFunc("/holdings/{date}", h.HoldingsHandler).Methods(http.MethodGet)
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to write response", zap.Error(err))
	}
}

// StatusResponse summarizes the bot's persisted state.
type StatusResponse struct {
	LatestDay   string `json:"latest_day,omitempty"`
	Holdings    int    `json:"holdings"`
	TradingDays int    `json:"trading_days"`
	TotalTrades int64  `json:"total_trades"`
	LastTradeAt string `json:"last_trade_at,omitempty"`
}

// StatusHandler returns the latest day, position count and journal size.
func (h *APIHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	day, record, found, err := h.records.LoadLatest()
	if err != nil {
		h.log.Error("Failed to load latest record", zap.Error(err))
		http.Error(w, "Failed to load state", http.StatusInternalServerError)
		return
	}
	days, err := h.records.Days()
	if err != nil {
		h.log.Error("Failed to list trading days", zap.Error(err))
		http.Error(w, "Failed to load state", http.StatusInternalServerError)
		return
	}

	resp := StatusResponse{TradingDays: len(days)}
	if found {
		resp.LatestDay = day
		resp.Holdings = len(record.Holdings)
	}

	if err := h.db.Model(&models.Trade{}).Count(&resp.TotalTrades).Error; err != nil {
		h.log.Error("Failed to count trades", zap.Error(err))
		http.Error(w, "Failed to load trades", http.StatusInternalServerError)
		return
	}
	var last models.Trade
	err = h.db.Order("timestamp desc").First(&last).Error
	switch {
	case err == nil:
		resp.LastTradeAt = time.UnixMilli(last.Timestamp).UTC().Format(time.RFC3339)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		h.log.Error("Failed to get last trade", zap.Error(err))
		http.Error(w, "Failed to load trades", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, resp)
}

// TradesHandler returns journaled trades, most recent first. It accepts
// optional day, symbol and limit query parameters.
func (h *APIHandler) TradesHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := defaultTradeLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	query := h.db.Order("timestamp desc").Order("id desc").Limit(limit)
	if day := q.Get("day"); day != "" {
		query = query.Where("trading_day = ?", day)
	}
	if symbol := q.Get("symbol"); symbol != "" {
		query = query.Where("symbol = ?", symbol)
	}

	trades := []models.Trade{}
	if err := query.Find(&trades).Error; err != nil {
		h.log.Error("Failed to get trades from database", zap.Error(err))
		http.Error(w, "Failed to get trades", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, trades)
}

// StatsDetail holds order counts for a given period.
type StatsDetail struct {
	TotalTrades int64   `json:"total_trades"`
	Buys        int64   `json:"buys"`
	Sells       int64   `json:"sells"`
	Submitted   int64   `json:"submitted"`
	Failed      int64   `json:"failed"`
	Simulated   int64   `json:"simulated"`
	Notional    float64 `json:"notional"`
	FailureRate float64 `json:"failure_rate"`
}

func (s *StatsDetail) add(trade models.Trade) {
	s.TotalTrades++
	switch trade.Side {
	case models.SideBuy:
		s.Buys++
	case models.SideSell:
		s.Sells++
	}
	switch trade.Status {
	case models.TradeStatusSubmitted:
		s.Submitted++
		s.Notional += trade.Notional
	case models.TradeStatusFailed:
		s.Failed++
	case models.TradeStatusSimulated:
		s.Simulated++
		s.Notional += trade.Notional
	}
}

func (s *StatsDetail) finish() {
	if s.TotalTrades > 0 {
		s.FailureRate = float64(s.Failed) / float64(s.TotalTrades)
	}
}

// StatisticsResponse is the structure for the /api/statistics endpoint.
type StatisticsResponse struct {
	Since24h StatsDetail            `json:"since_24h"`
	AllTime  StatsDetail            `json:"all_time"`
	ByDay    map[string]StatsDetail `json:"by_day"`
}

// StatisticsHandler calculates and returns order statistics.
func (h *APIHandler) StatisticsHandler(w http.ResponseWriter, r *http.Request) {
	var allTrades []models.Trade
	if err := h.db.Find(&allTrades).Error; err != nil {
		h.log.Error("Failed to get trades for statistics", zap.Error(err))
		http.Error(w, "Failed to calculate statistics", http.StatusInternalServerError)
		return
	}

	since24h := h.now().Add(-24 * time.Hour)
	resp := StatisticsResponse{ByDay: map[string]StatsDetail{}}

	for _, trade := range allTrades {
		resp.AllTime.add(trade)
		if time.UnixMilli(trade.Timestamp).After(since24h) {
			resp.Since24h.add(trade)
		}
		day := resp.ByDay[trade.TradingDay]
		day.add(trade)
		resp.ByDay[trade.TradingDay] = day
	}

	resp.AllTime.finish()
	resp.Since24h.finish()
	for k, day := range resp.ByDay {
		day.finish()
		resp.ByDay[k] = day
	}

	h.writeJSON(w, resp)
}

// DaysHandler lists the trading days with a persisted record.
func (h *APIHandler) DaysHandler(w http.ResponseWriter, r *http.Request) {
	days, err := h.records.Days()
	if err != nil {
		h.log.Error("Failed to list trading days", zap.Error(err))
		http.Error(w, "Failed to list trading days", http.StatusInternalServerError)
		return
	}
	if days == nil {
		days = []string{}
	}
	h.writeJSON(w, days)
}

// LatestHoldingsHandler returns the most recent daily record.
func (h *APIHandler) LatestHoldingsHandler(w http.ResponseWriter, r *http.Request) {
	_, record, found, err := h.records.LoadLatest()
	if err != nil {
		h.log.Error("Failed to load latest record", zap.Error(err))
		http.Error(w, "Failed to load holdings", http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "No trading day recorded yet", http.StatusNotFound)
		return
	}
	h.writeJSON(w, record)
}

// HoldingsHandler returns the daily record for the date in the path.
func (h *APIHandler) HoldingsHandler(w http.ResponseWriter, r *http.Request) {
	date := mux.Vars(r)["date"]
	if _, err := time.Parse(models.DayLayout, date); err != nil {
		http.Error(w, "Invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	record, err := h.records.Load(date)
	if errors.Is(err, os.ErrNotExist) {
		http.Error(w, "No record for "+date, http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error("Failed to load record", zap.String("date", date), zap.Error(err))
		http.Error(w, "Failed to load holdings", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, record)
}
