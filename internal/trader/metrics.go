package trader

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Cycle outcomes, used as metric labels and on /status.
const (
	OutcomeExecuted       = "executed"
	OutcomeMarketClosed   = "skipped_market_closed"
	OutcomeAlreadyRan     = "skipped_already_ran"
	OutcomeStorageFailure = "failed_storage"
	OutcomeCancelled      = "cancelled"
)

// Metrics holds the engine's Prometheus collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	Cycles        *prometheus.CounterVec
	Orders        *prometheus.CounterVec
	Candidates    *prometheus.CounterVec
	Holdings      prometheus.Gauge
	Balance       prometheus.Gauge
	CycleDuration prometheus.Histogram
}

// NewMetrics creates and registers the engine collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fivepct_cycles_total",
				Help: "Trading cycle invocations by outcome",
			},
			[]string{"outcome"},
		),
		Orders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fivepct_orders_total",
				Help: "Order submissions by side and status",
			},
			[]string{"side", "status"},
		),
		Candidates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fivepct_candidates_total",
				Help: "Symbols proposed for trading by side",
			},
			[]string{"side"},
		),
		Holdings: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fivepct_holdings",
			Help: "Number of positions in the latest daily record",
		}),
		Balance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fivepct_account_balance",
			Help: "Last observed account cash balance",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fivepct_cycle_duration_seconds",
			Help:    "Duration of executed trading cycles",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
	}

	m.Registry.MustRegister(
		m.Cycles,
		m.Orders,
		m.Candidates,
		m.Holdings,
		m.Balance,
		m.CycleDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}
