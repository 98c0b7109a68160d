package metrics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

type Collector struct {
	registry          *prometheus.Registry
	operationsTotal   *prometheus.CounterVec
	operationsFailed  *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	accountBalance    *prometheus.GaugeVec
	logger            *slog.Logger
}

func NewCollector(logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}

	registry := prometheus.NewRegistry()

	collector := &Collector{
		registry: registry,
		operationsTotal: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "bank_operations_total",
			Help: "Total number of ledger operations by kind",
		}, []string{"operation"}),
		operationsFailed: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "bank_operations_failed_total",
			Help: "Total number of rejected or failed operations by kind",
		}, []string{"operation"}),
		operationDuration: promauto.With(registry).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bank_operation_duration_seconds",
			Help:    "Operation latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		accountBalance: promauto.With(registry).NewGaugeVec(prometheus.GaugeOpts{
			Name: "bank_account_balance",
			Help: "Current balance per client account",
		}, []string{"account"}),
		logger: logger,
	}

	return collector
}

// RecordOperation counts one operation and observes its latency; failed
// operations are additionally counted in the failure series.
func (c *Collector) RecordOperation(operation string, duration time.Duration, success bool) {
	if c == nil {
		return
	}
	c.operationsTotal.WithLabelValues(operation).Inc()
	c.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if !success {
		c.operationsFailed.WithLabelValues(operation).Inc()
	}
}

func (c *Collector) SetAccountBalance(account string, balance decimal.Decimal) {
	if c == nil {
		return
	}
	f, _ := balance.Float64()
	c.accountBalance.WithLabelValues(account).Set(f)
}

func (c *Collector) RemoveAccount(account string) {
	if c == nil {
		return
	}
	c.accountBalance.DeleteLabelValues(account)
}

// StartMetricsServer exposes /metrics on its own listener and returns the
// server so the caller can shut it down.
func (c *Collector) StartMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		c.logger.Info("Metrics server listening", slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			c.logger.Error("Metrics server failed", slog.String("error", err.Error()))
		}
	}()

	return server
}
