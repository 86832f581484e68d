package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	callTotal       *prometheus.CounterVec
	callDuration    *prometheus.HistogramVec
	admissionDenied *prometheus.CounterVec

	tokensTotal  prometheus.Counter
	costTotal    prometheus.Counter
	callsRemain  prometheus.Gauge
	budgetRemain prometheus.Gauge
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			callTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "agent_call_total",
					Help: "Total agent calls by persona and status.",
				},
				[]string{"persona", "status"},
			),
			callDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "agent_call_duration_seconds",
					Help:    "Agent call duration in seconds by persona.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"persona"},
			),
			admissionDenied: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "agent_admission_denied_total",
					Help: "Calls denied before dispatch, by gate (rate, budget).",
				},
				[]string{"gate"},
			),
			tokensTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "agent_tokens_total",
					Help: "Total tokens consumed across all calls.",
				},
			),
			costTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "agent_cost_usd_total",
					Help: "Total accrued cost in USD across all calls.",
				},
			),
			callsRemain: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "agent_calls_remaining_today",
					Help: "Calls left in today's budget.",
				},
			),
			budgetRemain: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "agent_budget_remaining_usd",
					Help: "USD left under today's cost cap.",
				},
			),
		}

		prometheus.MustRegister(
			m.callTotal,
			m.callDuration,
			m.admissionDenied,
			m.tokensTotal,
			m.costTotal,
			m.callsRemain,
			m.budgetRemain,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

// MetricsHandler exposes the process metrics over HTTP.
func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

// RecordCall books one completed call, successful or not.
func RecordCall(persona string, duration time.Duration, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.callTotal.WithLabelValues(persona, status).Inc()
	m.callDuration.WithLabelValues(persona).Observe(duration.Seconds())
}

// RecordDenial counts a call turned away by an admission gate.
func RecordDenial(gate string) {
	getMetrics().admissionDenied.WithLabelValues(gate).Inc()
}

// RecordUsage accumulates token and cost consumption.
func RecordUsage(tokens int, costUSD float64) {
	m := getMetrics()
	m.tokensTotal.Add(float64(tokens))
	m.costTotal.Add(costUSD)
}

// SetBudgetRemaining reflects the tracker's current headroom.
func SetBudgetRemaining(callsRemaining int, costRemainingUSD float64) {
	m := getMetrics()
	m.callsRemain.Set(float64(callsRemaining))
	m.budgetRemain.Set(costRemainingUSD)
}
