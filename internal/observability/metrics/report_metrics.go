package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/billingpulse/internal/provider/domain"
)

const (
	OutcomeOK               = "ok"
	OutcomeNotFound         = "not_found"
	OutcomeValidation       = "validation"
	OutcomeUnavailable      = "unavailable"
	OutcomeCanceled         = "canceled"
	OutcomeDeadlineExceeded = "deadline_exceeded"
	OutcomeUnknown          = "unknown"
)

const (
	ReportDashboard = "dashboard"
	ReportOverdue   = "overdue"
	ReportPeriod    = "period"
	ReportActivity  = "recent_activity"
)

// ReportMetrics exposes provider and report health on the Prometheus registry.
type ReportMetrics struct {
	providerCalls    *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
	degraded         *prometheus.CounterVec
	truncated        *prometheus.CounterVec
	customerLookups  prometheus.Counter
	duplicateWrites  prometheus.Counter
}

var (
	reportMetricsOnce sync.Once
	reportMetrics     *ReportMetrics
)

// Reports returns the process-wide report metrics registered on the default registry.
func Reports() *ReportMetrics {
	return ReportsWithConfig(Config{})
}

func ReportsWithConfig(cfg Config) *ReportMetrics {
	reportMetricsOnce.Do(func() {
		reportMetrics = NewReportMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return reportMetrics
}

// NewReportMetrics registers a fresh set of collectors on registerer.
func NewReportMetrics(registerer prometheus.Registerer, cfg Config) *ReportMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "billingpulse"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &ReportMetrics{
		providerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "billingpulse_provider_calls_total",
			Help:        "Billing provider calls by operation and outcome.",
			ConstLabels: constLabels,
		}, []string{"provider", "op", "outcome"}),
		providerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "billingpulse_provider_call_duration_seconds",
			Help:        "Billing provider call latency.",
			Buckets:     []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30},
			ConstLabels: constLabels,
		}, []string{"provider", "op"}),
		degraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "billingpulse_report_degraded_total",
			Help:        "Reports served as zeros because a provider fetch failed.",
			ConstLabels: constLabels,
		}, []string{"report"}),
		truncated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "billingpulse_report_truncated_total",
			Help:        "Reports computed from a page smaller than the provider total.",
			ConstLabels: constLabels,
		}, []string{"report"}),
		customerLookups: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "billingpulse_overdue_customer_lookups_total",
			Help:        "Distinct customer lookups issued while resolving overdue reports.",
			ConstLabels: constLabels,
		}),
		duplicateWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "billingpulse_duplicate_writes_rejected_total",
			Help:        "Boleto requests rejected because the idempotency key was in use.",
			ConstLabels: constLabels,
		}),
	}

	registerer.MustRegister(
		m.providerCalls,
		m.providerDuration,
		m.degraded,
		m.truncated,
		m.customerLookups,
		m.duplicateWrites,
	)
	return m
}

// ObserveProviderCall records one provider call with its classified outcome.
func (m *ReportMetrics) ObserveProviderCall(provider, op string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.providerCalls.WithLabelValues(provider, op, ClassifyProviderError(err)).Inc()
	m.providerDuration.WithLabelValues(provider, op).Observe(duration.Seconds())
}

func (m *ReportMetrics) IncDegraded(report string) {
	if m == nil {
		return
	}
	m.degraded.WithLabelValues(report).Inc()
}

func (m *ReportMetrics) IncTruncated(report string) {
	if m == nil {
		return
	}
	m.truncated.WithLabelValues(report).Inc()
}

func (m *ReportMetrics) AddCustomerLookups(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.customerLookups.Add(float64(n))
}

func (m *ReportMetrics) IncDuplicateWrite() {
	if m == nil {
		return
	}
	m.duplicateWrites.Inc()
}

// ClassifyProviderError maps a provider error onto a low-cardinality outcome label.
func ClassifyProviderError(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, context.Canceled):
		return OutcomeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return OutcomeDeadlineExceeded
	case errors.Is(err, domain.ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, domain.ErrValidation):
		return OutcomeValidation
	case errors.Is(err, domain.ErrProviderUnavailable):
		return OutcomeUnavailable
	default:
		return OutcomeUnknown
	}
}
