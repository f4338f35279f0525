package metrics

import (
	"errors"
	"strconv"
	"time"

	"stockvel-tracker/internal/core/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector exposed on /metrics
var Registry = prometheus.NewRegistry()

var (
	// EngineComputations counts successful engine calls by operation
	EngineComputations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stockvel",
		Name:      "engine_computations_total",
		Help:      "Financial computations performed, by operation.",
	}, []string{"operation"})

	// EngineErrors counts rejected engine calls by operation and error kind
	EngineErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stockvel",
		Name:      "engine_errors_total",
		Help:      "Financial computations rejected, by operation and error kind.",
	}, []string{"operation", "kind"})

	// LoanTransitions counts loan status changes by target status
	LoanTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stockvel",
		Name:      "loan_transitions_total",
		Help:      "Loan status transitions, by new status.",
	}, []string{"status"})

	// ContributionsRecorded counts contribution payments by payment method
	ContributionsRecorded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stockvel",
		Name:      "contributions_recorded_total",
		Help:      "Contribution payments recorded, by payment method.",
	}, []string{"method"})

	// PeriodRowsOpened counts contribution rows created when a period opens
	PeriodRowsOpened = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "stockvel",
		Name:      "period_rows_opened_total",
		Help:      "Contribution rows created by period opening.",
	})

	// RiskDrift is the number of members whose stored level differs from the computed one
	RiskDrift = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "stockvel",
		Name:      "risk_drift_members",
		Help:      "Members whose stored risk level differs from the computed level at the last snapshot.",
	})

	// CronRuns counts background job executions by job and result
	CronRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stockvel",
		Name:      "cron_runs_total",
		Help:      "Background job runs, by job and result.",
	}, []string{"job", "result"})

	// HTTPRequests counts handled requests
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stockvel",
		Name:      "http_requests_total",
		Help:      "HTTP requests handled, by method, route and status.",
	}, []string{"method", "route", "status"})

	// HTTPDuration observes request latency
	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "stockvel",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency, by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		EngineComputations,
		EngineErrors,
		LoanTransitions,
		ContributionsRecorded,
		PeriodRowsOpened,
		RiskDrift,
		CronRuns,
		HTTPRequests,
		HTTPDuration,
	)
}

// Handler exposes the registry for fiber
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}))
}

// Middleware records request count and latency per matched route
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		route := c.Route().Path
		status := c.Response().StatusCode()
		if err != nil {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}

		HTTPRequests.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		HTTPDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

// Observe records the outcome of an engine operation
func Observe(operation string, err error) {
	if err == nil {
		EngineComputations.WithLabelValues(operation).Inc()
		return
	}
	EngineErrors.WithLabelValues(operation, ErrorKind(err)).Inc()
}

// ErrorKind classifies engine errors into a small label set
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidPrincipal):
		return "invalid_principal"
	case errors.Is(err, domain.ErrInvalidTerm):
		return "invalid_term"
	case errors.Is(err, domain.ErrInconsistentLedger):
		return "inconsistent_ledger"
	case errors.Is(err, domain.ErrNegativePool):
		return "negative_pool"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	default:
		return "other"
	}
}
