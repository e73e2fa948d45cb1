package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/seedlane/outreach/internal/usecase"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	emailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_emails_sent_total",
			Help: "Total number of outreach emails dispatched",
		},
		[]string{"step"},
	)

	repliesDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outreach_replies_detected_total",
			Help: "Total number of lead replies detected",
		},
	)

	cycleRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_cycle_runs_total",
			Help: "Total number of send cycles executed",
		},
		[]string{"result"},
	)

	quotaReached = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outreach_daily_quota_reached_total",
			Help: "Number of cycles that hit the daily send quota",
		},
	)

	integrationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "integration_errors_total",
			Help: "Total number of integration errors",
		},
		[]string{"service"},
	)
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.statusCode)

		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
	})
}

func RecordCycleRun(result string) {
	cycleRuns.WithLabelValues(result).Inc()
}

// RecordCycleOutcome converte o resumo de um ciclo em contadores.
func RecordCycleOutcome(summary *usecase.CycleSummary) {
	if summary.NewSent > 0 {
		emailsSent.WithLabelValues("1").Add(float64(summary.NewSent))
	}
	// Follow-ups agregados: o resumo não distingue step 2 de 3.
	if summary.FollowupsSent > 0 {
		emailsSent.WithLabelValues("followup").Add(float64(summary.FollowupsSent))
	}
	if len(summary.Replied) > 0 {
		repliesDetected.Add(float64(len(summary.Replied)))
	}
	if summary.DailyLimitReached {
		quotaReached.Inc()
	}
}

func RecordIntegrationError(service string) {
	integrationErrors.WithLabelValues(service).Inc()
}
