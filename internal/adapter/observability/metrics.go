// Package observability provides logging, metrics, and tracing.
package observability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of understanding-backend requests by task and outcome",
		},
		[]string{"task", "outcome"},
	)
	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "Understanding-backend request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"task"},
	)

	TurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_turns_total",
			Help: "Total number of processed inbound turns by stage",
		},
		[]string{"stage"},
	)
	TurnDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "interview_turn_duration_seconds",
			Help:    "End-to-end turn handling duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"stage"},
	)
	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "interview_sessions_active",
			Help: "Number of interview sessions currently in progress",
		},
	)
	InterviewsCompletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "interviews_completed_total",
			Help: "Total number of interviews that reached completion",
		},
	)

	// Final score distribution across completed interviews.
	QualificationScoreHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "interview_qualification_score",
			Help:    "Distribution of qualification scores (0-100)",
			Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)
)

// InitMetrics registers all Prometheus collectors. Call once per process.
func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(AIRequestsTotal)
	prometheus.MustRegister(AIRequestDuration)
	prometheus.MustRegister(TurnsTotal)
	prometheus.MustRegister(TurnDuration)
	prometheus.MustRegister(SessionsActive)
	prometheus.MustRegister(InterviewsCompletedTotal)
	prometheus.MustRegister(QualificationScoreHistogram)
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		method := r.Method
		status := ww.Status()
		HTTPRequestsTotal.WithLabelValues(route, method, http.StatusText(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, method).Observe(dur)
	})
}

// ObserveAICall records one understanding-backend round trip.
func ObserveAICall(task, outcome string, dur time.Duration) {
	AIRequestsTotal.WithLabelValues(task, outcome).Inc()
	AIRequestDuration.WithLabelValues(task).Observe(dur.Seconds())
}

// ObserveTurn records one handled inbound turn for a stage.
func ObserveTurn(stage string, dur time.Duration) {
	TurnsTotal.WithLabelValues(stage).Inc()
	TurnDuration.WithLabelValues(stage).Observe(dur.Seconds())
}

// SessionStarted and SessionEnded track the active-session gauge.
func SessionStarted() { SessionsActive.Inc() }

// SessionEnded decrements the gauge; completed runs also record the score.
func SessionEnded() { SessionsActive.Dec() }

// ObserveCompletion records a finished interview and its final score when one
// was computable.
func ObserveCompletion(score float64, scored bool) {
	InterviewsCompletedTotal.Inc()
	if scored && score >= 0 && score <= 100 {
		QualificationScoreHistogram.Observe(score)
	}
}
