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
			Help: "Total number of AI requests by provider and operation",
		},
		[]string{"provider", "operation"},
	)
	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "AI request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"provider", "operation"},
	)

	InterviewTurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_turns_total",
			Help: "Total number of evaluated interview turns by decision",
		},
		[]string{"decision"},
	)
	RetrievalQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retrieval_queries_total",
			Help: "Total number of knowledge retrieval queries by outcome",
		},
		[]string{"outcome"},
	)

	// Outcome distributions
	TurnScoreHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "interview_turn_score",
			Help:    "Distribution of per-turn answer scores ([1,10])",
			Buckets: []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		},
	)
	ReportScoreHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "interview_report_score",
			Help:    "Distribution of final report scores ([0,100])",
			Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)
	QuizScoreHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quiz_score",
			Help:    "Distribution of quiz correct-answer fractions ([0,1])",
			Buckets: []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)
)

func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(AIRequestsTotal)
	prometheus.MustRegister(AIRequestDuration)
	prometheus.MustRegister(InterviewTurnsTotal)
	prometheus.MustRegister(RetrievalQueriesTotal)
	prometheus.MustRegister(TurnScoreHistogram)
	prometheus.MustRegister(ReportScoreHistogram)
	prometheus.MustRegister(QuizScoreHistogram)
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
			// fallback when route pattern is unavailable
			route = r.URL.Path
		}
		method := r.Method
		status := ww.Status()
		HTTPRequestsTotal.WithLabelValues(route, method, http.StatusText(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, method).Observe(dur)
	})
}

// ObserveTurn records the decision and score of an evaluated interview turn.
func ObserveTurn(decision string, score float64) {
	InterviewTurnsTotal.WithLabelValues(decision).Inc()
	if score >= 1 && score <= 10 {
		TurnScoreHistogram.Observe(score)
	}
}

// ObserveReport records the final score of a generated report.
func ObserveReport(score float64) {
	if score >= 0 && score <= 100 {
		ReportScoreHistogram.Observe(score)
	}
}

// ObserveQuiz records the correct-answer fraction of an evaluated quiz.
func ObserveQuiz(fraction float64) {
	if fraction >= 0 && fraction <= 1 {
		QuizScoreHistogram.Observe(fraction)
	}
}

// ObserveRetrieval records whether a knowledge retrieval query found hits.
func ObserveRetrieval(found bool) {
	outcome := "hit"
	if !found {
		outcome = "no_result"
	}
	RetrievalQueriesTotal.WithLabelValues(outcome).Inc()
}
