package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPMetricsMiddleware_Basic(t *testing.T) {
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/x", nil)
	mw := HTTPMetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(204) }))
	mw.ServeHTTP(rec, r)
	if rec.Result().StatusCode != 204 {
		t.Fatalf("want 204")
	}
}

func TestOutcomeHelpers(t *testing.T) {
	InitMetrics()
	ObserveTurn("NEXT_QUESTION", 7)
	ObserveTurn("END", 11) // out-of-range score is dropped, counter still bumps
	ObserveReport(82)
	ObserveQuiz(0.6)
	ObserveRetrieval(true)
	ObserveRetrieval(false)
}
