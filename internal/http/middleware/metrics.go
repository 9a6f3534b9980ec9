package middleware

import (
	"net/http"
	"strconv"
	"time"

	"bookmark-preview/internal/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

// statusRecorder remembers the status code written by the wrapped handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Metrics counts requests and responses for one route and times them.
// action names the route in the metric labels.
func Metrics(action string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.HttpRequests.With(prometheus.Labels{
			"action": action,
			"method": r.Method,
		}).Inc()

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		metrics.HttpResponses.With(prometheus.Labels{
			"action":     action,
			"method":     r.Method,
			"statusCode": strconv.Itoa(rec.status),
		}).Inc()
		metrics.HttpResponseTime.With(prometheus.Labels{
			"action": action,
			"method": r.Method,
		}).Observe(time.Since(start).Seconds())
	})
}
