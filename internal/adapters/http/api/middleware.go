package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/okian/quizboard/pkg/metrics"
)

// MetricsMiddleware records request count, latency and failures for one endpoint.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		metrics.RecordHTTPRequest(endpoint, r.Method, rec.status)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, rec.status, float64(time.Since(start).Milliseconds()))
		if rec.status >= http.StatusBadRequest {
			metrics.RecordError("http", failureKind(rec.status))
		}
	}
}

// failureKind buckets an error status into a low-cardinality label.
func failureKind(status int) string {
	switch status {
	case http.StatusServiceUnavailable:
		return "not_ready"
	case http.StatusBadGateway:
		return "refresh_failed"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method"
	}
	if status >= http.StatusInternalServerError {
		return "server_error"
	}
	return "client_error"
}

// statusRecorder remembers the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}
