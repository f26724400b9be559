package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rollcall/rollcall/pkg/metrics"
)

// instrument wraps a handler to record request count and duration under a
// stable endpoint name.
func instrument(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		metrics.RecordHTTPRequest(endpoint, r.Method, strconv.Itoa(wrapped.status))
		metrics.RecordHTTPRequestDuration(endpoint, r.Method,
			float64(time.Since(start).Milliseconds()))
	}
}

// statusRecorder captures the response status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}
