package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/duel/pkg/metrics"
)

// MetricsMiddleware records the request under endpoint and turns a handler
// panic into a 500 so one bad request cannot take the server down.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			if p := recover(); p != nil {
				if !rec.wroteHeader {
					writeError(rec, http.StatusInternalServerError, "internal_error", fmt.Errorf("panic: %v", p))
				}
				rec.status = http.StatusInternalServerError
			}
			ms := float64(time.Since(start).Microseconds()) / 1000
			metrics.RecordHTTPRequest(endpoint, r.Method, strconv.Itoa(rec.status), ms)
		}()

		next(rec, r)
	}
}

// statusRecorder remembers the status code written through it.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (rw *statusRecorder) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.status, rw.wroteHeader = code, true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

func (rw *statusRecorder) Unwrap() http.ResponseWriter { return rw.ResponseWriter }
