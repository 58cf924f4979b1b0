package handler

import (
	"net/http"
	"runtime/debug"
	"time"

	"go-employee-api/common"
	"go-employee-api/logger"
	"go-employee-api/metrics"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.statusCode = code
		sr.written = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.written {
		sr.statusCode = http.StatusOK
		sr.written = true
	}
	return sr.ResponseWriter.Write(b)
}

// maxRequestIDLength bounds client-supplied request IDs before they reach the logs.
const maxRequestIDLength = 64

// RequestLogging assigns every request an ID, logs one line per request and
// counts the response status.
func RequestLogging(recorder metrics.Recorder) func(http.Handler) http.Handler {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get(common.RequestIDHeader)
			if requestID == "" || len(requestID) > maxRequestIDLength {
				requestID = uuid.NewString()
			}
			w.Header().Set(common.RequestIDHeader, requestID)

			rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)

			recorder.RecordHTTPStatus(rec.statusCode)

			entry := logger.Log.WithFields(logrus.Fields{
				"request_id":  requestID,
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      rec.statusCode,
				"duration_ms": float64(time.Since(start).Microseconds()) / 1000,
				"remote_addr": r.RemoteAddr,
			})

			switch {
			case rec.statusCode >= http.StatusInternalServerError:
				entry.Error("http_request")
			case rec.statusCode >= http.StatusBadRequest:
				entry.Warn("http_request")
			default:
				entry.Info("http_request")
			}
		})
	}
}

// Recovery turns a panic in a handler into a 500 response.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Log.WithFields(logrus.Fields{
					"panic":  rec,
					"method": r.Method,
					"path":   r.URL.Path,
					"stack":  string(debug.Stack()),
				}).Error("Panic recovered")
				common.WriteJSON(w, http.StatusInternalServerError,
					common.NewAppError(http.StatusInternalServerError, "Internal server error", nil))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
