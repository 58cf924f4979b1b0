package common

import (
	"encoding/json"
	"net/http"

	"go-employee-api/logger"

	"github.com/sirupsen/logrus"
)

// AppError is the JSON error body returned by every handler. Err holds the
// internal cause; it is logged but never serialized.
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Send logs the error and writes it as the response. Server errors are logged
// at error level, client errors carrying a cause at info.
func (e *AppError) Send(w http.ResponseWriter, r *http.Request) {
	if e.Err != nil {
		log := logger.Log.WithFields(logrus.Fields{
			"status_code":    e.Code,
			"internal_error": e.Err.Error(),
			"method":         r.Method,
			"path":           r.URL.Path,
			"request_id":     w.Header().Get(RequestIDHeader),
		})
		if e.Code >= http.StatusInternalServerError {
			log.Error(e.Message)
		} else {
			log.Info(e.Message)
		}
	}

	WriteJSON(w, e.Code, e)
}

// RequestIDHeader carries the per-request correlation ID.
const RequestIDHeader = "X-Request-ID"

// WriteJSON writes payload with the given status.
func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Log.WithError(err).Warn("Failed to encode response body")
	}
}
