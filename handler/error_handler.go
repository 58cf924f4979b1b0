package handler

import (
	"go-employee-api/common"
	"net/http"
)

// ErrorHandlingMiddleware adapts a handler that returns *common.AppError into
// an http.HandlerFunc, sending the error when one is returned.
func ErrorHandlingMiddleware(next func(http.ResponseWriter, *http.Request) *common.AppError) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := next(w, r); err != nil {
			err.Send(w, r)
		}
	}
}
