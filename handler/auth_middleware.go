package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"go-employee-api/common"
	"go-employee-api/model"
)

type contextKey string

const (
	UserIDKey   contextKey = "userID"
	UsernameKey contextKey = "username"
	UserRoleKey contextKey = "userRole"
)

// TokenValidator fully validates an access token, lifetime included.
type TokenValidator interface {
	Validate(token string) (*model.AppClaims, error)
}

// AuthMiddleware rejects requests without a valid bearer token and stores the
// token's identity in the request context.
func AuthMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				common.NewAppError(http.StatusUnauthorized, "Authorization header is required", nil).Send(w, r)
				return
			}

			headerParts := strings.Fields(authHeader)
			if len(headerParts) != 2 || !strings.EqualFold(headerParts[0], "bearer") {
				common.NewAppError(http.StatusUnauthorized, "Invalid authorization header format", nil).Send(w, r)
				return
			}

			claims, err := validator.Validate(headerParts[1])
			if err != nil {
				common.NewAppError(http.StatusUnauthorized, "Invalid or expired token", err).Send(w, r)
				return
			}

			userID, err := strconv.Atoi(claims.Subject)
			if err != nil || claims.Username == "" {
				common.NewAppError(http.StatusUnauthorized, "Invalid identity in token", err).Send(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			ctx = context.WithValue(ctx, UsernameKey, claims.Username)
			ctx = context.WithValue(ctx, UserRoleKey, claims.Role)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UsernameFromContext returns the authenticated username set by AuthMiddleware.
func UsernameFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(UsernameKey).(string)
	return username, ok && username != ""
}
