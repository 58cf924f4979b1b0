package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go-employee-api/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

func TestAuthMiddleware(t *testing.T) {
	valid := &model.AppClaims{
		Username:         "alice",
		Role:             "admin",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "7"},
	}

	cases := []struct {
		name      string
		header    string
		validator stubValidator
		code      int
	}{
		{"missing header", "", stubValidator{claims: valid}, http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", stubValidator{claims: valid}, http.StatusUnauthorized},
		{"too many parts", "Bearer a b", stubValidator{claims: valid}, http.StatusUnauthorized},
		{"rejected token", "Bearer bad", stubValidator{err: errors.New("expired")}, http.StatusUnauthorized},
		{"non numeric subject", "Bearer tok", stubValidator{claims: &model.AppClaims{
			Username:         "alice",
			RegisteredClaims: jwt.RegisteredClaims{Subject: "alice"},
		}}, http.StatusUnauthorized},
		{"valid", "Bearer tok", stubValidator{claims: valid}, http.StatusOK},
		{"scheme is case insensitive", "bearer tok", stubValidator{claims: valid}, http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var gotUser, gotRole string
			var gotID int
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUser, _ = UsernameFromContext(r.Context())
				gotID, _ = r.Context().Value(UserIDKey).(int)
				gotRole, _ = r.Context().Value(UserRoleKey).(string)
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()

			AuthMiddleware(tc.validator)(next).ServeHTTP(rr, req)

			assert.Equal(t, tc.code, rr.Code)
			if tc.code == http.StatusOK {
				assert.Equal(t, "alice", gotUser)
				assert.Equal(t, 7, gotID)
				assert.Equal(t, "admin", gotRole)
			}
		})
	}
}
