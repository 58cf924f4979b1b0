package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go-employee-api/common"
	"go-employee-api/model"
	"go-employee-api/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func serve(h func(http.ResponseWriter, *http.Request) *common.AppError, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	ErrorHandlingMiddleware(h)(rr, req)
	return rr
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func withUsername(req *http.Request, username string) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), UsernameKey, username))
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) common.AppError {
	t.Helper()
	var body common.AppError
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestMapAuthError(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{"validation", &service.ValidationError{Reason: "username is required"}, http.StatusBadRequest, "username is required"},
		{"conflict", service.ErrConflict, http.StatusBadRequest, "Username or email already exists"},
		{"invalid credentials", service.ErrInvalidCredentials, http.StatusUnauthorized, "nope"},
		{"invalid token", fmt.Errorf("refresh: %w", service.ErrInvalidToken), http.StatusUnauthorized, "nope"},
		{"not found", service.ErrNotFound, http.StatusNotFound, "User not found"},
		{"throttled", service.ErrTooManyAttempts, http.StatusTooManyRequests, "Too many failed login attempts, try again later"},
		{"infrastructure", service.ErrInfrastructure, http.StatusInternalServerError, "Internal error while processing the request"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			appErr := mapAuthError(tc.err, "nope")
			assert.Equal(t, tc.code, appErr.Code)
			assert.Equal(t, tc.message, appErr.Message)
		})
	}
}

func TestAuthHandler_Register(t *testing.T) {
	body := `{"username":"alice","email":"a@x.com","password":"secret1","confirm_password":"secret1","role":"admin"}`

	t.Run("success ignores role", func(t *testing.T) {
		svc := new(mockAuthenticator)
		expected := model.RegisterRequest{
			Username:        "alice",
			Email:           "a@x.com",
			Password:        "secret1",
			ConfirmPassword: "secret1",
		}
		svc.On("Register", mock.Anything, expected).Return(nil).Once()

		rr := serve(NewAuthHandler(svc).Register, jsonRequest(http.MethodPost, "/api/v1/auth/register", body))

		assert.Equal(t, http.StatusCreated, rr.Code)
		assert.JSONEq(t, `{"message":"User registered successfully"}`, rr.Body.String())
		svc.AssertExpectations(t)
	})

	t.Run("duplicate", func(t *testing.T) {
		svc := new(mockAuthenticator)
		svc.On("Register", mock.Anything, mock.Anything).Return(service.ErrConflict).Once()

		rr := serve(NewAuthHandler(svc).Register, jsonRequest(http.MethodPost, "/api/v1/auth/register", body))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "Username or email already exists", decodeError(t, rr).Message)
	})

	t.Run("password mismatch never reaches the service", func(t *testing.T) {
		svc := new(mockAuthenticator)
		mismatch := `{"username":"alice","password":"secret1","confirm_password":"other12"}`

		rr := serve(NewAuthHandler(svc).Register, jsonRequest(http.MethodPost, "/api/v1/auth/register", mismatch))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		svc.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
	})

	t.Run("malformed json", func(t *testing.T) {
		svc := new(mockAuthenticator)

		rr := serve(NewAuthHandler(svc).Register, jsonRequest(http.MethodPost, "/api/v1/auth/register", `{"username":`))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "Invalid request body", decodeError(t, rr).Message)
	})

	t.Run("storage failure hides the cause", func(t *testing.T) {
		svc := new(mockAuthenticator)
		svc.On("Register", mock.Anything, mock.Anything).Return(fmt.Errorf("%w: connection reset", service.ErrInfrastructure)).Once()

		rr := serve(NewAuthHandler(svc).Register, jsonRequest(http.MethodPost, "/api/v1/auth/register", body))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.NotContains(t, rr.Body.String(), "connection reset")
	})
}

func TestAuthHandler_Login(t *testing.T) {
	body := `{"username":"alice","password":"secret1"}`

	t.Run("success", func(t *testing.T) {
		svc := new(mockAuthenticator)
		svc.On("Authenticate", mock.Anything, "alice", "secret1").
			Return(&model.TokenPair{AccessToken: "a.b.c", RefreshToken: "r"}, nil).Once()

		rr := serve(NewAuthHandler(svc).Login, jsonRequest(http.MethodPost, "/api/v1/auth/login", body))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"access_token":"a.b.c","refresh_token":"r"}`, rr.Body.String())
	})

	t.Run("bad credentials", func(t *testing.T) {
		svc := new(mockAuthenticator)
		svc.On("Authenticate", mock.Anything, "alice", "secret1").Return(nil, service.ErrInvalidCredentials).Once()

		rr := serve(NewAuthHandler(svc).Login, jsonRequest(http.MethodPost, "/api/v1/auth/login", body))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, "Invalid username or password", decodeError(t, rr).Message)
	})

	t.Run("throttled", func(t *testing.T) {
		svc := new(mockAuthenticator)
		svc.On("Authenticate", mock.Anything, "alice", "secret1").Return(nil, service.ErrTooManyAttempts).Once()

		rr := serve(NewAuthHandler(svc).Login, jsonRequest(http.MethodPost, "/api/v1/auth/login", body))

		assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	})

	t.Run("missing password", func(t *testing.T) {
		svc := new(mockAuthenticator)

		rr := serve(NewAuthHandler(svc).Login, jsonRequest(http.MethodPost, "/api/v1/auth/login", `{"username":"alice"}`))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		svc.AssertNotCalled(t, "Authenticate", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestAuthHandler_RefreshToken(t *testing.T) {
	body := `{"access_token":"old.jwt.token","refresh_token":"refresh"}`

	t.Run("success", func(t *testing.T) {
		svc := new(mockAuthenticator)
		svc.On("Refresh", mock.Anything, "old.jwt.token", "refresh").
			Return(&model.TokenPair{AccessToken: "new.jwt.token", RefreshToken: "next"}, nil).Once()

		rr := serve(NewAuthHandler(svc).RefreshToken, jsonRequest(http.MethodPost, "/api/v1/auth/refresh-token", body))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"access_token":"new.jwt.token","refresh_token":"next"}`, rr.Body.String())
	})

	for name, err := range map[string]error{
		"invalid access token":  service.ErrInvalidToken,
		"invalid refresh token": service.ErrInvalidCredentials,
	} {
		t.Run(name, func(t *testing.T) {
			svc := new(mockAuthenticator)
			svc.On("Refresh", mock.Anything, "old.jwt.token", "refresh").Return(nil, err).Once()

			rr := serve(NewAuthHandler(svc).RefreshToken, jsonRequest(http.MethodPost, "/api/v1/auth/refresh-token", body))

			assert.Equal(t, http.StatusUnauthorized, rr.Code)
			assert.Equal(t, "Invalid or expired token", decodeError(t, rr).Message)
		})
	}

	t.Run("missing refresh token", func(t *testing.T) {
		svc := new(mockAuthenticator)

		rr := serve(NewAuthHandler(svc).RefreshToken, jsonRequest(http.MethodPost, "/api/v1/auth/refresh-token", `{"access_token":"x"}`))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestAuthHandler_Revoke(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := new(mockAuthenticator)
		svc.On("Revoke", mock.Anything, "alice").Return(nil).Once()

		req := withUsername(httptest.NewRequest(http.MethodPost, "/api/v1/auth/revoke", nil), "alice")
		rr := serve(NewAuthHandler(svc).Revoke, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"message":"Token revoked successfully"}`, rr.Body.String())
		svc.AssertExpectations(t)
	})

	t.Run("unknown user", func(t *testing.T) {
		svc := new(mockAuthenticator)
		svc.On("Revoke", mock.Anything, "ghost").Return(service.ErrNotFound).Once()

		req := withUsername(httptest.NewRequest(http.MethodPost, "/api/v1/auth/revoke", nil), "ghost")
		rr := serve(NewAuthHandler(svc).Revoke, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("no identity in context", func(t *testing.T) {
		svc := new(mockAuthenticator)

		rr := serve(NewAuthHandler(svc).Revoke, httptest.NewRequest(http.MethodPost, "/api/v1/auth/revoke", nil))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		svc.AssertNotCalled(t, "Revoke", mock.Anything, mock.Anything)
	})
}

func TestAuthHandler_Me(t *testing.T) {
	svc := new(mockAuthenticator)
	hash := "digest"
	user := &model.User{ID: 7, Username: "alice", Email: "a@x.com", PasswordHash: "$2a$secret", Role: "user"}
	user.RefreshTokenHash = &hash
	svc.On("GetUser", mock.Anything, "alice").Return(user, nil).Once()

	req := withUsername(httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil), "alice")
	rr := serve(NewAuthHandler(svc).Me, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "$2a$secret")
	assert.NotContains(t, rr.Body.String(), "digest")

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "alice", body["username"])
	assert.Equal(t, "user", body["role"])
}

func TestAuthHandler_RegisterV2(t *testing.T) {
	body := `{"username":"root","password":"secret1","confirm_password":"secret1","role":"admin"}`

	t.Run("role is kept", func(t *testing.T) {
		svc := new(mockAuthenticator)
		svc.On("Register", mock.Anything, mock.MatchedBy(func(req model.RegisterRequest) bool {
			return req.Role == model.RoleAdmin
		})).Return(nil).Once()

		rr := serve(NewAuthHandler(svc).RegisterV2, jsonRequest(http.MethodPost, "/api/v2/auth/register", body))

		assert.Equal(t, http.StatusCreated, rr.Code)
		svc.AssertExpectations(t)
	})

	t.Run("conflict is 409", func(t *testing.T) {
		svc := new(mockAuthenticator)
		svc.On("Register", mock.Anything, mock.Anything).Return(service.ErrConflict).Once()

		rr := serve(NewAuthHandler(svc).RegisterV2, jsonRequest(http.MethodPost, "/api/v2/auth/register", body))

		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("unknown role", func(t *testing.T) {
		svc := new(mockAuthenticator)
		bad := `{"username":"root","password":"secret1","confirm_password":"secret1","role":"owner"}`

		rr := serve(NewAuthHandler(svc).RegisterV2, jsonRequest(http.MethodPost, "/api/v2/auth/register", bad))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		svc.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
	})
}

func TestAuthHandler_LoginV2(t *testing.T) {
	body := `{"username":"alice","password":"secret1"}`

	t.Run("success", func(t *testing.T) {
		svc := new(mockAuthenticator)
		svc.On("IssueBearerToken", mock.Anything, "alice", "secret1").
			Return(&model.BearerToken{Token: "a.b.c", ExpiresIn: "8 hours"}, nil).Once()

		rr := serve(NewAuthHandler(svc).LoginV2, jsonRequest(http.MethodPost, "/api/v2/auth/login", body))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"token":"a.b.c","expires_in":"8 hours"}`, rr.Body.String())
	})

	t.Run("failure", func(t *testing.T) {
		svc := new(mockAuthenticator)
		svc.On("IssueBearerToken", mock.Anything, "alice", "secret1").Return(nil, service.ErrInvalidCredentials).Once()

		rr := serve(NewAuthHandler(svc).LoginV2, jsonRequest(http.MethodPost, "/api/v2/auth/login", body))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, "Invalid credentials", decodeError(t, rr).Message)
	})
}
