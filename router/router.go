package router

import (
	"net/http"

	_ "go-employee-api/docs"
	"go-employee-api/handler"
	"go-employee-api/metrics"

	httpSwagger "github.com/swaggo/http-swagger/v2"
)

// Dependencies are the pieces the router mounts. Auth and Validator are
// required; the rest may be nil.
type Dependencies struct {
	Auth      *handler.AuthHandler
	Health    *handler.HealthHandler
	Validator handler.TokenValidator
	Limiter   *handler.RateLimiter
	Metrics   http.Handler
	Recorder  metrics.Recorder
}

func NewRouter(deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	requireAuth := handler.AuthMiddleware(deps.Validator)
	limited := func(h http.Handler) http.Handler {
		if deps.Limiter == nil {
			return h
		}
		return deps.Limiter.Middleware(h)
	}

	auth := deps.Auth

	// v1
	mux.Handle("POST /api/v1/auth/register", limited(handler.ErrorHandlingMiddleware(auth.Register)))
	mux.Handle("POST /api/v1/auth/login", limited(handler.ErrorHandlingMiddleware(auth.Login)))
	mux.Handle("POST /api/v1/auth/refresh-token", limited(handler.ErrorHandlingMiddleware(auth.RefreshToken)))
	mux.Handle("POST /api/v1/auth/revoke", requireAuth(handler.ErrorHandlingMiddleware(auth.Revoke)))
	mux.Handle("GET /api/v1/auth/me", requireAuth(handler.ErrorHandlingMiddleware(auth.Me)))

	// v2
	mux.Handle("POST /api/v2/auth/register", limited(handler.ErrorHandlingMiddleware(auth.RegisterV2)))
	mux.Handle("POST /api/v2/auth/login", limited(handler.ErrorHandlingMiddleware(auth.LoginV2)))

	mux.HandleFunc("GET /health", deps.Health.HealthCheck)
	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics)
	}
	mux.Handle("GET /swagger/", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	return withMiddleware(mux, deps.Recorder)
}

// withMiddleware recovers panics inside the request log so that a recovered
// panic is still logged and counted as a 500.
func withMiddleware(h http.Handler, recorder metrics.Recorder) http.Handler {
	return handler.RequestLogging(recorder)(handler.Recovery(h))
}
