package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func limitedRequest(remoteAddr string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	req.RemoteAddr = remoteAddr
	return req
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(0.5, 2, time.Minute)
	defer rl.Stop()

	calls := 0
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, limitedRequest("10.0.0.1:5000"))
		assert.Equal(t, http.StatusOK, rr.Code, "request %d within burst", i)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, limitedRequest("10.0.0.1:5001"))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code, "same IP on another port shares the bucket")
	assert.Equal(t, "2", rr.Header().Get("Retry-After"))

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, limitedRequest("10.0.0.2:5000"))
	assert.Equal(t, http.StatusOK, rr.Code, "other clients are unaffected")

	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, rl.ClientCount())
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(1, 1, time.Minute)
	defer rl.Stop()

	rl.limiterFor("10.0.0.1")
	rl.cleanup(time.Now().Add(time.Minute))
	assert.Equal(t, 1, rl.ClientCount(), "recent clients are kept")

	rl.cleanup(time.Now().Add(3 * time.Minute))
	assert.Equal(t, 0, rl.ClientCount())
}

func TestRateLimiter_StopTwice(t *testing.T) {
	rl := NewRateLimiter(1, 1, time.Minute)
	rl.Stop()
	assert.NotPanics(t, rl.Stop)
}

func TestClientIP(t *testing.T) {
	assert.Equal(t, "192.0.2.1", clientIP(limitedRequest("192.0.2.1:1234")))
	assert.Equal(t, "::1", clientIP(limitedRequest("[::1]:80")))
	assert.Equal(t, "garbage", clientIP(limitedRequest("garbage")))
}
