// file: service/cache.go

package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go-employee-api/logger"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ICacheClient defines the subset of the Redis client the login throttle
// needs. *redis.Client satisfies it.
type ICacheClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// LoginThrottle counts failed logins per username in Redis. Once a username
// reaches maxFailures within window, further attempts are refused until the
// counter expires. Redis failures never block a login.
type LoginThrottle struct {
	cache       ICacheClient
	maxFailures int64
	window      time.Duration
}

func NewLoginThrottle(cache ICacheClient, maxFailures int64, window time.Duration) *LoginThrottle {
	return &LoginThrottle{cache: cache, maxFailures: maxFailures, window: window}
}

func throttleKey(username string) string {
	return fmt.Sprintf("login_failures:%s", strings.ToLower(username))
}

// Allowed reports whether username may attempt a login.
func (t *LoginThrottle) Allowed(ctx context.Context, username string) bool {
	val, err := t.cache.Get(ctx, throttleKey(username)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Log.WithError(err).WithField("username", username).Warn("Login throttle lookup failed, allowing attempt")
		}
		return true
	}

	failures, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return true
	}
	return failures < t.maxFailures
}

// RecordFailure increments the counter, starting the window on the first
// failure.
func (t *LoginThrottle) RecordFailure(ctx context.Context, username string) {
	key := throttleKey(username)
	log := logger.Log.WithFields(logrus.Fields{"username": username})

	n, err := t.cache.Incr(ctx, key).Result()
	if err != nil {
		log.WithError(err).Warn("Failed to record login failure")
		return
	}
	if n == 1 {
		if err := t.cache.Expire(ctx, key, t.window).Err(); err != nil {
			log.WithError(err).Warn("Failed to set login failure window")
		}
	}
	if n >= t.maxFailures {
		log.WithField("failures", n).Warn("Login attempts throttled")
	}
}

// Reset clears the counter after a successful login.
func (t *LoginThrottle) Reset(ctx context.Context, username string) {
	if err := t.cache.Del(ctx, throttleKey(username)).Err(); err != nil {
		logger.Log.WithError(err).WithField("username", username).Warn("Failed to reset login failures")
	}
}
