// file: auth/jwt.go

package auth

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"go-employee-api/logger"
	"go-employee-api/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	DefaultTokenLifetime = 15 * time.Minute
	minSecretLength      = 32
)

// JWTSigner issues and validates HS256 access tokens for a single
// issuer/audience pair. It is immutable once constructed.
type JWTSigner struct {
	secret        []byte
	issuer        string
	audience      string
	tokenLifetime time.Duration
	leeway        time.Duration
	now           func() time.Time
}

// SignerOption configures JWTSigner behavior.
type SignerOption func(*JWTSigner)

// WithIssuer sets the iss claim written and required.
func WithIssuer(iss string) SignerOption {
	return func(s *JWTSigner) {
		s.issuer = iss
	}
}

// WithAudience sets the aud claim written and required.
func WithAudience(aud string) SignerOption {
	return func(s *JWTSigner) {
		s.audience = aud
	}
}

// WithTokenLifetime sets the exp offset from issue time.
func WithTokenLifetime(d time.Duration) SignerOption {
	return func(s *JWTSigner) {
		if d > 0 {
			s.tokenLifetime = d
		}
	}
}

// WithLeeway sets the clock skew tolerated when checking exp, nbf and iat.
// The default is zero.
func WithLeeway(d time.Duration) SignerOption {
	return func(s *JWTSigner) {
		if d >= 0 {
			s.leeway = d
		}
	}
}

// WithClock replaces the time source. Times are converted to UTC.
func WithClock(now func() time.Time) SignerOption {
	return func(s *JWTSigner) {
		if now != nil {
			s.now = now
		}
	}
}

func NewJWTSigner(secret []byte, opts ...SignerOption) (*JWTSigner, error) {
	if len(secret) < minSecretLength {
		return nil, ErrSecretTooShort
	}

	s := &JWTSigner{
		secret:        slices.Clone(secret),
		tokenLifetime: DefaultTokenLifetime,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *JWTSigner) Lifetime() time.Duration {
	return s.tokenLifetime
}

func (s *JWTSigner) clock() time.Time {
	return s.now().UTC()
}

// Issue signs an access token for user and returns it with its expiry.
func (s *JWTSigner) Issue(user *model.User) (string, time.Time, error) {
	issuedAt := s.clock()
	expiresAt := issuedAt.Add(s.tokenLifetime)

	claims := &model.AppClaims{
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.Itoa(user.ID),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	if s.audience != "" {
		claims.Audience = jwt.ClaimStrings{s.audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		logger.Log.WithError(err).WithField("username", user.Username).Error("Failed to sign JWT")
		return "", time.Time{}, fmt.Errorf("failed to sign token string: %w", err)
	}

	return tokenString, expiresAt, nil
}

func (s *JWTSigner) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return s.secret, nil
}

// Validate fully checks a token: signature, algorithm, issuer, audience and
// lifetime.
func (s *JWTSigner) Validate(tokenString string) (*model.AppClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(s.leeway),
		jwt.WithTimeFunc(s.clock),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	if s.audience != "" {
		opts = append(opts, jwt.WithAudience(s.audience))
	}

	claims := &model.AppClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, s.keyFunc, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateExpired checks signature, algorithm, issuer and audience but not
// lifetime. It recovers identity from a stale access token and must only be
// used by the refresh flow.
func (s *JWTSigner) ValidateExpired(tokenString string) (*model.AppClaims, error) {
	claims := &model.AppClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if s.issuer != "" && claims.Issuer != s.issuer {
		return nil, s.rejectExpired(claims, "issuer mismatch")
	}
	if s.audience != "" && !slices.Contains(claims.Audience, s.audience) {
		return nil, s.rejectExpired(claims, "audience mismatch")
	}
	if claims.Username == "" {
		return nil, s.rejectExpired(claims, "missing name claim")
	}

	return claims, nil
}

func (s *JWTSigner) rejectExpired(claims *model.AppClaims, reason string) error {
	logger.Log.WithFields(logrus.Fields{
		"issuer":   claims.Issuer,
		"audience": []string(claims.Audience),
		"reason":   reason,
	}).Warn("Rejected access token presented for refresh")
	return fmt.Errorf("%w: %w", ErrInvalidToken, errors.New(reason))
}
