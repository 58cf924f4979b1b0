// file: service/auth_service.go

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"go-employee-api/auth"
	"go-employee-api/common"
	"go-employee-api/logger"
	"go-employee-api/metrics"
	"go-employee-api/model"
	"go-employee-api/repository"

	"github.com/sirupsen/logrus"
)

const DefaultRefreshTokenTTL = 7 * 24 * time.Hour

// Outcome labels reported to metrics.
const (
	outcomeSuccess            = "success"
	outcomeInvalidInput       = "invalid_input"
	outcomeConflict           = "conflict"
	outcomeInvalidCredentials = "invalid_credentials"
	outcomeInvalidToken       = "invalid_token"
	outcomeNotFound           = "not_found"
	outcomeThrottled          = "throttled"
	outcomeError              = "error"
)

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// TokenSigner issues access tokens and recovers identity from possibly
// expired ones.
type TokenSigner interface {
	Issue(user *model.User) (string, time.Time, error)
	ValidateExpired(token string) (*model.AppClaims, error)
	Lifetime() time.Duration
}

// RefreshTokenGenerator produces opaque refresh tokens.
type RefreshTokenGenerator interface {
	Generate() (string, error)
}

// AuthService implements registration, login, refresh-token rotation and
// revocation. All failures are returned as one of the errors in errors.go;
// infrastructure causes are logged here and never leave the service.
type AuthService struct {
	repo          repository.IUserRepository
	hasher        PasswordHasher
	signer        TokenSigner
	bearerSigner  TokenSigner
	refreshTokens RefreshTokenGenerator
	throttle      *LoginThrottle
	metrics       metrics.Recorder
	refreshTTL    time.Duration
	now           func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

type AuthOption func(*AuthService)

// WithBearerSigner sets the signer used for the single-token v2 login.
func WithBearerSigner(signer TokenSigner) AuthOption {
	return func(s *AuthService) { s.bearerSigner = signer }
}

func WithLoginThrottle(t *LoginThrottle) AuthOption {
	return func(s *AuthService) { s.throttle = t }
}

func WithMetrics(r metrics.Recorder) AuthOption {
	return func(s *AuthService) {
		if r != nil {
			s.metrics = r
		}
	}
}

func WithRefreshTokenTTL(d time.Duration) AuthOption {
	return func(s *AuthService) {
		if d > 0 {
			s.refreshTTL = d
		}
	}
}

func WithClock(now func() time.Time) AuthOption {
	return func(s *AuthService) {
		if now != nil {
			s.now = now
		}
	}
}

func NewAuthService(repo repository.IUserRepository, hasher PasswordHasher, signer TokenSigner, refreshTokens RefreshTokenGenerator, opts ...AuthOption) *AuthService {
	s := &AuthService{
		repo:          repo,
		hasher:        hasher,
		signer:        signer,
		refreshTokens: refreshTokens,
		metrics:       metrics.Nop{},
		refreshTTL:    DefaultRefreshTokenTTL,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.bearerSigner == nil {
		s.bearerSigner = s.signer
	}
	return s
}

func (s *AuthService) clock() time.Time {
	return s.now().UTC()
}

func (s *AuthService) record(operation, outcome string) {
	s.metrics.RecordAuthOutcome(operation, outcome)
}

// internalFailure logs err with context and hides it behind ErrInfrastructure.
func (s *AuthService) internalFailure(operation string, log *logrus.Entry, msg string, err error) error {
	log.WithError(err).WithField("operation", operation).Error(msg)
	s.record(operation, outcomeError)
	return ErrInfrastructure
}

// Register creates a credential with no refresh token. No token is issued.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) error {
	const op = "register"
	log := logger.Log.WithField("username", req.Username)

	if err := common.Validate(&req); err != nil {
		s.record(op, outcomeInvalidInput)
		return &ValidationError{Reason: err.Error()}
	}

	exists, err := s.repo.ExistsByUsernameOrEmail(ctx, req.Username, req.Email)
	if err != nil {
		return s.internalFailure(op, log, "Failed to check for existing user", err)
	}
	if exists {
		s.record(op, outcomeConflict)
		return ErrConflict
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return s.internalFailure(op, log, "Failed to hash password", err)
	}

	role := req.Role
	if role == "" {
		role = model.RoleUser
	}

	user := &model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         string(role),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			s.record(op, outcomeConflict)
			return ErrConflict
		}
		return s.internalFailure(op, log, "Failed to create user", err)
	}

	log.WithField("user_id", user.ID).Info("User registered")
	s.record(op, outcomeSuccess)
	return nil
}

// Authenticate verifies the password and issues a new token pair. The new
// refresh token replaces whatever was stored before; concurrent logins for the
// same user leave the last writer's token in place.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*model.TokenPair, error) {
	const op = "login"
	log := logger.Log.WithField("username", username)

	user, err := s.verifyCredentials(ctx, op, username, password)
	if err != nil {
		return nil, err
	}

	pair, err := s.issueTokenPair(user)
	if err != nil {
		return nil, s.internalFailure(op, log, "Failed to issue token pair", err)
	}

	if err := s.repo.UpdateRefreshToken(ctx, user); err != nil {
		return nil, s.internalFailure(op, log, "Failed to persist refresh token", err)
	}

	log.WithField("user_id", user.ID).Info("User authenticated")
	s.record(op, outcomeSuccess)
	return pair, nil
}

// Refresh exchanges an access token (expired or not) and its current refresh
// token for a new pair. The stored refresh token is swapped only if it still
// holds the presented value, so each refresh token is usable once even under
// concurrent requests.
//
// Identity comes from the access token's name claim alone: any validly signed
// access token for the user, however old, is accepted alongside a live
// refresh token.
func (s *AuthService) Refresh(ctx context.Context, accessToken, refreshToken string) (*model.TokenPair, error) {
	const op = "refresh"

	claims, err := s.signer.ValidateExpired(accessToken)
	if err != nil {
		logger.Log.WithError(err).Warn("Refresh rejected: invalid access token")
		s.record(op, outcomeInvalidToken)
		return nil, ErrInvalidToken
	}

	log := logger.Log.WithField("username", claims.Username)

	user, err := s.repo.GetUserByUsername(ctx, claims.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.record(op, outcomeInvalidCredentials)
			return nil, ErrInvalidCredentials
		}
		return nil, s.internalFailure(op, log, "Failed to load user for refresh", err)
	}

	if !user.RefreshTokenActive(s.clock()) || !auth.MatchRefreshToken(*user.RefreshTokenHash, refreshToken) {
		log.Info("Refresh rejected: refresh token absent, expired or mismatched")
		s.record(op, outcomeInvalidCredentials)
		return nil, ErrInvalidCredentials
	}
	previousHash := *user.RefreshTokenHash

	pair, err := s.issueTokenPair(user)
	if err != nil {
		return nil, s.internalFailure(op, log, "Failed to issue token pair", err)
	}

	swapped, err := s.repo.RotateRefreshToken(ctx, user, previousHash)
	if err != nil {
		return nil, s.internalFailure(op, log, "Failed to rotate refresh token", err)
	}
	if !swapped {
		s.record(op, outcomeInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	log.WithField("user_id", user.ID).Info("Refresh token rotated")
	s.record(op, outcomeSuccess)
	return pair, nil
}

// Revoke clears the user's refresh token. Revoking an already revoked user
// succeeds.
func (s *AuthService) Revoke(ctx context.Context, username string) error {
	const op = "revoke"
	log := logger.Log.WithField("username", username)

	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.record(op, outcomeNotFound)
			return ErrNotFound
		}
		return s.internalFailure(op, log, "Failed to load user for revoke", err)
	}

	user.ClearRefreshToken()
	if err := s.repo.UpdateRefreshToken(ctx, user); err != nil {
		return s.internalFailure(op, log, "Failed to clear refresh token", err)
	}

	log.WithField("user_id", user.ID).Info("Refresh token revoked")
	s.record(op, outcomeSuccess)
	return nil
}

// GetUser returns the stored profile for username.
func (s *AuthService) GetUser(ctx context.Context, username string) (*model.User, error) {
	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, s.internalFailure("get_user", logger.Log.WithField("username", username), "Failed to load user", err)
	}
	return user, nil
}

// IssueBearerToken is the v2 login: one signed token with the role claim and
// a lifetime in hours, no refresh token and no change to stored state.
func (s *AuthService) IssueBearerToken(ctx context.Context, username, password string) (*model.BearerToken, error) {
	const op = "bearer_login"
	log := logger.Log.WithField("username", username)

	user, err := s.verifyCredentials(ctx, op, username, password)
	if err != nil {
		return nil, err
	}

	token, _, err := s.bearerSigner.Issue(user)
	if err != nil {
		return nil, s.internalFailure(op, log, "Failed to issue bearer token", err)
	}

	s.record(op, outcomeSuccess)
	return &model.BearerToken{Token: token, ExpiresIn: describeLifetime(s.bearerSigner.Lifetime())}, nil
}

// verifyCredentials returns ErrInvalidCredentials for an unknown user and for
// a wrong password alike. Unknown users still pay for a bcrypt comparison.
func (s *AuthService) verifyCredentials(ctx context.Context, op, username, password string) (*model.User, error) {
	log := logger.Log.WithField("username", username)

	if username == "" || password == "" {
		s.record(op, outcomeInvalidInput)
		return nil, &ValidationError{Reason: "username and password are required"}
	}

	if s.throttle != nil && !s.throttle.Allowed(ctx, username) {
		s.record(op, outcomeThrottled)
		return nil, ErrTooManyAttempts
	}

	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, s.internalFailure(op, log, "Failed to load user for login", err)
		}
		s.hasher.Verify(password, s.timingHash())
		return nil, s.rejectLogin(ctx, op, username)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, s.rejectLogin(ctx, op, username)
	}

	if s.throttle != nil {
		s.throttle.Reset(ctx, username)
	}
	return user, nil
}

func (s *AuthService) rejectLogin(ctx context.Context, op, username string) error {
	if s.throttle != nil {
		s.throttle.RecordFailure(ctx, username)
	}
	logger.Log.WithField("username", username).Info("Login rejected: invalid credentials")
	s.record(op, outcomeInvalidCredentials)
	return ErrInvalidCredentials
}

func (s *AuthService) timingHash() string {
	s.dummyOnce.Do(func() {
		if h, err := s.hasher.Hash("timing-equalization-password"); err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}

// issueTokenPair signs an access token, generates a refresh token and stores
// the refresh token's digest and expiry on user. It does not persist.
func (s *AuthService) issueTokenPair(user *model.User) (*model.TokenPair, error) {
	accessToken, _, err := s.signer.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	refreshToken, err := s.refreshTokens.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	user.SetRefreshToken(auth.HashRefreshToken(refreshToken), s.clock().Add(s.refreshTTL))

	return &model.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func describeLifetime(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	}
	return d.String()
}
