package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go-employee-api/logger"
	"go-employee-api/model"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// ErrDuplicateUser is returned by CreateUser when the username or email
// unique constraint rejects the insert.
var ErrDuplicateUser = errors.New("username or email already exists")

const uniqueViolation = "23505"

// IUserRepository defines the contract for credential storage. Lookups
// return sql.ErrNoRows when the user does not exist.
type IUserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	UpdateRefreshToken(ctx context.Context, user *model.User) error
	RotateRefreshToken(ctx context.Context, user *model.User, previousHash string) (bool, error)
}

// UserRepository implements IUserRepository on PostgreSQL.
type UserRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{DB: db}
}

// CreateUser inserts a credential with empty refresh-token state.
func (r *UserRepository) CreateUser(ctx context.Context, user *model.User) error {
	log := logger.Log.WithFields(logrus.Fields{
		"username": user.Username,
		"role":     user.Role,
	})
	log.Info("Executing query to create a new user")

	query := `INSERT INTO users (username, email, password_hash, role) VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	err := r.DB.QueryRowContext(ctx, query, user.Username, nullString(user.Email), user.PasswordHash, user.Role).
		Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			log.WithField("constraint", pqErr.Constraint).Info("User insert rejected by unique constraint")
			return ErrDuplicateUser
		}
		log.WithError(err).Error("Failed to execute create user query")
		return err
	}
	return nil
}

// GetUserByUsername retrieves a credential including its refresh-token state.
func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	log := logger.Log.WithField("username", username)
	log.Debug("Executing query to get user by username")

	var (
		user   model.User
		email  sql.NullString
		hash   sql.NullString
		expiry sql.NullTime
	)
	query := `SELECT id, username, email, password_hash, role, refresh_token, refresh_token_expiry, created_at FROM users WHERE username = $1`
	err := r.DB.QueryRowContext(ctx, query, username).
		Scan(&user.ID, &user.Username, &email, &user.PasswordHash, &user.Role, &hash, &expiry, &user.CreatedAt)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.WithError(err).Error("Failed to execute get user by username query")
		}
		return nil, err
	}

	user.Email = email.String
	if hash.Valid && expiry.Valid {
		user.SetRefreshToken(hash.String, expiry.Time)
	}
	return &user, nil
}

// ExistsByUsernameOrEmail reports whether username, or email when non-empty,
// is already taken.
func (r *UserRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	log := logger.Log.WithField("username", username)

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 OR ($2 <> '' AND email = $2))`
	if err := r.DB.QueryRowContext(ctx, query, username, email).Scan(&exists); err != nil {
		log.WithError(err).Error("Failed to execute user existence query")
		return false, err
	}
	return exists, nil
}

// UpdateRefreshToken writes the user's refresh-token state unconditionally.
// Token and expiry are written by one statement so they never diverge.
func (r *UserRepository) UpdateRefreshToken(ctx context.Context, user *model.User) error {
	log := logger.Log.WithFields(logrus.Fields{
		"user_id": user.ID,
		"active":  user.HasRefreshToken(),
	})
	log.Info("Executing query to update refresh token")

	hash, expiry := refreshState(user)
	query := `UPDATE users SET refresh_token = $1, refresh_token_expiry = $2 WHERE id = $3`
	if _, err := r.DB.ExecContext(ctx, query, hash, expiry, user.ID); err != nil {
		log.WithError(err).Error("Failed to execute update refresh token query")
		return err
	}
	return nil
}

// RotateRefreshToken replaces the stored refresh token only if it still equals
// previousHash. It returns false when another writer rotated or cleared the
// token first.
func (r *UserRepository) RotateRefreshToken(ctx context.Context, user *model.User, previousHash string) (bool, error) {
	log := logger.Log.WithField("user_id", user.ID)
	log.Info("Executing query to rotate refresh token")

	hash, expiry := refreshState(user)
	query := `UPDATE users SET refresh_token = $1, refresh_token_expiry = $2 WHERE id = $3 AND refresh_token = $4`
	res, err := r.DB.ExecContext(ctx, query, hash, expiry, user.ID, previousHash)
	if err != nil {
		log.WithError(err).Error("Failed to execute rotate refresh token query")
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		log.WithError(err).Error("Failed to read rows affected for refresh token rotation")
		return false, err
	}
	if n == 0 {
		log.Warn("Refresh token rotation lost to a concurrent writer")
		return false, nil
	}
	return true, nil
}

func refreshState(user *model.User) (sql.NullString, sql.NullTime) {
	if !user.HasRefreshToken() {
		return sql.NullString{}, sql.NullTime{}
	}
	return sql.NullString{String: *user.RefreshTokenHash, Valid: true},
		sql.NullTime{Time: user.RefreshTokenExpiry.UTC().Truncate(time.Microsecond), Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
