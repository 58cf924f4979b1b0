// file: model/user.go

package model

import "time"

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// User is the stored credential. RefreshTokenHash and RefreshTokenExpiry are
// either both set or both nil; use SetRefreshToken and ClearRefreshToken to
// change them.
type User struct {
	ID                 int        `json:"id"`
	Username           string     `json:"username"`
	Email              string     `json:"email,omitempty"`
	PasswordHash       string     `json:"-"`
	Role               string     `json:"role"`
	RefreshTokenHash   *string    `json:"-"`
	RefreshTokenExpiry *time.Time `json:"-"`
	CreatedAt          time.Time  `json:"created_at"`
}

func (u *User) SetRefreshToken(hash string, expiry time.Time) {
	expiry = expiry.UTC()
	u.RefreshTokenHash = &hash
	u.RefreshTokenExpiry = &expiry
}

func (u *User) ClearRefreshToken() {
	u.RefreshTokenHash = nil
	u.RefreshTokenExpiry = nil
}

func (u *User) HasRefreshToken() bool {
	return u.RefreshTokenHash != nil && u.RefreshTokenExpiry != nil
}

// RefreshTokenActive reports whether a refresh token is stored and its expiry
// lies strictly after now.
func (u *User) RefreshTokenActive(now time.Time) bool {
	return u.HasRefreshToken() && u.RefreshTokenExpiry.After(now)
}
