// file: model/request.go

package model

// RegisterRequest defines the payload for creating a new user.
// Passwords are capped at 72 bytes, the most bcrypt will hash.
type RegisterRequest struct {
	Username        string `json:"username" validate:"required,min=3,max=100"`
	Email           string `json:"email" validate:"omitempty,email,max=100"`
	Password        string `json:"password" validate:"required,min=6,max=72,maxbytes=72"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
	Role            Role   `json:"role,omitempty" validate:"omitempty,oneof=admin user"`
}

// LoginRequest defines the payload for user authentication.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries the last access token, which may already be
// expired, together with the refresh token issued alongside it.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}
