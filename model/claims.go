package model

import "github.com/golang-jwt/jwt/v5"

// AppClaims is the full claim set of an access token. Subject carries the
// user ID as a decimal string.
type AppClaims struct {
	Username string `json:"name"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}
