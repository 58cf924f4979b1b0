package auth

import "errors"

var (
	ErrSecretTooShort = errors.New("jwt secret must be at least 32 bytes")
	ErrInvalidToken   = errors.New("invalid token")
)
