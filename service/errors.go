// file: service/errors.go

package service

import "errors"

var (
	ErrConflict           = errors.New("username or email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid access token")
	ErrNotFound           = errors.New("user not found")
	ErrTooManyAttempts    = errors.New("too many failed login attempts")
	ErrInfrastructure     = errors.New("internal error")
)

// ValidationError reports malformed input. It is returned to the caller and
// never logged as an incident.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}
