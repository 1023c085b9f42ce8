package auth

import (
	"context"
	"errors"

	"github.com/frahmantamala/finsolve-gateway/internal/session"
)

// Authenticator exchanges a username and password for an Identity.
type Authenticator interface {
	Authenticate(ctx context.Context, dto LoginDTO) (session.Identity, error)
}

var (
	// ErrInvalidCredentials means the Authentication Service denied the login.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrServiceUnavailable means no usable answer came back from the Authentication Service.
	ErrServiceUnavailable = errors.New("auth: authentication service unavailable")
)

const (
	CauseInvalidCredentials = "invalid_credentials"
	CauseServiceUnavailable = "service_unavailable"
	CauseValidation         = "validation"
)

// FailureCause names the internal reason behind a failed login. It is meant
// for logs, metrics and the audit trail only.
func FailureCause(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return CauseInvalidCredentials
	case errors.Is(err, ErrServiceUnavailable):
		return CauseServiceUnavailable
	}
	return CauseValidation
}
