package auth

import (
	"github.com/frahmantamala/finsolve-gateway/internal"
	"github.com/frahmantamala/finsolve-gateway/internal/core/common/validation"
)

// LoginDTO is the transport shape used by the HTTP handler to accept login requests.
type LoginDTO struct {
	Username string `json:"username" validate:"notblank,max=128"`
	Password string `json:"password" validate:"required,max=256"`
}

// Validate checks required fields and returns a validation AppError on failure.
func (d LoginDTO) Validate() error {
	return validation.Struct(d, "Username and password are required", internal.ErrCodeValidationFailed)
}

// loginRequest is the body the Authentication Service expects.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse is the Authentication Service success body.
type loginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
}
