package user

import (
	"strings"

	"github.com/frahmantamala/finsolve-gateway/internal"
	"github.com/frahmantamala/finsolve-gateway/internal/core/access"
	"github.com/frahmantamala/finsolve-gateway/internal/core/common/validation"
)

// UpsertDTO is the body of POST /users and PUT /users/{id}.
type UpsertDTO struct {
	Username string `json:"username" validate:"notblank,max=128"`
	Password string `json:"password" validate:"required,max=256"`
	Role     string `json:"role" validate:"notblank"`
}

func (d UpsertDTO) Validate() error {
	if err := validation.Struct(d, "All fields are required", internal.ErrCodeValidationFailed); err != nil {
		return err
	}
	if _, ok := access.ParseRole(d.Role); !ok {
		return internal.NewValidationFieldError("role", "role must be a known role", internal.ErrCodeValidationFailed)
	}
	return nil
}

func (d UpsertDTO) ToCredentials() Credentials {
	role, _ := access.ParseRole(d.Role)
	return Credentials{
		Username: strings.TrimSpace(d.Username),
		Password: d.Password,
		Role:     role,
	}
}

type UsersResponse struct {
	Users []View `json:"users"`
}

type UpsertResponse struct {
	Message string `json:"message"`
	User    View   `json:"user"`
}
