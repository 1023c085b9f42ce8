package user

import (
	"context"
	"errors"

	"github.com/frahmantamala/finsolve-gateway/internal/core/access"
)

// User is an account in the external registry. The registry also returns the
// stored password; it is dropped on decode and never sent to the browser.
type User struct {
	ID       string        `json:"_id"`
	Username string        `json:"username"`
	Role     access.RoleID `json:"role"`
	Password string        `json:"-"`
}

func (u User) RoleName() string {
	return u.Role.DisplayName()
}

// View is what the users admin page receives.
type View struct {
	ID       string        `json:"id"`
	Username string        `json:"username"`
	Role     access.RoleID `json:"role"`
	RoleName string        `json:"role_name"`
}

func (u User) ToView() View {
	return View{
		ID:       u.ID,
		Username: u.Username,
		Role:     u.Role,
		RoleName: u.RoleName(),
	}
}

// Credentials is the write body for creating or updating a user.
type Credentials struct {
	Username string        `json:"username"`
	Password string        `json:"password"`
	Role     access.RoleID `json:"role"`
}

var ErrNotFound = errors.New("user not found")

// RemoteAPI is the user endpoint set of the external registry.
type RemoteAPI interface {
	ListUsers(ctx context.Context, bearer string) ([]User, error)
	CreateUser(ctx context.Context, bearer string, creds Credentials) error
	UpdateUser(ctx context.Context, bearer string, id string, creds Credentials) error
}
