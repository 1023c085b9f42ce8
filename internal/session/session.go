package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/frahmantamala/finsolve-gateway/internal/core/access"
)

// Identity is the authenticated principal of one browser session. Credential
// is the upstream bearer token and never leaves the gateway in clear.
type Identity struct {
	ID         string
	Username   string
	Role       access.RoleID
	Credential string
	ExpiresAt  time.Time
}

func (i Identity) IsZero() bool {
	return i.Username == "" || i.Credential == ""
}

// View is the client-safe projection of an Identity.
type View struct {
	Username  string        `json:"username"`
	Role      access.RoleID `json:"role"`
	RoleName  string        `json:"role_name"`
	ExpiresAt time.Time     `json:"expires_at"`
}

func (i Identity) ToView() View {
	return View{
		Username:  i.Username,
		Role:      i.Role,
		RoleName:  i.Role.DisplayName(),
		ExpiresAt: i.ExpiresAt,
	}
}

var (
	ErrUnauthenticated = errors.New("session: unauthenticated")
	ErrInvalidIdentity = errors.New("session: identity requires username, known role and credential")
)

// Store holds at most one identity per browser session.
type Store interface {
	// Set replaces the current identity and returns it with session metadata filled in.
	Set(w http.ResponseWriter, r *http.Request, identity Identity) (Identity, error)
	// Get returns the current identity or an error wrapping ErrUnauthenticated.
	Get(r *http.Request) (Identity, error)
	Clear(w http.ResponseWriter, r *http.Request) error
}

type ctxKey string

const identityKey ctxKey = "identity"

// WithIdentity returns ctx carrying identity for the rest of the request.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func FromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	if !ok || identity.IsZero() {
		return Identity{}, false
	}
	return identity, true
}
