package guard

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/finsolve-gateway/internal"
	"github.com/frahmantamala/finsolve-gateway/internal/core/access"
	"github.com/frahmantamala/finsolve-gateway/internal/core/events"
	"github.com/frahmantamala/finsolve-gateway/internal/registry"
	"github.com/frahmantamala/finsolve-gateway/internal/session"
	"github.com/frahmantamala/finsolve-gateway/pkg/logger"
)

// State is the session status as seen by one navigation.
type State int

const (
	StateUnknown State = iota
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	}
	return "unknown"
}

// Resolve moves a navigation out of StateUnknown. Any lookup error resolves
// to StateUnauthenticated.
func Resolve(identity session.Identity, err error) State {
	if err != nil || identity.IsZero() || !identity.Role.Valid() {
		return StateUnauthenticated
	}
	return StateAuthenticated
}

// Decision is the outcome of one navigation: either Render is true or
// Redirect names the single location to send the browser to.
type Decision struct {
	State    State
	Render   bool
	Redirect string
}

type Guard struct {
	policy    Policy
	checker   registry.Checker
	publisher events.Publisher
	logger    *slog.Logger
}

func New(policy Policy, checker registry.Checker, publisher events.Publisher, lg *slog.Logger) *Guard {
	if lg == nil {
		lg = slog.Default()
	}
	return &Guard{
		policy:    policy,
		checker:   checker,
		publisher: publisher,
		logger:    lg,
	}
}

func (g *Guard) Policy() Policy {
	return g.policy
}

// Permits reports whether role may open path under the guard's policy.
func (g *Guard) Permits(path string, role access.RoleID) bool {
	return g.policy.Permits(path, role, g.checker)
}

func (g *Guard) Decide(path string, identity session.Identity, err error) Decision {
	req, protected := g.policy.Match(path)
	state := Resolve(identity, err)

	if !protected {
		return Decision{State: state, Render: true}
	}
	if state != StateAuthenticated {
		return Decision{State: state, Redirect: LoginPath}
	}
	if !req.SatisfiedBy(identity.Role, g.checker) {
		return Decision{State: state, Redirect: LandingPath}
	}
	return Decision{State: state, Render: true}
}

// Navigation guards page routes. A redirect writes exactly one 303 and the
// wrapped handler is never reached.
func (g *Guard) Navigation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := identityFrom(r.Context())
		decision := g.Decide(r.URL.Path, identity, err)

		if decision.Render {
			next.ServeHTTP(w, r)
			return
		}

		logger.From(r.Context()).Info("navigation redirected",
			"path", r.URL.Path,
			"state", decision.State.String(),
			"location", decision.Redirect)
		g.publish(r.Context(), events.EventTypeNavigationRedirected, identity, r.URL.Path, decision.Redirect)

		w.Header().Set("Cache-Control", "no-store")
		http.Redirect(w, r, decision.Redirect, http.StatusSeeOther)
	})
}

// RequireAuthenticated rejects API calls without a session with 401.
func (g *Guard) RequireAuthenticated() func(http.Handler) http.Handler {
	return g.RequireRole()
}

// RequireRole enforces role membership on data endpoints: 401 without a
// session, 403 when the role is not listed. No roles means any authenticated role.
func (g *Guard) RequireRole(roles ...access.RoleID) func(http.Handler) http.Handler {
	return g.require(Requirement{Roles: roles})
}

// RequireCategory admits roles whose permission matrix grants every category.
func (g *Guard) RequireCategory(categories ...access.Category) func(http.Handler) http.Handler {
	return g.require(Requirement{Categories: categories})
}

func (g *Guard) require(req Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := identityFrom(r.Context())
			if Resolve(identity, err) != StateAuthenticated {
				writeError(w, r, internal.ErrUnauthenticated)
				return
			}

			if !req.SatisfiedBy(identity.Role, g.checker) {
				logger.From(r.Context()).Warn("access denied",
					"path", r.URL.Path,
					"required_roles", req.Roles,
					"required_categories", req.Categories)
				g.publish(r.Context(), events.EventTypeAccessDenied, identity, r.URL.Path, "")
				writeError(w, r, internal.ErrForbiddenRole)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (g *Guard) publish(ctx context.Context, eventType string, identity session.Identity, target, detail string) {
	if g.publisher == nil {
		return
	}
	event := events.NewAccessEvent(eventType, identity.ID, identity.Username, string(identity.Role), target, events.OutcomeDenied, detail)
	if err := g.publisher.Publish(ctx, event); err != nil {
		g.logger.ErrorContext(ctx, "failed to publish guard event", "event_type", eventType, "error", err)
	}
}

func identityFrom(ctx context.Context) (session.Identity, error) {
	identity, ok := session.FromContext(ctx)
	if !ok {
		return session.Identity{}, session.ErrUnauthenticated
	}
	return identity, nil
}

func writeError(w http.ResponseWriter, r *http.Request, appErr *internal.AppError) {
	status, body := appErr.ToHTTPResponse()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.From(r.Context()).Error("failed to encode guard response", "error", err)
	}
}
