package auth

import (
	"net/http"

	"github.com/frahmantamala/finsolve-gateway/internal"
	"github.com/frahmantamala/finsolve-gateway/internal/core/events"
	"github.com/frahmantamala/finsolve-gateway/internal/session"
	"github.com/frahmantamala/finsolve-gateway/internal/transport"
	"github.com/frahmantamala/finsolve-gateway/pkg/logger"
)

// LoginObserver counts login outcomes by cause.
type LoginObserver interface {
	ObserveLogin(outcome string)
}

type Handler struct {
	*transport.BaseHandler
	Service   Authenticator
	Sessions  session.Store
	Publisher events.Publisher
	Observer  LoginObserver
}

func NewHandler(baseHandler *transport.BaseHandler, svc Authenticator, sessions session.Store, publisher events.Publisher, observer LoginObserver) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     svc,
		Sessions:    sessions,
		Publisher:   publisher,
		Observer:    observer,
	}
}

// Login handles POST /auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	identity, err := h.Service.Authenticate(r.Context(), dto)
	if err != nil {
		cause := FailureCause(err)
		h.observe(cause)

		if cause == CauseValidation {
			h.WriteAppError(w, r, err)
			return
		}

		// Both denial kinds share one answer; only the logs and audit trail keep the cause.
		logger.From(r.Context()).Warn("login failed", "username", dto.Username, "cause", cause, "error", err)
		h.publish(r, events.NewAccessEvent(events.EventTypeLoginFailed, "", dto.Username, "", r.URL.Path, events.OutcomeFailure, cause))
		h.WriteAppError(w, r, internal.ErrInvalidCredentials.Wrap(err))
		return
	}

	stored, err := h.Sessions.Set(w, r, identity)
	if err != nil {
		h.observe("session_error")
		h.WriteAppError(w, r, internal.NewInternalError("failed to start session", err))
		return
	}

	h.observe("success")
	logger.From(r.Context()).Info("login succeeded", "username", stored.Username, "role", stored.Role)
	h.publish(r, events.NewAccessEvent(events.EventTypeLoginSucceeded, stored.ID, stored.Username, string(stored.Role), r.URL.Path, events.OutcomeSuccess, ""))

	h.WriteJSON(w, http.StatusOK, stored.ToView())
}

// Logout handles POST /auth/logout. It succeeds even without a session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	identity, hadSession := session.FromContext(r.Context())

	if err := h.Sessions.Clear(w, r); err != nil {
		h.WriteAppError(w, r, internal.NewInternalError("failed to end session", err))
		return
	}

	if hadSession {
		h.publish(r, events.NewAccessEvent(events.EventTypeLogout, identity.ID, identity.Username, string(identity.Role), r.URL.Path, events.OutcomeSuccess, ""))
	}

	w.WriteHeader(http.StatusNoContent)
}

// CurrentSession handles GET /auth/session
func (h *Handler) CurrentSession(w http.ResponseWriter, r *http.Request) {
	identity, ok := session.FromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, internal.ErrUnauthenticated)
		return
	}
	h.WriteJSON(w, http.StatusOK, identity.ToView())
}

func (h *Handler) observe(outcome string) {
	if h.Observer != nil {
		h.Observer.ObserveLogin(outcome)
	}
}

func (h *Handler) publish(r *http.Request, event events.Event) {
	if h.Publisher == nil {
		return
	}
	if err := h.Publisher.Publish(r.Context(), event); err != nil {
		logger.From(r.Context()).Error("failed to publish access event", "event_type", event.EventType(), "error", err)
	}
}
