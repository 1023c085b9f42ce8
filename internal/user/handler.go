package user

import (
	"net/http"

	"github.com/frahmantamala/finsolve-gateway/internal"
	"github.com/frahmantamala/finsolve-gateway/internal/session"
	"github.com/frahmantamala/finsolve-gateway/internal/transport"
	"github.com/go-chi/chi"
)

type Handler struct {
	*transport.BaseHandler
	Service *Service
}

func NewHandler(baseHandler *transport.BaseHandler, svc *Service) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     svc,
	}
}

// GetUsers handles GET /users
func (h *Handler) GetUsers(w http.ResponseWriter, r *http.Request) {
	identity, ok := session.FromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, internal.ErrUnauthenticated)
		return
	}

	users, err := h.Service.List(r.Context(), identity)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, UsersResponse{Users: users})
}

// CreateUser handles POST /users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	h.upsert(w, r, "")
}

// UpdateUser handles PUT /users/{id}
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	h.upsert(w, r, chi.URLParam(r, "id"))
}

func (h *Handler) upsert(w http.ResponseWriter, r *http.Request, id string) {
	identity, ok := session.FromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, internal.ErrUnauthenticated)
		return
	}

	var dto UpsertDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	view, err := h.Service.Upsert(r.Context(), identity, id, dto)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	if id == "" {
		h.WriteJSON(w, http.StatusCreated, UpsertResponse{Message: "User created successfully!", User: view})
		return
	}
	h.WriteJSON(w, http.StatusOK, UpsertResponse{Message: "User updated successfully!", User: view})
}
