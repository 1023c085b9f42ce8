package registry

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

func NewHandler(baseHandler *transport.BaseHandler, service *Service) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

// GetRoles handles GET /roles
func (h *Handler) GetRoles(w http.ResponseWriter, r *http.Request) {
	identity, ok := session.FromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, internal.ErrUnauthenticated)
		return
	}

	h.WriteJSON(w, http.StatusOK, RolesResponse{Roles: h.Service.List(r.Context(), identity)})
}

// CreateRole handles POST /roles
func (h *Handler) CreateRole(w http.ResponseWriter, r *http.Request) {
	h.upsert(w, r, "")
}

// UpdateRole handles PUT /roles/{role}. The path id wins over the body.
func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	h.upsert(w, r, chi.URLParam(r, "role"))
}

func (h *Handler) upsert(w http.ResponseWriter, r *http.Request, pathRole string) {
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
	if pathRole != "" {
		dto.Role = pathRole
	}

	entry, created, err := h.Service.Upsert(r.Context(), identity, dto)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	status, message := http.StatusOK, "Role updated successfully!"
	if created {
		status, message = http.StatusCreated, "Role created successfully!"
	}
	h.WriteJSON(w, status, UpsertResponse{Message: message, Role: entry, Created: created})
}
