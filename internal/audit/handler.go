package audit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/frahmantamala/finsolve-gateway/internal"
	"github.com/frahmantamala/finsolve-gateway/internal/session"
	"github.com/frahmantamala/finsolve-gateway/internal/transport"
)

const defaultSummaryWindow = 24 * time.Hour

type EventsResponse struct {
	Events []Event `json:"events"`
}

type SummaryResponse struct {
	Since  time.Time   `json:"since"`
	Counts []TypeCount `json:"counts"`
}

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

// GetEvents handles GET /audit
func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	identity, ok := session.FromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, internal.ErrUnauthenticated)
		return
	}

	q := r.URL.Query()
	filter := Filter{Type: q.Get("type"), Actor: q.Get("actor")}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			h.WriteAppError(w, r, internal.NewValidationFieldError("limit", "limit must be a positive integer", internal.ErrCodeInvalidRequest))
			return
		}
		filter.Limit = limit
	}
	if raw := q.Get("since"); raw != "" {
		since, err := parseSince(raw, time.Now())
		if err != nil {
			h.WriteAppError(w, r, internal.NewValidationFieldError("since", "since must be a duration or an RFC3339 time", internal.ErrCodeInvalidRequest))
			return
		}
		filter.Since = since
	}

	list, err := h.Service.List(r.Context(), identity, filter)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, EventsResponse{Events: list})
}

// GetSummary handles GET /audit/summary
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	identity, ok := session.FromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, internal.ErrUnauthenticated)
		return
	}

	now := time.Now()
	since := now.Add(-defaultSummaryWindow)
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := parseSince(raw, now)
		if err != nil {
			h.WriteAppError(w, r, internal.NewValidationFieldError("since", "since must be a duration or an RFC3339 time", internal.ErrCodeInvalidRequest))
			return
		}
		since = parsed
	}

	counts, err := h.Service.Summary(r.Context(), identity, since)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, SummaryResponse{Since: since.UTC(), Counts: counts})
}

// parseSince accepts a lookback such as "2h" or an absolute RFC3339 time.
func parseSince(raw string, now time.Time) (time.Time, error) {
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return now.Add(-d), nil
	}
	return time.Parse(time.RFC3339, raw)
}
