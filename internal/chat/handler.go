package chat

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/frahmantamala/finsolve-gateway/internal"
	"github.com/frahmantamala/finsolve-gateway/internal/session"
	"github.com/frahmantamala/finsolve-gateway/internal/transport"
)

type AskRequest struct {
	Query string `json:"query"`
	Model string `json:"model"`
}

// AskResponse carries the user entry and the assistant reply. Failed calls
// are still answered with 200 so the reply stays in the transcript.
type AskResponse struct {
	Status  State              `json:"status"`
	Entries []Entry            `json:"entries"`
	Error   *internal.AppError `json:"error,omitempty"`
}

type TranscriptResponse struct {
	State   State   `json:"state"`
	Entries []Entry `json:"entries"`
}

type ModelsResponse struct {
	Models  []Model `json:"models"`
	Default string  `json:"default"`
}

type Handler struct {
	*transport.BaseHandler
	Gateway *Gateway
}

func NewHandler(baseHandler *transport.BaseHandler, gateway *Gateway) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Gateway:     gateway,
	}
}

// Ask handles POST /chat
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	identity, ok := session.FromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, internal.ErrUnauthenticated)
		return
	}

	var req AskRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	question, reply, err := h.Gateway.Exchange(r.Context(), identity, req.Query, req.Model)
	switch {
	case err == nil:
		h.WriteJSON(w, http.StatusOK, AskResponse{Status: StateResolved, Entries: []Entry{question, reply}})
	case errors.Is(err, ErrRequestInFlight):
		h.WriteAppError(w, r, internal.ErrChatInFlight.Wrap(err))
	case isFailedCall(err):
		h.WriteJSON(w, http.StatusOK, AskResponse{Status: StateFailed, Entries: []Entry{question, reply}, Error: failureError(err)})
	default:
		h.WriteAppError(w, r, err)
	}
}

// GetTranscript handles GET /chat/transcript
func (h *Handler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	identity, ok := session.FromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, internal.ErrUnauthenticated)
		return
	}

	state, err := h.Gateway.State(r.Context(), identity.ID)
	if err != nil {
		h.WriteAppError(w, r, internal.NewInternalError("failed to read chat state", err))
		return
	}

	h.WriteJSON(w, http.StatusOK, TranscriptResponse{State: state, Entries: h.Gateway.Transcript(identity.ID)})
}

// GetModels handles GET /models
func (h *Handler) GetModels(w http.ResponseWriter, r *http.Request) {
	identity, ok := session.FromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, internal.ErrUnauthenticated)
		return
	}

	models := h.Gateway.Models(r.Context(), identity)
	h.WriteJSON(w, http.StatusOK, ModelsResponse{Models: models, Default: models[0].ID})
}

// failureError classifies a failed call for API clients; the reply entry
// already carries the text shown to the user.
func failureError(err error) *internal.AppError {
	var serr *ServiceError
	if errors.As(err, &serr) {
		return internal.NewExternalError(fmt.Sprintf("Answering service returned %d", serr.Status), internal.ErrCodeChatServiceError)
	}
	return internal.NewExternalError("Answering service unavailable", internal.ErrCodeChatUnavailable)
}

func isFailedCall(err error) bool {
	var serr *ServiceError
	return errors.As(err, &serr) || errors.Is(err, ErrUnavailable)
}
