package document

import (
	"errors"
	"io"
	"net/http"

	"github.com/frahmantamala/finsolve-gateway/internal"
	"github.com/frahmantamala/finsolve-gateway/internal/session"
	"github.com/frahmantamala/finsolve-gateway/internal/transport"
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

// GetDocuments handles GET /documents?category=
func (h *Handler) GetDocuments(w http.ResponseWriter, r *http.Request) {
	identity, ok := session.FromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, internal.ErrUnauthenticated)
		return
	}

	filter, err := ParseCategoryFilter(r.URL.Query().Get("category"))
	if err != nil {
		h.WriteAppError(w, r, internal.NewValidationFieldError("category", err.Error(), internal.ErrCodeInvalidRequest))
		return
	}

	docs, err := h.Service.List(r.Context(), identity, filter)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, DocumentsResponse{Category: filter, Documents: docs})
}

// UploadDocument handles POST /documents (multipart/form-data)
func (h *Handler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	identity, ok := session.FromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, internal.ErrUnauthenticated)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.WriteAppError(w, r, internal.NewValidationError("File is too large", internal.ErrCodeUnsupportedFile))
			return
		}
		h.WriteAppError(w, r, internal.NewValidationError("invalid upload form", internal.ErrCodeInvalidRequest).WithCause(err))
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	dto := UploadDTO{
		Title:        r.FormValue("title"),
		Category:     r.FormValue("category"),
		Description:  r.FormValue("description"),
		AllowedRoles: ParseAllowedRoles(r.MultipartForm.Value["allowed_roles"]),
	}

	if file, header, err := r.FormFile("file"); err == nil {
		content, rerr := io.ReadAll(file)
		_ = file.Close()
		if rerr != nil {
			h.WriteAppError(w, r, internal.NewValidationError("could not read uploaded file", internal.ErrCodeInvalidRequest).WithCause(rerr))
			return
		}
		dto.FileName = header.Filename
		dto.Content = content
	}

	record, err := h.Service.Upload(r.Context(), identity, dto)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, UploadResponse{Message: "File uploaded successfully!", Document: record})
}
