package document

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/finsolve-gateway/internal"
	"github.com/frahmantamala/finsolve-gateway/internal/core/events"
	"github.com/frahmantamala/finsolve-gateway/internal/session"
	"github.com/frahmantamala/finsolve-gateway/internal/upstream"
)

type Service struct {
	remote    RemoteAPI
	publisher events.Publisher
	logger    *slog.Logger
}

func NewService(remote RemoteAPI, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		remote:    remote,
		publisher: publisher,
		logger:    logger,
	}
}

// List returns the documents identity may see in category. An empty list is
// a success; a failed fetch is a FETCH_FAILED error.
func (s *Service) List(ctx context.Context, identity session.Identity, category CategoryFilter) ([]Record, error) {
	all, err := s.remote.ListDocuments(ctx, identity.Credential)
	if err != nil {
		s.logger.ErrorContext(ctx, "document fetch failed", "error", err)
		return nil, internal.NewExternalError("Failed to fetch documents", internal.ErrCodeFetchFailed).WithCause(err)
	}

	visible := VisibleDocuments(all, identity.Role, category)
	s.logger.DebugContext(ctx, "documents filtered",
		"total", len(all),
		"visible", len(visible),
		"category", string(category))
	return visible, nil
}

// Upload forwards a document to the registry. The executive role is always
// granted access to what it stores.
func (s *Service) Upload(ctx context.Context, identity session.Identity, dto UploadDTO) (Record, error) {
	if !identity.Role.IsExecutive() {
		s.logger.WarnContext(ctx, "document upload refused", "username", identity.Username, "role", identity.Role)
		return Record{}, internal.ErrForbiddenRole
	}

	if err := dto.Validate(); err != nil {
		return Record{}, err
	}

	upload := dto.ToUpload()
	created, err := s.remote.UploadDocument(ctx, identity.Credential, upload)
	if err != nil {
		s.logger.ErrorContext(ctx, "document upload failed", "title", upload.Title, "error", err)
		if se, ok := upstream.AsStatusError(err); ok {
			return Record{}, internal.NewExternalError(se.Message(), internal.ErrCodeUploadFailed).WithCause(err)
		}
		return Record{}, internal.NewExternalError("Error uploading file", internal.ErrCodeUploadFailed).WithCause(err)
	}

	record := Record{
		ID:           created.ID,
		Title:        upload.Title,
		Uploader:     identity.Username,
		Category:     upload.Category,
		AllowedRoles: upload.AllowedRoles,
		Description:  upload.Description,
	}
	if created.Uploader != "" {
		record.Uploader = created.Uploader
	}

	s.logger.InfoContext(ctx, "document uploaded",
		"title", record.Title,
		"category", string(record.Category),
		"allowed_roles", record.AllowedRoles)

	if s.publisher != nil {
		if perr := s.publisher.Publish(ctx, events.NewAccessEvent(
			events.EventTypeDocumentUploaded, identity.ID, identity.Username, string(identity.Role),
			record.Title, events.OutcomeSuccess, string(record.Category),
		)); perr != nil {
			s.logger.ErrorContext(ctx, "failed to publish upload event", "error", perr)
		}
	}

	return record, nil
}
