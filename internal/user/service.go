package user

import (
	"context"
	"errors"
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

func (s *Service) List(ctx context.Context, identity session.Identity) ([]View, error) {
	if !identity.Role.IsExecutive() {
		return nil, internal.ErrForbiddenRole
	}

	users, err := s.remote.ListUsers(ctx, identity.Credential)
	if err != nil {
		s.logger.ErrorContext(ctx, "user fetch failed", "error", err)
		return nil, internal.NewExternalError("Failed to fetch users", internal.ErrCodeFetchFailed).WithCause(err)
	}

	views := make([]View, len(users))
	for i, u := range users {
		views[i] = u.ToView()
	}
	return views, nil
}

// Upsert creates a user when id is empty and updates it otherwise.
func (s *Service) Upsert(ctx context.Context, identity session.Identity, id string, dto UpsertDTO) (View, error) {
	if !identity.Role.IsExecutive() {
		s.logger.WarnContext(ctx, "user write refused", "username", identity.Username, "role", identity.Role)
		return View{}, internal.ErrForbiddenRole
	}

	if err := dto.Validate(); err != nil {
		return View{}, err
	}

	creds := dto.ToCredentials()
	var err error
	if id == "" {
		err = s.remote.CreateUser(ctx, identity.Credential, creds)
	} else {
		err = s.remote.UpdateUser(ctx, identity.Credential, id, creds)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "user write failed", "target", creds.Username, "error", err)
		if errors.Is(err, ErrNotFound) {
			return View{}, internal.NewNotFoundError("User not found", internal.ErrCodeUserNotFound).WithCause(err)
		}
		if se, ok := upstream.AsStatusError(err); ok {
			return View{}, internal.NewConflictError(se.Message(), internal.ErrCodeUserWriteFailed).WithCause(err)
		}
		return View{}, internal.NewConflictError("Error performing operation", internal.ErrCodeUserWriteFailed).WithCause(err)
	}

	s.logger.InfoContext(ctx, "user upserted", "target", creds.Username, "role", creds.Role, "created", id == "")
	if s.publisher != nil {
		if perr := s.publisher.Publish(ctx, events.NewAccessEvent(
			events.EventTypeUserUpserted, identity.ID, identity.Username, string(identity.Role),
			creds.Username, events.OutcomeSuccess, string(creds.Role),
		)); perr != nil {
			s.logger.ErrorContext(ctx, "failed to publish user event", "error", perr)
		}
	}

	return User{ID: id, Username: creds.Username, Role: creds.Role}.ToView(), nil
}
