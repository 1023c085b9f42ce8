package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/finsolve-gateway/internal"
	auditDatamodel "github.com/frahmantamala/finsolve-gateway/internal/core/datamodel/audit"
	"github.com/frahmantamala/finsolve-gateway/internal/core/events"
	"github.com/frahmantamala/finsolve-gateway/internal/session"
)

type RepositoryAPI interface {
	Create(ctx context.Context, event *auditDatamodel.AccessEvent) error
	List(ctx context.Context, filter Filter) ([]*auditDatamodel.AccessEvent, error)
}

// SummaryAPI counts recorded events per type and outcome.
type SummaryAPI interface {
	CountByType(ctx context.Context, since time.Time) ([]TypeCount, error)
}

type TypeCount struct {
	Type    string `json:"type" db:"event_type"`
	Outcome string `json:"outcome" db:"outcome"`
	Count   int64  `json:"count" db:"total"`
}

// Subscriber is the side of the event bus the trail listens on.
type Subscriber interface {
	Subscribe(eventType string, handler events.Handler)
}

type Service struct {
	repo    RepositoryAPI
	summary SummaryAPI
	logger  *slog.Logger
}

func NewService(repo RepositoryAPI, summary SummaryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		summary: summary,
		logger:  logger,
	}
}

// Register subscribes the trail to every access event type.
func (s *Service) Register(bus Subscriber) {
	for _, eventType := range events.AccessEventTypes {
		bus.Subscribe(eventType, s.Record)
	}
}

// Record persists one access event. Other event kinds are ignored.
func (s *Service) Record(ctx context.Context, event events.Event) error {
	ae, ok := event.(*events.AccessEvent)
	if !ok {
		s.logger.Debug("ignoring non access event", "event_type", event.EventType())
		return nil
	}

	if err := s.repo.Create(ctx, ToDataModel(FromAccessEvent(ae))); err != nil {
		return fmt.Errorf("record audit event %s: %w", ae.EventID(), err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, identity session.Identity, filter Filter) ([]Event, error) {
	if !identity.Role.IsExecutive() {
		return nil, internal.ErrForbiddenRole
	}

	rows, err := s.repo.List(ctx, filter.normalized())
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list audit events", "error", err)
		return nil, internal.NewInternalError("failed to list audit events", err)
	}

	out := make([]Event, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromDataModel(row))
	}
	return out, nil
}

func (s *Service) Summary(ctx context.Context, identity session.Identity, since time.Time) ([]TypeCount, error) {
	if !identity.Role.IsExecutive() {
		return nil, internal.ErrForbiddenRole
	}

	counts, err := s.summary.CountByType(ctx, since)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to summarize audit events", "error", err)
		return nil, internal.NewInternalError("failed to summarize audit events", err)
	}
	if counts == nil {
		counts = []TypeCount{}
	}
	return counts, nil
}
