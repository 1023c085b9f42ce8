package registry

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/frahmantamala/finsolve-gateway/internal"
	"github.com/frahmantamala/finsolve-gateway/internal/core/access"
	"github.com/frahmantamala/finsolve-gateway/internal/core/events"
	"github.com/frahmantamala/finsolve-gateway/internal/session"
	"github.com/frahmantamala/finsolve-gateway/internal/upstream"
	"golang.org/x/sync/singleflight"
)

const refreshKey = "roles"

// Service keeps an in-memory mirror of the role permission matrix and writes
// changes through to the external registry.
type Service struct {
	remote    RemoteAPI
	publisher events.Publisher
	logger    *slog.Logger

	mu      sync.RWMutex
	entries []Entry
	// writes counts local stores; a refresh that started before the latest
	// store is discarded.
	writes uint64

	refresh  singleflight.Group
	inflight sync.WaitGroup
}

func NewService(remote RemoteAPI, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		remote:    remote,
		publisher: publisher,
		logger:    logger,
		entries:   DefaultEntries(),
	}
}

// List refreshes the mirror and returns it. A failed refresh is logged and the
// cached matrix is returned instead.
func (s *Service) List(ctx context.Context, identity session.Identity) []Entry {
	if err := s.Refresh(ctx, identity); err != nil {
		s.logger.WarnContext(ctx, "role refresh failed, serving cached matrix", "error", err)
	}
	return s.Snapshot()
}

// Snapshot returns a copy of the mirror without calling upstream.
func (s *Service) Snapshot() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Refresh replaces the mirror with the registry's list. Concurrent callers
// share one upstream request.
func (s *Service) Refresh(ctx context.Context, identity session.Identity) error {
	_, err, _ := s.refresh.Do(refreshKey, func() (interface{}, error) {
		s.mu.RLock()
		started := s.writes
		s.mu.RUnlock()

		remote, err := s.remote.ListRoles(ctx, identity.Credential)
		if err != nil {
			return nil, err
		}
		if len(remote) == 0 {
			return nil, nil
		}

		normalized := make([]Entry, 0, len(remote))
		for _, e := range remote {
			if e.Role == "" {
				continue
			}
			normalized = append(normalized, e.Normalize())
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.writes != started {
			s.logger.DebugContext(ctx, "discarding role list read before the last write")
			return nil, nil
		}
		s.entries = normalized
		return nil, nil
	})
	return err
}

// Upsert creates the role when the mirror has not seen it and updates it
// otherwise. Only executives may call it, whichever route led here.
func (s *Service) Upsert(ctx context.Context, identity session.Identity, dto UpsertDTO) (Entry, bool, error) {
	if !identity.Role.IsExecutive() {
		s.logger.WarnContext(ctx, "role upsert refused", "username", identity.Username, "role", identity.Role)
		return Entry{}, false, internal.ErrForbiddenRole
	}

	if err := dto.Validate(); err != nil {
		return Entry{}, false, err
	}

	entry := dto.ToEntry()
	_, known := s.lookup(entry.Role)

	var err error
	if known {
		err = s.remote.UpdateRole(ctx, identity.Credential, entry.Role, entry)
	} else {
		err = s.remote.CreateRole(ctx, identity.Credential, entry)
	}
	if err != nil {
		return Entry{}, false, conflictFrom(err)
	}

	s.store(entry)
	s.logger.InfoContext(ctx, "role upserted", "role", entry.Role, "created", !known)

	if s.publisher != nil {
		if perr := s.publisher.Publish(ctx, events.NewAccessEvent(
			events.EventTypeRoleUpserted, identity.ID, identity.Username, string(identity.Role),
			entry.Role, events.OutcomeSuccess, "",
		)); perr != nil {
			s.logger.ErrorContext(ctx, "failed to publish role event", "error", perr)
		}
	}

	// A refresh already in flight read the registry before this write.
	s.refresh.Forget(refreshKey)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		refreshCtx := context.WithoutCancel(ctx)
		if err := s.Refresh(refreshCtx, identity); err != nil {
			s.logger.WarnContext(refreshCtx, "post-upsert role refresh failed", "error", err)
		}
	}()

	return entry, !known, nil
}

// Wait blocks until background refreshes started by Upsert have finished.
func (s *Service) Wait() {
	s.inflight.Wait()
}

// Allows reports whether role may view documents of category.
func (s *Service) Allows(role access.RoleID, category access.Category) bool {
	if role.IsExecutive() || category == access.CategoryGeneral {
		return true
	}
	entry, ok := s.lookup(string(role))
	if !ok {
		return false
	}
	return entry.Allows(category)
}

func (s *Service) lookup(role string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries {
		if e.Role == role {
			return e, true
		}
	}
	return Entry{}, false
}

func (s *Service) store(entry Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.writes++
	for i, e := range s.entries {
		if e.Role == entry.Role {
			s.entries[i] = entry
			return
		}
	}
	s.entries = append(s.entries, entry)
}

func conflictFrom(err error) error {
	if se, ok := upstream.AsStatusError(err); ok {
		return internal.NewConflictError(se.Message(), internal.ErrCodeRegistryConflict).WithCause(err)
	}
	var te *upstream.TransportError
	if errors.As(err, &te) {
		return internal.NewConflictError("Error performing operation", internal.ErrCodeRegistryConflict).WithCause(err)
	}
	return internal.NewConflictError("Operation failed", internal.ErrCodeRegistryConflict).WithCause(err)
}
