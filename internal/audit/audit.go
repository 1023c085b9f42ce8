package audit

import (
	"time"

	auditDatamodel "github.com/frahmantamala/finsolve-gateway/internal/core/datamodel/audit"
	"github.com/frahmantamala/finsolve-gateway/internal/core/events"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// Event is one recorded access decision or privileged change.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	SessionID  string    `json:"session_id,omitempty"`
	Actor      string    `json:"actor"`
	Role       string    `json:"role"`
	Target     string    `json:"target"`
	Outcome    string    `json:"outcome"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Filter narrows a listing. Empty fields match everything.
type Filter struct {
	Type  string
	Actor string
	Since time.Time
	Limit int
}

func (f Filter) normalized() Filter {
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultLimit
	case f.Limit > MaxLimit:
		f.Limit = MaxLimit
	}
	return f
}

func FromAccessEvent(e *events.AccessEvent) Event {
	return Event{
		ID:         e.EventID(),
		Type:       e.EventType(),
		SessionID:  e.SessionID,
		Actor:      e.Actor,
		Role:       e.Role,
		Target:     e.Target,
		Outcome:    e.Outcome,
		Detail:     e.Detail,
		OccurredAt: e.OccurredAt(),
	}
}

func ToDataModel(e Event) *auditDatamodel.AccessEvent {
	return &auditDatamodel.AccessEvent{
		ID:         e.ID,
		EventType:  e.Type,
		SessionID:  e.SessionID,
		Actor:      e.Actor,
		Role:       e.Role,
		Target:     e.Target,
		Outcome:    e.Outcome,
		Detail:     e.Detail,
		OccurredAt: e.OccurredAt,
	}
}

func FromDataModel(m *auditDatamodel.AccessEvent) Event {
	return Event{
		ID:         m.ID,
		Type:       m.EventType,
		SessionID:  m.SessionID,
		Actor:      m.Actor,
		Role:       m.Role,
		Target:     m.Target,
		Outcome:    m.Outcome,
		Detail:     m.Detail,
		OccurredAt: m.OccurredAt.UTC(),
	}
}
