package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeLoginSucceeded       = "auth.login_succeeded"
	EventTypeLoginFailed          = "auth.login_failed"
	EventTypeLogout               = "auth.logout"
	EventTypeNavigationRedirected = "guard.navigation_redirected"
	EventTypeAccessDenied         = "guard.access_denied"
	EventTypeRoleUpserted         = "registry.role_upserted"
	EventTypeUserUpserted         = "registry.user_upserted"
	EventTypeDocumentUploaded     = "registry.document_uploaded"
	EventTypeChatFailed           = "chat.failed"
)

// AccessEventTypes lists every event the audit trail records.
var AccessEventTypes = []string{
	EventTypeLoginSucceeded,
	EventTypeLoginFailed,
	EventTypeLogout,
	EventTypeNavigationRedirected,
	EventTypeAccessDenied,
	EventTypeRoleUpserted,
	EventTypeUserUpserted,
	EventTypeDocumentUploaded,
	EventTypeChatFailed,
}

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeDenied  = "denied"
)

// AccessEvent describes one access decision or privileged mutation.
type AccessEvent struct {
	BaseEvent
	SessionID string `json:"session_id,omitempty"`
	Actor     string `json:"actor"`
	Role      string `json:"role"`
	Target    string `json:"target"`
	Outcome   string `json:"outcome"`
	Detail    string `json:"detail,omitempty"`
}

func NewAccessEvent(eventType, sessionID, actor, role, target, outcome, detail string) *AccessEvent {
	return &AccessEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now().UTC(),
			Data: map[string]interface{}{
				"session_id": sessionID,
				"actor":      actor,
				"role":       role,
				"target":     target,
				"outcome":    outcome,
				"detail":     detail,
			},
		},
		SessionID: sessionID,
		Actor:     actor,
		Role:      role,
		Target:    target,
		Outcome:   outcome,
		Detail:    detail,
	}
}
