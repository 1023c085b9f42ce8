package audit

import "time"

type AccessEvent struct {
	ID         string    `gorm:"column:id;primaryKey"`
	EventType  string    `gorm:"column:event_type;index;not null"`
	SessionID  string    `gorm:"column:session_id"`
	Actor      string    `gorm:"column:actor;index"`
	Role       string    `gorm:"column:role"`
	Target     string    `gorm:"column:target"`
	Outcome    string    `gorm:"column:outcome;not null"`
	Detail     string    `gorm:"column:detail"`
	OccurredAt time.Time `gorm:"column:occurred_at;index;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (AccessEvent) TableName() string {
	return "access_audit_events"
}
