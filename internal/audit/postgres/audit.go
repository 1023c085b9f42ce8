package postgres

import (
	"context"

	"github.com/frahmantamala/finsolve-gateway/internal/audit"
	auditDatamodel "github.com/frahmantamala/finsolve-gateway/internal/core/datamodel/audit"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) audit.RepositoryAPI {
	return &AuditRepository{db: db}
}

// Create is idempotent on the event id, so a redelivered event is stored once.
func (r *AuditRepository) Create(ctx context.Context, event *auditDatamodel.AccessEvent) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(event).Error
}

func (r *AuditRepository) List(ctx context.Context, filter audit.Filter) ([]*auditDatamodel.AccessEvent, error) {
	query := r.db.WithContext(ctx).Model(&auditDatamodel.AccessEvent{})
	if filter.Type != "" {
		query = query.Where("event_type = ?", filter.Type)
	}
	if filter.Actor != "" {
		query = query.Where("actor = ?", filter.Actor)
	}
	if !filter.Since.IsZero() {
		query = query.Where("occurred_at >= ?", filter.Since)
	}

	var rows []*auditDatamodel.AccessEvent
	err := query.Order("occurred_at DESC").Order("id").Limit(filter.Limit).Find(&rows).Error
	return rows, err
}
