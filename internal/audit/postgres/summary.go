package postgres

import (
	"context"
	"time"

	"github.com/frahmantamala/finsolve-gateway/internal/audit"
	"github.com/jmoiron/sqlx"
)

const countByTypeQuery = `
SELECT event_type, outcome, COUNT(*) AS total
FROM access_audit_events
WHERE occurred_at >= ?
GROUP BY event_type, outcome
ORDER BY event_type, outcome`

type SummaryRepository struct {
	db *sqlx.DB
}

func NewSummaryRepository(db *sqlx.DB) audit.SummaryAPI {
	return &SummaryRepository{db: db}
}

func (r *SummaryRepository) CountByType(ctx context.Context, since time.Time) ([]audit.TypeCount, error) {
	var counts []audit.TypeCount
	if err := r.db.SelectContext(ctx, &counts, r.db.Rebind(countByTypeQuery), since); err != nil {
		return nil, err
	}
	return counts, nil
}
