package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/socialflowhq/socialflow-api/internal/models"
)

type AuditRepository interface {
	Create(ctx context.Context, event *models.AuditEvent) (int64, error)
	ListByOrganization(ctx context.Context, orgID int64, limit int) ([]*models.AuditEvent, error)
}

type auditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(ctx context.Context, event *models.AuditEvent) (int64, error) {
	query := `
		INSERT INTO audit_events (organization_id, actor_id, action, target_type, target_id, detail)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, event.OrganizationID, event.ActorID, event.Action,
		event.TargetType, event.TargetID, event.Detail).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *auditRepository) ListByOrganization(ctx context.Context, orgID int64, limit int) ([]*models.AuditEvent, error) {
	query := `
		SELECT id, organization_id, actor_id, action, target_type, target_id, detail, created_at
		FROM audit_events
		WHERE organization_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, orgID, limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var events []*models.AuditEvent
	for rows.Next() {
		var e models.AuditEvent
		if err := rows.Scan(&e.ID, &e.OrganizationID, &e.ActorID, &e.Action, &e.TargetType, &e.TargetID, &e.Detail, &e.CreatedAt); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}
