package service

import (
	"context"
	"log/slog"

	"github.com/socialflowhq/socialflow-api/internal/models"
	"github.com/socialflowhq/socialflow-api/internal/repository"
)

// AuditService writes lifecycle events. Recording is best-effort: a
// failed audit insert must never fail the operation being audited.
type AuditService interface {
	Record(ctx context.Context, orgID, actorID int64, action, targetType string, targetID int64, detail string)
	List(ctx context.Context, orgID int64, limit int) ([]*models.AuditEvent, error)
}

type auditService struct {
	ar repository.AuditRepository
}

func NewAuditService(ar repository.AuditRepository) AuditService {
	return &auditService{ar: ar}
}

func (s *auditService) Record(ctx context.Context, orgID, actorID int64, action, targetType string, targetID int64, detail string) {
	_, err := s.ar.Create(ctx, &models.AuditEvent{
		OrganizationID: orgID,
		ActorID:        actorID,
		Action:         action,
		TargetType:     targetType,
		TargetID:       targetID,
		Detail:         detail,
	})
	if err != nil {
		slog.Info(err.Error())
	}
}

func (s *auditService) List(ctx context.Context, orgID int64, limit int) ([]*models.AuditEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.ar.ListByOrganization(ctx, orgID, limit)
}
