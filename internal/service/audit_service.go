package service

import (
	"context"

	"github.com/itqanpos/ITQN/internal/model"
	"github.com/itqanpos/ITQN/internal/repository"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type AuditLogResponse struct {
	ID         string                 `json:"id"`
	UserID     string                 `json:"user_id"`
	Username   string                 `json:"username"`
	Action     string                 `json:"action"`
	EntityID   string                 `json:"entity_id"`
	EntityName string                 `json:"entity_name"`
	Details    map[string]interface{} `json:"details"`
	CreatedAt  string                 `json:"created_at"`
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, tenantID uuid.UUID, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	auditRepo repository.AuditRepository
	userRepo  repository.UserRepository
}

// NewAuditService creates a new AuditService instance
func NewAuditService(auditRepo repository.AuditRepository, userRepo repository.UserRepository) AuditService {
	return &auditService{auditRepo: auditRepo, userRepo: userRepo}
}

// GetAuditLogs returns the tenant's audit trail, newest first, with actor names resolved
func (s *auditService) GetAuditLogs(ctx context.Context, tenantID uuid.UUID, page, limit int) ([]AuditLogResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	logs, total, err := s.auditRepo.List(ctx, tenantID, page, limit)
	if err != nil {
		return nil, 0, err
	}

	userIDs := lo.Uniq(lo.FilterMap(logs, func(l model.AuditLog, _ int) (uuid.UUID, bool) {
		if l.UserID == nil {
			return uuid.Nil, false
		}
		return *l.UserID, true
	}))
	users, err := s.userRepo.FindByIDs(ctx, tenantID, userIDs)
	if err != nil {
		return nil, 0, err
	}
	names := lo.SliceToMap(users, func(u model.User) (uuid.UUID, string) {
		return u.ID, u.Username
	})

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		username := "System"
		userID := ""
		if l.UserID != nil {
			userID = l.UserID.String()
			if name, ok := names[*l.UserID]; ok {
				username = name
			}
		}

		res = append(res, AuditLogResponse{
			ID:         l.ID.String(),
			UserID:     userID,
			Username:   username,
			Action:     l.Action,
			EntityID:   l.EntityID,
			EntityName: l.EntityName,
			Details:    l.Details,
			CreatedAt:  l.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	return res, total, nil
}
