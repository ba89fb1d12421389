package services

import (
	"context"
	"fmt"

	"github.com/sahilchouksey/byteboost-api/database"
	"github.com/sahilchouksey/byteboost-api/model"
	"gorm.io/gorm"
)

// AuditService writes and queries the append-only audit log
type AuditService struct {
	db *gorm.DB
}

// NewAuditService creates a new audit service
func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

// AuditFilter narrows the audit log listing
type AuditFilter struct {
	Action  string
	Target  string
	ActorID uint
	Page
}

// Record appends an entry to the audit log
func (s *AuditService) Record(ctx context.Context, entry *model.AuditLog) error {
	return database.Translate("audit_log", s.db.WithContext(ctx).Create(entry).Error)
}

// List returns audit entries newest first with the total matching count
func (s *AuditService) List(ctx context.Context, filter AuditFilter) ([]model.AuditLog, int64, error) {
	page := filter.Page.Normalize()

	query := s.db.WithContext(ctx).Model(&model.AuditLog{})
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.Target != "" {
		query = query.Where("target = ?", filter.Target)
	}
	if filter.ActorID != 0 {
		query = query.Where("actor_id = ?", filter.ActorID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	var logs []model.AuditLog
	err := query.Preload("Actor").
		Order("created_at DESC").Order("id DESC").
		Offset(page.offset()).Limit(page.PageSize).
		Find(&logs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return logs, total, nil
}
