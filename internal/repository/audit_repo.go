package repository

import (
	"context"

	"linxi/internal/model"

	"gorm.io/gorm"
)

type AuditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

func (r *AuditLogRepository) Create(ctx context.Context, tx *gorm.DB, entry *model.AuditLog) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(entry).Error
}

func (r *AuditLogRepository) List(ctx context.Context, limit, offset int) ([]*model.AuditLog, error) {
	var entries []*model.AuditLog
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&entries).Error
	return entries, err
}
