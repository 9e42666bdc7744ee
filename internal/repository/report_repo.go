package repository

import (
	"context"
	"errors"

	"linxi/internal/model"

	"gorm.io/gorm"
)

var (
	ErrReportNotFound      = errors.New("举报不存在")
	ErrReportStatusInvalid = errors.New("举报状态不合法")
)

type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) Create(ctx context.Context, tx *gorm.DB, report *model.Report) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(report).Error
}

func (r *ReportRepository) GetByID(ctx context.Context, id int64) (*model.Report, error) {
	var report model.Report
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&report).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}
	return &report, nil
}

// UpdateStatus 状态条件流转
// 两个管理员同时处理同一条举报时，只有一个能把 PENDING 改掉
func (r *ReportRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, id int64, fromStatus, toStatus string) error {
	if !model.CanTransitionReport(fromStatus, toStatus) {
		return ErrReportStatusInvalid
	}

	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).
		Model(&model.Report{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Update("status", toStatus)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrReportStatusInvalid
	}

	return nil
}

func (r *ReportRepository) List(ctx context.Context, limit, offset int) ([]*model.Report, int64, error) {
	var reports []*model.Report
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Report{})

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&reports).Error

	return reports, total, err
}
