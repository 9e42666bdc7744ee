package service

import (
	"context"
	"errors"
	"fmt"

	"linxi/internal/model"
	"linxi/internal/repository"

	"gorm.io/gorm"
)

var ErrInvalidReportTarget = errors.New("举报对象类型不合法")

type reportCreator interface {
	Create(ctx context.Context, tx *gorm.DB, report *model.Report) error
}

type reportCountIncrementer interface {
	IncrementReportCount(ctx context.Context, tx *gorm.DB, id int64) error
}

// ReportService 举报提交
type ReportService struct {
	db      *gorm.DB
	reports reportCreator
	posts   reportCountIncrementer
}

func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{
		db:      db,
		reports: repository.NewReportRepository(db),
		posts:   repository.NewPostRepository(db),
	}
}

// CreateReport 提交举报
// 举报动态时同步累加动态的被举报次数，方便后台排序
func (s *ReportService) CreateReport(ctx context.Context, reporterID int64, targetType string, targetID int64, reason string) (*model.Report, error) {
	if !model.IsValidReportTarget(targetType) {
		return nil, ErrInvalidReportTarget
	}

	report := &model.Report{
		ReporterID: reporterID,
		TargetType: targetType,
		TargetID:   targetID,
		Reason:     reason,
		Status:     model.ReportStatusPending,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.reports.Create(ctx, tx, report); err != nil {
			return fmt.Errorf("创建举报失败: %w", err)
		}

		if targetType == model.ReportTargetPost {
			if err := s.posts.IncrementReportCount(ctx, tx, targetID); err != nil {
				return fmt.Errorf("累加举报计数失败: %w", err)
			}
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return report, nil
}
