package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"linxi/internal/config"
	"linxi/internal/model"
	"linxi/internal/repository"

	"gorm.io/gorm"
)

var (
	ErrReportNotFound  = errors.New("举报不存在")
	ErrReportProcessed = errors.New("举报已处理")
)

type reportStore interface {
	GetByID(ctx context.Context, id int64) (*model.Report, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, id int64, fromStatus, toStatus string) error
	List(ctx context.Context, limit, offset int) ([]*model.Report, int64, error)
}

type postStore interface {
	GetByID(ctx context.Context, id int64) (*model.Post, error)
	SoftDelete(ctx context.Context, tx *gorm.DB, id int64) error
}

type bannableUserStore interface {
	GetByID(ctx context.Context, userID int64) (*model.User, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, userID int64, status string) error
}

type statusOverrider interface {
	Override(ctx context.Context, userID int64, status string) error
}

// AdminService 举报处理与审计
type AdminService struct {
	db      *gorm.DB
	cfg     *config.Config
	reports reportStore
	posts   postStore
	users   bannableUserStore
	audits  auditStore
	outbox  outboxStore
	status  statusOverrider
}

func NewAdminService(db *gorm.DB, cfg *config.Config, status *StatusService) *AdminService {
	return &AdminService{
		db:      db,
		cfg:     cfg,
		reports: repository.NewReportRepository(db),
		posts:   repository.NewPostRepository(db),
		users:   repository.NewUserRepository(db),
		audits:  repository.NewAuditLogRepository(db),
		outbox:  repository.NewOutboxRepository(db),
		status:  status,
	}
}

// ProcessReport 处理举报，每条举报只处理一次
//
// 事务内三件事必须同生共死：
//   a. 举报状态 PENDING -> ACCEPTED/REJECTED（条件更新，天然防并发重复处理）
//   b. 审计日志
//   c. 通过时的处置：动态软删除 / 用户封禁
//
// 缓存覆盖放在事务提交之后：缓存和主库不在一个事务域里，
// 覆盖失败只记日志不回滚——主库已经是权威结果，缓存最迟 TTL 到期后追平
func (s *AdminService) ProcessReport(ctx context.Context, adminID, reportID int64, accepted bool, details string) error {
	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, repository.ErrReportNotFound) {
			return ErrReportNotFound
		}
		return fmt.Errorf("查询举报失败: %w", err)
	}

	if report.Status != model.ReportStatusPending {
		return ErrReportProcessed
	}

	toStatus := model.ReportStatusRejected
	action := model.AuditActionReportRejected
	if accepted {
		toStatus = model.ReportStatusAccepted
		action = model.AuditActionReportAccepted
	}

	if details == "" {
		details = fmt.Sprintf("对象: %s:%d, 理由: %s", report.TargetType, report.TargetID, report.Reason)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.reports.UpdateStatus(ctx, tx, reportID, model.ReportStatusPending, toStatus); err != nil {
			if errors.Is(err, repository.ErrReportStatusInvalid) {
				// 并发处理时条件更新只让一个通过
				return ErrReportProcessed
			}
			return fmt.Errorf("更新举报状态失败: %w", err)
		}

		entry := &model.AuditLog{
			AdminID: adminID,
			Action:  action,
			Target:  fmt.Sprintf("Report:%d", reportID),
			Details: details,
		}
		if err := s.audits.Create(ctx, tx, entry); err != nil {
			return fmt.Errorf("记录审计日志失败: %w", err)
		}

		if accepted {
			switch report.TargetType {
			case model.ReportTargetPost:
				if err := s.posts.SoftDelete(ctx, tx, report.TargetID); err != nil {
					return fmt.Errorf("下架动态失败: %w", err)
				}
			case model.ReportTargetUser:
				if err := s.users.UpdateStatus(ctx, tx, report.TargetID, model.UserStatusBanned); err != nil {
					return fmt.Errorf("封禁用户失败: %w", err)
				}
			}
			// COMMENT 只流转状态和记审计，评论内容不在本服务范围
		}

		msgPayload := map[string]interface{}{
			"report_id":   reportID,
			"admin_id":    adminID,
			"accepted":    accepted,
			"target_type": report.TargetType,
			"target_id":   report.TargetID,
		}
		payloadBytes, _ := json.Marshal(msgPayload)

		outboxMsg := &model.OutboxMessage{
			MessageKey: fmt.Sprintf("report-%d", reportID),
			Topic:      s.cfg.Kafka.Topic.ModerationResult,
			Payload:    string(payloadBytes),
			Status:     model.OutboxStatusPending,
		}
		if err := s.outbox.Create(ctx, tx, outboxMsg); err != nil {
			return fmt.Errorf("写入消息失败: %w", err)
		}

		return nil
	})

	if err != nil {
		return err
	}

	// 封禁生效后立即覆盖状态缓存，下一个请求的封禁检查就能看到
	if accepted && report.TargetType == model.ReportTargetUser {
		if err := s.status.Override(ctx, report.TargetID, model.UserStatusBanned); err != nil {
			log.Printf("[AdminService] 覆盖状态缓存失败: userID=%d, err=%v", report.TargetID, err)
		}
	}

	log.Printf("[AdminService] 举报处理完成: reportID=%d, adminID=%d, accepted=%v", reportID, adminID, accepted)
	return nil
}

// ReportView 举报列表项，按对象类型带出详情
type ReportView struct {
	*model.Report
	TargetDetail *model.ReportTargetDetail `json:"target_detail,omitempty"`
}

// ListReports 举报列表，最新的在前
func (s *AdminService) ListReports(ctx context.Context, limit, offset int) ([]*ReportView, int64, error) {
	reports, total, err := s.reports.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	views := make([]*ReportView, 0, len(reports))
	for _, report := range reports {
		view := &ReportView{Report: report}

		switch report.TargetType {
		case model.ReportTargetPost:
			if post, err := s.posts.GetByID(ctx, report.TargetID); err == nil {
				view.TargetDetail = &model.ReportTargetDetail{Post: post}
			}
		case model.ReportTargetUser:
			if user, err := s.users.GetByID(ctx, report.TargetID); err == nil {
				view.TargetDetail = &model.ReportTargetDetail{
					User: &model.UserSummary{
						ID:        user.ID,
						Nickname:  user.Nickname,
						AvatarURL: user.AvatarURL,
						Status:    user.Status,
					},
				}
			}
		case model.ReportTargetComment:
			targetID := report.TargetID
			view.TargetDetail = &model.ReportTargetDetail{Comment: &targetID}
		}

		views = append(views, view)
	}

	return views, total, nil
}
