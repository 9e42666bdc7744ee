package model

import (
	"time"
)

const (
	ReportStatusPending  = "PENDING"
	ReportStatusAccepted = "ACCEPTED"
	ReportStatusRejected = "REJECTED"
)

const (
	ReportTargetPost    = "POST"
	ReportTargetUser    = "USER"
	ReportTargetComment = "COMMENT"
)

// 举报状态机：PENDING 是唯一的非终态
var validReportTransitions = map[string][]string{
	ReportStatusPending: {ReportStatusAccepted, ReportStatusRejected},
}

// CanTransitionReport 校验举报状态流转是否合法
func CanTransitionReport(currentStatus, targetStatus string) bool {
	allowed, exists := validReportTransitions[currentStatus]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == targetStatus {
			return true
		}
	}
	return false
}

// IsValidReportTarget 校验举报对象类型
func IsValidReportTarget(targetType string) bool {
	switch targetType {
	case ReportTargetPost, ReportTargetUser, ReportTargetComment:
		return true
	}
	return false
}

// Report 举报表
// 由任意用户创建，由管理员处理且只处理一次，不删除
type Report struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ReporterID int64     `gorm:"index;not null" json:"reporter_id"`
	TargetType string    `gorm:"type:varchar(20);not null" json:"target_type"`
	TargetID   int64     `gorm:"not null" json:"target_id"`
	Reason     string    `gorm:"type:varchar(512);not null" json:"reason"`
	Status     string    `gorm:"type:varchar(20);index;not null;default:PENDING" json:"status"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Report) TableName() string {
	return "report"
}

// ReportTargetDetail 举报对象详情，按 TargetType 只填充对应的一个分支
type ReportTargetDetail struct {
	Post    *Post        `json:"post,omitempty"`
	User    *UserSummary `json:"user,omitempty"`
	Comment *int64       `json:"comment_id,omitempty"` // 评论只回传ID，内容不在本服务范围
}

// UserSummary 举报详情里回传的用户摘要
type UserSummary struct {
	ID        int64  `json:"id"`
	Nickname  string `json:"nickname"`
	AvatarURL string `json:"avatar_url"`
	Status    string `json:"status"`
}
