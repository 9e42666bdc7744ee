package model

import (
	"time"
)

const (
	AuditActionRechargeSuccess = "RECHARGE_SUCCESS"
	AuditActionReportAccepted  = "REPORT_ACCEPTED"
	AuditActionReportRejected  = "REPORT_REJECTED"
)

// AuditLog 审计日志表，只追加
// 充值回调入账时没有管理员身份，记录充值用户自己的ID
type AuditLog struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	AdminID   int64     `gorm:"index;not null" json:"admin_id"`
	Action    string    `gorm:"type:varchar(32);not null" json:"action"`
	Target    string    `gorm:"type:varchar(64);not null" json:"target"` // 形如 Report:12 / Transaction:34
	Details   string    `gorm:"type:varchar(512)" json:"details"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_log"
}
