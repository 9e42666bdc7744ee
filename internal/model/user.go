package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	UserStatusNormal = "NORMAL"
	UserStatusBanned = "BANNED"
)

const (
	UserRoleUser  = "USER"
	UserRoleAdmin = "ADMIN"
)

// User 用户表
// 金币余额是整个钱包子系统的核心数据，只允许通过
// WalletService 的条件更新修改，禁止读出来再写回去
type User struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Phone       string          `gorm:"type:varchar(20);uniqueIndex;not null" json:"phone"`
	Nickname    string          `gorm:"type:varchar(64)" json:"nickname"`
	AvatarURL   string          `gorm:"type:varchar(256)" json:"avatar_url"`
	GoldBalance decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"gold_balance"` // 金币余额，精确到分
	Status      string          `gorm:"type:varchar(20);index;not null;default:NORMAL" json:"status"`
	Role        string          `gorm:"type:varchar(20);not null;default:USER" json:"role"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "user"
}
