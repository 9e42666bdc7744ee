package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================================
// 交易类型 / 状态常量
// ============================================================================

const (
	TransactionTypeRecharge = "RECHARGE" // 充值
	TransactionTypeConsume  = "CONSUME"  // 消费（聊天扣费等）
)

const (
	TransactionStatusPending   = "PENDING"   // 充值单已创建，等待网关回调
	TransactionStatusCompleted = "COMPLETED" // 已入账
)

// ============================================================================
// 金币流水实体
// ============================================================================

// CoinTransaction 金币流水表
// 记录账户的每一笔资金变动，是对账的核心依据
//
// 【重要】流水表设计原则：
// 1. 只追加，不修改状态之外的字段 —— 保证审计可追溯
// 2. 金额带符号：正数入账，负数出账
// 3. COMPLETED 流水之和必须等于账户余额
//
// OutTradeNo 只在充值单上存在，唯一索引保证回调幂等查找；
// 消费流水没有外部单号，创建即 COMPLETED。
type CoinTransaction struct {
	ID         int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     int64           `gorm:"index;not null" json:"user_id"`
	Amount     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Type       string          `gorm:"type:varchar(20);not null" json:"type"`
	Status     string          `gorm:"type:varchar(20);index;not null" json:"status"`
	OutTradeNo *string         `gorm:"type:varchar(64);uniqueIndex" json:"out_trade_no,omitempty"` // 外部订单号，仅充值单
	Remark     string          `gorm:"type:varchar(256)" json:"remark"`
	CreatedAt  time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (CoinTransaction) TableName() string {
	return "coin_transaction"
}
