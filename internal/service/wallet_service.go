package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"linxi/internal/config"
	"linxi/internal/infrastructure/lock"
	"linxi/internal/model"
	"linxi/internal/repository"
	"linxi/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrInvalidAmount       = errors.New("金额必须大于0")
	ErrInsufficientBalance = errors.New("余额不足")
	ErrInvalidSignature    = errors.New("回调签名不合法")
	ErrOrderNotFound       = errors.New("充值订单不存在")
)

type userBalanceStore interface {
	GetByID(ctx context.Context, userID int64) (*model.User, error)
	DeductBalance(ctx context.Context, tx *gorm.DB, userID int64, amount decimal.Decimal) error
	IncreaseBalance(ctx context.Context, tx *gorm.DB, userID int64, amount decimal.Decimal) error
}

type transactionStore interface {
	Create(ctx context.Context, tx *gorm.DB, trans *model.CoinTransaction) error
	GetByOutTradeNo(ctx context.Context, outTradeNo string) (*model.CoinTransaction, error)
	MarkCompleted(ctx context.Context, tx *gorm.DB, id int64) error
	ListByUserID(ctx context.Context, userID int64, limit int) ([]*model.CoinTransaction, error)
}

type auditStore interface {
	Create(ctx context.Context, tx *gorm.DB, entry *model.AuditLog) error
}

type outboxStore interface {
	Create(ctx context.Context, tx *gorm.DB, msg *model.OutboxMessage) error
}

type orderLock interface {
	Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error
	Unlock(ctx context.Context) error
}

// WalletService 金币钱包
// 余额变动只有两条路：Consume 的条件扣减和回调入账的增加，
// 两条路都在单个数据库事务里同时落流水
type WalletService struct {
	db           *gorm.DB
	cfg          *config.Config
	users        userBalanceStore
	transactions transactionStore
	audits       auditStore
	outbox       outboxStore
	newOrderLock func(outTradeNo, holder string) orderLock
}

func NewWalletService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *WalletService {
	return &WalletService{
		db:           db,
		cfg:          cfg,
		users:        repository.NewUserRepository(db),
		transactions: repository.NewTransactionRepository(db),
		audits:       repository.NewAuditLogRepository(db),
		outbox:       repository.NewOutboxRepository(db),
		newOrderLock: func(outTradeNo, holder string) orderLock {
			return lock.NewCallbackLock(redisClient, outTradeNo, holder)
		},
	}
}

// Wallet 余额查询结果
type Wallet struct {
	Balance      decimal.Decimal          `json:"balance"`
	Transactions []*model.CoinTransaction `json:"transactions"`
}

func (s *WalletService) GetWallet(ctx context.Context, userID int64) (*Wallet, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	transactions, err := s.transactions.ListByUserID(ctx, userID, 20)
	if err != nil {
		return nil, err
	}

	return &Wallet{
		Balance:      user.GoldBalance,
		Transactions: transactions,
	}, nil
}

// Consume 扣减金币并落一条 COMPLETED 的负数流水
//
// 【关键点】扣减和流水必须在同一个事务里：
// 条件更新影响 0 行时返回余额不足，事务里什么都不会写。
// 并发扣同一账户时由数据库行级更新保证只有一个成功。
func (s *WalletService) Consume(ctx context.Context, userID int64, amount decimal.Decimal, txType, remark string) (*model.CoinTransaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}

	transaction := &model.CoinTransaction{
		UserID: userID,
		Amount: amount.Neg(),
		Type:   txType,
		Status: model.TransactionStatusCompleted,
		Remark: remark,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.users.DeductBalance(ctx, tx, userID, amount); err != nil {
			if errors.Is(err, repository.ErrBalanceNotEnough) {
				return ErrInsufficientBalance
			}
			return fmt.Errorf("扣款失败: %w", err)
		}

		if err := s.transactions.Create(ctx, tx, transaction); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return transaction, nil
}

// RechargeOrder 充值下单结果
type RechargeOrder struct {
	TransactionID int64  `json:"transaction_id"`
	OutTradeNo    string `json:"out_trade_no"`
	PaymentURL    string `json:"payment_url"`
}

// CreateRechargeOrder 创建充值订单
// 只落一条 PENDING 流水，不动余额；入账等网关回调
func (s *WalletService) CreateRechargeOrder(ctx context.Context, userID int64, amount decimal.Decimal, remark string) (*RechargeOrder, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}

	if remark == "" {
		remark = "用户充值"
	}

	outTradeNo := idgen.GenerateOutTradeNo()
	sign := s.signOutTradeNo(outTradeNo)

	transaction := &model.CoinTransaction{
		UserID:     userID,
		Amount:     amount,
		Type:       model.TransactionTypeRecharge,
		Status:     model.TransactionStatusPending,
		OutTradeNo: &outTradeNo,
		Remark:     remark,
	}

	if err := s.transactions.Create(ctx, nil, transaction); err != nil {
		return nil, fmt.Errorf("创建充值订单失败: %w", err)
	}

	paymentURL := fmt.Sprintf("%s?outTradeNo=%s&amount=%s&sign=%s",
		s.cfg.Payment.GatewayURL, outTradeNo, amount.String(), sign)

	return &RechargeOrder{
		TransactionID: transaction.ID,
		OutTradeNo:    outTradeNo,
		PaymentURL:    paymentURL,
	}, nil
}

// HandleRechargeCallback 处理支付网关回调
//
// 网关是至少一次投递，这里的幂等是硬要求：
// 1. 签名不对直接拒绝，不碰任何数据
// 2. 已入账的订单重复回调按成功返回，不再入账
// 3. 订单号维度加锁 + 状态条件更新，双保险防并发重复入账
// 4. 状态翻转、余额增加、审计日志在同一个事务里
func (s *WalletService) HandleRechargeCallback(ctx context.Context, outTradeNo, sign string) error {
	expected := s.signOutTradeNo(outTradeNo)
	if !hmac.Equal([]byte(sign), []byte(expected)) {
		log.Printf("[WalletService] 回调签名校验失败: outTradeNo=%s", outTradeNo)
		return ErrInvalidSignature
	}

	transaction, err := s.transactions.GetByOutTradeNo(ctx, outTradeNo)
	if err != nil {
		return fmt.Errorf("查询充值订单失败: %w", err)
	}
	if transaction == nil {
		return ErrOrderNotFound
	}
	if transaction.Status == model.TransactionStatusCompleted {
		log.Printf("[WalletService] 重复回调，订单已入账: outTradeNo=%s", outTradeNo)
		return nil
	}

	holder := fmt.Sprintf("cb%d", idgen.NextID())
	orderLock := s.newOrderLock(outTradeNo, holder)
	if err := orderLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
		return fmt.Errorf("系统繁忙，请稍后重试: %w", err)
	}
	defer orderLock.Unlock(ctx)

	// 拿到锁后重新确认状态
	transaction, err = s.transactions.GetByOutTradeNo(ctx, outTradeNo)
	if err != nil {
		return fmt.Errorf("查询充值订单失败: %w", err)
	}
	if transaction == nil {
		return ErrOrderNotFound
	}
	if transaction.Status == model.TransactionStatusCompleted {
		return nil
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.transactions.MarkCompleted(ctx, tx, transaction.ID); err != nil {
			return fmt.Errorf("更新流水状态失败: %w", err)
		}

		if err := s.users.IncreaseBalance(ctx, tx, transaction.UserID, transaction.Amount); err != nil {
			return fmt.Errorf("充值入账失败: %w", err)
		}

		// 回调没有管理员身份，审计主体记充值用户自己
		entry := &model.AuditLog{
			AdminID: transaction.UserID,
			Action:  model.AuditActionRechargeSuccess,
			Target:  fmt.Sprintf("Transaction:%d", transaction.ID),
			Details: fmt.Sprintf("金额: %s, 订单号: %s", transaction.Amount.String(), outTradeNo),
		}
		if err := s.audits.Create(ctx, tx, entry); err != nil {
			return fmt.Errorf("记录审计日志失败: %w", err)
		}

		msgPayload := map[string]interface{}{
			"out_trade_no":   outTradeNo,
			"transaction_id": transaction.ID,
			"user_id":        transaction.UserID,
			"amount":         transaction.Amount.String(),
			"completed_at":   time.Now().Format(time.RFC3339),
		}
		payloadBytes, _ := json.Marshal(msgPayload)

		outboxMsg := &model.OutboxMessage{
			MessageKey: outTradeNo,
			Topic:      s.cfg.Kafka.Topic.PaymentResult,
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

	log.Printf("[WalletService] 充值入账成功: outTradeNo=%s, userID=%d, amount=%s",
		outTradeNo, transaction.UserID, transaction.Amount.String())
	return nil
}

func (s *WalletService) signOutTradeNo(outTradeNo string) string {
	mac := hmac.New(sha256.New, []byte(s.cfg.Payment.Secret))
	mac.Write([]byte(outTradeNo))
	return hex.EncodeToString(mac.Sum(nil))
}
