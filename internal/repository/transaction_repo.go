package repository

import (
	"context"
	"errors"

	"linxi/internal/model"

	"gorm.io/gorm"
)

var ErrTransactionNotPending = errors.New("流水不是待支付状态")

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *gorm.DB, trans *model.CoinTransaction) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(trans).Error
}

func (r *TransactionRepository) GetByOutTradeNo(ctx context.Context, outTradeNo string) (*model.CoinTransaction, error) {
	var trans model.CoinTransaction
	err := r.db.WithContext(ctx).Where("out_trade_no = ?", outTradeNo).First(&trans).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &trans, nil
}

// MarkCompleted 把充值单从 PENDING 置为 COMPLETED
//
// 带状态条件更新：即使两个回调同时越过了前面的幂等检查，
// 也只有一个能改掉状态，另一个 RowsAffected 为 0
func (r *TransactionRepository) MarkCompleted(ctx context.Context, tx *gorm.DB, id int64) error {
	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).
		Model(&model.CoinTransaction{}).
		Where("id = ? AND status = ?", id, model.TransactionStatusPending).
		Update("status", model.TransactionStatusCompleted)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrTransactionNotPending
	}

	return nil
}

func (r *TransactionRepository) ListByUserID(ctx context.Context, userID int64, limit int) ([]*model.CoinTransaction, error) {
	var transactions []*model.CoinTransaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&transactions).Error
	return transactions, err
}
