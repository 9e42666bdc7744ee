package repository

import (
	"context"
	"errors"

	"linxi/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound     = errors.New("用户不存在")
	ErrBalanceNotEnough = errors.New("余额不足")
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) GetByID(ctx context.Context, userID int64) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetStatus 只取状态字段，给状态缓存回源用
func (r *UserRepository) GetStatus(ctx context.Context, userID int64) (string, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Select("status").
		Where("id = ?", userID).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrUserNotFound
		}
		return "", err
	}
	return user.Status, nil
}

// DeductBalance 条件扣减余额
//
// 【关键点】扣款必须是一条带余额判断的条件更新，绝不能先查后写：
// 两个并发请求同时扣同一个账户时，数据库对同一行的更新互斥，
// 第二个请求执行时余额已经不满足条件，RowsAffected 为 0。
// 余额只够一次扣款时，恰好一个成功、一个返回余额不足。
func (r *UserRepository) DeductBalance(ctx context.Context, tx *gorm.DB, userID int64, amount decimal.Decimal) error {
	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ? AND gold_balance >= ?", userID, amount).
		Update("gold_balance", gorm.Expr("gold_balance - ?", amount))

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		// 区分账户不存在和余额不足
		if _, err := r.GetByID(ctx, userID); err != nil {
			return err
		}
		return ErrBalanceNotEnough
	}

	return nil
}

// IncreaseBalance 增加余额（充值入账）
func (r *UserRepository) IncreaseBalance(ctx context.Context, tx *gorm.DB, userID int64, amount decimal.Decimal) error {
	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		Update("gold_balance", gorm.Expr("gold_balance + ?", amount))

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// UpdateStatus 更新用户状态（封禁/解封）
func (r *UserRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, userID int64, status string) error {
	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		Update("status", status)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}
