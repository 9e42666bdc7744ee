package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"linxi/internal/config"
	"linxi/internal/model"
	"linxi/internal/repository"
)

// newTestDB 挂在 sqlmock 上的 gorm 实例，只用来走 db.Transaction 的边界
// 仓储全部换成假实现，期望里只剩 Begin/Commit/Rollback
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      conn,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Discard,
	})
	require.NoError(t, err)

	return db, mock
}

func newTestConfig() *config.Config {
	return &config.Config{
		Payment: config.PaymentConfig{
			Secret:     "mock_secret_key",
			GatewayURL: "https://pay.example.com/gateway",
		},
		Kafka: config.KafkaConfig{
			Topic: config.KafkaTopicConfig{
				PaymentResult:    "linxi_payment_result",
				ModerationResult: "linxi_moderation_result",
			},
		},
	}
}

// ============================================================
// 仓储假实现
// ============================================================

type fakeUserStore struct {
	users       map[int64]*model.User
	deducted    []decimal.Decimal
	increased   []decimal.Decimal
	statusSets  map[int64]string
	deductErr   error
	increaseErr error
}

func newFakeUserStore(users ...*model.User) *fakeUserStore {
	f := &fakeUserStore{
		users:      make(map[int64]*model.User),
		statusSets: make(map[int64]string),
	}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUserStore) GetByID(ctx context.Context, userID int64) (*model.User, error) {
	user, ok := f.users[userID]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserStore) DeductBalance(ctx context.Context, tx *gorm.DB, userID int64, amount decimal.Decimal) error {
	if f.deductErr != nil {
		return f.deductErr
	}
	f.deducted = append(f.deducted, amount)
	return nil
}

func (f *fakeUserStore) IncreaseBalance(ctx context.Context, tx *gorm.DB, userID int64, amount decimal.Decimal) error {
	if f.increaseErr != nil {
		return f.increaseErr
	}
	f.increased = append(f.increased, amount)
	return nil
}

func (f *fakeUserStore) UpdateStatus(ctx context.Context, tx *gorm.DB, userID int64, status string) error {
	f.statusSets[userID] = status
	return nil
}

type fakeTransactionStore struct {
	created  []*model.CoinTransaction
	byNo     map[string]*model.CoinTransaction
	marked   []int64
	markErr  error
	listResp []*model.CoinTransaction
}

func newFakeTransactionStore() *fakeTransactionStore {
	return &fakeTransactionStore{byNo: make(map[string]*model.CoinTransaction)}
}

func (f *fakeTransactionStore) Create(ctx context.Context, tx *gorm.DB, trans *model.CoinTransaction) error {
	trans.ID = int64(len(f.created) + 1)
	f.created = append(f.created, trans)
	return nil
}

func (f *fakeTransactionStore) GetByOutTradeNo(ctx context.Context, outTradeNo string) (*model.CoinTransaction, error) {
	return f.byNo[outTradeNo], nil
}

func (f *fakeTransactionStore) MarkCompleted(ctx context.Context, tx *gorm.DB, id int64) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.marked = append(f.marked, id)
	return nil
}

func (f *fakeTransactionStore) ListByUserID(ctx context.Context, userID int64, limit int) ([]*model.CoinTransaction, error) {
	return f.listResp, nil
}

type fakeAuditStore struct {
	entries []*model.AuditLog
}

func (f *fakeAuditStore) Create(ctx context.Context, tx *gorm.DB, entry *model.AuditLog) error {
	f.entries = append(f.entries, entry)
	return nil
}

type fakeOutboxStore struct {
	messages []*model.OutboxMessage
}

func (f *fakeOutboxStore) Create(ctx context.Context, tx *gorm.DB, msg *model.OutboxMessage) error {
	f.messages = append(f.messages, msg)
	return nil
}

type fakeOrderLock struct {
	locked   bool
	unlocked bool
	lockErr  error
}

func (f *fakeOrderLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	if f.lockErr != nil {
		return f.lockErr
	}
	f.locked = true
	return nil
}

func (f *fakeOrderLock) Unlock(ctx context.Context) error {
	f.unlocked = true
	return nil
}
