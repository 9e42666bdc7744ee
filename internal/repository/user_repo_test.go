package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linxi/internal/model"
)

func TestDeductBalanceSuccess(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewUserRepository(db)

	mock.ExpectExec("UPDATE `user` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.DeductBalance(context.Background(), nil, 1, decimal.NewFromInt(10))
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeductBalanceNotEnough(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewUserRepository(db)

	// 条件更新没命中任何行
	mock.ExpectExec("UPDATE `user` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	// 账户存在，说明是余额不足而不是用户缺失
	mock.ExpectQuery("SELECT (.+) FROM `user`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "gold_balance", "status"}).
			AddRow(1, "5.00", model.UserStatusNormal))

	err := repo.DeductBalance(context.Background(), nil, 1, decimal.NewFromInt(10))
	assert.ErrorIs(t, err, ErrBalanceNotEnough)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeductBalanceUserMissing(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewUserRepository(db)

	mock.ExpectExec("UPDATE `user` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	mock.ExpectQuery("SELECT (.+) FROM `user`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "gold_balance", "status"}))

	err := repo.DeductBalance(context.Background(), nil, 99, decimal.NewFromInt(10))
	assert.ErrorIs(t, err, ErrUserNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIncreaseBalance(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewUserRepository(db)

	mock.ExpectExec("UPDATE `user` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.IncreaseBalance(context.Background(), nil, 1, decimal.NewFromInt(100))
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIncreaseBalanceUserMissing(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewUserRepository(db)

	mock.ExpectExec("UPDATE `user` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.IncreaseBalance(context.Background(), nil, 99, decimal.NewFromInt(100))
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestGetStatus(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery("SELECT `status` FROM `user`").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(model.UserStatusBanned))

	status, err := repo.GetStatus(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, model.UserStatusBanned, status)
}
