package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linxi/internal/model"
)

func TestReportUpdateStatus(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewReportRepository(db)

	mock.ExpectExec("UPDATE `report` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), nil, 1, model.ReportStatusPending, model.ReportStatusAccepted)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportUpdateStatusIllegalTransition(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewReportRepository(db)

	// 终态不允许再流转，连数据库都不应该碰
	err := repo.UpdateStatus(context.Background(), nil, 1, model.ReportStatusAccepted, model.ReportStatusRejected)
	assert.ErrorIs(t, err, ErrReportStatusInvalid)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportUpdateStatusConcurrentLoser(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewReportRepository(db)

	mock.ExpectExec("UPDATE `report` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), nil, 1, model.ReportStatusPending, model.ReportStatusRejected)
	assert.ErrorIs(t, err, ErrReportStatusInvalid)
}

func TestReportGetByIDMissing(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewReportRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM `report`").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), 404)
	assert.ErrorIs(t, err, ErrReportNotFound)
}
