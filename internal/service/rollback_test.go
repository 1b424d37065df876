package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/more249-s/Maga-Bot-V4/internal/config"
	"github.com/more249-s/Maga-Bot-V4/internal/repository"
)

var userRowColumns = []string{"id", "discord_id", "username", "points", "balance", "accepted_chapters", "rank", "withdraw_method"}

func setupMockStore(t *testing.T) (*repository.Store, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	return repository.NewStore(sqlx.NewDb(mockDB, config.DriverSQLite)), mock
}

// A failed withdrawal insert must not leave the ledger half-written.
func TestRequestWithdrawal_RollsBackOnStorageFailure(t *testing.T) {
	store, mock := setupMockStore(t)
	svc := NewWithdrawalService(store)
	diskErr := errors.New("disk I/O error")

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM users WHERE discord_id = \?`).
		WithArgs("1001").
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(1, "1001", "alice", 0, "10", 0, "Member", nil))
	mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \?`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(1, "1001", "alice", 0, "10", 0, "Member", nil))
	mock.ExpectQuery(`INSERT INTO withdrawals`).
		WillReturnError(diskErr)
	mock.ExpectRollback()

	_, err := svc.RequestWithdrawal(context.Background(), "1001", "alice", decimal.NewFromInt(10), "Binance")
	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, diskErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A failed audit append after the reward was saved rolls the approval back.
func TestApplyApproval_RollsBackOnLogFailure(t *testing.T) {
	store, mock := setupMockStore(t)
	svc := NewReviewService(store, "default")

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM submissions WHERE id = \?`).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "content", "status", "created_at"}).
			AddRow(7, 1, "chapter", "pending", time.Now()))
	mock.ExpectExec(`UPDATE submissions SET status = \? WHERE id = \? AND status = \?`).
		WithArgs("approved", 7, "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT .+ FROM pricing`).
		WithArgs("default").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \?`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(1, "1001", "alice", 0, "0", 0, "Member", nil))
	mock.ExpectExec(`UPDATE users`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO logs`).
		WillReturnError(errors.New("database is locked"))
	mock.ExpectRollback()

	_, err := svc.ApplyApproval(context.Background(), 7)
	assert.ErrorIs(t, err, ErrStorage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A storage failure before any write still surfaces as ErrStorage, not NotFound.
func TestApplyRejection_LookupFailureIsStorageError(t *testing.T) {
	store, mock := setupMockStore(t)
	svc := NewReviewService(store, "default")

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM submissions WHERE id = \?`).
		WithArgs(7).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := svc.ApplyRejection(context.Background(), 7)
	assert.ErrorIs(t, err, ErrStorage)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
