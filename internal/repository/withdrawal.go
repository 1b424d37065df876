package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/more249-s/Maga-Bot-V4/internal/model"
)

const withdrawalColumns = `id, user_id, amount, method, status, created_at`

// WithdrawalRepository handles withdrawal request persistence.
type WithdrawalRepository struct {
	db sqlx.ExtContext
}

// NewWithdrawalRepository creates a new WithdrawalRepository instance.
func NewWithdrawalRepository(db sqlx.ExtContext) *WithdrawalRepository {
	return &WithdrawalRepository{db: db}
}

// Create inserts a pending withdrawal request.
func (r *WithdrawalRepository) Create(ctx context.Context, userID int64, amount decimal.Decimal, method string, createdAt time.Time) (*model.Withdrawal, error) {
	const query = `
		INSERT INTO withdrawals (user_id, amount, method, status, created_at)
		VALUES (?, ?, ?, ?, ?)`

	id, err := insertID(ctx, r.db, query, userID, amount, method, model.WithdrawalPending, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create withdrawal: %w", err)
	}

	return r.GetByID(ctx, id)
}

// GetByID retrieves a withdrawal.
func (r *WithdrawalRepository) GetByID(ctx context.Context, id int64) (*model.Withdrawal, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE id = ?`

	var w model.Withdrawal
	if err := sqlx.GetContext(ctx, r.db, &w, r.db.Rebind(query), id); err != nil {
		return nil, fmt.Errorf("failed to get withdrawal: %w", err)
	}

	return &w, nil
}

// GetByUserID retrieves a user's withdrawals, newest first.
func (r *WithdrawalRepository) GetByUserID(ctx context.Context, userID int64, limit int) ([]*model.Withdrawal, error) {
	query := `
		SELECT ` + withdrawalColumns + `
		FROM withdrawals
		WHERE user_id = ?
		ORDER BY id DESC
		LIMIT ?
	`

	var ws []*model.Withdrawal
	if err := sqlx.SelectContext(ctx, r.db, &ws, r.db.Rebind(query), userID, limit); err != nil {
		return nil, fmt.Errorf("failed to get withdrawals: %w", err)
	}
	return ws, nil
}
