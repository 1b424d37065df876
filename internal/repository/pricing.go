package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/more249-s/Maga-Bot-V4/internal/model"
)

const pricingColumns = `id, type, value, role_name, updated_at`

// PricingRepository handles the append-only pricing history.
type PricingRepository struct {
	db sqlx.ExtContext
}

// NewPricingRepository creates a new PricingRepository instance.
func NewPricingRepository(db sqlx.ExtContext) *PricingRepository {
	return &PricingRepository{db: db}
}

// Create appends a pricing rule for a scope. Earlier rows are left untouched.
func (r *PricingRepository) Create(ctx context.Context, rewardType model.RewardType, value decimal.Decimal, scope string, at time.Time) (*model.PricingRule, error) {
	const query = `
		INSERT INTO pricing (type, value, role_name, updated_at)
		VALUES (?, ?, ?, ?)`

	id, err := insertID(ctx, r.db, query, rewardType, value, scope, at)
	if err != nil {
		return nil, fmt.Errorf("failed to create pricing rule: %w", err)
	}

	get := `SELECT ` + pricingColumns + ` FROM pricing WHERE id = ?`
	var rule model.PricingRule
	if err := sqlx.GetContext(ctx, r.db, &rule, r.db.Rebind(get), id); err != nil {
		return nil, fmt.Errorf("failed to get pricing rule: %w", err)
	}

	return &rule, nil
}

// GetEffective returns the most recently inserted rule for the scope.
// Insertion order decides, not value or timestamp.
// Returns ErrNoPricing when the scope has no rule yet.
func (r *PricingRepository) GetEffective(ctx context.Context, scope string) (*model.PricingRule, error) {
	query := `
		SELECT ` + pricingColumns + `
		FROM pricing
		WHERE role_name = ?
		ORDER BY id DESC
		LIMIT 1
	`

	var rule model.PricingRule
	if err := sqlx.GetContext(ctx, r.db, &rule, r.db.Rebind(query), scope); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoPricing
		}
		return nil, fmt.Errorf("failed to get pricing rule: %w", err)
	}

	return &rule, nil
}

// History returns the pricing rules of a scope, newest first.
func (r *PricingRepository) History(ctx context.Context, scope string, limit int) ([]*model.PricingRule, error) {
	query := `
		SELECT ` + pricingColumns + `
		FROM pricing
		WHERE role_name = ?
		ORDER BY id DESC
		LIMIT ?
	`

	var rules []*model.PricingRule
	if err := sqlx.SelectContext(ctx, r.db, &rules, r.db.Rebind(query), scope, limit); err != nil {
		return nil, fmt.Errorf("failed to get pricing history: %w", err)
	}
	return rules, nil
}
