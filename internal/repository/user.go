// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/more249-s/Maga-Bot-V4/internal/model"
)

// Common errors for repository operations.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrNoPricing          = errors.New("no pricing rule")
)

const userColumns = `id, discord_id, username, points, balance, accepted_chapters, rank, withdraw_method`

// UserRepository handles user data persistence.
type UserRepository struct {
	db sqlx.ExtContext
}

// NewUserRepository creates a new UserRepository instance.
func NewUserRepository(db sqlx.ExtContext) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user with the given Discord ID and display name.
// Counters start at zero and the rank at Member.
func (r *UserRepository) Create(ctx context.Context, discordID string, username string) (*model.User, error) {
	const query = `
		INSERT INTO users (discord_id, username, points, balance, accepted_chapters, rank)
		VALUES (?, ?, 0, 0, 0, ?)`

	id, err := insertID(ctx, r.db, query, discordID, username, model.RankMember)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return r.GetByID(ctx, id)
}

// GetByID retrieves a user by the internal row ID.
// Returns ErrUserNotFound if the user does not exist.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return r.get(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// GetByIDForUpdate retrieves a user and, where the dialect supports it,
// locks the row until the surrounding transaction ends.
func (r *UserRepository) GetByIDForUpdate(ctx context.Context, id int64) (*model.User, error) {
	return r.get(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`+forUpdate(r.db), id)
}

// GetByDiscordID retrieves a user by external Discord identity.
// Returns ErrUserNotFound if the user does not exist.
func (r *UserRepository) GetByDiscordID(ctx context.Context, discordID string) (*model.User, error) {
	return r.get(ctx, `SELECT `+userColumns+` FROM users WHERE discord_id = ?`, discordID)
}

func (r *UserRepository) get(ctx context.Context, query string, arg any) (*model.User, error) {
	var user model.User
	err := sqlx.GetContext(ctx, r.db, &user, r.db.Rebind(query), arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// GetOrCreate retrieves a user by Discord ID, creating one if it doesn't exist.
// The second return value reports whether the user was created.
func (r *UserRepository) GetOrCreate(ctx context.Context, discordID string, username string) (*model.User, bool, error) {
	user, err := r.GetByDiscordID(ctx, discordID)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, false, err
	}

	user, err = r.Create(ctx, discordID, username)
	if err != nil {
		return nil, false, err
	}

	return user, true, nil
}

// UpdateUsername updates a user's display name.
func (r *UserRepository) UpdateUsername(ctx context.Context, id int64, username string) error {
	const query = `UPDATE users SET username = ? WHERE id = ?`
	return r.exec(ctx, "update username", query, username, id)
}

// SaveTotals persists the reward counters and rank of a user.
func (r *UserRepository) SaveTotals(ctx context.Context, user *model.User) error {
	const query = `
		UPDATE users
		SET points = ?, balance = ?, accepted_chapters = ?, rank = ?
		WHERE id = ?
	`
	return r.exec(ctx, "save totals", query,
		user.Points, user.Balance, user.AcceptedChapters, user.Rank, user.ID)
}

// SetBalance sets a user's balance to an exact value.
func (r *UserRepository) SetBalance(ctx context.Context, id int64, balance decimal.Decimal) error {
	const query = `UPDATE users SET balance = ? WHERE id = ?`
	return r.exec(ctx, "set balance", query, balance, id)
}

// SetWithdrawMethod stores the user's preferred withdrawal method.
func (r *UserRepository) SetWithdrawMethod(ctx context.Context, id int64, method string) error {
	const query = `UPDATE users SET withdraw_method = ? WHERE id = ?`
	return r.exec(ctx, "set withdraw method", query, method, id)
}

func (r *UserRepository) exec(ctx context.Context, op string, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// GetTopUsers retrieves the top N users by accepted chapters, then points.
func (r *UserRepository) GetTopUsers(ctx context.Context, limit int) ([]*model.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY accepted_chapters DESC, points DESC, id ASC
		LIMIT ?
	`

	var users []*model.User
	if err := sqlx.SelectContext(ctx, r.db, &users, r.db.Rebind(query), limit); err != nil {
		return nil, fmt.Errorf("failed to get top users: %w", err)
	}

	return users, nil
}

// Count returns the number of registered users.
func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := sqlx.GetContext(ctx, r.db, &n, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}
