package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/more249-s/Maga-Bot-V4/internal/model"
)

const logColumns = `id, action, user_id, details, created_at`

// LogRepository handles the append-only audit log.
// Entries are never updated or deleted.
type LogRepository struct {
	db sqlx.ExtContext
}

// NewLogRepository creates a new LogRepository instance.
func NewLogRepository(db sqlx.ExtContext) *LogRepository {
	return &LogRepository{db: db}
}

// Create appends an audit record.
func (r *LogRepository) Create(ctx context.Context, action string, userID int64, details *string, at time.Time) (*model.LogEntry, error) {
	const query = `
		INSERT INTO logs (action, user_id, details, created_at)
		VALUES (?, ?, ?, ?)`

	id, err := insertID(ctx, r.db, query, action, userID, details, at)
	if err != nil {
		return nil, fmt.Errorf("failed to create log entry: %w", err)
	}

	get := `SELECT ` + logColumns + ` FROM logs WHERE id = ?`
	var entry model.LogEntry
	if err := sqlx.GetContext(ctx, r.db, &entry, r.db.Rebind(get), id); err != nil {
		return nil, fmt.Errorf("failed to get log entry: %w", err)
	}

	return &entry, nil
}

// GetByUserID retrieves a user's audit records, newest first.
func (r *LogRepository) GetByUserID(ctx context.Context, userID int64, limit int) ([]*model.LogEntry, error) {
	query := `
		SELECT ` + logColumns + `
		FROM logs
		WHERE user_id = ?
		ORDER BY id DESC
		LIMIT ?
	`

	var entries []*model.LogEntry
	if err := sqlx.SelectContext(ctx, r.db, &entries, r.db.Rebind(query), userID, limit); err != nil {
		return nil, fmt.Errorf("failed to get log entries: %w", err)
	}
	return entries, nil
}

// GetByAction retrieves audit records with the given action tag, newest first.
func (r *LogRepository) GetByAction(ctx context.Context, action string, limit int) ([]*model.LogEntry, error) {
	query := `
		SELECT ` + logColumns + `
		FROM logs
		WHERE action = ?
		ORDER BY id DESC
		LIMIT ?
	`

	var entries []*model.LogEntry
	if err := sqlx.SelectContext(ctx, r.db, &entries, r.db.Rebind(query), action, limit); err != nil {
		return nil, fmt.Errorf("failed to get log entries: %w", err)
	}
	return entries, nil
}
