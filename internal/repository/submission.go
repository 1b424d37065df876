package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/more249-s/Maga-Bot-V4/internal/model"
)

const submissionColumns = `id, user_id, content, status, created_at`

// SubmissionRepository handles submission data persistence.
type SubmissionRepository struct {
	db sqlx.ExtContext
}

// NewSubmissionRepository creates a new SubmissionRepository instance.
func NewSubmissionRepository(db sqlx.ExtContext) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Create inserts a pending submission.
func (r *SubmissionRepository) Create(ctx context.Context, userID int64, content string, createdAt time.Time) (*model.Submission, error) {
	const query = `
		INSERT INTO submissions (user_id, content, status, created_at)
		VALUES (?, ?, ?, ?)`

	id, err := insertID(ctx, r.db, query, userID, content, model.StatusPending, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create submission: %w", err)
	}

	return r.GetByID(ctx, id)
}

// GetByID retrieves a submission.
// Returns ErrSubmissionNotFound if it does not exist.
func (r *SubmissionRepository) GetByID(ctx context.Context, id int64) (*model.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = ?` + forUpdate(r.db)

	var sub model.Submission
	if err := sqlx.GetContext(ctx, r.db, &sub, r.db.Rebind(query), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	return &sub, nil
}

// Resolve moves a pending submission to a terminal status.
// It reports false when the submission was not pending, so concurrent
// resolutions cannot both succeed.
func (r *SubmissionRepository) Resolve(ctx context.Context, id int64, status model.SubmissionStatus) (bool, error) {
	const query = `UPDATE submissions SET status = ? WHERE id = ? AND status = ?`

	result, err := r.db.ExecContext(ctx, r.db.Rebind(query), status, id, model.StatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to resolve submission: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to resolve submission: %w", err)
	}

	return affected == 1, nil
}

// CountApprovedByUser returns how many of the user's submissions are approved.
func (r *SubmissionRepository) CountApprovedByUser(ctx context.Context, userID int64) (int64, error) {
	const query = `SELECT COUNT(*) FROM submissions WHERE user_id = ? AND status = ?`

	var n int64
	if err := sqlx.GetContext(ctx, r.db, &n, r.db.Rebind(query), userID, model.StatusApproved); err != nil {
		return 0, fmt.Errorf("failed to count approved submissions: %w", err)
	}
	return n, nil
}

// GetByUserID retrieves a user's submissions, newest first.
func (r *SubmissionRepository) GetByUserID(ctx context.Context, userID int64, limit int) ([]*model.Submission, error) {
	query := `
		SELECT ` + submissionColumns + `
		FROM submissions
		WHERE user_id = ?
		ORDER BY id DESC
		LIMIT ?
	`

	var subs []*model.Submission
	if err := sqlx.SelectContext(ctx, r.db, &subs, r.db.Rebind(query), userID, limit); err != nil {
		return nil, fmt.Errorf("failed to get submissions: %w", err)
	}
	return subs, nil
}
