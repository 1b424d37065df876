package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/more249-s/Maga-Bot-V4/internal/model"
)

// AttendanceRepository handles attendance persistence.
type AttendanceRepository struct {
	db sqlx.ExtContext
}

// NewAttendanceRepository creates a new AttendanceRepository instance.
func NewAttendanceRepository(db sqlx.ExtContext) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Create records one attendance mark. There is no uniqueness constraint.
func (r *AttendanceRepository) Create(ctx context.Context, userID int64, at time.Time) (*model.Attendance, error) {
	const query = `INSERT INTO attendance (user_id, "timestamp") VALUES (?, ?)`

	id, err := insertID(ctx, r.db, query, userID, at)
	if err != nil {
		return nil, fmt.Errorf("failed to create attendance: %w", err)
	}

	var a model.Attendance
	const get = `SELECT id, user_id, "timestamp" FROM attendance WHERE id = ?`
	if err := sqlx.GetContext(ctx, r.db, &a, r.db.Rebind(get), id); err != nil {
		return nil, fmt.Errorf("failed to get attendance: %w", err)
	}

	return &a, nil
}

// Recent returns the latest attendance marks with member names, newest first.
// A limit of zero or less returns every mark.
func (r *AttendanceRepository) Recent(ctx context.Context, limit int) ([]*model.AttendanceEntry, error) {
	query := `
		SELECT u.username, a."timestamp"
		FROM attendance a
		JOIN users u ON u.id = a.user_id
		ORDER BY a.id DESC
	`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var entries []*model.AttendanceEntry
	if err := sqlx.SelectContext(ctx, r.db, &entries, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get attendance: %w", err)
	}
	return entries, nil
}

// CountByUser returns how many times a user has marked attendance.
func (r *AttendanceRepository) CountByUser(ctx context.Context, userID int64) (int64, error) {
	const query = `SELECT COUNT(*) FROM attendance WHERE user_id = ?`

	var n int64
	if err := sqlx.GetContext(ctx, r.db, &n, r.db.Rebind(query), userID); err != nil {
		return 0, fmt.Errorf("failed to count attendance: %w", err)
	}
	return n, nil
}
