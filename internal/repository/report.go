package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/more249-s/Maga-Bot-V4/internal/model"
)

// ErrUnknownTable is returned when a report names a table outside the ledger schema.
var ErrUnknownTable = errors.New("unknown table")

// tableColumns lists the exportable tables with their columns in schema order.
var tableColumns = map[string][]string{
	"users":       {"id", "discord_id", "username", "points", "balance", "accepted_chapters", "rank", "withdraw_method"},
	"submissions": {"id", "user_id", "content", "status", "created_at"},
	"withdrawals": {"id", "user_id", "amount", "method", "status", "created_at"},
	"attendance":  {"id", "user_id", "timestamp"},
	"pricing":     {"id", "type", "value", "role_name", "updated_at"},
	"logs":        {"id", "action", "user_id", "details", "created_at"},
}

// TableNames returns the exportable tables in display order.
func TableNames() []string {
	return []string{"users", "submissions", "withdrawals", "attendance", "logs", "pricing"}
}

// IsTable reports whether name is an exportable table.
func IsTable(name string) bool {
	_, ok := tableColumns[name]
	return ok
}

// Table is a verbatim, stringified dump of table rows.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// ReportRepository serves read-only views over the whole ledger.
type ReportRepository struct {
	db sqlx.ExtContext
}

// NewReportRepository creates a new ReportRepository instance.
func NewReportRepository(db sqlx.ExtContext) *ReportRepository {
	return &ReportRepository{db: db}
}

// Stats counts users, submissions by status, withdrawals and attendance marks.
func (r *ReportRepository) Stats(ctx context.Context) (*model.Stats, error) {
	const query = `
		SELECT
			(SELECT COUNT(*) FROM users) AS users,
			(SELECT COUNT(*) FROM submissions WHERE status = ?) AS pending,
			(SELECT COUNT(*) FROM submissions WHERE status = ?) AS approved,
			(SELECT COUNT(*) FROM submissions WHERE status = ?) AS rejected,
			(SELECT COUNT(*) FROM withdrawals) AS withdrawals,
			(SELECT COUNT(*) FROM attendance) AS attendance
	`

	var stats model.Stats
	err := sqlx.GetContext(ctx, r.db, &stats, r.db.Rebind(query),
		model.StatusPending, model.StatusApproved, model.StatusRejected)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	return &stats, nil
}

// Rows returns the newest rows of a table. A limit of zero or less returns
// every row in insertion order, which is the export layout.
func (r *ReportRepository) Rows(ctx context.Context, table string, limit int) (*Table, error) {
	columns, ok := tableColumns[table]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}

	selectList := ""
	for i, c := range columns {
		if i > 0 {
			selectList += ", "
		}
		selectList += `"` + c + `"`
	}

	query := `SELECT ` + selectList + ` FROM ` + table
	args := []any{}
	if limit > 0 {
		query += ` ORDER BY id DESC LIMIT ?`
		args = append(args, limit)
	} else {
		query += ` ORDER BY id ASC`
	}

	rows, err := r.db.QueryxContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", table, err)
	}
	defer rows.Close()

	out := &Table{Name: table, Columns: columns}
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", table, err)
		}
		record := make([]string, len(values))
		for i, v := range values {
			record[i] = formatValue(v)
		}
		out.Rows = append(out.Rows, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", table, err)
	}

	return out, nil
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(val)
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.UTC().Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprint(val)
	}
}
