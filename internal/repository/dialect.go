package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/more249-s/Maga-Bot-V4/internal/config"
)

// forUpdate returns a row-locking suffix for dialects that support it.
// SQLite transactions already hold the database write lock.
func forUpdate(db sqlx.ExtContext) string {
	if db.DriverName() == config.DriverPostgres {
		return " FOR UPDATE"
	}
	return ""
}

// insertID runs an INSERT ... RETURNING id and returns the new row ID.
// Rows are re-read by ID so column types come from the table declaration.
func insertID(ctx context.Context, db sqlx.ExtContext, query string, args ...any) (int64, error) {
	var id int64
	if err := db.QueryRowxContext(ctx, db.Rebind(query+` RETURNING id`), args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}
