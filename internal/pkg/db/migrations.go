package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/more249-s/Maga-Bot-V4/internal/config"
)

// migration is one named, idempotent schema step.
type migration struct {
	name       string
	statements []string
}

// Migrate creates the ledger schema for the connection's dialect.
// The table and column layout is shared with earlier deployments and must not change.
func Migrate(ctx context.Context, conn *sqlx.DB) error {
	log.Info().Str("driver", conn.DriverName()).Msg("Running database migrations...")

	steps := sqliteMigrations
	if conn.DriverName() == config.DriverPostgres {
		steps = postgresMigrations
	}

	for i, m := range steps {
		for _, stmt := range m.statements {
			if _, err := conn.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migration %d (%s) failed: %w", i+1, m.name, err)
			}
		}
		log.Info().Msgf("Migration %d: %s", i+1, m.name)
	}

	log.Info().Msg("All migrations completed successfully")
	return nil
}

var sqliteMigrations = []migration{
	{
		name: "users table created",
		statements: []string{`
			CREATE TABLE IF NOT EXISTS users (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				discord_id TEXT NOT NULL UNIQUE,
				username TEXT NOT NULL DEFAULT '',
				points INTEGER NOT NULL DEFAULT 0,
				balance NUMERIC NOT NULL DEFAULT 0 CHECK (balance >= 0),
				accepted_chapters INTEGER NOT NULL DEFAULT 0,
				rank TEXT NOT NULL DEFAULT 'Member',
				withdraw_method TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS idx_users_leaderboard ON users(accepted_chapters DESC, points DESC)`,
		},
	},
	{
		name: "submissions table created",
		statements: []string{`
			CREATE TABLE IF NOT EXISTS submissions (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id INTEGER NOT NULL REFERENCES users(id),
				content TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE INDEX IF NOT EXISTS idx_submissions_status ON submissions(status)`,
			`CREATE INDEX IF NOT EXISTS idx_submissions_user ON submissions(user_id)`,
		},
	},
	{
		name: "withdrawals table created",
		statements: []string{`
			CREATE TABLE IF NOT EXISTS withdrawals (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id INTEGER NOT NULL REFERENCES users(id),
				amount NUMERIC NOT NULL CHECK (amount > 0),
				method TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'pending',
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE INDEX IF NOT EXISTS idx_withdrawals_user ON withdrawals(user_id)`,
		},
	},
	{
		name: "attendance table created",
		statements: []string{`
			CREATE TABLE IF NOT EXISTS attendance (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id INTEGER NOT NULL REFERENCES users(id),
				"timestamp" DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE INDEX IF NOT EXISTS idx_attendance_user ON attendance(user_id)`,
		},
	},
	{
		name: "pricing table created",
		statements: []string{`
			CREATE TABLE IF NOT EXISTS pricing (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				type TEXT NOT NULL CHECK (type IN ('points', 'money')),
				value NUMERIC NOT NULL,
				role_name TEXT NOT NULL DEFAULT 'default',
				updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE INDEX IF NOT EXISTS idx_pricing_scope ON pricing(role_name, id)`,
		},
	},
	{
		name: "logs table created",
		statements: []string{`
			CREATE TABLE IF NOT EXISTS logs (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				action TEXT NOT NULL,
				user_id INTEGER NOT NULL DEFAULT 0,
				details TEXT,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE INDEX IF NOT EXISTS idx_logs_created ON logs(created_at)`,
		},
	},
}

var postgresMigrations = []migration{
	{
		name: "users table created",
		statements: []string{`
			CREATE TABLE IF NOT EXISTS users (
				id BIGSERIAL PRIMARY KEY,
				discord_id TEXT NOT NULL UNIQUE,
				username TEXT NOT NULL DEFAULT '',
				points BIGINT NOT NULL DEFAULT 0,
				balance NUMERIC NOT NULL DEFAULT 0 CHECK (balance >= 0),
				accepted_chapters BIGINT NOT NULL DEFAULT 0,
				rank TEXT NOT NULL DEFAULT 'Member',
				withdraw_method TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS idx_users_leaderboard ON users(accepted_chapters DESC, points DESC)`,
		},
	},
	{
		name: "submissions table created",
		statements: []string{`
			CREATE TABLE IF NOT EXISTS submissions (
				id BIGSERIAL PRIMARY KEY,
				user_id BIGINT NOT NULL REFERENCES users(id),
				content TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,
			`CREATE INDEX IF NOT EXISTS idx_submissions_status ON submissions(status)`,
			`CREATE INDEX IF NOT EXISTS idx_submissions_user ON submissions(user_id)`,
		},
	},
	{
		name: "withdrawals table created",
		statements: []string{`
			CREATE TABLE IF NOT EXISTS withdrawals (
				id BIGSERIAL PRIMARY KEY,
				user_id BIGINT NOT NULL REFERENCES users(id),
				amount NUMERIC NOT NULL CHECK (amount > 0),
				method TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'pending',
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,
			`CREATE INDEX IF NOT EXISTS idx_withdrawals_user ON withdrawals(user_id)`,
		},
	},
	{
		name: "attendance table created",
		statements: []string{`
			CREATE TABLE IF NOT EXISTS attendance (
				id BIGSERIAL PRIMARY KEY,
				user_id BIGINT NOT NULL REFERENCES users(id),
				"timestamp" TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,
			`CREATE INDEX IF NOT EXISTS idx_attendance_user ON attendance(user_id)`,
		},
	},
	{
		name: "pricing table created",
		statements: []string{`
			CREATE TABLE IF NOT EXISTS pricing (
				id BIGSERIAL PRIMARY KEY,
				type TEXT NOT NULL CHECK (type IN ('points', 'money')),
				value NUMERIC NOT NULL,
				role_name TEXT NOT NULL DEFAULT 'default',
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,
			`CREATE INDEX IF NOT EXISTS idx_pricing_scope ON pricing(role_name, id)`,
		},
	},
	{
		name: "logs table created",
		statements: []string{`
			CREATE TABLE IF NOT EXISTS logs (
				id BIGSERIAL PRIMARY KEY,
				action TEXT NOT NULL,
				user_id BIGINT NOT NULL DEFAULT 0,
				details TEXT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,
			`CREATE INDEX IF NOT EXISTS idx_logs_created ON logs(created_at)`,
		},
	},
}
