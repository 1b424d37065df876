package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

// Repositories bundles every table repository over one connection or transaction.
type Repositories struct {
	Users       *UserRepository
	Submissions *SubmissionRepository
	Withdrawals *WithdrawalRepository
	Attendance  *AttendanceRepository
	Pricing     *PricingRepository
	Logs        *LogRepository
	Reports     *ReportRepository
}

// NewRepositories binds all repositories to db, which may be a *sqlx.DB or *sqlx.Tx.
func NewRepositories(db sqlx.ExtContext) *Repositories {
	return &Repositories{
		Users:       NewUserRepository(db),
		Submissions: NewSubmissionRepository(db),
		Withdrawals: NewWithdrawalRepository(db),
		Attendance:  NewAttendanceRepository(db),
		Pricing:     NewPricingRepository(db),
		Logs:        NewLogRepository(db),
		Reports:     NewReportRepository(db),
	}
}

// Store is the ledger store: repositories over the shared connection plus
// transactional access for multi-statement mutations.
type Store struct {
	*Repositories
	db *sqlx.DB
}

// NewStore creates a Store over an open connection.
func NewStore(db *sqlx.DB) *Store {
	return &Store{Repositories: NewRepositories(db), db: db}
}

// WithTx runs fn with repositories bound to a single transaction.
// The transaction commits when fn returns nil and rolls back on error or panic.
func (s *Store) WithTx(ctx context.Context, fn func(*Repositories) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				log.Error().Err(rbErr).Msg("Failed to rollback transaction")
			}
		}
	}()

	if err = fn(NewRepositories(tx)); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
