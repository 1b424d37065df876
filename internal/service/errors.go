// Package service implements the reward ledger: attendance, submission
// review, reward payout, withdrawals, pricing and the audit trail.
package service

import (
	"errors"
	"fmt"

	"github.com/more249-s/Maga-Bot-V4/internal/pkg/metrics"
	"github.com/more249-s/Maga-Bot-V4/internal/repository"
)

// Ledger errors. Validation errors are returned before any mutation.
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidAmount       = errors.New("invalid amount: must be positive")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidType         = errors.New("invalid pricing type")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrStorage             = errors.New("storage error")
	ErrAlreadyResolved     = errors.New("submission already resolved")
	ErrMissingMethod       = errors.New("withdrawal method required")
	ErrInvalidContent      = errors.New("submission content is empty")
	ErrNoPricing           = errors.New("no pricing rule set")
)

// ledgerErrors are passed through storage unchanged.
var ledgerErrors = []error{
	ErrNotFound, ErrInvalidAmount, ErrInsufficientBalance, ErrInvalidType,
	ErrUnauthorized, ErrStorage, ErrAlreadyResolved, ErrMissingMethod,
	ErrInvalidContent, ErrNoPricing,
}

// storage wraps a persistence failure so callers can match ErrStorage
// while keeping the cause for errors.Is.
func storage(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range ledgerErrors {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}

// lookup maps repository not-found errors to ErrNotFound and wraps the rest.
func lookup(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrSubmissionNotFound):
		return ErrNotFound
	default:
		return storage(err)
	}
}

// record counts the outcome of a ledger operation.
func record(operation string, err error) {
	switch {
	case err == nil:
		metrics.RecordOperation(operation, metrics.ResultOK)
	case errors.Is(err, ErrStorage):
		metrics.RecordOperation(operation, metrics.ResultError)
	default:
		metrics.RecordOperation(operation, metrics.ResultRejected)
	}
}
