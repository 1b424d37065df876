// Package handler provides Discord command and component handlers.
package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/more249-s/Maga-Bot-V4/internal/pkg/lock"
	"github.com/more249-s/Maga-Bot-V4/internal/service"
)

// Custom ID prefixes for the review buttons posted to the moderation channel.
const (
	ApprovePrefix = "review:approve:"
	RejectPrefix  = "review:reject:"
)

// errorMessage turns a service error into a short reply.
// Storage failures get a generic message and are logged here.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrInvalidAmount):
		return "❌ Amount must be greater than 0"
	case errors.Is(err, service.ErrInsufficientBalance):
		return "❌ Insufficient balance"
	case errors.Is(err, service.ErrInvalidType):
		return "❌ Pricing type must be points or money"
	case errors.Is(err, service.ErrNotFound):
		return "❌ Submission not found"
	case errors.Is(err, service.ErrAlreadyResolved):
		return "⚠️ This submission was already reviewed"
	case errors.Is(err, service.ErrMissingMethod):
		return "❌ Please specify a withdrawal method"
	case errors.Is(err, service.ErrInvalidContent):
		return "❌ Submission content must not be empty"
	case errors.Is(err, service.ErrUnauthorized):
		return "❌ Permission denied"
	case errors.Is(err, lock.ErrLockTimeout):
		return "⏳ Another request is still running, please try again"
	default:
		log.Error().Err(err).Msg("Command failed")
		return "❌ Operation failed, please try again later"
	}
}

// parseAmount reads a decimal amount, so "10", "10.5" and "2.50" are all accepted.
func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, service.ErrInvalidAmount
	}
	return d, nil
}

// submissionID extracts the submission id from a review button custom ID.
func submissionID(customID, prefix string) (int64, bool) {
	raw, ok := strings.CutPrefix(customID, prefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2) + "$"
}
