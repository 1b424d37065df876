package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/more249-s/Maga-Bot-V4/internal/model"
	"github.com/more249-s/Maga-Bot-V4/internal/repository"
)

// WithdrawalService handles payout requests against member balances.
type WithdrawalService struct {
	store *repository.Store
	now   func() time.Time
}

// NewWithdrawalService creates a new WithdrawalService instance.
func NewWithdrawalService(store *repository.Store) *WithdrawalService {
	return &WithdrawalService{store: store, now: utcNow}
}

// RequestWithdrawal debits amount from the member's balance and records a
// pending withdrawal in one transaction. An empty method falls back to the
// member's stored preference; a successful request stores the method used.
func (s *WithdrawalService) RequestWithdrawal(ctx context.Context, discordID, username string, amount decimal.Decimal, method string) (w *model.Withdrawal, err error) {
	defer func() { record(model.ActionWithdrawRequest, err) }()

	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	method = strings.TrimSpace(method)

	at := s.now()
	var balance decimal.Decimal
	err = s.store.WithTx(ctx, func(repos *repository.Repositories) error {
		user, _, err := ensureUser(ctx, repos, discordID, username)
		if err != nil {
			return err
		}
		user, err = repos.Users.GetByIDForUpdate(ctx, user.ID)
		if err != nil {
			return lookup(err)
		}

		if method == "" {
			if user.WithdrawMethod == nil || *user.WithdrawMethod == "" {
				return ErrMissingMethod
			}
			method = *user.WithdrawMethod
		}

		if err := ValidateWithdrawal(amount, user.Balance); err != nil {
			return err
		}

		w, err = repos.Withdrawals.Create(ctx, user.ID, amount, method, at)
		if err != nil {
			return storage(err)
		}

		balance = user.Balance.Sub(amount)
		if err := repos.Users.SetBalance(ctx, user.ID, balance); err != nil {
			return storage(err)
		}
		if err := repos.Users.SetWithdrawMethod(ctx, user.ID, method); err != nil {
			return storage(err)
		}

		_, err = appendLog(ctx, repos, model.ActionWithdrawRequest, user.ID,
			fmt.Sprintf("%s via %s", amount.String(), method), at)
		return err
	})
	if err != nil {
		return nil, storage(err)
	}

	log.Info().
		Int64("withdrawal_id", w.ID).
		Int64("user_id", w.UserID).
		Str("amount", amount.String()).
		Str("method", method).
		Str("balance", balance.String()).
		Msg("Withdrawal requested")

	return w, nil
}

// History returns a member's withdrawals, newest first.
func (s *WithdrawalService) History(ctx context.Context, discordID string, limit int) ([]*model.Withdrawal, error) {
	user, err := s.store.Users.GetByDiscordID(ctx, discordID)
	if err != nil {
		return nil, lookup(err)
	}
	ws, err := s.store.Withdrawals.GetByUserID(ctx, user.ID, limit)
	return ws, storage(err)
}
