package handler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/more249-s/Maga-Bot-V4/internal/model"
	"github.com/more249-s/Maga-Bot-V4/internal/pkg/discord"
	"github.com/more249-s/Maga-Bot-V4/internal/pkg/lock"
	"github.com/more249-s/Maga-Bot-V4/internal/service"
)

const withdrawalHistorySize = 5

// WithdrawalHandler handles withdrawal commands.
type WithdrawalHandler struct {
	accounts    *service.AccountService
	withdrawals *service.WithdrawalService
	userLock    *lock.Keyed[string]
}

// NewWithdrawalHandler creates a new WithdrawalHandler.
func NewWithdrawalHandler(
	accounts *service.AccountService,
	withdrawals *service.WithdrawalService,
	userLock *lock.Keyed[string],
) *WithdrawalHandler {
	return &WithdrawalHandler{
		accounts:    accounts,
		withdrawals: withdrawals,
		userLock:    userLock,
	}
}

// HandleWithdraw handles /withdraw amount [method].
// Without a method the member's last used method applies.
func (h *WithdrawalHandler) HandleWithdraw(c discord.Context) error {
	amount, err := parseAmount(c.Option("amount"))
	if err != nil {
		return c.ReplyEphemeral(errorMessage(err))
	}

	var w *model.Withdrawal
	err = h.userLock.WithLock(c.Context(), c.UserID(), func() error {
		var err error
		w, err = h.withdrawals.RequestWithdrawal(c.Context(), c.UserID(), c.Username(), amount, c.Option("method"))
		return err
	})
	if err != nil {
		return c.ReplyEphemeral(errorMessage(err))
	}

	reply := fmt.Sprintf(
		"✅ Withdrawal request #%d recorded\n\n"+
			"💸 Amount: %s\n"+
			"🏦 Method: %s",
		w.ID, money(w.Amount), w.Method,
	)
	if user, err := h.accounts.GetUser(c.Context(), c.UserID()); err == nil {
		reply += "\n💰 Balance: " + money(user.Balance)
	}
	return c.ReplyEphemeral(reply)
}

// HandleWithdrawals handles /withdrawals, listing the member's latest requests.
func (h *WithdrawalHandler) HandleWithdrawals(c discord.Context) error {
	ws, err := h.withdrawals.History(c.Context(), c.UserID(), withdrawalHistorySize)
	if err != nil && !errors.Is(err, service.ErrNotFound) {
		return c.ReplyEphemeral(errorMessage(err))
	}
	if len(ws) == 0 {
		return c.ReplyEphemeral("📭 No withdrawal requests yet")
	}

	var sb strings.Builder
	sb.WriteString("💸 Your withdrawals\n\n")
	for _, w := range ws {
		fmt.Fprintf(&sb, "#%d | %s via %s | %s | %s\n",
			w.ID, money(w.Amount), w.Method, w.Status, w.CreatedAt.UTC().Format(timeLayout))
	}
	return c.ReplyEphemeral(sb.String())
}
