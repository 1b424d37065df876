package service

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/more249-s/Maga-Bot-V4/internal/model"
)

// Reward is the payout granted for one approved submission.
// The zero value grants nothing.
type Reward struct {
	Type  model.RewardType
	Value decimal.Decimal
}

// RewardFor derives the payout from the effective pricing rule.
// A nil rule yields no reward.
func RewardFor(rule *model.PricingRule) Reward {
	if rule == nil {
		return Reward{}
	}
	return Reward{Type: rule.Type, Value: rule.Value}
}

// Granted reports whether the reward changes the user's points or balance.
func (r Reward) Granted() bool {
	return r.Type.Valid() && r.Value.IsPositive()
}

// Apply credits an approval to the user: the payout, one accepted chapter,
// and the rank recomputed from the new chapter count.
// Points rewards are truncated to whole points.
func (r Reward) Apply(user *model.User) {
	if r.Granted() {
		switch r.Type {
		case model.RewardPoints:
			user.Points += r.Value.IntPart()
		case model.RewardMoney:
			user.Balance = user.Balance.Add(r.Value)
		}
	}
	user.AcceptedChapters++
	user.Rank = model.RankFor(user.AcceptedChapters)
}

// String describes the reward for display and the audit log.
func (r Reward) String() string {
	if !r.Granted() {
		return "no reward"
	}
	if r.Type == model.RewardPoints {
		return fmt.Sprintf("+%d points", r.Value.IntPart())
	}
	return fmt.Sprintf("+%s$", r.Value.StringFixed(2))
}

// ValidateWithdrawal checks a withdrawal amount against the current balance.
func ValidateWithdrawal(amount, balance decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if amount.GreaterThan(balance) {
		return ErrInsufficientBalance
	}
	return nil
}
