package service

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"

	"github.com/more249-s/Maga-Bot-V4/internal/model"
)

// cents draws a two-decimal amount in [lo, hi] cents.
func cents(t *rapid.T, lo, hi int64, label string) decimal.Decimal {
	return decimal.New(rapid.Int64Range(lo, hi).Draw(t, label), -2)
}

// TestRankThresholdsProperty tests that rank is a pure function of accepted chapters.
func TestRankThresholdsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		chapters := rapid.Int64Range(0, 10000).Draw(t, "chapters")

		rank := model.RankFor(chapters)

		switch {
		case chapters >= 30 && rank != model.RankLegend:
			t.Fatalf("chapters=%d: expected Legend, got %s", chapters, rank)
		case chapters >= 15 && chapters < 30 && rank != model.RankPro:
			t.Fatalf("chapters=%d: expected Pro, got %s", chapters, rank)
		case chapters < 15 && rank != model.RankMember:
			t.Fatalf("chapters=%d: expected Member, got %s", chapters, rank)
		}
	})
}

func TestRankBoundaries(t *testing.T) {
	cases := map[int64]model.Rank{
		0:  model.RankMember,
		14: model.RankMember,
		15: model.RankPro,
		29: model.RankPro,
		30: model.RankLegend,
	}
	for chapters, want := range cases {
		if got := model.RankFor(chapters); got != want {
			t.Errorf("RankFor(%d) = %s, want %s", chapters, got, want)
		}
	}
}

// TestRewardApplyProperty tests that every approval adds exactly one chapter,
// pays only the configured unit, and keeps the rank consistent.
func TestRewardApplyProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		user := &model.User{
			Points:           rapid.Int64Range(0, 1000000).Draw(t, "points"),
			Balance:          cents(t, 0, 10000000, "balance"),
			AcceptedChapters: rapid.Int64Range(0, 100).Draw(t, "chapters"),
		}
		before := *user

		var rule *model.PricingRule
		if rapid.Bool().Draw(t, "hasRule") {
			rule = &model.PricingRule{
				Type:  rapid.SampledFrom([]model.RewardType{model.RewardPoints, model.RewardMoney}).Draw(t, "type"),
				Value: cents(t, 1, 100000, "value"),
			}
		}

		reward := RewardFor(rule)
		reward.Apply(user)

		if user.AcceptedChapters != before.AcceptedChapters+1 {
			t.Fatalf("chapters: expected %d, got %d", before.AcceptedChapters+1, user.AcceptedChapters)
		}
		if user.Rank != model.RankFor(user.AcceptedChapters) {
			t.Fatalf("rank %s inconsistent with %d chapters", user.Rank, user.AcceptedChapters)
		}
		if user.Balance.IsNegative() {
			t.Fatalf("balance went negative: %s", user.Balance)
		}

		switch {
		case rule == nil:
			if user.Points != before.Points || !user.Balance.Equal(before.Balance) {
				t.Fatal("no rule must grant no reward")
			}
			if reward.String() != "no reward" {
				t.Fatalf("unexpected description %q", reward.String())
			}
		case rule.Type == model.RewardPoints:
			if user.Points != before.Points+rule.Value.IntPart() || !user.Balance.Equal(before.Balance) {
				t.Fatalf("points reward misapplied: %d -> %d", before.Points, user.Points)
			}
		case rule.Type == model.RewardMoney:
			if !user.Balance.Equal(before.Balance.Add(rule.Value)) || user.Points != before.Points {
				t.Fatalf("money reward misapplied: %s -> %s", before.Balance, user.Balance)
			}
		}
	})
}

func TestRewardString(t *testing.T) {
	points := Reward{Type: model.RewardPoints, Value: decimal.NewFromInt(5)}
	money := Reward{Type: model.RewardMoney, Value: decimal.RequireFromString("2.5")}

	if got := points.String(); got != "+5 points" {
		t.Errorf("points: got %q", got)
	}
	if got := money.String(); got != "+2.50$" {
		t.Errorf("money: got %q", got)
	}
	if got := (Reward{}).String(); got != "no reward" {
		t.Errorf("zero: got %q", got)
	}
}

// TestWithdrawalValidationInvalidAmountProperty tests that amounts <= 0 are rejected.
func TestWithdrawalValidationInvalidAmountProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		balance := cents(t, 0, 100000000, "balance")
		amount := cents(t, -100000000, 0, "invalidAmount")

		if err := ValidateWithdrawal(amount, balance); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("amount=%s: expected ErrInvalidAmount, got %v", amount, err)
		}
	})
}

// TestWithdrawalValidationInsufficientBalanceProperty tests that amounts above the balance are rejected.
func TestWithdrawalValidationInsufficientBalanceProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		balance := cents(t, 0, 99999999, "balance")
		amount := balance.Add(cents(t, 1, 100000000, "excess"))

		if err := ValidateWithdrawal(amount, balance); !errors.Is(err, ErrInsufficientBalance) {
			t.Fatalf("amount=%s balance=%s: expected ErrInsufficientBalance, got %v", amount, balance, err)
		}
	})
}

// TestWithdrawalValidationAcceptsCoveredAmountProperty tests that any positive
// amount up to the balance passes and never drives the balance negative.
func TestWithdrawalValidationAcceptsCoveredAmountProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		balanceCents := rapid.Int64Range(1, 100000000).Draw(t, "balanceCents")
		amountCents := rapid.Int64Range(1, balanceCents).Draw(t, "amountCents")
		balance := decimal.New(balanceCents, -2)
		amount := decimal.New(amountCents, -2)

		if err := ValidateWithdrawal(amount, balance); err != nil {
			t.Fatalf("amount=%s balance=%s: unexpected %v", amount, balance, err)
		}
		if balance.Sub(amount).IsNegative() {
			t.Fatal("debit would drive balance negative")
		}
	})
}
