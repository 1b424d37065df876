package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"

	"github.com/more249-s/Maga-Bot-V4/internal/model"
)

// TestAcceptedChaptersInvariantProperty drives a real store with random
// submit/approve/reject/withdraw sequences and checks after every step that
// accepted_chapters counts approved submissions, rank follows the thresholds
// and no balance is negative.
func TestAcceptedChaptersInvariantProperty(t *testing.T) {
	dir := t.TempDir()

	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		store, closeFn, err := openStore(ctx, dir)
		if err != nil {
			t.Fatalf("open store: %v", err)
		}
		defer closeFn()
		l := newLedger(store)

		members := []string{"1001", "1002", "1003"}
		if _, err := l.pricing.SetPricing(ctx, "money", cents(t, 1, 1000, "price")); err != nil {
			t.Fatalf("set pricing: %v", err)
		}

		var submissions []int64
		steps := rapid.IntRange(1, 25).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			member := rapid.SampledFrom(members).Draw(t, "member")

			switch rapid.IntRange(0, 3).Draw(t, "op") {
			case 0:
				sub, err := l.review.Submit(ctx, member, "m"+member, "chapter")
				if err != nil {
					t.Fatalf("submit: %v", err)
				}
				submissions = append(submissions, sub.ID)
			case 1, 2:
				if len(submissions) == 0 {
					continue
				}
				id := rapid.SampledFrom(submissions).Draw(t, "submission")
				if rapid.Bool().Draw(t, "approve") {
					_, err = l.review.ApplyApproval(ctx, id)
				} else {
					_, err = l.review.ApplyRejection(ctx, id)
				}
				if err != nil && !errors.Is(err, ErrAlreadyResolved) {
					t.Fatalf("review #%d: %v", id, err)
				}
			case 3:
				amount := cents(t, -100, 2000, "amount")
				_, err := l.withdrawals.RequestWithdrawal(ctx, member, "m"+member, amount, "Binance")
				if err != nil &&
					!errors.Is(err, ErrInvalidAmount) &&
					!errors.Is(err, ErrInsufficientBalance) {
					t.Fatalf("withdraw %s: %v", amount, err)
				}
			}

			checkLedgerInvariants(t, l, members)
		}
	})
}

func checkLedgerInvariants(t *rapid.T, l *ledger, members []string) {
	ctx := context.Background()
	for _, id := range members {
		user, err := l.accounts.GetUser(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			t.Fatalf("get user %s: %v", id, err)
		}

		approved, err := l.store.Submissions.CountApprovedByUser(ctx, user.ID)
		if err != nil {
			t.Fatalf("count approved: %v", err)
		}
		if user.AcceptedChapters != approved {
			t.Fatalf("user %s: accepted_chapters=%d but %d approved submissions",
				id, user.AcceptedChapters, approved)
		}
		if user.Rank != model.RankFor(user.AcceptedChapters) {
			t.Fatalf("user %s: rank %s inconsistent with %d chapters", id, user.Rank, user.AcceptedChapters)
		}
		if user.Balance.LessThan(decimal.Zero) {
			t.Fatalf("user %s: negative balance %s", id, user.Balance)
		}
	}
}
