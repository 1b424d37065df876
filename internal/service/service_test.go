package service

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/more249-s/Maga-Bot-V4/internal/config"
	"github.com/more249-s/Maga-Bot-V4/internal/model"
	"github.com/more249-s/Maga-Bot-V4/internal/pkg/db"
	"github.com/more249-s/Maga-Bot-V4/internal/repository"
)

var storeSeq atomic.Int64

// openStore opens a migrated SQLite ledger under dir.
func openStore(ctx context.Context, dir string) (*repository.Store, func(), error) {
	conn, err := db.Open(ctx, &config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(dir, fmt.Sprintf("ledger-%d.db", storeSeq.Add(1))),
	})
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(ctx, conn.DB); err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return repository.NewStore(conn.DB), func() { _ = conn.Close() }, nil
}

// ledger bundles every service over one store, the way the bot wires them.
type ledger struct {
	store       *repository.Store
	accounts    *AccountService
	attendance  *AttendanceService
	review      *ReviewService
	withdrawals *WithdrawalService
	pricing     *PricingService
	audit       *AuditService
	export      *ExportService
}

func newLedger(store *repository.Store) *ledger {
	fixed := func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	l := &ledger{
		store:       store,
		accounts:    NewAccountService(store),
		attendance:  NewAttendanceService(store),
		review:      NewReviewService(store, "default"),
		withdrawals: NewWithdrawalService(store),
		pricing:     NewPricingService(store, "default"),
		audit:       NewAuditService(store),
		export:      NewExportService(store),
	}
	l.attendance.now = fixed
	l.review.now = fixed
	l.withdrawals.now = fixed
	l.pricing.now = fixed
	l.audit.now = fixed
	return l
}

func setupLedger(t *testing.T) *ledger {
	t.Helper()
	store, closeFn, err := openStore(context.Background(), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(closeFn)
	return newLedger(store)
}

// fund gives a member an exact balance.
func (l *ledger) fund(t *testing.T, discordID string, amount string) *model.User {
	t.Helper()
	ctx := context.Background()
	user, _, err := l.accounts.EnsureUser(ctx, discordID, "member"+discordID)
	require.NoError(t, err)
	require.NoError(t, l.store.Users.SetBalance(ctx, user.ID, decimal.RequireFromString(amount)))
	return user
}

func (l *ledger) logs(t *testing.T, action string) []*model.LogEntry {
	t.Helper()
	entries, err := l.audit.ByAction(context.Background(), action, 100)
	require.NoError(t, err)
	return entries
}

// ============================================================================
// Withdrawals
// ============================================================================

func TestRequestWithdrawal_FullBalance(t *testing.T) {
	l := setupLedger(t)
	ctx := context.Background()
	l.fund(t, "1001", "10.00")

	w, err := l.withdrawals.RequestWithdrawal(ctx, "1001", "alice", decimal.RequireFromString("10.00"), "Binance")
	require.NoError(t, err)
	assert.Equal(t, model.WithdrawalPending, w.Status)
	assert.Equal(t, "Binance", w.Method)

	user, err := l.accounts.GetUser(ctx, "1001")
	require.NoError(t, err)
	assert.True(t, user.Balance.IsZero(), user.Balance.String())
	require.NotNil(t, user.WithdrawMethod)
	assert.Equal(t, "Binance", *user.WithdrawMethod)

	history, err := l.withdrawals.History(ctx, "1001", 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	logs := l.logs(t, model.ActionWithdrawRequest)
	require.Len(t, logs, 1)
	assert.Equal(t, "10 via Binance", *logs[0].Details)
	assert.Equal(t, user.ID, logs[0].UserID)
}

func TestRequestWithdrawal_InvalidAmount(t *testing.T) {
	l := setupLedger(t)
	ctx := context.Background()
	l.fund(t, "1001", "10.00")

	for _, amount := range []int64{0, -5} {
		_, err := l.withdrawals.RequestWithdrawal(ctx, "1001", "alice", decimal.NewFromInt(amount), "x")
		assert.ErrorIs(t, err, ErrInvalidAmount, "amount %d", amount)
	}

	history, err := l.withdrawals.History(ctx, "1001", 10)
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Empty(t, l.logs(t, model.ActionWithdrawRequest))
}

func TestRequestWithdrawal_InsufficientBalance(t *testing.T) {
	l := setupLedger(t)
	ctx := context.Background()
	l.fund(t, "1001", "10.00")

	_, err := l.withdrawals.RequestWithdrawal(ctx, "1001", "alice", decimal.RequireFromString("10.01"), "Binance")
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	user, err := l.accounts.GetUser(ctx, "1001")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(10).Equal(user.Balance))
	assert.Nil(t, user.WithdrawMethod)
}

func TestRequestWithdrawal_NewMemberHasNoBalance(t *testing.T) {
	l := setupLedger(t)
	ctx := context.Background()

	_, err := l.withdrawals.RequestWithdrawal(ctx, "2002", "bob", decimal.NewFromInt(1), "Bybit")
	assert.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestRequestWithdrawal_MethodPreference(t *testing.T) {
	l := setupLedger(t)
	ctx := context.Background()
	l.fund(t, "1001", "10.00")

	_, err := l.withdrawals.RequestWithdrawal(ctx, "1001", "alice", decimal.NewFromInt(1), "  ")
	assert.ErrorIs(t, err, ErrMissingMethod)

	_, err = l.withdrawals.RequestWithdrawal(ctx, "1001", "alice", decimal.NewFromInt(1), "Binance")
	require.NoError(t, err)

	w, err := l.withdrawals.RequestWithdrawal(ctx, "1001", "alice", decimal.NewFromInt(2), "")
	require.NoError(t, err)
	assert.Equal(t, "Binance", w.Method)

	user, err := l.accounts.GetUser(ctx, "1001")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(7).Equal(user.Balance))
}

// ============================================================================
// Review workflow
// ============================================================================

func TestApplyApproval_PointsReward(t *testing.T) {
	l := setupLedger(t)
	ctx := context.Background()

	_, err := l.pricing.SetPricing(ctx, "points", decimal.NewFromInt(5))
	require.NoError(t, err)

	sub, err := l.review.Submit(ctx, "1001", "alice", "https://example.com/chapter-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, sub.Status)

	approval, err := l.review.ApplyApproval(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "+5 points", approval.Reward.String())
	assert.Equal(t, model.StatusApproved, approval.Submission.Status)

	user, err := l.accounts.GetUser(ctx, "1001")
	require.NoError(t, err)
	assert.Equal(t, int64(5), user.Points)
	assert.Equal(t, int64(1), user.AcceptedChapters)
	assert.Equal(t, model.RankMember, user.Rank)
	assert.True(t, user.Balance.IsZero())

	logs := l.logs(t, model.ActionApprove)
	require.Len(t, logs, 1)
	assert.Equal(t, fmt.Sprintf("submission#%d +5 points", sub.ID), *logs[0].Details)

	submits := l.logs(t, model.ActionSubmit)
	require.Len(t, submits, 1)
	assert.Equal(t, fmt.Sprintf("submission#%d", sub.ID), *submits[0].Details)
}

func TestApplyApproval_PricingReadAtApprovalTime(t *testing.T) {
	l := setupLedger(t)
	ctx := context.Background()

	first, err := l.review.Submit(ctx, "1001", "alice", "chapter 1")
	require.NoError(t, err)
	second, err := l.review.Submit(ctx, "1001", "alice", "chapter 2")
	require.NoError(t, err)

	// latest row wins regardless of value
	_, err = l.pricing.SetPricing(ctx, "points", decimal.NewFromInt(50))
	require.NoError(t, err)
	_, err = l.pricing.SetPricing(ctx, "points", decimal.NewFromInt(5))
	require.NoError(t, err)

	_, err = l.review.ApplyApproval(ctx, first.ID)
	require.NoError(t, err)

	_, err = l.pricing.SetPricing(ctx, "money", decimal.RequireFromString("2.5"))
	require.NoError(t, err)

	approval, err := l.review.ApplyApproval(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "+2.50$", approval.Reward.String())

	user, err := l.accounts.GetUser(ctx, "1001")
	require.NoError(t, err)
	assert.Equal(t, int64(5), user.Points)
	assert.True(t, decimal.RequireFromString("2.5").Equal(user.Balance), user.Balance.String())
	assert.Equal(t, int64(2), user.AcceptedChapters)
}

func TestApplyApproval_NoPricingStillCountsChapter(t *testing.T) {
	l := setupLedger(t)
	ctx := context.Background()

	sub, err := l.review.Submit(ctx, "1001", "alice", "chapter 1")
	require.NoError(t, err)

	approval, err := l.review.ApplyApproval(ctx, sub.ID)
	require.NoError(t, err)
	assert.False(t, approval.Reward.Granted())
	assert.Equal(t, "no reward", approval.Reward.String())

	user, err := l.accounts.GetUser(ctx, "1001")
	require.NoError(t, err)
	assert.Equal(t, int64(0), user.Points)
	assert.Equal(t, int64(1), user.AcceptedChapters)

	logs := l.logs(t, model.ActionApprove)
	require.Len(t, logs, 1)
	assert.Equal(t, fmt.Sprintf("submission#%d", sub.ID), *logs[0].Details)
}

func TestApplyApproval_RankThresholds(t *testing.T) {
	tests := []struct {
		before int64
		want   model.Rank
	}{
		{before: 13, want: model.RankMember},
		{before: 14, want: model.RankPro},
		{before: 28, want: model.RankPro},
		{before: 29, want: model.RankLegend},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("from_%d", tt.before), func(t *testing.T) {
			l := setupLedger(t)
			ctx := context.Background()

			sub, err := l.review.Submit(ctx, "1001", "alice", "chapter")
			require.NoError(t, err)

			user, err := l.accounts.GetUser(ctx, "1001")
			require.NoError(t, err)
			user.AcceptedChapters = tt.before
			user.Rank = model.RankFor(tt.before)
			require.NoError(t, l.store.Users.SaveTotals(ctx, user))

			approval, err := l.review.ApplyApproval(ctx, sub.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.before+1, approval.User.AcceptedChapters)
			assert.Equal(t, tt.want, approval.User.Rank)
		})
	}
}

func TestReview_NotFoundLeavesStoreUnchanged(t *testing.T) {
	l := setupLedger(t)
	ctx := context.Background()

	before, err := l.accounts.Stats(ctx)
	require.NoError(t, err)

	_, err = l.review.ApplyApproval(ctx, 404)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = l.review.ApplyRejection(ctx, 404)
	assert.ErrorIs(t, err, ErrNotFound)

	after, err := l.accounts.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Empty(t, l.logs(t, model.ActionApprove))
	assert.Empty(t, l.logs(t, model.ActionReject))
}

func TestReview_TerminalStateIsGuarded(t *testing.T) {
	l := setupLedger(t)
	ctx := context.Background()

	_, err := l.pricing.SetPricing(ctx, "points", decimal.NewFromInt(5))
	require.NoError(t, err)

	sub, err := l.review.Submit(ctx, "1001", "alice", "chapter")
	require.NoError(t, err)
	_, err = l.review.ApplyApproval(ctx, sub.ID)
	require.NoError(t, err)

	// rejecting or re-approving an approved submission changes nothing
	_, err = l.review.ApplyRejection(ctx, sub.ID)
	assert.ErrorIs(t, err, ErrAlreadyResolved)
	_, err = l.review.ApplyApproval(ctx, sub.ID)
	assert.ErrorIs(t, err, ErrAlreadyResolved)

	got, err := l.accounts.Submission(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, got.Status)

	user, err := l.accounts.GetUser(ctx, "1001")
	require.NoError(t, err)
	assert.Equal(t, int64(5), user.Points)
	assert.Equal(t, int64(1), user.AcceptedChapters)

	assert.Len(t, l.logs(t, model.ActionApprove), 1)
	assert.Empty(t, l.logs(t, model.ActionReject))
}

func TestApplyRejection(t *testing.T) {
	l := setupLedger(t)
	ctx := context.Background()

	sub, err := l.review.Submit(ctx, "1001", "alice", "chapter")
	require.NoError(t, err)

	rejected, err := l.review.ApplyRejection(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, rejected.Status)

	user, err := l.accounts.GetUser(ctx, "1001")
	require.NoError(t, err)
	assert.Equal(t, int64(0), user.AcceptedChapters)

	logs := l.logs(t, model.ActionReject)
	require.Len(t, logs, 1)
	assert.Equal(t, fmt.Sprintf("submission#%d", sub.ID), *logs[0].Details)

	_, err = l.review.ApplyApproval(ctx, sub.ID)
	assert.ErrorIs(t, err, ErrAlreadyResolved)
}

func TestSubmit_BlankContent(t *testing.T) {
	l := setupLedger(t)

	_, err := l.review.Submit(context.Background(), "1001", "alice", " \n\t")
	assert.ErrorIs(t, err, ErrInvalidContent)

	_, err = l.accounts.GetUser(context.Background(), "1001")
	assert.ErrorIs(t, err, ErrNotFound)
}

// ============================================================================
// Pricing, attendance and accounts
// ============================================================================

func TestSetPricing_InvalidType(t *testing.T) {
	l := setupLedger(t)
	ctx := context.Background()

	_, err := l.pricing.SetPricing(ctx, "bogus", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrInvalidType)

	_, err = l.pricing.SetPricing(ctx, "points", decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = l.pricing.GetEffectivePricing(ctx, "default")
	assert.ErrorIs(t, err, ErrNoPricing)
	assert.Empty(t, l.logs(t, model.ActionPricingUpdate))
}

func TestSetPricing_LogsAsSystem(t *testing.T) {
	l := setupLedger(t)
	ctx := context.Background()

	rule, err := l.pricing.SetPricing(ctx, "money", decimal.RequireFromString("1.5"))
	require.NoError(t, err)
	assert.Equal(t, "default", rule.RoleName)

	effective, err := l.pricing.GetEffectivePricing(ctx, l.pricing.Scope())
	require.NoError(t, err)
	assert.Equal(t, rule.ID, effective.ID)

	logs := l.logs(t, model.ActionPricingUpdate)
	require.Len(t, logs, 1)
	assert.Equal(t, model.SystemUserID, logs[0].UserID)
	assert.Equal(t, "money=1.5", *logs[0].Details)

	history, err := l.pricing.History(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestMarkAttendance_RepeatsAndRefreshesName(t *testing.T) {
	l := setupLedger(t)
	ctx := context.Background()

	_, err := l.attendance.MarkAttendance(ctx, "1001", "alice")
	require.NoError(t, err)
	_, err = l.attendance.MarkAttendance(ctx, "1001", "alice#2")
	require.NoError(t, err)

	user, err := l.accounts.GetUser(ctx, "1001")
	require.NoError(t, err)
	assert.Equal(t, "alice#2", user.Username)

	entries, err := l.accounts.RecentAttendance(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	logs := l.logs(t, model.ActionAttendance)
	require.Len(t, logs, 2)
	assert.Equal(t, "presence marked", *logs[0].Details)
}

func TestLeaderboardAndStats(t *testing.T) {
	l := setupLedger(t)
	ctx := context.Background()

	_, err := l.pricing.SetPricing(ctx, "points", decimal.NewFromInt(5))
	require.NoError(t, err)

	for i, id := range []string{"1", "2", "2"} {
		sub, err := l.review.Submit(ctx, id, "user"+id, fmt.Sprintf("chapter %d", i))
		require.NoError(t, err)
		_, err = l.review.ApplyApproval(ctx, sub.ID)
		require.NoError(t, err)
	}
	pending, err := l.review.Submit(ctx, "3", "user3", "chapter")
	require.NoError(t, err)
	_, err = l.review.ApplyRejection(ctx, pending.ID)
	require.NoError(t, err)

	top, err := l.accounts.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, "2", top[0].DiscordID)
	assert.Equal(t, "1", top[1].DiscordID)

	stats, err := l.accounts.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Users)
	assert.Equal(t, int64(3), stats.Approved)
	assert.Equal(t, int64(1), stats.Rejected)
	assert.Equal(t, int64(0), stats.Pending)
}

func TestProfileCreatesMember(t *testing.T) {
	l := setupLedger(t)

	user, err := l.accounts.Profile(context.Background(), "1001", "alice")
	require.NoError(t, err)
	assert.Equal(t, model.RankMember, user.Rank)
	assert.Equal(t, "alice", user.Username)
}

// ============================================================================
// Export
// ============================================================================

func TestExport_TableHasBOMAndHeader(t *testing.T) {
	l := setupLedger(t)
	ctx := context.Background()

	_, err := l.attendance.MarkAttendance(ctx, "1001", "alice")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, l.export.WriteTable(ctx, &buf, "users"))
	out := buf.String()
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte(utf8BOM)))
	assert.Contains(t, out, "id,discord_id,username,points,balance,accepted_chapters,rank,withdraw_method\n")
	assert.Contains(t, out, ",1001,alice,0,0,0,Member,\n")

	assert.ErrorIs(t, l.export.WriteTable(ctx, &buf, "secrets"), ErrNotFound)
}

func TestExport_Attendance(t *testing.T) {
	l := setupLedger(t)
	ctx := context.Background()

	_, err := l.attendance.MarkAttendance(ctx, "1001", "alice")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, l.export.WriteAttendance(ctx, &buf))
	assert.Equal(t, utf8BOM+"username,timestamp\nalice,2024-05-01 12:00:00\n", buf.String())
}

func TestExport_RecentNewestFirst(t *testing.T) {
	l := setupLedger(t)
	ctx := context.Background()

	for _, id := range []string{"1001", "1002", "1003"} {
		_, err := l.attendance.MarkAttendance(ctx, id, "member"+id)
		require.NoError(t, err)
	}

	table, err := l.export.Recent(ctx, "users", 2)
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "3", table.Rows[0][0])
	assert.Equal(t, "2", table.Rows[1][0])

	_, err = l.export.Recent(ctx, "secrets", 2)
	assert.ErrorIs(t, err, ErrNotFound)
}
