package handler

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"github.com/more249-s/Maga-Bot-V4/internal/config"
	"github.com/more249-s/Maga-Bot-V4/internal/pkg/discord"
	"github.com/more249-s/Maga-Bot-V4/internal/pkg/lock"
	"github.com/more249-s/Maga-Bot-V4/internal/service"
)

const (
	timeLayout          = "2006-01-02 15:04:05"
	profileActivitySize = 5
)

// AccountHandler handles member-facing account commands.
type AccountHandler struct {
	accounts   *service.AccountService
	attendance *service.AttendanceService
	audit      *service.AuditService
	userLock   *lock.Keyed[string]
	ledger     config.LedgerConfig
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(
	accounts *service.AccountService,
	attendance *service.AttendanceService,
	audit *service.AuditService,
	userLock *lock.Keyed[string],
	ledger config.LedgerConfig,
) *AccountHandler {
	return &AccountHandler{
		accounts:   accounts,
		attendance: attendance,
		audit:      audit,
		userLock:   userLock,
		ledger:     ledger,
	}
}

// HandlePing handles /ping.
func (h *AccountHandler) HandlePing(c discord.Context) error {
	return c.Reply("🏓 Pong!")
}

// HandleAttend handles /attend. Every call records a new mark.
func (h *AccountHandler) HandleAttend(c discord.Context) error {
	err := h.userLock.WithLock(c.Context(), c.UserID(), func() error {
		_, err := h.attendance.MarkAttendance(c.Context(), c.UserID(), c.Username())
		return err
	})
	if err != nil {
		return c.ReplyEphemeral(errorMessage(err))
	}
	return c.Reply(fmt.Sprintf("✅ Attendance recorded for %s", c.Username()))
}

// HandleAttendance handles /attendance, listing the latest marks.
func (h *AccountHandler) HandleAttendance(c discord.Context) error {
	entries, err := h.accounts.RecentAttendance(c.Context(), h.ledger.RecentAttendance)
	if err != nil {
		return c.ReplyEphemeral(errorMessage(err))
	}
	if len(entries) == 0 {
		return c.Reply("📋 No attendance records yet")
	}

	var sb strings.Builder
	sb.WriteString("📋 Latest attendance\n\n")
	for _, e := range entries {
		fmt.Fprintf(&sb, "• %s | %s\n", e.Username, e.Timestamp.UTC().Format(timeLayout))
	}
	return c.Reply(sb.String())
}

// HandleProfile handles /profile. The embed ends with the member's latest audit entries.
func (h *AccountHandler) HandleProfile(c discord.Context) error {
	user, err := h.accounts.Profile(c.Context(), c.UserID(), c.Username())
	if err != nil {
		return c.ReplyEphemeral(errorMessage(err))
	}

	method := "not set"
	if user.WithdrawMethod != nil && *user.WithdrawMethod != "" {
		method = *user.WithdrawMethod
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "Points", Value: fmt.Sprintf("%d", user.Points), Inline: true},
		{Name: "Balance", Value: money(user.Balance), Inline: true},
		{Name: "Chapters", Value: fmt.Sprintf("%d", user.AcceptedChapters), Inline: true},
		{Name: "Rank", Value: string(user.Rank), Inline: true},
		{Name: "Withdraw method", Value: method, Inline: true},
	}

	entries, err := h.audit.ByUser(c.Context(), user.ID, profileActivitySize)
	if err != nil {
		log.Warn().Err(err).Int64("user_id", user.ID).Msg("Failed to load recent activity")
	}
	if len(entries) > 0 {
		var sb strings.Builder
		for _, e := range entries {
			sb.WriteString(e.Action)
			if e.Details != nil {
				sb.WriteString(": " + *e.Details)
			}
			sb.WriteString("\n")
		}
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Recent activity", Value: sb.String()})
	}

	return c.ReplyEmbed(&discordgo.MessageEmbed{
		Title:  "👤 " + user.Username,
		Color:  0x5865F2,
		Fields: fields,
	})
}

// HandleLeaderboard handles /leaderboard.
func (h *AccountHandler) HandleLeaderboard(c discord.Context) error {
	users, err := h.accounts.Leaderboard(c.Context(), h.ledger.LeaderboardSize)
	if err != nil {
		return c.ReplyEphemeral(errorMessage(err))
	}
	if len(users) == 0 {
		return c.Reply("🏆 The leaderboard is empty")
	}

	medals := []string{"🥇", "🥈", "🥉"}
	var sb strings.Builder
	sb.WriteString("🏆 Leaderboard\n\n")
	for i, u := range users {
		prefix := fmt.Sprintf("%d.", i+1)
		if i < len(medals) {
			prefix = medals[i]
		}
		fmt.Fprintf(&sb, "%s %s | %d chapters | %d points | %s\n",
			prefix, u.Username, u.AcceptedChapters, u.Points, u.Rank)
	}
	return c.Reply(sb.String())
}

// HandleStats handles /stats.
func (h *AccountHandler) HandleStats(c discord.Context) error {
	stats, err := h.accounts.Stats(c.Context())
	if err != nil {
		return c.ReplyEphemeral(errorMessage(err))
	}
	return c.Reply(fmt.Sprintf(
		"📊 Stats\n\n"+
			"👥 Members: %d\n"+
			"📝 Submissions: %d (pending %d, approved %d, rejected %d)\n"+
			"💸 Withdrawals: %d\n"+
			"📋 Attendance marks: %d",
		stats.Users, stats.Submissions(), stats.Pending, stats.Approved, stats.Rejected,
		stats.Withdrawals, stats.Attendance,
	))
}
