// Package bot wires the Discord session, slash commands and handlers.
package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"github.com/more249-s/Maga-Bot-V4/internal/config"
	"github.com/more249-s/Maga-Bot-V4/internal/handler"
	"github.com/more249-s/Maga-Bot-V4/internal/pkg/discord"
	"github.com/more249-s/Maga-Bot-V4/internal/pkg/lock"
	"github.com/more249-s/Maga-Bot-V4/internal/service"
)

// interactionTimeout bounds the storage work done for one interaction.
// Discord expects a response within three seconds.
const interactionTimeout = 3 * time.Second

// Bot wraps the discordgo session with application dependencies.
type Bot struct {
	session *discordgo.Session
	cfg     *config.Config
	router  *discord.Router
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config      *config.Config
	Accounts    *service.AccountService
	Attendance  *service.AttendanceService
	Audit       *service.AuditService
	Review      *service.ReviewService
	Withdrawals *service.WithdrawalService
	Pricing     *service.PricingService
	Export      *service.ExportService
	UserLock    *lock.Keyed[string]
	ReviewLock  *lock.Keyed[int64]
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Discord.Token == "" {
		return nil, fmt.Errorf("discord token is required")
	}

	session, err := discordgo.New("Bot " + deps.Config.Discord.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds

	b := &Bot{
		session: session,
		cfg:     deps.Config,
		router:  NewRouter(deps),
	}

	session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		log.Info().
			Str("user", r.User.String()).
			Int("guilds", len(r.Guilds)).
			Msg("Connected to Discord")
	})
	session.AddHandler(b.router.InteractionHandler(interactionTimeout))

	return b, nil
}

// NewRouter registers middleware and every command and component handler.
func NewRouter(deps *Dependencies) *discord.Router {
	cfg := deps.Config

	accounts := handler.NewAccountHandler(deps.Accounts, deps.Attendance, deps.Audit, deps.UserLock, cfg.Ledger)
	submissions := handler.NewSubmissionHandler(deps.Review, deps.UserLock, deps.ReviewLock, cfg.Discord.ModChannelID)
	withdrawals := handler.NewWithdrawalHandler(deps.Accounts, deps.Withdrawals, deps.UserLock)
	admin := handler.NewAdminHandler(deps.Pricing, deps.Export)

	r := discord.NewRouter()
	r.Use(RecoveryMiddleware())
	r.Use(WhitelistMiddleware(cfg, newMemberCache()))
	r.Use(LoggingMiddleware())

	r.Handle("ping", accounts.HandlePing)
	r.Handle("attend", accounts.HandleAttend)
	r.Handle("attendance", accounts.HandleAttendance)
	r.Handle("profile", accounts.HandleProfile)
	r.Handle("leaderboard", accounts.HandleLeaderboard)
	r.Handle("stats", accounts.HandleStats)

	r.Handle("submit", submissions.HandleSubmit)
	r.Handle("withdraw", withdrawals.HandleWithdraw)
	r.Handle("withdrawals", withdrawals.HandleWithdrawals)

	requireAdmin := AdminMiddleware(cfg)
	r.Handle("pricing", admin.HandlePricing, requireAdmin)
	r.Handle("export_attendance", admin.HandleExportAttendance, requireAdmin)

	requireReviewer := ReviewerMiddleware(cfg)
	r.HandlePrefix(handler.ApprovePrefix, submissions.HandleApprove, requireReviewer)
	r.HandlePrefix(handler.RejectPrefix, submissions.HandleReject, requireReviewer)

	return r
}

// Start opens the gateway connection and registers slash commands.
// Commands are registered per guild when a guild ID is configured, which
// makes changes visible immediately; otherwise they are global.
func (b *Bot) Start(ctx context.Context) error {
	log.Info().Msg("Starting bot...")

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}

	appID := b.session.State.User.ID
	registered, err := b.session.ApplicationCommandBulkOverwrite(
		appID, b.cfg.Discord.GuildID, Commands(), discordgo.WithContext(ctx),
	)
	if err != nil {
		_ = b.session.Close()
		return fmt.Errorf("failed to register commands: %w", err)
	}

	log.Info().
		Int("commands", len(registered)).
		Str("guild_id", b.cfg.Discord.GuildID).
		Msg("Slash commands registered")
	return nil
}

// Stop closes the gateway connection.
func (b *Bot) Stop() error {
	log.Info().Msg("Stopping bot...")
	return b.session.Close()
}
