package bot

import (
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"github.com/more249-s/Maga-Bot-V4/internal/config"
	"github.com/more249-s/Maga-Bot-V4/internal/pkg/discord"
	"github.com/more249-s/Maga-Bot-V4/internal/pkg/metrics"
)

// memberCache tracks users seen in a whitelisted guild so they can keep
// using the bot from direct messages.
type memberCache struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

func newMemberCache() *memberCache {
	return &memberCache{seen: make(map[string]struct{})}
}

func (m *memberCache) allow(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen[userID] = struct{}{}
}

func (m *memberCache) allowed(userID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.seen[userID]
	return ok
}

// IsAdministrator reports whether the invoking user may run admin commands:
// either a configured admin ID or a member with the Administrator permission.
func IsAdministrator(cfg *config.Config, c discord.Context) bool {
	return cfg.IsAdmin(c.UserID()) || c.Permissions()&discordgo.PermissionAdministrator != 0
}

// CanReview reports whether the invoking user may approve or reject submissions.
func CanReview(cfg *config.Config, c discord.Context) bool {
	return IsAdministrator(cfg, c) || c.Permissions()&discordgo.PermissionManageMessages != 0
}

// WhitelistMiddleware drops interactions from guilds outside the whitelist.
// Direct messages pass when the whitelist is empty or the user was seen in an allowed guild.
func WhitelistMiddleware(cfg *config.Config, members *memberCache) discord.MiddlewareFunc {
	return func(next discord.HandlerFunc) discord.HandlerFunc {
		return func(c discord.Context) error {
			if c.GuildID() == "" {
				if len(cfg.Whitelist.Guilds) == 0 || members.allowed(c.UserID()) {
					return next(c)
				}
				log.Debug().
					Str("user_id", c.UserID()).
					Msg("Ignoring direct message from user not in whitelist cache")
				return c.ReplyEphemeral("❌ This bot is not available here")
			}

			if !cfg.IsGuildAllowed(c.GuildID()) {
				log.Debug().
					Str("guild_id", c.GuildID()).
					Msg("Ignoring interaction from non-whitelisted guild")
				return c.ReplyEphemeral("❌ This bot is not available here")
			}

			members.allow(c.UserID())
			return next(c)
		}
	}
}

// AdminMiddleware rejects users who are not administrators.
func AdminMiddleware(cfg *config.Config) discord.MiddlewareFunc {
	return func(next discord.HandlerFunc) discord.HandlerFunc {
		return func(c discord.Context) error {
			if !IsAdministrator(cfg, c) {
				log.Warn().
					Str("user_id", c.UserID()).
					Str("command", c.Route()).
					Msg("Non-admin attempted admin command")
				return c.ReplyEphemeral("❌ Administrator permission required")
			}
			return next(c)
		}
	}
}

// ReviewerMiddleware rejects users who may not review submissions.
func ReviewerMiddleware(cfg *config.Config) discord.MiddlewareFunc {
	return func(next discord.HandlerFunc) discord.HandlerFunc {
		return func(c discord.Context) error {
			if !CanReview(cfg, c) {
				log.Warn().
					Str("user_id", c.UserID()).
					Str("custom_id", c.Route()).
					Msg("Non-moderator attempted review")
				return c.ReplyEphemeral("❌ You are not allowed to review submissions")
			}
			return next(c)
		}
	}
}

// LoggingMiddleware logs and counts every interaction.
func LoggingMiddleware() discord.MiddlewareFunc {
	return func(next discord.HandlerFunc) discord.HandlerFunc {
		return func(c discord.Context) error {
			log.Debug().
				Str("user_id", c.UserID()).
				Str("username", c.Username()).
				Str("guild_id", c.GuildID()).
				Str("route", c.Route()).
				Msg("Received interaction")

			metrics.RecordInteraction(routeLabel(c.Route()))
			return next(c)
		}
	}
}

// RecoveryMiddleware recovers from panics in handlers.
func RecoveryMiddleware() discord.MiddlewareFunc {
	return func(next discord.HandlerFunc) discord.HandlerFunc {
		return func(c discord.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Str("route", c.Route()).
						Msg("Recovered from panic in handler")
					err = c.ReplyEphemeral("❌ Internal error, please try again later")
				}
			}()
			return next(c)
		}
	}
}

// routeLabel strips the trailing identifier from component custom IDs,
// e.g. "review:approve:42" becomes "review:approve".
func routeLabel(route string) string {
	if i := strings.LastIndex(route, ":"); i > 0 {
		return route[:i]
	}
	return route
}
