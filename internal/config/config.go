// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// Config holds all application configuration.
type Config struct {
	Discord   DiscordConfig   `mapstructure:"discord"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Whitelist WhitelistConfig `mapstructure:"whitelist"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Log       LogConfig       `mapstructure:"log"`
}

// DiscordConfig holds Discord bot configuration.
type DiscordConfig struct {
	Token string `mapstructure:"token"`
	// GuildID scopes slash command registration; empty registers globally.
	GuildID      string `mapstructure:"guild_id"`
	ModChannelID string `mapstructure:"mod_channel_id"`
}

// DatabaseConfig holds the ledger database configuration.
// Driver is either "sqlite3" (file-backed, default) or "pgx" (PostgreSQL).
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	BusyTimeout     time.Duration `mapstructure:"busy_timeout"`
}

// AdminConfig holds admin user configuration.
// These Discord user IDs are treated as administrators regardless of guild permissions.
type AdminConfig struct {
	IDs []string `mapstructure:"ids"`
}

// WhitelistConfig holds guild whitelist configuration.
type WhitelistConfig struct {
	Guilds []string `mapstructure:"guilds"`
}

// LedgerConfig holds reward ledger settings.
type LedgerConfig struct {
	PricingScope     string `mapstructure:"pricing_scope"`
	LeaderboardSize  int    `mapstructure:"leaderboard_size"`
	RecentAttendance int    `mapstructure:"recent_attendance"`
	DashboardRows    int    `mapstructure:"dashboard_rows"`
}

// DashboardConfig holds the admin web dashboard configuration.
type DashboardConfig struct {
	Addr          string        `mapstructure:"addr"`
	SessionSecret string        `mapstructure:"session_secret"`
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
	SecureCookies bool          `mapstructure:"secure_cookies"`
	AllowedIDs    []string      `mapstructure:"allowed_ids"`
	OAuth         OAuthConfig   `mapstructure:"oauth"`
}

// OAuthConfig holds the Discord OAuth2 application settings.
type OAuthConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_url"`
	AuthURL      string `mapstructure:"auth_url"`
	TokenURL     string `mapstructure:"token_url"`
	APIBaseURL   string `mapstructure:"api_base_url"`
}

// MetricsConfig holds the Prometheus listener for the bot process.
// An empty address disables the listener.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// DSN returns the connection string for the configured driver.
func (d *DatabaseConfig) DSN() string {
	if d.Driver == DriverPostgres {
		return fmt.Sprintf(
			"postgres://%s:%s@%s:%d/%s?sslmode=disable",
			d.User, d.Password, d.Host, d.Port, d.Name,
		)
	}
	busy := d.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	return fmt.Sprintf(
		"file:%s?_foreign_keys=on&_journal_mode=WAL&_txlock=immediate&_busy_timeout=%d",
		d.Path, busy.Milliseconds(),
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g. DISCORD_TOKEN, DATABASE_DRIVER, DASHBOARD_ADDR
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := bindLegacyEnv(v); err != nil {
		return nil, err
	}

	// Config file is optional, env vars can provide everything.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// bindLegacyEnv maps the environment variable names used by earlier
// deployments onto their config keys.
func bindLegacyEnv(v *viper.Viper) error {
	bindings := map[string]string{
		"discord.token":                 "DISCORD_TOKEN",
		"discord.mod_channel_id":        "MOD_CHANNEL_ID",
		"database.path":                 "DB_PATH",
		"dashboard.allowed_ids":         "WHITELIST_IDS",
		"dashboard.oauth.client_id":     "DISCORD_CLIENT_ID",
		"dashboard.oauth.client_secret": "DISCORD_CLIENT_SECRET",
		"dashboard.oauth.redirect_url":  "DISCORD_REDIRECT_URI",
	}
	for key, env := range bindings {
		upper := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, upper, env); err != nil {
			return fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}
	return nil
}

// setDefaults sets default configuration values.
// Every key gets a default so AutomaticEnv can reach it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("discord.token", "")
	v.SetDefault("discord.guild_id", "")
	v.SetDefault("discord.mod_channel_id", "")

	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "database.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "unifiedbot")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "unifiedbot")
	v.SetDefault("database.pool_size", 10)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.busy_timeout", "5s")

	v.SetDefault("admin.ids", []string{})
	v.SetDefault("whitelist.guilds", []string{})

	v.SetDefault("ledger.pricing_scope", "default")
	v.SetDefault("ledger.leaderboard_size", 10)
	v.SetDefault("ledger.recent_attendance", 10)
	v.SetDefault("ledger.dashboard_rows", 20)

	v.SetDefault("dashboard.addr", ":5000")
	v.SetDefault("dashboard.session_secret", "")
	v.SetDefault("dashboard.session_ttl", "12h")
	v.SetDefault("dashboard.secure_cookies", false)
	v.SetDefault("dashboard.allowed_ids", []string{})
	v.SetDefault("dashboard.oauth.client_id", "")
	v.SetDefault("dashboard.oauth.client_secret", "")
	v.SetDefault("dashboard.oauth.redirect_url", "http://localhost:5000/oauth/callback")
	v.SetDefault("dashboard.oauth.auth_url", "https://discord.com/api/oauth2/authorize")
	v.SetDefault("dashboard.oauth.token_url", "https://discord.com/api/oauth2/token")
	v.SetDefault("dashboard.oauth.api_base_url", "https://discord.com/api")

	v.SetDefault("metrics.addr", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Ledger.PricingScope == "" {
		return fmt.Errorf("ledger.pricing_scope must not be empty")
	}
	return nil
}

// IsAdmin checks if a user ID is in the admin list.
func (c *Config) IsAdmin(userID string) bool {
	return contains(c.Admin.IDs, userID)
}

// IsGuildAllowed checks if a guild ID is in the whitelist.
func (c *Config) IsGuildAllowed(guildID string) bool {
	// Empty whitelist means all guilds are allowed
	if len(c.Whitelist.Guilds) == 0 {
		return true
	}
	return contains(c.Whitelist.Guilds, guildID)
}

// IsDashboardAllowed checks a verified OAuth user ID against the dashboard allow-list.
// An empty allow-list admits every authenticated user.
func (c *Config) IsDashboardAllowed(userID string) bool {
	if userID == "" {
		return false
	}
	if len(c.Dashboard.AllowedIDs) == 0 {
		return true
	}
	return contains(c.Dashboard.AllowedIDs, userID)
}

func contains(list []string, id string) bool {
	for _, v := range list {
		if strings.TrimSpace(v) == id {
			return true
		}
	}
	return false
}
