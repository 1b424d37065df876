// Package main is the entry point for the Discord community bot.
// The bot process owns every ledger write.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/more249-s/Maga-Bot-V4/internal/bot"
	"github.com/more249-s/Maga-Bot-V4/internal/config"
	"github.com/more249-s/Maga-Bot-V4/internal/pkg/db"
	"github.com/more249-s/Maga-Bot-V4/internal/pkg/lock"
	"github.com/more249-s/Maga-Bot-V4/internal/pkg/logging"
	"github.com/more249-s/Maga-Bot-V4/internal/pkg/metrics"
	"github.com/more249-s/Maga-Bot-V4/internal/repository"
	"github.com/more249-s/Maga-Bot-V4/internal/service"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Setup(cfg.Log)

	log.Info().Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer conn.Close()

	if err := db.Migrate(ctx, conn.DB); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	store := repository.NewStore(conn.DB)

	deps := &bot.Dependencies{
		Config:      cfg,
		Accounts:    service.NewAccountService(store),
		Attendance:  service.NewAttendanceService(store),
		Audit:       service.NewAuditService(store),
		Review:      service.NewReviewService(store, cfg.Ledger.PricingScope),
		Withdrawals: service.NewWithdrawalService(store),
		Pricing:     service.NewPricingService(store, cfg.Ledger.PricingScope),
		Export:      service.NewExportService(store),
		UserLock:    lock.New[string](),
		ReviewLock:  lock.New[int64](),
	}

	discordBot, err := bot.New(deps)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	var metricsServer *http.Server
	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsServer = &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info().Str("addr", cfg.Metrics.Addr).Msg("Metrics listener starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("Metrics listener failed")
			}
		}()
	}

	if err := discordBot.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start bot")
	}

	<-ctx.Done()
	log.Info().Msg("Received shutdown signal")

	if err := discordBot.Stop(); err != nil {
		log.Error().Err(err).Msg("Failed to close discord session")
	}
	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}
	log.Info().Msg("Bot stopped gracefully")
}
