// Package main is the entry point for the admin web dashboard.
// The dashboard only reads the ledger.
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

	"github.com/more249-s/Maga-Bot-V4/internal/config"
	"github.com/more249-s/Maga-Bot-V4/internal/dashboard"
	"github.com/more249-s/Maga-Bot-V4/internal/pkg/db"
	"github.com/more249-s/Maga-Bot-V4/internal/pkg/logging"
	"github.com/more249-s/Maga-Bot-V4/internal/repository"
	"github.com/more249-s/Maga-Bot-V4/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Setup(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer conn.Close()

	// The schema may not exist yet if the dashboard starts before the bot.
	if err := db.Migrate(ctx, conn.DB); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	store := repository.NewStore(conn.DB)

	auth, err := dashboard.NewAuth(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure dashboard login")
	}
	srv := dashboard.NewServer(cfg, service.NewAccountService(store), service.NewExportService(store), auth)

	httpServer := &http.Server{
		Addr:              cfg.Dashboard.Addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Dashboard.Addr).Msg("Dashboard starting")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Dashboard server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Dashboard shutdown failed")
	}
	log.Info().Msg("Dashboard stopped gracefully")
}
