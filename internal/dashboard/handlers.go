package dashboard

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/more249-s/Maga-Bot-V4/internal/repository"
	"github.com/more249-s/Maga-Bot-V4/internal/service"
)

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	stats, err := s.accounts.Stats(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to load stats")
		renderError(w, http.StatusInternalServerError, "Could not load statistics.")
		return
	}

	identity, _ := s.auth.Session(r)
	render(w, http.StatusOK, "home", page{
		Title:    "Unified Bot",
		Identity: identity,
		Stats:    stats,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	tables := make([]*repository.Table, 0, len(s.tables))
	for _, name := range s.tables {
		t, err := s.export.Recent(r.Context(), name, s.rows)
		if err != nil {
			log.Error().Err(err).Str("table", name).Msg("Failed to load table")
			renderError(w, http.StatusInternalServerError, "Could not load dashboard data.")
			return
		}
		tables = append(tables, t)
	}

	render(w, http.StatusOK, "dashboard", page{
		Title:    "Dashboard",
		Identity: identity,
		Tables:   tables,
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	if !slices.Contains(s.tables, table) {
		renderError(w, http.StatusNotFound, "Unknown table.")
		return
	}

	var buf bytes.Buffer
	if err := s.export.WriteTable(r.Context(), &buf, table); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			renderError(w, http.StatusNotFound, "Unknown table.")
			return
		}
		log.Error().Err(err).Str("table", table).Msg("Export failed")
		renderError(w, http.StatusInternalServerError, "Export failed.")
		return
	}

	identity, _ := IdentityFrom(r.Context())
	log.Info().
		Str("user_id", identity.UserID).
		Str("table", table).
		Int("bytes", buf.Len()).
		Msg("Table exported")

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", table))
	_, _ = buf.WriteTo(w)
}
