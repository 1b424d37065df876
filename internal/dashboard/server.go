// Package dashboard serves the read-only admin web dashboard and CSV exports.
package dashboard

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/more249-s/Maga-Bot-V4/internal/config"
	"github.com/more249-s/Maga-Bot-V4/internal/model"
	"github.com/more249-s/Maga-Bot-V4/internal/pkg/metrics"
	"github.com/more249-s/Maga-Bot-V4/internal/repository"
	"github.com/more249-s/Maga-Bot-V4/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// page is the data passed to every template.
type page struct {
	Title    string
	Identity Identity
	Stats    *model.Stats
	Tables   []*repository.Table
	Status   int
	Message  string
}

// Server holds the dashboard dependencies.
type Server struct {
	accounts *service.AccountService
	export   *service.ExportService
	auth     *Auth
	tables   []string
	rows     int
}

// NewServer creates a dashboard server.
func NewServer(cfg *config.Config, accounts *service.AccountService, export *service.ExportService, auth *Auth) *Server {
	return &Server{
		accounts: accounts,
		export:   export,
		auth:     auth,
		tables:   []string{"users", "submissions", "withdrawals", "attendance", "logs"},
		rows:     cfg.Ledger.DashboardRows,
	}
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	r.Use(metrics.InstrumentHandler)

	r.Get("/", s.handleHome)
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())

	r.Get("/login", s.auth.Login)
	r.Get("/oauth/callback", s.auth.Callback)
	r.Get("/logout", s.auth.Logout)

	r.Group(func(r chi.Router) {
		r.Use(s.auth.Require)
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/export/{table}", s.handleExport)
	})

	return r
}

// accessLog logs every request with its status and duration.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

// render executes a template into a buffer first, so a template error
// still produces a clean 500.
func render(w http.ResponseWriter, status int, name string, data page) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("Failed to render template")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func renderError(w http.ResponseWriter, status int, message string) {
	render(w, status, "error", page{
		Title:   http.StatusText(status),
		Status:  status,
		Message: message,
	})
}
