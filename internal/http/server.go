package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ledgerlens/internal/auth"
	"ledgerlens/internal/chat"
	"ledgerlens/internal/core"
	"ledgerlens/internal/log"
	"ledgerlens/internal/middleware/ratelimit"
	"ledgerlens/internal/middleware/security"
	"ledgerlens/internal/middleware/trace"
	"ledgerlens/internal/store"
	appweb "ledgerlens/web"
)

// DashboardBuilder produces the snapshot for a user. It never fails; errors
// collapse to the empty snapshot.
type DashboardBuilder interface {
	Build(ctx context.Context, userID string) core.DashboardSnapshot
}

// ChatRunner runs one chat request. *chat.Session implements it.
type ChatRunner interface {
	Run(ctx context.Context, userID string, msgs []chat.Message, emit func(chat.Event) error) error
}

// Records is the part of the Record Store the REST endpoints use.
type Records interface {
	store.TransactionReader
	store.AssetReader
	store.AssetWriter
	Ping(ctx context.Context) error
}

// Dependencies are the collaborators the server routes to. Chat is nil
// when no model is configured; leave the field unset rather than storing a
// typed nil pointer in it.
type Dependencies struct {
	Auth      *auth.Authenticator
	Dashboard DashboardBuilder
	Chat      ChatRunner
	Records   Records
	Logger    *log.Logger

	DevLogin           bool
	RateLimitPerMinute int
}

type Server struct {
	http.Server
	deps      Dependencies
	templates map[string]*template.Template
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	logger    *log.Logger
	httpLog   *log.StructuredLogger
	started   time.Time

	shutdownOnce sync.Once
}

// NewServer parses the embedded templates and builds the router.
func NewServer(addr string, deps Dependencies) (*Server, error) {
	if deps.Auth == nil || deps.Dashboard == nil || deps.Records == nil {
		return nil, errors.New("http server: auth, dashboard and records are required")
	}
	if deps.Logger == nil {
		deps.Logger = log.New(log.DefaultConfig())
	}

	templates, err := loadTemplates()
	if err != nil {
		return nil, err
	}

	logger := deps.Logger.WithComponent(log.ComponentHTTP)
	s := &Server{
		deps:      deps,
		templates: templates,
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RateLimitPerMinute}),
		detector:  security.NewDetector(deps.Logger),
		logger:    logger,
		httpLog:   log.NewStructuredLogger(deps.Logger),
		started:   time.Now(),
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Chat responses stream for as long as the model keeps calling tools.
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	return s, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(log.Middleware(s.deps.Logger))
	r.Use(trace.NewMiddleware(s.detector.ExtractClientIP).Middleware)
	r.Use(middleware.Recoverer)
	r.Use(s.detector.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.deps.Auth.Middleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.With(security.StaticAssetMiddleware(3600)).Handle("/static/*", static)
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	// Reads are compressed; the NDJSON chat stream is not, so each line is
	// flushed as soon as it is written.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Compress(5))

		r.Get("/", s.handleChatPage)
		r.Get("/dashboard", s.handleDashboardPage)
		r.Get("/api/dashboard", s.handleDashboardJSON)

		r.With(auth.RequireUser).Get("/api/transactions", s.handleListTransactions)
		r.With(auth.RequireUser).Get("/api/assets", s.handleListAssets)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, s.writeRateLimited))

		r.With(auth.RequireUser).Post("/api/chat", s.handleChat)
		r.With(auth.RequireUser).Post("/api/assets", s.handleUpsertAsset)
		if s.deps.DevLogin {
			r.Post("/auth/dev-login", s.handleDevLogin)
		}
	})

	return r
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) writeRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldPath, r.URL.Path)
	writeJSONError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reports not ready when the Record Store does not answer a ping.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]any{
		"templates":    "ok",
		"chat":         "ok",
		"rate_limiter": map[string]any{"active_clients": s.limiter.ActiveClients()},
	}

	if err := s.deps.Records.Ping(ctx); err != nil {
		checks["store"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}
	if s.deps.Chat == nil {
		checks["chat"] = "not_configured"
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

// pageData is shared by every page template.
type pageData struct {
	Title    string
	Active   string
	SignedIn bool
}

func loadTemplates() (map[string]*template.Template, error) {
	pages := []string{"chat.html", "dashboard.html"}
	out := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		t, err := template.ParseFS(appweb.TemplatesFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", page, err)
		}
		out[page] = t
	}
	return out, nil
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, page string, data any) {
	t, ok := s.templates[page]
	if !ok {
		s.logger.ErrorContext(r.Context(), "Template not loaded", "template", page)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.ExecuteTemplate(w, "layout", data); err != nil {
		s.httpLog.LogError(r.Context(), "Template execution failed", err, log.OpRender,
			log.NewFields().WithRequestID(trace.GetRequestID(r.Context())))
	}
}
