package application

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/dispatcher2-web/internal/api"
	"github.com/eugenenazirov/dispatcher2-web/internal/config"
	"github.com/eugenenazirov/dispatcher2-web/internal/session"
)

const (
	staticDir = "static"
	indexFile = "templates/index.html"
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	settings config.Config
	sessions *session.Manager
	handler  *api.Handler
	router   http.Handler
	logger   *zap.Logger
	server   *http.Server
}

// Option configures optional dependencies.
type Option func(*options)

type options struct {
	db api.Pinger
}

// WithDatabase attaches an opened database to the health endpoint.
func WithDatabase(db api.Pinger) Option {
	return func(o *options) {
		o.db = db
	}
}

// New initializes the application with all dependencies from the provided configuration.
func New(cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	sessions, err := NewSessionManager(cfg)
	switch {
	case errors.Is(err, session.ErrMissingSecret):
		logger.Warn("secret key not configured, session endpoints disabled")
	case err != nil:
		return nil, fmt.Errorf("failed to initialize sessions: %w", err)
	}

	handlerOpts := []api.HandlerOption{}
	if sessions != nil {
		handlerOpts = append(handlerOpts, api.WithSessions(sessions))
	}
	if o.db != nil {
		handlerOpts = append(handlerOpts, api.WithDatabase(o.db))
	}

	handler := api.NewHandler(cfg, handlerOpts...)
	apiRouter := api.NewRouter(handler, logger,
		api.WithLogging(cfg.Server.EnableRequestLogging),
		api.WithRateLimit(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst),
	)

	server := NewServer(cfg, BuildRootHandler(cfg, apiRouter))

	if cfg.Source != "" {
		logger.Info("local settings applied", zap.String("source", cfg.Source))
	}
	logger.Debug("settings resolved",
		zap.String("project_dir", cfg.ProjectDir),
		zap.Int("page_limit", cfg.PageLimit),
		zap.Int("session_timeout", cfg.SessionTimeout),
	)

	return &App{
		settings: cfg,
		sessions: sessions,
		handler:  handler,
		router:   apiRouter,
		logger:   logger,
		server:   server,
	}, nil
}

// NewSessionManager builds the session manager from the secret key and session timeout.
func NewSessionManager(cfg config.Config) (*session.Manager, error) {
	return session.NewManager(cfg.SecretKey, cfg.SessionTimeoutDuration())
}

// BuildRootHandler constructs the root HTTP handler that serves static files and
// the index page from the project directory and routes API requests.
func BuildRootHandler(cfg config.Config, apiHandler http.Handler) http.Handler {
	mux := http.NewServeMux()

	staticFS := http.Dir(cfg.Absolute(staticDir))
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(staticFS)))
	mux.Handle("/api/", apiHandler)

	indexPath := cfg.Absolute(indexFile)
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, indexPath)
	}))

	return mux
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Server.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}
