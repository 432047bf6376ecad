package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"identity/backend/internal/config"
	authdomain "identity/backend/internal/domain/auth"

	"github.com/prometheus/client_golang/prometheus"
)

// CredentialService is the slice of the auth use cases the handlers call.
type CredentialService interface {
	Register(ctx context.Context, name, email, password string) (*authdomain.User, error)
	Login(ctx context.Context, creds authdomain.Credentials) (string, *authdomain.User, error)
	ValidateToken(token string) (*authdomain.Claims, error)
}

// Authenticator resolves a bearer token to a live user. Protected routes
// reject the request whenever it returns an error.
type Authenticator func(ctx context.Context, token string) (*authdomain.User, error)

// ReadinessChecker reports whether backing services are reachable.
type ReadinessChecker func(ctx context.Context) error

// Options carries the optional collaborators of a Server.
type Options struct {
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Ready    ReadinessChecker
}

// Server wraps the HTTP server lifecycle.
type Server struct {
	httpServer   *http.Server
	router       *http.ServeMux
	authService  CredentialService
	authenticate Authenticator
	ready        ReadinessChecker
	logger       *slog.Logger
	registry     *prometheus.Registry
	metrics      *metrics
	basePath     string
	addr         string
}

// NewServer constructs a new Server with configured dependencies.
func NewServer(cfg config.HTTPConfig, authService CredentialService, authenticate Authenticator, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}

	mux := http.NewServeMux()
	addr := cfg.Addr()

	srv := &Server{
		router:       mux,
		authService:  authService,
		authenticate: authenticate,
		ready:        opts.Ready,
		logger:       opts.Logger,
		registry:     opts.Registry,
		metrics:      newMetrics(opts.Registry),
		basePath:     "/" + strings.Trim(cfg.BasePath, "/"),
		addr:         addr,
	}
	if srv.basePath == "/" {
		srv.basePath = ""
	}

	handler := withRecovery(withLogging(withCORS(mux, cfg.AllowedOrigins), srv.logger), srv.logger)
	srv.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(srv.logger.Handler(), slog.LevelError),
	}
	srv.registerRoutes()
	return srv
}

// Start bootstraps the HTTP server on the configured address.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the fully wrapped handler, middleware included.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr returns the configured network address for the HTTP server.
func (s *Server) Addr() string {
	return s.addr
}
