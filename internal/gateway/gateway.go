// ABOUTME: Gateway orchestrator wiring the store, auth, rate limiting and MCP dispatcher
// ABOUTME: Owns the HTTP server lifecycle and the health, info, admin and metrics routes

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/2389/pipedrive-gateway/internal/admin"
	"github.com/2389/pipedrive-gateway/internal/auth"
	"github.com/2389/pipedrive-gateway/internal/config"
	"github.com/2389/pipedrive-gateway/internal/mcp"
	"github.com/2389/pipedrive-gateway/internal/metrics"
	"github.com/2389/pipedrive-gateway/internal/optimize"
	"github.com/2389/pipedrive-gateway/internal/pipedrive"
	"github.com/2389/pipedrive-gateway/internal/ratelimit"
	"github.com/2389/pipedrive-gateway/internal/session"
	"github.com/2389/pipedrive-gateway/internal/store"
	"github.com/2389/pipedrive-gateway/internal/tools"
)

// shutdownTimeout bounds graceful shutdown once Run's context is canceled.
const shutdownTimeout = 5 * time.Second

// Gateway owns every process-scoped service object.
type Gateway struct {
	config     *config.Config
	store      *store.MemoryStore
	limiter    *ratelimit.Limiter
	sessions   *session.Registry
	mcpServer  *mcp.Server
	metrics    *metrics.Metrics
	handler    http.Handler
	httpServer *http.Server
	logger     *slog.Logger

	// addr is the bound listener address once Run has started
	addr chan net.Addr
}

// New builds a Gateway from cfg and seeds the configured principals.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	g := &Gateway{
		config:   cfg,
		store:    store.NewMemoryStore(),
		sessions: session.NewRegistry(),
		logger:   logger,
		addr:     make(chan net.Addr, 1),
	}

	if err := g.seedPrincipals(context.Background()); err != nil {
		return nil, err
	}

	if cfg.Metrics.Enabled {
		g.metrics = metrics.New()
		g.metrics.RegisterGauge("principals", "Registered principals.", func() float64 {
			return float64(g.store.Count())
		})
		g.metrics.RegisterGauge("sessions", "Initialized MCP sessions across all principals.", func() float64 {
			return float64(g.sessions.Total())
		})
	}

	g.limiter = ratelimit.New(ratelimit.Config{
		MaxRequests:     cfg.RateLimit.MaxRequests,
		Window:          cfg.RateLimit.Window,
		CleanupInterval: cfg.RateLimit.CleanupInterval,
	})
	if g.metrics != nil {
		g.metrics.RegisterGauge("rate_limit_windows", "Principals with an active rate limit window.", func() float64 {
			return float64(g.limiter.Len())
		})
	}

	upstreamCfg := pipedrive.Config{
		BaseURL:    cfg.Pipedrive.BaseURL,
		HTTPClient: pipedrive.NewHTTPClient(cfg.Pipedrive.Timeout),
		Metrics:    g.metrics,
		Logger:     logger.With("component", "pipedrive"),
	}

	mcpServer, err := mcp.NewServer(mcp.Config{
		Catalog:  tools.NewCatalog(),
		Sessions: g.sessions,
		Upstream: func(p *store.Principal) tools.Upstream {
			return pipedrive.New(upstreamCfg, p.UpstreamToken)
		},
		Budget: optimize.Budget{
			MaxTokens:     cfg.Optimizer.MaxTokensPerResponse,
			CharsPerToken: cfg.Optimizer.CharsPerToken,
		},
		RequireInitialize: cfg.Sessions.RequireInitialize,
		Metrics:           g.metrics,
		Logger:            logger.With("component", "mcp"),
	})
	if err != nil {
		g.limiter.Close()
		return nil, fmt.Errorf("creating MCP server: %w", err)
	}
	g.mcpServer = mcpServer

	mux := http.NewServeMux()
	g.registerRoutes(mux)
	g.handler = Chain(Logging(logger.With("component", "http")), Recovery(logger))(mux)

	g.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           g.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return g, nil
}

// seedPrincipals registers the users declared in the config file and environment.
func (g *Gateway) seedPrincipals(ctx context.Context) error {
	for _, u := range g.config.Users {
		if !store.IsValidUpstreamToken(u.PipedriveAPIToken) {
			g.logger.Warn("configured user has a malformed Pipedrive API token",
				"user_id", u.ID,
				"pipedrive_token", store.MaskUpstreamToken(u.PipedriveAPIToken),
			)
		}
		err := g.store.AddPrincipal(ctx, &store.Principal{
			ID:            u.ID,
			BearerToken:   u.BearerToken,
			UpstreamToken: u.PipedriveAPIToken,
			Name:          u.Name,
			Email:         u.Email,
		})
		if err != nil {
			return fmt.Errorf("seeding user %q: %w", u.ID, err)
		}
	}
	if n := len(g.config.Users); n > 0 {
		g.logger.Info("loaded configured users", "count", n)
	}
	return nil
}

func (g *Gateway) registerRoutes(mux *http.ServeMux) {
	authenticator := auth.NewAuthenticator(g.store, g.logger.With("component", "auth"), g.metrics)

	mux.Handle("/mcp", Chain(
		auth.Middleware(authenticator),
		ratelimit.Middleware(g.limiter, g.logger.With("component", "ratelimit"), g.metrics),
	)(g.mcpServer))

	mux.HandleFunc("GET /health", g.handleHealth)
	mux.Handle("GET /{$}", auth.OptionalMiddleware(authenticator)(http.HandlerFunc(g.handleRoot)))

	admin.NewHandler(g.store, g.logger).RegisterRoutes(mux, auth.AdminMiddleware(g.config.Auth.AdminToken, g.logger.With("component", "admin")))

	if g.metrics != nil {
		mux.Handle("GET "+g.config.Metrics.Path, g.metrics.Handler())
	}
}

// Handler returns the fully wrapped HTTP handler.
func (g *Gateway) Handler() http.Handler {
	return g.handler
}

// Addr blocks until Run has bound its listener or ctx ends.
func (g *Gateway) Addr(ctx context.Context) (net.Addr, error) {
	select {
	case a := <-g.addr:
		g.addr <- a
		return a, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Run serves HTTP until ctx is canceled or the server fails, then shuts down.
// Returns nil on graceful shutdown.
func (g *Gateway) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", g.config.Server.HTTPAddr, err)
	}
	g.addr <- ln.Addr()

	errCh := g.startServer(ln)
	serverErr := g.waitForShutdownSignal(ctx, errCh)

	shutdownErr := g.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

func (g *Gateway) startServer(ln net.Listener) chan error {
	errCh := make(chan error, 1)

	go func() {
		g.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := g.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	return errCh
}

func (g *Gateway) waitForShutdownSignal(ctx context.Context, errCh chan error) error {
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
		return nil
	case err := <-errCh:
		g.logger.Error("server error", "error", err)
		return err
	}
}

// gracefulShutdown uses a fresh context since Run's context is already done.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return g.Shutdown(ctx)
}

// Shutdown stops the HTTP server and the limiter's sweep goroutine.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	err := g.httpServer.Shutdown(ctx)
	g.limiter.Close()

	if err != nil {
		return fmt.Errorf("HTTP shutdown: %w", err)
	}
	return nil
}
