// Package frontend is the HTTP surface of the gateway: it wires the
// session resolver, the gates, and the destination screens into a chi
// router and renders gate decisions as HTTP responses.
package frontend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"time"

	oidc "github.com/coreos/go-oidc"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/oauth2"

	"github.com/evoplatform/evogate/internal/config"
	"github.com/evoplatform/evogate/internal/gate"
	"github.com/evoplatform/evogate/internal/logger"
	"github.com/evoplatform/evogate/internal/logger/tag"
	"github.com/evoplatform/evogate/internal/platform"
	"github.com/evoplatform/evogate/internal/session"
)

// Server is the gateway HTTP server.
type Server struct {
	config      *config.Config
	resolver    *session.Resolver
	guard       *gate.Guard
	licenseGate *gate.LicenseGate
	metrics     *metricsCollector
	protected   http.Handler
	httpServer  *http.Server
	listener    net.Listener // Optional pre-bound listener (for tests).

	// Sign-in flow, nil unless an OIDC issuer is configured.
	oauth    *oauth2.Config
	verifier session.TokenVerifier
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithListener sets a pre-bound listener for the server. Useful for tests
// to avoid races with port allocation.
func WithListener(l net.Listener) ServerOption {
	return func(s *Server) {
		s.listener = l
	}
}

// NewServer constructs a Server from the configuration: the platform
// client, the session resolver (with an OIDC verifier when an issuer is
// configured), the gates, and the guard. The context is used for OIDC
// provider discovery and should be cancellable.
func NewServer(ctx context.Context, cfg *config.Config, opts ...ServerOption) (*Server, error) {
	resolverOpts := []session.ResolverOption{
		session.WithMaxAttempts(cfg.Auth.MaxResolveAttempts),
	}
	if cfg.Auth.TokenSecret != "" {
		resolverOpts = append(resolverOpts, session.WithTokenSecret(cfg.Auth.TokenSecret))
	}
	var oauthConfig *oauth2.Config
	var verifier session.TokenVerifier
	if cfg.Auth.OIDC.Issuer != "" {
		provider, err := oidc.NewProvider(ctx, cfg.Auth.OIDC.Issuer)
		if err != nil {
			return nil, fmt.Errorf("failed to init OIDC provider: %w", err)
		}
		verifier = session.NewOIDCVerifier(provider.Verifier(&oidc.Config{ClientID: cfg.Auth.OIDC.ClientID}))
		resolverOpts = append(resolverOpts, session.WithVerifier(verifier))

		if cfg.Auth.OIDC.RedirectURL != "" {
			scopes := cfg.Auth.OIDC.Scopes
			if len(scopes) == 0 {
				scopes = []string{oidc.ScopeOpenID, "profile", "email"}
			}
			oauthConfig = &oauth2.Config{
				ClientID:     cfg.Auth.OIDC.ClientID,
				ClientSecret: cfg.Auth.OIDC.ClientSecret,
				Endpoint:     provider.Endpoint(),
				RedirectURL:  cfg.Auth.OIDC.RedirectURL,
				Scopes:       scopes,
			}
		}
	}
	resolver := session.NewResolver(resolverOpts...)

	metrics := newMetricsCollector()
	client := platform.NewClient(cfg.Platform.BaseURL,
		platform.WithTimeout(cfg.Platform.Timeout),
		platform.WithRetryMax(cfg.Platform.RetryMax),
		platform.WithDurationMetric(metrics.rpcDuration),
	)

	licenseGate := gate.NewLicenseGate(client, cfg.Gates.LicenseRevalidateInterval)
	demoGate := gate.NewDemoGate(client, cfg.Gates.DemoVerifyTimeout)
	accountGate := gate.NewCloudAccountGate(client, cfg.Gates.ExemptPaths)

	srv := &Server{
		config:      cfg,
		resolver:    resolver,
		guard:       gate.NewGuard(resolver, licenseGate, demoGate, accountGate),
		licenseGate: licenseGate,
		metrics:     metrics,
		oauth:       oauthConfig,
		verifier:    verifier,
	}
	for _, opt := range opts {
		opt(srv)
	}

	if cfg.Platform.ConsoleURL != "" {
		origin, err := url.Parse(cfg.Platform.ConsoleURL)
		if err != nil {
			return nil, fmt.Errorf("invalid console URL: %w", err)
		}
		srv.protected = httputil.NewSingleHostReverseProxy(origin)
	} else {
		srv.protected = http.HandlerFunc(srv.handleConsole)
	}

	return srv, nil
}

// Serve starts the HTTP server and blocks until the context is cancelled
// or the server fails.
func (srv *Server) Serve(ctx context.Context) error {
	handler := srv.Handler()
	if basePath := srv.config.Server.BasePath; basePath != "" {
		handler = http.StripPrefix(basePath, handler)
	}

	addr := net.JoinHostPort(srv.config.Server.Host, strconv.Itoa(srv.config.Server.Port))
	srv.httpServer = &http.Server{
		Handler:           handler,
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	listener := srv.listener
	if listener == nil {
		var err error
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", addr, err)
		}
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error(ctx, "Server shutdown failed", tag.Error(err))
		}
	}()

	logger.Info(ctx, "Server is starting", tag.Addr(listener.Addr().String()))
	if err := srv.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Handler builds the fully wired router: health and metrics outside the
// guard, every other route behind it.
func (srv *Server) Handler() http.Handler {
	requestLogger := httplog.NewLogger("evogate", httplog.Options{
		LogLevel:         slog.LevelInfo,
		JSON:             srv.config.Global.LogFormat == "json",
		Concise:          true,
		MessageFieldName: "msg",
	})

	r := chi.NewMux()
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(httplog.RequestLogger(requestLogger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Accept"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", srv.handleHealth)
	r.Method(http.MethodGet, "/metrics",
		promhttp.HandlerFor(srv.metrics.registry, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(srv.guardMiddleware)
		r.Get("/auth", srv.handleAuth)
		r.Get("/auth/login", srv.handleLogin)
		r.Get("/auth/callback", srv.handleCallback)
		r.Get("/auth/sign-out", srv.handleSignOut)
		r.Post("/auth/sign-out", srv.handleSignOut)
		r.Get("/cloud-credentials", srv.handleCloudCredentials)
		r.Get("/license-management", srv.handleLicenseManagement)
		r.Get("/legal", srv.handleLegal)
		r.Get("/legal/*", srv.handleLegal)
		r.Handle("/*", srv.protected)
	})

	return r
}
