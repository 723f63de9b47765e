// Package server assembles the HTTP surface of pledgeboard: the Connect
// services, health and metrics endpoints, and the static front end.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/pledgeboard/internal/audience"
	"github.com/mmynk/pledgeboard/internal/auth"
	"github.com/mmynk/pledgeboard/internal/config"
	"github.com/mmynk/pledgeboard/internal/metrics"
	"github.com/mmynk/pledgeboard/internal/middleware"
	"github.com/mmynk/pledgeboard/internal/service"
	"github.com/mmynk/pledgeboard/internal/settlement"
	"github.com/mmynk/pledgeboard/internal/storage"
	"github.com/mmynk/pledgeboard/pkg/api/apiconnect"
)

// apiPrefix starts every Connect procedure path.
const apiPrefix = "/pledgeboard.v1."

// App holds the collaborators shared by the HTTP handler and the CLI.
type App struct {
	Config        config.Config
	Store         storage.Store
	Engine        *settlement.Engine
	Authenticator *auth.PasswordAuthenticator
	Sessions      *auth.SessionIssuer
	Metrics       *metrics.Metrics
	Registry      *prometheus.Registry
}

// NewApp wires the settlement engine, auth and metrics around store.
// Extra engine options are applied after the metrics option.
func NewApp(cfg config.Config, store storage.Store, opts ...settlement.Option) *App {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	opts = append([]settlement.Option{settlement.WithMetrics(m)}, opts...)

	return &App{
		Config:        cfg,
		Store:         store,
		Engine:        settlement.NewEngine(store, audience.NewGate(store), opts...),
		Authenticator: auth.NewPasswordAuthenticator(store),
		Sessions:      auth.NewSessionIssuer(cfg.JWTSecret, cfg.TokenTTL),
		Metrics:       m,
		Registry:      reg,
	}
}

// Handler returns the root router.
func (a *App) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(loggingMiddleware)
	r.Use(corsMiddleware)

	logging := middleware.LoggingInterceptor(a.Metrics)
	// Auth runs first so the logging interceptor sees the caller.
	optional := connect.WithInterceptors(middleware.OptionalAuth(a.Sessions), logging)
	required := connect.WithInterceptors(middleware.RequireAuth(a.Sessions), logging)

	mount := func(path string, h http.Handler) {
		r.Handle(path+"*", h)
	}
	mount(apiconnect.NewAuthServiceHandler(
		service.NewAuthService(a.Authenticator, a.Sessions, a.Store, a.Config, slog.Default()), optional))
	mount(apiconnect.NewGroupServiceHandler(service.NewGroupService(a.Store), required))
	mount(apiconnect.NewThreadServiceHandler(service.NewThreadService(a.Store, a.Engine, a.Config), optional))
	mount(apiconnect.NewRequestServiceHandler(service.NewRequestService(a.Store, a.Engine, a.Config), optional))
	mount(apiconnect.NewLedgerServiceHandler(service.NewLedgerService(a.Store, a.Engine), required))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}))

	r.Handle("/*", staticHandler(a.Config.StaticPath))
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	// h2c gives Connect HTTP/2 without TLS.
	srv := &http.Server{
		Addr:              a.Config.HTTPAddr,
		Handler:           h2c.NewHandler(a.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Connect server starting", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// staticHandler serves the front end from dir. Unknown paths fall back to
// index.html; unknown API paths are a plain 404.
func staticHandler(dir string) http.Handler {
	staticDir, err := filepath.Abs(dir)
	if err != nil {
		staticDir = dir
	}
	slog.Info("Serving static files", "path", staticDir)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, apiPrefix) {
			http.NotFound(w, r)
			return
		}

		urlPath := r.URL.Path
		if urlPath == "/" {
			urlPath = "/index.html"
		}

		filePath := filepath.Join(staticDir, filepath.Clean("/"+urlPath))
		if info, err := os.Stat(filePath); err != nil || info.IsDir() {
			http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
			return
		}
		http.ServeFile(w, r, filePath)
	})
}

// loggingMiddleware logs all incoming requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		slog.Debug("Request completed",
			"request_id", chimw.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"remote_addr", r.RemoteAddr,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
