package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/partcast/partcast/server/internal/alerts"
	"github.com/partcast/partcast/server/internal/api"
	"github.com/partcast/partcast/server/internal/auth"
	"github.com/partcast/partcast/server/internal/config"
	"github.com/partcast/partcast/server/internal/grpcserver"
	"github.com/partcast/partcast/server/internal/metrics"
	"github.com/partcast/partcast/server/internal/store"
	"github.com/partcast/partcast/server/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file (defaults are used if it does not exist)")
	logLevel := flag.String("log-level", "", "override server.log_level (debug|info|warn|error)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	level := cfg.Server.LogLevel
	if *logLevel != "" {
		level = *logLevel
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		slog.Error("invalid log level", "level", level, "err", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})))

	slog.Info("partcast-server starting",
		"config", *configPath,
		"http_port", cfg.Server.HTTPPort,
		"grpc_port", cfg.Server.GRPCPort,
		"auth_mode", cfg.Server.Auth.Mode,
		"charts", cfg.Server.Charts.Enabled,
		"alert_rules", len(cfg.Server.Alerts.Rules),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *configPath, cfg); err != nil {
		slog.Error("partcast-server stopped", "err", err)
		os.Exit(1)
	}
	slog.Info("partcast-server shut down")
}

// loadConfig reads path, falling back to defaults when the file is absent.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("config file not found, using defaults", "path", path)
		return config.Defaults(), nil
	}
	return cfg, err
}

func run(ctx context.Context, configPath string, cfg *config.Config) error {
	sc := cfg.Server

	st := store.New(sc.Store.TTL, sc.Store.Capacity)
	alertEngine := alerts.New(sc.Alerts)
	// Alerts of vehicles that stop reporting go when their projections do.
	alertEngine.SetExpiry(st.TTL())
	reg := metrics.New()

	handler := api.New(api.Options{
		Store:   st,
		Alerts:  alertEngine,
		Metrics: reg,
		Charts:  sc.Charts,
		Limits:  sc.Projection,
	})
	hub := ws.New(st, sc.Feed.Interval)

	reg.RegisterGauge("partcast_ws_clients", "Connected WebSocket feed clients.",
		func() float64 { return float64(hub.Count()) })
	reg.RegisterGauge("partcast_projections_stored", "Projections currently held in the recent store.",
		func() float64 { return float64(st.Count()) })
	reg.RegisterGauge("partcast_alerts_firing", "Maintenance alerts currently firing.",
		func() float64 { return float64(alertEngine.FiringCount()) })

	mux := http.NewServeMux()
	mux.Handle("/", handler)
	mux.Handle("/ws/projections", hub)
	mux.Handle("/metrics", reg)

	key := sc.Auth.Key()
	if sc.Auth.Mode == "apikey" && key == "" {
		slog.Warn("auth mode is apikey but no key is set; requests are not authenticated",
			"key_env", sc.Auth.KeyEnv)
	}
	guard := auth.HTTPMiddleware(sc.Auth.Mode, sc.Auth.EffectiveHeader(), key, "/api/v1/health", "/metrics")

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", sc.HTTPPort),
		Handler:           guard(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		st.Run(ctx)
		return nil
	})
	g.Go(func() error {
		hub.Run(ctx)
		return nil
	})
	g.Go(func() error {
		err := config.Watch(ctx, configPath, func(next *config.Config) {
			n := alertEngine.SetRules(next.Server.Alerts)
			handler.SetLimits(next.Server.Projection)
			slog.Info("config: applied live settings",
				"alert_rules", n,
				"min_points", next.Server.Projection.MinPoints,
				"max_points", next.Server.Projection.MaxPoints,
			)
		})
		if err != nil {
			// Hot reload is optional; the server keeps its startup config.
			slog.Warn("config: hot reload disabled", "err", err)
		}
		return nil
	})

	if sc.GRPCPort > 0 {
		grpcSrv := grpcserver.New(auth.APIKeyInterceptor(sc.Auth.Mode, sc.Auth.EffectiveHeader(), key))
		g.Go(func() error {
			return grpcSrv.ListenAndServe(ctx, sc.GRPCPort)
		})
	}

	g.Go(func() error {
		slog.Info("HTTP server listening", "port", sc.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
