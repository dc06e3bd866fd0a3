package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/fitpoint/fitpoint/server/internal/alerts"
	"github.com/fitpoint/fitpoint/server/internal/api"
	"github.com/fitpoint/fitpoint/server/internal/auth"
	"github.com/fitpoint/fitpoint/server/internal/config"
	"github.com/fitpoint/fitpoint/server/internal/grpchealth"
	"github.com/fitpoint/fitpoint/server/internal/metrics"
	"github.com/fitpoint/fitpoint/server/internal/session"
	"github.com/fitpoint/fitpoint/server/internal/ws"
)

func main() {
	configPath := flag.String("config", "", "path to config file; defaults are used when empty")
	uiDir := flag.String("ui-dir", "", "serve a static UI from this directory; leave empty to disable")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("fitpoint-server starting", "config", *configPath)

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			slog.Error("failed to load config", "err", err)
			os.Exit(1)
		}
	}

	slog.Info("config loaded",
		"grpc_port", cfg.Server.GRPCPort,
		"http_port", cfg.Server.HTTPPort,
		"auth_mode", cfg.Server.Auth.Mode,
		"session_ttl", cfg.Server.Session.TTL,
		"stream_interval", cfg.Server.Stream.Interval,
		"rate_limit_rps", cfg.Server.RateLimit.RPS,
		"alert_rules", len(cfg.Server.Alerts.Rules),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	m := metrics.New()

	// Session store with background TTL eviction.
	st := session.New(cfg.Server.Session.TTL)
	st.Subscribe(m.ObserveSession)
	go st.Run(ctx)

	// Alerts engine: evaluates rules on every fresh analysis.
	alertEngine := alerts.New(cfg.Server.Alerts)
	alertEngine.OnFire = func(a alerts.Alert) {
		m.AlertsFired.WithLabelValues(a.RuleName, a.Severity).Inc()
	}
	st.Subscribe(alertEngine.Observe)

	// WebSocket hub: pushes analyses to subscribed clients.
	hub := ws.New(st, cfg.Server.Stream.Interval)
	hub.OnCount = func(n int) { m.WSClients.Set(float64(n)) }
	st.Subscribe(hub.Observe)
	go hub.Run(ctx)

	verifier := auth.NewVerifier(
		cfg.Server.Auth.Mode,
		cfg.Server.Auth.EffectiveHeader(),
		cfg.Server.Auth.Key(),
	)
	if cfg.Server.Auth.Mode == "apikey" && !verifier.Enabled() {
		slog.Warn("auth mode is apikey but no key is set; requests are not authenticated",
			"key_env", cfg.Server.Auth.KeyEnv)
	}

	// gRPC health service with optional API key authentication interceptor.
	healthRep := grpchealth.New()
	grpcSrv := grpc.NewServer(
		grpc.UnaryInterceptor(auth.APIKeyInterceptor(verifier)),
		grpc.StreamInterceptor(auth.APIKeyStreamInterceptor(verifier)),
	)
	healthRep.Register(grpcSrv)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
	if err != nil {
		slog.Error("failed to listen on gRPC port",
			"port", cfg.Server.GRPCPort, "err", err)
		os.Exit(1)
	}

	go func() {
		slog.Info("gRPC health listening", "port", cfg.Server.GRPCPort)
		if err := grpcSrv.Serve(lis); err != nil {
			slog.Error("gRPC server stopped", "err", err)
		}
	}()

	// Combined HTTP server: REST API, WebSocket hub and metrics on HTTPPort.
	apiHandler := api.New(api.Options{
		Sessions:  st,
		Alerts:    alertEngine,
		Metrics:   m,
		Auth:      verifier,
		RateLimit: cfg.Server.RateLimit,
		Stream:    hub,
	})
	httpMux := http.NewServeMux()
	httpMux.Handle("/api/", apiHandler)
	httpMux.Handle("/ws/", apiHandler)
	httpMux.Handle("/metrics", m.Handler())

	// Optional: serve a pre-built UI from a local directory.
	// The "/" catch-all serves index.html for any unknown path (SPA routing).
	if *uiDir != "" {
		fs := http.FileServer(http.Dir(*uiDir))
		httpMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			path := *uiDir + r.URL.Path
			if _, err := os.Stat(path); os.IsNotExist(err) {
				http.ServeFile(w, r, *uiDir+"/index.html")
				return
			}
			fs.ServeHTTP(w, r)
		})
		slog.Info("serving UI static files", "dir", *uiDir)
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           httpMux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("fitpoint-server shutting down")
	healthRep.Shutdown()
	grpcSrv.GracefulStop()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
}
