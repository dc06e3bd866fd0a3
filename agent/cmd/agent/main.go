package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fitpoint/fitpoint/agent/internal/config"
	"github.com/fitpoint/fitpoint/agent/internal/monitor"
	"github.com/fitpoint/fitpoint/agent/internal/scraper"
	"github.com/fitpoint/fitpoint/agent/internal/shipper"
	"github.com/fitpoint/fitpoint/pkg/types"
)

func main() {
	configPath := flag.String("config", "agent.yaml", "path to config file")
	tvd := flag.String("tvd", "", "true vertical depth for the local EMW preview")
	mudWeight := flag.String("mud-weight", "", "mud weight for the local EMW preview")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("fitpoint-agent starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	slog.Info("config loaded",
		"server_url", cfg.Agent.ServerURL,
		"session", cfg.Agent.SessionID,
		"sources", len(cfg.Agent.Sources),
		"poll_interval", cfg.Agent.PollInterval,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	type feed struct {
		src config.Source
		s   scraper.Scraper
	}
	var feeds []feed
	for _, src := range cfg.Agent.Sources {
		s, err := scraper.New(src)
		if err != nil {
			slog.Error("skipping source, could not build scraper", "source", src.ID, "err", err)
			continue
		}
		feeds = append(feeds, feed{src: src, s: s})
		slog.Info("registered source", "id", src.ID, "type", src.Type, "endpoint", src.Endpoint, "path", src.Path)
	}
	if len(feeds) == 0 {
		slog.Warn("no sources configured, agent will idle")
	}

	// Sources are fixed at startup; a reload only reports what changed.
	go func() {
		if err := config.Watch(ctx, *configPath, func(updated *config.Config) {
			slog.Info("config hot-reloaded, restart to apply source changes",
				"sources", len(updated.Agent.Sources))
		}); err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	ship := shipper.New(cfg.Agent, nil)
	runDone := make(chan struct{})
	go func() {
		ship.Run(ctx)
		close(runDone)
	}()

	engine := monitor.NewEngine()
	preview := monitor.NewPreview(types.WellInputs{TVD: *tvd, MudWeight: *mudWeight}, cfg.Agent.BufferSize)

	ticker := time.NewTicker(cfg.Agent.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			// Best effort: push whatever is still buffered once Run has
			// returned its in-flight batch to the buffer.
			<-runDone
			flushCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			if err := ship.Flush(flushCtx); err != nil {
				slog.Warn("final flush failed", "pending", ship.Pending(), "err", err)
			}
			done()
			slog.Info("fitpoint-agent shutting down")
			return

		case t := <-ticker.C:
			for _, f := range feeds {
				rows, err := f.s.Scrape(ctx)
				res := engine.Process(f.src.ID, rows, err, t)
				if err != nil {
					slog.Warn("scrape error", "source", f.src.ID, "state", res.State, "uptime_pct", res.UptimePct, "err", err)
					continue
				}
				if len(rows) == 0 {
					continue
				}
				ship.Ship(rows...)
				slog.Debug("rows queued", "source", f.src.ID, "rows", len(rows), "total", res.TotalRows)

				if a, changed := preview.Add(rows); changed {
					slog.Info("inflection detected",
						"fit_pressure", a.FitPressureText(),
						"emw", a.EMW.Message(),
						"samples", len(a.Derived.Samples),
					)
				}
			}
		}
	}
}
