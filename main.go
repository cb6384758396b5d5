// Command raidwatch is the main entrypoint for the report tracker bot.
// It:
//   - Loads configuration and initializes structured logging.
//   - Connects to the Discord gateway and watches for FFLogs report links.
//   - Keeps a live, periodically-refreshed report summary per server.
//   - Exposes a minimal HTTP server with /healthz, /readyz, /status, /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/lheald/raidwatch/config"
	"github.com/lheald/raidwatch/discord"
	"github.com/lheald/raidwatch/fflogs"
	"github.com/lheald/raidwatch/report"
	"github.com/lheald/raidwatch/server"
	"github.com/lheald/raidwatch/telemetry"
	"github.com/lheald/raidwatch/track"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load(".env")

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	var handler slog.Handler
	switch strings.ToLower(os.Getenv("LOG_FORMAT")) {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))

	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("config invalid", slog.Any("err", err))
		os.Exit(1)
	}

	// Metrics / telemetry init
	telemetry.Init()

	// OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdownTracing, err := telemetry.InitTracing("raidwatch", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdownTracing()

	// FFLogs client. Fetch a token eagerly so bad credentials surface at
	// startup rather than on the first posted link.
	client := fflogs.NewClient(cfg.FFLogsAPIURL, cfg.FFLogsTokenURL, cfg.FFLogsClientID, cfg.FFLogsClientSecret)
	if tok, err := client.Tokens.Token(); err != nil {
		slog.Warn("fflogs token fetch failed", slog.Any("err", err))
	} else if len(tok.AccessToken) > 6 {
		masked := "***" + tok.AccessToken[len(tok.AccessToken)-6:]
		slog.Info("fflogs app token acquired", slog.String("tail", masked))
	}

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := &report.Service{Upstream: client, MaxEncounters: cfg.MaxEncounters}
	cooldown := track.NewCooldown(cfg.CallCooldown, cfg.CallAlertThreshold, cfg.CooldownResetInterval)
	go cooldown.Run(ctx)

	bot, err := discord.New(cfg.DiscordToken)
	if err != nil {
		slog.Error("discord session setup failed", slog.Any("err", err))
		os.Exit(1)
	}

	sched := track.New(ctx, track.Config{
		RefreshInterval:   cfg.RefreshInterval,
		ReportTTL:         cfg.ReportTTL,
		StaleThreshold:    cfg.StaleThreshold,
		MaxTrackedOrigins: cfg.MaxTrackedOrigins,
	}, svc, bot, cooldown)
	bot.AttachTracker(sched)

	if err := bot.Open(ctx); err != nil {
		slog.Error("discord gateway connect failed", slog.Any("err", err))
		os.Exit(1)
	}

	// HTTP sidecar (health/status/metrics)
	go func() {
		if err := server.Start(ctx, bot, sched, cfg.HTTPAddr); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	// Block until shutdown signal
	<-ctx.Done()
	slog.Info("shutting down")
}
