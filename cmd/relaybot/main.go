package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"relaybot/src/ai"
	"relaybot/src/backend/directory"
	"relaybot/src/backup"
	"relaybot/src/bot"
	"relaybot/src/config"
	"relaybot/src/dbapi"
	"relaybot/src/health"
	"relaybot/src/websearch"
)

func main() {
	cfgPath := flag.String("config", "relaybot.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	var lvl slog.Level
	switch cfg.LogLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	client, err := dbapi.OpenSQLite(cfg.DatabasePath)
	if err != nil {
		slog.Error("open database", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	store, err := directory.New(cfg.Backup.Dir)
	if err != nil {
		slog.Error("open snapshot directory", "error", err)
		os.Exit(1)
	}

	builder := backup.NewBuilder(client, store, logger)
	channel := bot.NewHTTPChannel(cfg.Bot.BaseURL, cfg.Bot.Token,
		time.Duration(cfg.Bot.PollSeconds)*time.Second)
	aiClient := ai.New(cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Model)
	searchClient := websearch.New(cfg.Search.BaseURL, cfg.Search.APIKey)
	b := bot.New(channel, aiClient, searchClient, builder, cfg.TableNames(), logger)

	ready := func() bool { return client.DB.Ping() == nil }
	go func() {
		srv := &http.Server{
			Addr:              cfg.HealthListen,
			Handler:           health.NewRouter(ready),
			ReadHeaderTimeout: 5 * time.Second,
		}
		slog.Info("health endpoint listening", "addr", cfg.HealthListen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("health server", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	slog.Info("bot starting")
	if err := b.Run(ctx); err != nil && ctx.Err() == nil {
		slog.Error("bot loop", "error", err)
		os.Exit(1)
	}
	slog.Info("bot stopped")
}
