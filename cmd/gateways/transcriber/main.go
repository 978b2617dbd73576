package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	config "github.com/xilidan/vidscribe/config/transcriber"
	"github.com/xilidan/vidscribe/gateways/transcriber"
	"github.com/xilidan/vidscribe/pkg/logger"
)

func main() {
	log := logger.Default()
	log.Info("initializing transcriber gateway")

	log.Debug("loading configuration")
	cfg := config.MustLoad()

	level := logger.ParseLevel(cfg.Log.Level)
	log = logger.New(logger.Config{
		Level:      level,
		Output:     os.Stderr,
		AddSource:  true,
		JSONFormat: cfg.Log.JSON,
	})
	logger.SetDefault(log)
	log.Info("logger configured",
		slog.String("level", level.String()),
		slog.Bool("json_format", cfg.Log.JSON))

	log.Info("configuration loaded successfully",
		slog.Int("port", cfg.Port),
		slog.Int("grpc_port", cfg.GRPCPort),
		slog.String("bucket", cfg.GCS.Bucket),
		slog.Bool("speech_api_key_set", cfg.Speech.APIKey != ""),
		slog.String("summarizer", cfg.Summarizer.Provider))

	ctx := logger.WithContext(context.Background(), log)

	rootCtx, cancel := signal.NotifyContext(ctx, syscall.SIGTERM)
	defer cancel()

	if err := run(rootCtx, cfg, log); err != nil {
		log.Error("failed to run()", slog.String("error", err.Error()))
		cancel()
		os.Exit(1)
	}
	log.Info("application terminated successfully")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	srv, err := transcriber.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to create server", slog.String("error", err.Error()))
		return err
	}

	log.Info("starting transcriber server")
	return srv.Start(ctx)
}
