package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/kirinyoku/skyseat/internal/app"
	"github.com/kirinyoku/skyseat/internal/config"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.New()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := app.RunNotifier(context.Background(), cfg, logger); err != nil {
		logger.Error("notifier finished with error", "error", err)
		os.Exit(1)
	}
}
