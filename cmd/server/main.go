package main

import (
	"log/slog"
	"os"

	"dejure-gateway/internal/app"
	"dejure-gateway/internal/logger"
)

func main() {
	// The configured LOG_LEVEL is applied once config has loaded.
	level := &slog.LevelVar{}
	slog.SetDefault(slog.New(logger.NewPrettyHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})))

	application, err := app.New(level)
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("application run failed", "error", err)
		os.Exit(1)
	}
}
