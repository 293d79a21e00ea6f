package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"

	"quiz-ocr/api/internal/app"
	"quiz-ocr/api/internal/config"
	"quiz-ocr/api/internal/handle"
	"quiz-ocr/api/internal/httpserver"
	"quiz-ocr/api/internal/logger"
)

// The HTTP API alone, without the Telegram bot.
func main() {
	cfg := config.Load()
	log := logger.New(os.Stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer a.Close()

	go func() { _ = a.PurgeLoop(ctx) }()

	h := handle.New(a.Sessions, a.Engines, a.Choice, log)
	router := httpserver.NewRouter(log, httpserver.Options{
		Health: a.Health,
		Mount:  func(r chi.Router) { h.Register(r) },
	})
	if err := httpserver.Run(ctx, ":"+cfg.Port, router, log); err != nil {
		log.Error("http server", "err", err)
		os.Exit(1)
	}
}
