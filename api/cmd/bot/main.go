package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"quiz-ocr/api/internal/app"
	"quiz-ocr/api/internal/config"
	"quiz-ocr/api/internal/handle"
	"quiz-ocr/api/internal/httpserver"
	"quiz-ocr/api/internal/logger"
	"quiz-ocr/api/internal/telegram"
)

func main() {
	cfg := config.Load()
	log := logger.New(os.Stderr, cfg.LogLevel)
	if err := run(cfg, log); err != nil {
		log.Error("bot stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	if cfg.TelegramBotToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is empty")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return err
	}
	bot.Debug = false
	log.Info("telegram authorized", "bot", bot.Self.UserName)

	r := telegram.NewRouter(bot, a.Sessions, a.Engines, a.Choice, log)
	h := handle.New(a.Sessions, a.Engines, a.Choice, log)

	opts := httpserver.Options{
		Health: a.Health,
		Mount:  func(cr chi.Router) { h.Register(cr) },
	}
	webhookURL := strings.TrimSpace(cfg.WebhookURL)
	if webhookURL != "" {
		opts.WebhookPath = telegram.WebhookPath(bot.Token)
		opts.Webhook = r.Webhook(ctx, bot)
		if err := telegram.RegisterWebhook(bot, webhookURL, opts.WebhookPath); err != nil {
			return err
		}
		log.Info("webhook registered", "path", opts.WebhookPath)
	} else {
		// polling needs the webhook gone
		if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			log.Warn("delete webhook failed", "err", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Run(gctx, ":"+cfg.Port, httpserver.NewRouter(log, opts), log)
	})
	g.Go(func() error { return a.PurgeLoop(gctx) })
	if webhookURL == "" {
		g.Go(func() error { return r.Poll(gctx, bot) })
	}
	return g.Wait()
}
