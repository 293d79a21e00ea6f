// Package app wires configuration into engines, sessions and the optional
// OCR result store. Both binaries start from here.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"quiz-ocr/api/internal/config"
	"quiz-ocr/api/internal/ocr"
	"quiz-ocr/api/internal/ocr/gemini"
	"quiz-ocr/api/internal/ocr/openai"
	"quiz-ocr/api/internal/ocr/tesseract"
	"quiz-ocr/api/internal/ocr/yandex"
	"quiz-ocr/api/internal/session"
	"quiz-ocr/api/internal/store"
)

const purgeInterval = time.Hour

type App struct {
	Config   *config.Config
	Log      *slog.Logger
	Engines  *ocr.Engines
	Choice   *ocr.Manager
	Sessions *session.Store
	// Repo is nil when DATABASE_URL is empty.
	Repo *store.RecognitionRepo
}

func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Log: log}

	var results ocr.ResultStore
	if cfg.DatabaseURL != "" {
		repo, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		log.Info("ocr result store connected", "dsn", store.Summary(cfg.DatabaseURL))
		a.Repo = repo
		results = repo
	}

	a.Engines = BuildEngines(cfg, results, log)
	def, err := a.Engines.Get(cfg.OCREngine)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Choice = ocr.NewManager(def)
	a.Sessions = session.NewStore(
		session.Options{Slots: cfg.AnswerSlots, NumberChoices: cfg.NumberChoices},
		session.WithTTL(cfg.SessionTTL),
		session.WithOnEvict(a.Choice.Forget),
	)
	log.Info("engines ready", "default", def.Name(), "model", def.GetModel(), "available", a.Engines.Available())
	return a, nil
}

// BuildEngines creates every engine the configuration has credentials for.
// Tesseract needs none and is always present. With a store, each engine is
// wrapped so repeated images skip the engine.
func BuildEngines(cfg *config.Config, results ocr.ResultStore, log *slog.Logger) *ocr.Engines {
	wrap := func(e ocr.Engine) ocr.Engine {
		if results == nil {
			return e
		}
		return ocr.WithStore(e, results, cfg.ResultMaxAge, log)
	}

	engs := &ocr.Engines{
		Tesseract: wrap(tesseract.New(cfg.TesseractLangs)),
	}
	if cfg.GeminiAPIKey != "" {
		engs.Gemini = wrap(gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel))
	}
	if cfg.OpenAIAPIKey != "" {
		engs.OpenAI = wrap(openai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel))
	}
	if cfg.YandexOAuthToken != "" && cfg.YandexFolderID != "" {
		engs.Yandex = wrap(yandex.New(cfg.YandexOAuthToken, cfg.YandexFolderID, cfg.YandexModel, cfg.YandexLangs))
	}
	return engs
}

// Health pings the store when there is one.
func (a *App) Health(ctx context.Context) error {
	if a.Repo == nil {
		return nil
	}
	if err := a.Repo.Ping(ctx); err != nil {
		return fmt.Errorf("db: %w", err)
	}
	return nil
}

// PurgeLoop drops stored OCR results older than RESULT_MAX_AGE until ctx is
// done. Without a store it just waits.
func (a *App) PurgeLoop(ctx context.Context) error {
	if a.Repo == nil || a.Config.ResultMaxAge <= 0 {
		<-ctx.Done()
		return nil
	}
	t := time.NewTicker(purgeInterval)
	defer t.Stop()
	for {
		a.purge(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

func (a *App) purge(ctx context.Context) {
	n, err := a.Repo.PurgeOlderThan(ctx, a.Config.ResultMaxAge)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Log.Warn("purge failed", "err", err)
		return
	}
	if n > 0 {
		a.Log.Info("purged old ocr results", "rows", n)
	}
}

func (a *App) Close() {
	if a.Sessions != nil {
		_ = a.Sessions.Close()
	}
	if a.Repo != nil {
		_ = a.Repo.Close()
	}
}
