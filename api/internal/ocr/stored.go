package ocr

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"
)

// ErrNoResult is returned by a ResultStore that has nothing usable.
var ErrNoResult = errors.New("no stored result")

// ResultStore keeps OCR output by image fingerprint, engine and model.
type ResultStore interface {
	Find(ctx context.Context, fingerprint, engine, model string, maxAge time.Duration) (string, error)
	Upsert(ctx context.Context, fingerprint, engine, model, text string) error
}

// Stored serves repeated images from a ResultStore before calling the engine.
// Only successful recognitions are written back.
type Stored struct {
	Engine
	store  ResultStore
	maxAge time.Duration
	log    *slog.Logger
}

func WithStore(e Engine, s ResultStore, maxAge time.Duration, log *slog.Logger) *Stored {
	return &Stored{Engine: e, store: s, maxAge: maxAge, log: log}
}

func (s *Stored) Recognize(ctx context.Context, img []byte, mime string) (string, error) {
	fp := rawFingerprint(img)
	name, model := s.Name(), s.GetModel()

	text, err := s.store.Find(ctx, fp, name, model, s.maxAge)
	if err == nil {
		s.log.Debug("ocr result from store", "engine", name, "fingerprint", fp[:12])
		return text, nil
	}
	if !errors.Is(err, ErrNoResult) {
		s.log.Warn("ocr store lookup failed", "engine", name, "err", err)
	}

	text, err = s.Engine.Recognize(ctx, img, mime)
	if err != nil {
		return "", err
	}
	if err := s.store.Upsert(ctx, fp, name, model, text); err != nil {
		s.log.Warn("ocr store write failed", "engine", name, "err", err)
	}
	return text, nil
}

// rawFingerprint hashes the bytes the engine actually receives.
func rawFingerprint(img []byte) string {
	sum := sha256.Sum256(img)
	return hex.EncodeToString(sum[:])
}
