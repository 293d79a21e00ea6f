// Package recognize runs OCR at most once per distinct image content.
package recognize

import (
	"context"
	"errors"
	"fmt"

	"quiz-ocr/api/internal/imaging"
)

var ErrRecognition = errors.New("recognition failed")

// Recognizer is the OCR call the cache guards.
type Recognizer interface {
	Recognize(ctx context.Context, img []byte, mime string) (string, error)
}

type Result struct {
	Text string
	// Fresh is true when the engine ran for this call.
	Fresh bool
}

// Cache holds the last fingerprint and the text recognized for it. It is not
// safe for concurrent use; the owning session serialises access.
type Cache struct {
	fp   string
	text string
}

// GetOrRecognize returns the stored text when img has the stored fingerprint.
// Otherwise it calls eng once and stores the outcome; a failure is stored as ""
// so the same image is not sent again until Forget.
func (c *Cache) GetOrRecognize(ctx context.Context, eng Recognizer, img imaging.Captured) (Result, error) {
	fp := imaging.Fingerprint(img)
	if c.fp != "" && c.fp == fp {
		return Result{Text: c.text}, nil
	}

	text, err := eng.Recognize(ctx, img.Raw, img.MIME)
	c.fp = fp
	if err != nil {
		c.text = ""
		return Result{Fresh: true}, fmt.Errorf("%w: %w", ErrRecognition, err)
	}
	c.text = text
	return Result{Text: text, Fresh: true}, nil
}

func (c *Cache) Text() string { return c.text }

// SetText replaces the stored text with a user edit. The fingerprint is kept.
func (c *Cache) SetText(s string) { c.text = s }

func (c *Cache) Fingerprint() string { return c.fp }

// Forget drops the fingerprint so the next paste runs OCR again. The text
// stays visible until then.
func (c *Cache) Forget() { c.fp = "" }
