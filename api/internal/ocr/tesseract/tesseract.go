// Package tesseract runs OCR locally through libtesseract.
package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Engine wraps a gosseract client per call; clients are not goroutine safe.
type Engine struct {
	Langs         []string
	clientFactory func() *gosseract.Client
}

func New(langs []string) *Engine {
	return &Engine{Langs: langs, clientFactory: gosseract.NewClient}
}

func (e *Engine) Name() string     { return "tesseract" }
func (e *Engine) GetModel() string { return strings.Join(e.Langs, "+") }

func (e *Engine) Recognize(ctx context.Context, img []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c := e.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(img); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	if len(e.Langs) > 0 {
		if err := c.SetLanguage(e.Langs...); err != nil {
			return "", fmt.Errorf("set languages: %w", err)
		}
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return strings.TrimSpace(text), nil
}
