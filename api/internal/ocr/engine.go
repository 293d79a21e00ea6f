package ocr

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var ErrUnknownEngine = errors.New("unknown OCR engine")

// Engine turns an image into text. Math is expected as inline LaTeX.
type Engine interface {
	Name() string
	GetModel() string
	Recognize(ctx context.Context, img []byte, mime string) (string, error)
}

// Engines holds the configured engines; nil fields are not available.
type Engines struct {
	Gemini    Engine
	OpenAI    Engine
	Tesseract Engine
	Yandex    Engine
}

func (e *Engines) Get(name string) (Engine, error) {
	var eng Engine
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "gemini":
		eng = e.Gemini
	case "gpt", "openai":
		eng = e.OpenAI
	case "tesseract":
		eng = e.Tesseract
	case "yandex":
		eng = e.Yandex
	}
	if eng == nil {
		return nil, fmt.Errorf("%w %q; available: %s", ErrUnknownEngine, name, strings.Join(e.Available(), " | "))
	}
	return eng, nil
}

func (e *Engines) Available() []string {
	var out []string
	for _, eng := range []Engine{e.Gemini, e.OpenAI, e.Tesseract, e.Yandex} {
		if eng != nil {
			out = append(out, eng.Name())
		}
	}
	sort.Strings(out)
	return out
}

// Manager remembers which engine each session picked.
type Manager struct {
	def Engine
	m   sync.Map // session id -> Engine
}

func NewManager(defaultEngine Engine) *Manager {
	return &Manager{def: defaultEngine}
}

func (m *Manager) Get(sessionID string) Engine {
	if v, ok := m.m.Load(sessionID); ok {
		return v.(Engine)
	}
	return m.def
}

func (m *Manager) Set(sessionID string, e Engine) {
	m.m.Store(sessionID, e)
}

func (m *Manager) Forget(sessionID string) {
	m.m.Delete(sessionID)
}
