// Package handle serves the session API over HTTP.
package handle

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"quiz-ocr/api/internal/ocr"
	"quiz-ocr/api/internal/session"
)

const maxBodyBytes = 20 << 20

type Handle struct {
	sessions   *session.Store
	engs       *ocr.Engines
	choice     *ocr.Manager
	log        *slog.Logger
	now        func() time.Time
	ocrTimeout time.Duration
}

func New(sessions *session.Store, engs *ocr.Engines, choice *ocr.Manager, log *slog.Logger) *Handle {
	return &Handle{
		sessions:   sessions,
		engs:       engs,
		choice:     choice,
		log:        log,
		now:        time.Now,
		ocrTimeout: 180 * time.Second,
	}
}

// Register mounts the session API on r.
func (h *Handle) Register(r chi.Router) {
	r.Route("/v1/sessions", func(r chi.Router) {
		r.Post("/", h.CreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Delete("/", h.DeleteSession)
			r.Post("/image", h.Paste)
			r.Post("/retry", h.Retry)
			r.Get("/text", h.GetText)
			r.Put("/text", h.PutText)
			r.Put("/prompt", h.PutPrompt)
			r.Put("/engine", h.PutEngine)
			r.Get("/preview", h.Preview)
			r.Get("/answers", h.ListAnswers)
			r.Put("/answers/{n}", h.SaveAnswer)
			r.Delete("/answers/{n}", h.DeleteAnswer)
			r.Get("/export", h.Export)
		})
	})
}

// state resolves the {id} URL parameter, writing 404 when it is unknown.
func (h *Handle) state(w http.ResponseWriter, r *http.Request) (string, *session.State, bool) {
	id := chi.URLParam(r, "id")
	st, err := h.sessions.Get(id)
	if errors.Is(err, session.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return id, nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return id, nil, false
	}
	return id, st, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json: " + err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
