package handle

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"quiz-ocr/api/internal/imaging"
	"quiz-ocr/api/internal/recognize"
	"quiz-ocr/api/internal/session"
)

type viewResponse struct {
	session.View
	Engine string `json:"engine"`
	Error  string `json:"error,omitempty"`
}

func (h *Handle) respond(w http.ResponseWriter, id string, v session.View) {
	writeJSON(w, http.StatusOK, viewResponse{View: v, Engine: h.choice.Get(id).Name()})
}

func (h *Handle) CreateSession(w http.ResponseWriter, r *http.Request) {
	id, st := h.sessions.Create()
	v := st.View()
	h.log.Info("session created", "session", id)
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":     id,
		"slots":  v.Slots,
		"engine": h.choice.Get(id).Name(),
	})
}

func (h *Handle) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.Delete(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, session.ErrNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type pasteRequest struct {
	Image string `json:"image"`
	MIME  string `json:"mime,omitempty"`
}

// Paste recognizes an uploaded screenshot. An OCR failure is not an HTTP
// error: the reply carries empty text and the failure message.
func (h *Handle) Paste(w http.ResponseWriter, r *http.Request) {
	id, st, ok := h.state(w, r)
	if !ok {
		return
	}
	var req pasteRequest
	if !decode(w, r, &req) {
		return
	}
	raw, hint, err := imaging.DecodeBase64MaybeDataURL(req.Image)
	if err != nil || len(raw) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad image"})
		return
	}
	if m := strings.TrimSpace(req.MIME); m != "" {
		hint = m
	}
	img, err := imaging.Capture(raw, hint)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	eng := h.choice.Get(id)
	ctx, cancel := context.WithTimeout(r.Context(), h.ocrTimeout)
	defer cancel()

	v, err := st.Paste(ctx, eng, img)
	resp := viewResponse{View: v, Engine: eng.Name()}
	if errors.Is(err, recognize.ErrRecognition) {
		h.log.Warn("recognition failed", "session", id, "engine", eng.Name(), "err", err)
		resp.Error = err.Error()
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if v.Fresh && err == nil {
		h.log.Info("recognized", "session", id, "engine", eng.Name(), "chars", len(v.Text))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handle) Retry(w http.ResponseWriter, r *http.Request) {
	id, st, ok := h.state(w, r)
	if !ok {
		return
	}
	st.Retry()
	h.respond(w, id, st.View())
}

func (h *Handle) GetText(w http.ResponseWriter, r *http.Request) {
	id, st, ok := h.state(w, r)
	if !ok {
		return
	}
	h.respond(w, id, st.View())
}

func (h *Handle) PutText(w http.ResponseWriter, r *http.Request) {
	id, st, ok := h.state(w, r)
	if !ok {
		return
	}
	var req struct {
		Text *string `json:"text"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Text == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text is required"})
		return
	}
	h.respond(w, id, st.Edit(*req.Text))
}

func (h *Handle) PutPrompt(w http.ResponseWriter, r *http.Request) {
	id, st, ok := h.state(w, r)
	if !ok {
		return
	}
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Enabled == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "enabled is required"})
		return
	}
	h.respond(w, id, st.SetPrompt(*req.Enabled))
}

func (h *Handle) PutEngine(w http.ResponseWriter, r *http.Request) {
	id, st, ok := h.state(w, r)
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if !decode(w, r, &req) {
		return
	}
	eng, err := h.engs.Get(req.Name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	h.choice.Set(id, eng)
	h.respond(w, id, st.View())
}

func (h *Handle) Preview(w http.ResponseWriter, r *http.Request) {
	_, st, ok := h.state(w, r)
	if !ok {
		return
	}
	out, err := st.Preview()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"html": out})
}
