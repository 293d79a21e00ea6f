package handle

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"quiz-ocr/api/internal/answers"
)

// answerView numbers slots from 1, as the export does.
type answerView struct {
	Number     int    `json:"number"`
	Filled     bool   `json:"filled"`
	Answer     string `json:"answer,omitempty"`
	Recognized string `json:"recognized,omitempty"`
}

func toView(s answers.Slot) answerView {
	v := answerView{Number: s.Index + 1}
	if s.Record != nil {
		v.Filled = true
		v.Answer = s.Record.Answer
		v.Recognized = s.Record.Recognized
	}
	return v
}

// slotIndex parses the 1-based {n} parameter into a ledger index.
func slotIndex(r *http.Request) (int, error) {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", answers.ErrInvalidSlot, chi.URLParam(r, "n"))
	}
	return n - 1, nil
}

func slotStatus(err error) int {
	if errors.Is(err, answers.ErrInvalidSlot) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (h *Handle) ListAnswers(w http.ResponseWriter, r *http.Request) {
	_, st, ok := h.state(w, r)
	if !ok {
		return
	}
	slots := st.Slots()
	out := make([]answerView, len(slots))
	for i, s := range slots {
		out[i] = toView(s)
	}
	writeJSON(w, http.StatusOK, map[string]any{"answers": out})
}

// SaveAnswer stores the answer with the session's current text.
func (h *Handle) SaveAnswer(w http.ResponseWriter, r *http.Request) {
	id, st, ok := h.state(w, r)
	if !ok {
		return
	}
	i, err := slotIndex(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req struct {
		Answer string `json:"answer"`
	}
	if !decode(w, r, &req) {
		return
	}
	rec, err := st.Save(i, req.Answer)
	if err != nil {
		writeError(w, slotStatus(err), err)
		return
	}
	h.log.Info("answer saved", "session", id, "slot", i+1)
	writeJSON(w, http.StatusOK, toView(answers.Slot{Index: i, Record: &rec}))
}

func (h *Handle) DeleteAnswer(w http.ResponseWriter, r *http.Request) {
	id, st, ok := h.state(w, r)
	if !ok {
		return
	}
	i, err := slotIndex(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := st.Delete(i); err != nil {
		writeError(w, slotStatus(err), err)
		return
	}
	h.log.Info("answer deleted", "session", id, "slot", i+1)
	w.WriteHeader(http.StatusNoContent)
}

// Export returns the HTML document as an attachment, or with ?format=link a
// JSON object holding the filename and a data URI.
func (h *Handle) Export(w http.ResponseWriter, r *http.Request) {
	id, st, ok := h.state(w, r)
	if !ok {
		return
	}
	doc, err := st.Export(h.now())
	if err != nil {
		h.log.Error("export failed", "session", id, "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if r.URL.Query().Get("format") == "link" {
		writeJSON(w, http.StatusOK, map[string]string{
			"filename": doc.Filename,
			"href":     doc.Href(),
		})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+doc.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.HTML)
}
