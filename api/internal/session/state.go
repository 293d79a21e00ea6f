// Package session keeps the per-user state one interaction cycle works on:
// the recognition cache, the add-prompt flag and the answer ledger.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"quiz-ocr/api/internal/answers"
	"quiz-ocr/api/internal/compose"
	"quiz-ocr/api/internal/export"
	"quiz-ocr/api/internal/imaging"
	"quiz-ocr/api/internal/recognize"
	"quiz-ocr/api/internal/render"
)

type Options struct {
	Slots         int
	NumberChoices bool
}

// View is what a presentation layer shows after an action.
type View struct {
	Text        string `json:"text"`
	AddPrompt   bool   `json:"add_prompt"`
	Fresh       bool   `json:"fresh"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Filled      int    `json:"filled"`
	Slots       int    `json:"slots"`
}

// State is one session. All methods serialise on the state's mutex, so a
// session sees one interaction at a time.
type State struct {
	mu            sync.Mutex
	cache         recognize.Cache
	addPrompt     bool
	ledger        *answers.Ledger
	awaitEdit     bool
	numberChoices bool
}

func NewState(o Options) *State {
	return &State{
		addPrompt:     true,
		ledger:        answers.New(o.Slots),
		numberChoices: o.NumberChoices,
	}
}

// Paste runs the recognition cache for img and composes the result. On OCR
// failure the recognized text is empty, so the view shows the bare prefix
// when the prompt is on, and the returned error wraps recognize.ErrRecognition.
func (s *State) Paste(ctx context.Context, eng recognize.Recognizer, img imaging.Captured) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.cache.GetOrRecognize(ctx, eng, img)
	if err != nil {
		s.cache.SetText(compose.Apply("", s.addPrompt))
		return s.view(true), err
	}
	text := res.Text
	if res.Fresh && s.numberChoices {
		text = compose.NumberChoices(text)
	}
	s.cache.SetText(compose.Apply(text, s.addPrompt))
	return s.view(res.Fresh), nil
}

// SetPrompt toggles the prefix and rewrites the stored text.
func (s *State) SetPrompt(add bool) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addPrompt = add
	s.cache.SetText(compose.Apply(s.cache.Text(), s.addPrompt))
	return s.view(false)
}

// Edit replaces the stored text with a user correction.
func (s *State) Edit(text string) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.SetText(text)
	s.awaitEdit = false
	return s.view(false)
}

func (s *State) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view(false)
}

func (s *State) view(fresh bool) View {
	return View{
		Text:        s.cache.Text(),
		AddPrompt:   s.addPrompt,
		Fresh:       fresh,
		Fingerprint: s.cache.Fingerprint(),
		Filled:      s.ledger.Filled(),
		Slots:       s.ledger.Len(),
	}
}

// Retry makes the next paste of the same image call the engine again.
func (s *State) Retry() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Forget()
}

func (s *State) checkSlot(i int) error {
	if !s.ledger.InRange(i) {
		return fmt.Errorf("%w: %d not in [0,%d)", answers.ErrInvalidSlot, i, s.ledger.Len())
	}
	return nil
}

// Save stores answer with the current text in slot i (0-based).
func (s *State) Save(i int, answer string) (answers.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkSlot(i); err != nil {
		return answers.Record{}, err
	}
	return s.ledger.Save(i, answer, s.cache.Text()), nil
}

func (s *State) Delete(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkSlot(i); err != nil {
		return err
	}
	s.ledger.Delete(i)
	return nil
}

func (s *State) Get(i int) (answers.Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkSlot(i); err != nil {
		return answers.Record{}, false, err
	}
	rec, ok := s.ledger.Get(i)
	return rec, ok, nil
}

func (s *State) Slots() []answers.Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Slots()
}

func (s *State) Export(now time.Time) (export.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return export.Build(s.ledger, now)
}

func (s *State) Preview() (string, error) {
	s.mu.Lock()
	text := s.cache.Text()
	s.mu.Unlock()
	return render.Preview(text)
}

// AwaitEdit reports whether the next free text message is a correction.
func (s *State) AwaitEdit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.awaitEdit
}

func (s *State) SetAwaitEdit(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.awaitEdit = v
}
