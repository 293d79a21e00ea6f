// Package answers holds the fixed set of per-question answer slots of a session.
package answers

import (
	"errors"
	"fmt"
)

const DefaultSlots = 10

var ErrInvalidSlot = errors.New("answer slot out of range")

// Record is what a Save stores: the typed answer and the recognized question
// text at the moment of saving.
type Record struct {
	Answer     string `json:"answer"`
	Recognized string `json:"recognized"`
}

// Slot is one index-ordered entry of a Ledger snapshot.
type Slot struct {
	Index  int     `json:"index"`
	Record *Record `json:"record,omitempty"`
}

// Ledger is a fixed-length sequence of optional records. It is never resized.
// A nil entry is an empty slot, distinct from a Record holding empty strings.
type Ledger struct {
	slots []*Record
}

func New(n int) *Ledger {
	if n <= 0 {
		n = DefaultSlots
	}
	return &Ledger{slots: make([]*Record, n)}
}

func (l *Ledger) Len() int { return len(l.slots) }

func (l *Ledger) InRange(i int) bool { return i >= 0 && i < len(l.slots) }

// must panics on an index outside [0, Len). Callers that take indexes from
// users check InRange first.
func (l *Ledger) must(i int) {
	if !l.InRange(i) {
		panic(fmt.Errorf("%w: %d not in [0,%d)", ErrInvalidSlot, i, len(l.slots)))
	}
}

// Save overwrites slot i.
func (l *Ledger) Save(i int, answer, recognized string) Record {
	l.must(i)
	rec := Record{Answer: answer, Recognized: recognized}
	l.slots[i] = &rec
	return rec
}

// Delete empties slot i.
func (l *Ledger) Delete(i int) {
	l.must(i)
	l.slots[i] = nil
}

func (l *Ledger) Get(i int) (Record, bool) {
	l.must(i)
	if l.slots[i] == nil {
		return Record{}, false
	}
	return *l.slots[i], true
}

// Slots returns a copy of every slot in index order.
func (l *Ledger) Slots() []Slot {
	out := make([]Slot, len(l.slots))
	for i, r := range l.slots {
		out[i] = Slot{Index: i}
		if r != nil {
			cp := *r
			out[i].Record = &cp
		}
	}
	return out
}

func (l *Ledger) Filled() int {
	n := 0
	for _, r := range l.slots {
		if r != nil {
			n++
		}
	}
	return n
}
