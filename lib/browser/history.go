package browser

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"github.com/pthm/hxnav/lib/encoding"
	"github.com/pthm/hxnav/lib/port"
)

// ErrSecurity is returned when pushState/replaceState targets another origin.
var ErrSecurity = errors.New("browser: history URL must be same-origin")

// Entry is one session history entry.
type Entry struct {
	Key string
	URL *url.URL

	state []byte

	// generation identifies the document that created the entry. Traversal
	// between entries of the same generation is a same-document navigation
	// (popstate); anything else loads the entry's URL.
	generation int
}

// State decodes the entry's state.
func (e *Entry) State() *port.HistoryState {
	if e.state == nil {
		return nil
	}
	var st port.HistoryState
	if err := encoding.Decode(e.state, &st); err != nil {
		return nil
	}
	return &st
}

// History is a session's history stack.
type History struct {
	s       *Session
	entries []*Entry
	index   int
}

var _ port.History = (*History)(nil)

func newHistory(s *Session) *History {
	return &History{s: s, index: -1}
}

// Len returns the number of entries.
func (h *History) Len() int {
	return len(h.entries)
}

// Index returns the position of the current entry.
func (h *History) Index() int {
	return h.index
}

// Current returns the current entry, or nil before the first navigation.
func (h *History) Current() *Entry {
	if h.index < 0 || h.index >= len(h.entries) {
		return nil
	}
	return h.entries[h.index]
}

// Entry returns the entry at position i, or nil when out of range.
func (h *History) Entry(i int) *Entry {
	if i < 0 || i >= len(h.entries) {
		return nil
	}
	return h.entries[i]
}

// State returns a copy of the current entry's state.
func (h *History) State() *port.HistoryState {
	cur := h.Current()
	if cur == nil {
		return nil
	}
	return cur.State()
}

// PushState adds an entry after the current one, dropping forward entries.
func (h *History) PushState(state *port.HistoryState, rawURL string) error {
	u, data, err := h.prepare(state, rawURL)
	if err != nil {
		return err
	}
	h.push(&Entry{
		Key:        uuid.NewString(),
		URL:        u,
		state:      data,
		generation: h.s.generation,
	})
	h.s.location = u
	return nil
}

// ReplaceState overwrites the current entry.
func (h *History) ReplaceState(state *port.HistoryState, rawURL string) error {
	cur := h.Current()
	if cur == nil {
		return fmt.Errorf("browser: replaceState without a current entry")
	}
	u, data, err := h.prepare(state, rawURL)
	if err != nil {
		return err
	}
	cur.URL = u
	cur.state = data
	h.s.location = u
	return nil
}

func (h *History) prepare(state *port.HistoryState, rawURL string) (*url.URL, []byte, error) {
	u := h.s.location
	if rawURL != "" {
		resolved, err := h.s.resolve(rawURL)
		if err != nil {
			return nil, nil, err
		}
		if u != nil && (resolved.Scheme != u.Scheme || resolved.Host != u.Host) {
			return nil, nil, fmt.Errorf("%w: %s", ErrSecurity, resolved)
		}
		u = resolved
	}
	var data []byte
	if state != nil {
		var err error
		if data, err = encoding.Encode(state); err != nil {
			return nil, nil, err
		}
	}
	return u, data, nil
}

func (h *History) push(e *Entry) {
	h.entries = append(h.entries[:h.index+1], e)
	h.index = len(h.entries) - 1
}
