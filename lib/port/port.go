// Package port defines the window/document contract the hxnav engine is
// written against.
//
// A Window is everything a page script can touch: the live document, session
// storage, history, timers, fetch and scrolling. The headless browser in
// lib/browser implements it; tests may substitute their own double.
//
// All callbacks handed to a Window (listeners, timer functions, fetch
// completions) run on the window's single event loop, one at a time.
package port

import (
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/html"
)

// Event types dispatched by a Window.
const (
	EventClick    = "click"
	EventChange   = "change"
	EventScroll   = "scroll"
	EventPopState = "popstate"
)

// Listener handles a dispatched event.
type Listener func(ev *Event)

// Event is a dispatched DOM or window event.
type Event struct {
	Type string

	// Target is the node the event was dispatched to. Nil for window events.
	Target *html.Node

	// State is the popped history state (popstate only, may be nil).
	State *HistoryState

	// Pointer modifiers (click only).
	Button   int
	CtrlKey  bool
	MetaKey  bool
	ShiftKey bool
	AltKey   bool

	defaultPrevented bool
}

// PreventDefault cancels the event's default action.
func (e *Event) PreventDefault() {
	e.defaultPrevented = true
}

// DefaultPrevented reports whether PreventDefault was called.
func (e *Event) DefaultPrevented() bool {
	return e.defaultPrevented
}

// Modified reports whether the click used a modifier key or a non-primary
// button (open-in-new-tab style gestures).
func (e *Event) Modified() bool {
	return e.Button != 0 || e.CtrlKey || e.MetaKey || e.ShiftKey || e.AltKey
}

// HistoryState is the payload attached to a history entry.
type HistoryState struct {
	// ScrollY is the vertical scroll offset saved when the entry was departed.
	ScrollY *float64 `msgpack:"scrollY,omitempty"`
}

// Response is a completed fetch.
type Response struct {
	URL    string
	Status int
	Header http.Header
	Body   []byte
}

// OK reports whether the response is a 200.
func (r *Response) OK() bool {
	return r != nil && r.Status == http.StatusOK
}

// FetchFunc receives a fetch result on the event loop.
type FetchFunc func(resp *Response, err error)

// Timer is a pending SetTimeout callback.
type Timer interface {
	// Stop cancels the callback. Returns false if it already ran or was
	// stopped. A stopped callback never runs.
	Stop() bool
}

// Document is the live document plus the DOM operations the engine needs.
type Document interface {
	// Root returns the document node.
	Root() *html.Node

	// QuerySelector returns the first element matching selector, or nil.
	QuerySelector(selector string) (*html.Node, error)

	// QuerySelectorAll returns descendants of root matching selector in
	// document order.
	QuerySelectorAll(root *html.Node, selector string) ([]*html.Node, error)

	// AddEventListener registers fn for events of typ dispatched to target.
	// The returned func removes the registration.
	AddEventListener(target *html.Node, typ string, fn Listener) (remove func())

	TextContent(n *html.Node) string
	SetTextContent(n *html.Node, text string)
	Value(n *html.Node) string
	SetValue(n *html.Node, value string)

	// Files returns the names of the files selected in a file input.
	Files(input *html.Node) []string

	// InsertAfter moves nodes, in order, to immediately after ref.
	InsertAfter(ref *html.Node, nodes ...*html.Node)

	// Submit submits a form element.
	Submit(form *html.Node) error

	// Write replaces the whole document with markup (open/write/close).
	// All document and window listeners are erased.
	Write(markup []byte) error

	// Parse parses markup into a detached document.
	Parse(markup []byte) (*html.Node, error)
}

// History is the session history of a window.
type History interface {
	// State returns a copy of the current entry's state (nil when unset).
	State() *HistoryState

	// PushState appends an entry after the current one. An empty rawURL
	// keeps the current URL.
	PushState(state *HistoryState, rawURL string) error

	// ReplaceState overwrites the current entry's state (and URL unless
	// rawURL is empty).
	ReplaceState(state *HistoryState, rawURL string) error
}

// Storage is a string key/value store (sessionStorage).
type Storage interface {
	GetItem(key string) (string, bool)
	SetItem(key, value string) error
	RemoveItem(key string)
}

// Window is the page-script view of a browsing context.
type Window interface {
	Document() Document
	History() History
	SessionStorage() Storage

	// Location returns the current URL.
	Location() *url.URL

	// AddEventListener registers a window-level listener (scroll, popstate).
	AddEventListener(typ string, fn Listener) (remove func())

	// Fetch issues a GET for rawURL; done runs on the event loop.
	Fetch(rawURL string, header http.Header, done FetchFunc)

	// SetTimeout runs fn on the event loop after d.
	SetTimeout(d time.Duration, fn func()) Timer

	ScrollY() float64
	ScrollTo(y float64)
	InnerHeight() float64

	// BoundingClientTop is the distance from the top of the viewport to the
	// top of n (negative when scrolled past).
	BoundingClientTop(n *html.Node) float64

	// Assign performs a full navigation to rawURL.
	Assign(rawURL string)

	// Reload performs a full reload of the current entry.
	Reload()
}
