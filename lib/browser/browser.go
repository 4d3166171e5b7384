// Package browser is a headless browser for server-rendered pages.
//
// A Session owns one browsing context: a live document parsed with
// golang.org/x/net/html, session history, sessionStorage, timers and a fetch
// client, all driven by a single lib/loop event loop. It implements
// port.Window, so page scripts written against the port (the hxnav engine)
// run unchanged inside it.
//
// Scripts are registered with WithScript and run after every full document
// load, the way a page's script tags would.
//
// A Session is not safe for concurrent use. Drive it from one goroutine:
// interaction methods (Click, ScrollTo, Back...) dispatch synchronously and
// Settle runs the resulting fetches, navigations and timers to completion.
package browser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/pthm/hxnav/lib/loop"
	"github.com/pthm/hxnav/lib/port"
)

// Config holds session settings.
type Config struct {
	ViewportHeight    float64       `toml:"viewport_height"`
	RowHeight         float64       `toml:"row_height"`
	UserAgent         string        `toml:"user_agent"`
	RequestsPerSecond float64       `toml:"requests_per_second"`
	Burst             int           `toml:"burst"`
	Timeout           time.Duration `toml:"timeout"`
}

// DefaultConfig returns the settings used when none are given.
func DefaultConfig() Config {
	return Config{
		ViewportHeight: 800,
		RowHeight:      24,
		UserAgent:      "hxnav-browser/0.1",
		Burst:          1,
		Timeout:        10 * time.Second,
	}
}

// Script runs after each full document load.
type Script func(w port.Window)

// Option configures a Session.
type Option func(*Session)

// WithConfig replaces the session settings.
func WithConfig(cfg Config) Option {
	return func(s *Session) {
		s.cfg = cfg
	}
}

// WithLogger sets the console logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Session) {
		s.log = l
	}
}

// WithClock sets the clock used by timers.
func WithClock(c loop.Clock) Option {
	return func(s *Session) {
		s.clock = c
	}
}

// WithHTTPClient sets the client used for every request.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Session) {
		s.client = c
	}
}

// WithLayout replaces the row layout.
func WithLayout(l Layout) Option {
	return func(s *Session) {
		s.layout = l
	}
}

// WithScript registers a script run after every document load.
func WithScript(fn Script) Option {
	return func(s *Session) {
		s.scripts = append(s.scripts, fn)
	}
}

// Navigation records one full document load.
type Navigation struct {
	Kind   string // push, reload, traverse, submit
	Method string
	URL    string
	Status int
	Err    error
}

// Submission records one form submission.
type Submission struct {
	Method string
	URL    string
	Values url.Values
}

// Session is a headless browsing context.
type Session struct {
	id     string
	cfg    Config
	log    *log.Logger
	clock  loop.Clock
	client *http.Client
	layout Layout

	loop    *loop.Loop
	fetcher *Fetcher
	scripts []Script

	doc             *Document
	history         *History
	storage         *MemoryStorage
	windowListeners listenerSet
	location        *url.URL
	scrollY         float64

	// generation counts full document loads.
	generation int

	navigations []Navigation
	submissions []Submission
}

var _ port.Window = (*Session)(nil)

// New creates a session with an empty document.
func New(opts ...Option) *Session {
	s := &Session{
		id:              uuid.NewString(),
		cfg:             DefaultConfig(),
		windowListeners: make(listenerSet),
		storage:         NewMemoryStorage(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = log.Default()
	}
	s.log = s.log.With("session", s.id[:8])
	if s.clock == nil {
		s.clock = loop.RealClock{}
	}
	if s.layout == nil {
		s.layout = RowLayout{RowHeight: s.cfg.RowHeight}
	}

	s.loop = loop.New(loop.WithClock(s.clock), loop.WithPanicHandler(func(v any) {
		s.log.Error("uncaught panic in task", "panic", v)
	}))
	s.fetcher = NewFetcher(s.client, s.cfg)
	s.history = newHistory(s)

	root, _ := html.Parse(bytes.NewReader(nil))
	s.doc = newDocument(s, root)
	return s
}

// ID returns the session's identifier.
func (s *Session) ID() string { return s.id }

// Close cancels in-flight requests and stops the loop.
func (s *Session) Close() {
	s.loop.Close()
	s.fetcher.Close()
}

// Settle runs queued tasks, fetches and navigations until the session is
// idle. Timers that are not yet due do not hold it up.
func (s *Session) Settle(ctx context.Context) error {
	return s.loop.RunUntilIdle(ctx)
}

// Open navigates to rawURL and settles. It returns the navigation error, or
// an error for a non-200 document.
func (s *Session) Open(ctx context.Context, rawURL string) error {
	before := len(s.navigations)
	s.Assign(rawURL)
	if err := s.Settle(ctx); err != nil {
		return err
	}
	if len(s.navigations) == before {
		return errors.New("browser: navigation did not complete")
	}
	nav := s.navigations[len(s.navigations)-1]
	if nav.Err != nil {
		return nav.Err
	}
	if nav.Status != http.StatusOK {
		return fmt.Errorf("browser: %s returned %d", nav.URL, nav.Status)
	}
	return nil
}

// Document returns the live document.
func (s *Session) Document() port.Document { return s.doc }

// Doc returns the live document with its headless-only helpers.
func (s *Session) Doc() *Document { return s.doc }

// History returns the session history.
func (s *Session) History() port.History { return s.history }

// Entries returns the session history with its headless-only helpers.
func (s *Session) Entries() *History { return s.history }

// SessionStorage returns the session storage.
func (s *Session) SessionStorage() port.Storage { return s.storage }

// Storage returns the session storage with its headless-only helpers.
func (s *Session) Storage() *MemoryStorage { return s.storage }

// Location returns the current URL.
func (s *Session) Location() *url.URL {
	if s.location == nil {
		return &url.URL{}
	}
	u := *s.location
	return &u
}

// AddEventListener registers a window listener.
func (s *Session) AddEventListener(typ string, fn port.Listener) func() {
	return s.windowListeners.add(typ, fn)
}

// WindowListenerCount returns the number of window listeners of typ.
func (s *Session) WindowListenerCount(typ string) int {
	return len(s.windowListeners[typ])
}

func (s *Session) dispatchWindow(ev *port.Event) {
	for _, l := range s.windowListeners.snapshot(ev.Type) {
		if !l.removed {
			l.fn(ev)
		}
	}
}

// Fetch issues a GET from page script. The completion is dropped if a full
// navigation replaces the document first.
func (s *Session) Fetch(rawURL string, header http.Header, done port.FetchFunc) {
	done = s.bindFetch(rawURL, done)
	u, err := s.resolve(rawURL)
	if err != nil {
		s.loop.Post(func() { done(nil, err) })
		return
	}
	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		s.loop.Post(func() { done(nil, err) })
		return
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	loop.Await(s.loop, func(ctx context.Context) (*port.Response, error) {
		return s.fetcher.Do(ctx, req)
	}, done)
}

func (s *Session) bindFetch(rawURL string, done port.FetchFunc) port.FetchFunc {
	gen := s.generation
	return func(resp *port.Response, err error) {
		if s.generation != gen {
			s.log.Debug("dropping fetch from unloaded document", "url", rawURL)
			return
		}
		done(resp, err)
	}
}

// SetTimeout schedules fn on the loop. fn does not run once a full
// navigation has replaced the document that scheduled it.
func (s *Session) SetTimeout(d time.Duration, fn func()) port.Timer {
	gen := s.generation
	return s.loop.AfterFunc(d, func() {
		if s.generation != gen {
			s.log.Debug("dropping timer from unloaded document")
			return
		}
		fn()
	})
}

// ScrollY returns the vertical scroll offset.
func (s *Session) ScrollY() float64 { return s.scrollY }

// ScrollTo scrolls the viewport; a scroll event is dispatched asynchronously.
func (s *Session) ScrollTo(y float64) {
	if y < 0 {
		y = 0
	}
	s.scrollY = y
	s.loop.Post(func() {
		s.dispatchWindow(&port.Event{Type: port.EventScroll})
	})
}

// ScrollBy scrolls relative to the current offset.
func (s *Session) ScrollBy(dy float64) {
	s.ScrollTo(s.scrollY + dy)
}

// ScrollToEnd scrolls so the bottom of the document is in view.
func (s *Session) ScrollToEnd() {
	y := s.layout.Height(s.doc.root) - s.cfg.ViewportHeight
	s.ScrollTo(max(y, 0))
}

// InnerHeight returns the viewport height.
func (s *Session) InnerHeight() float64 { return s.cfg.ViewportHeight }

// BoundingClientTop returns n's top relative to the viewport.
func (s *Session) BoundingClientTop(n *html.Node) float64 {
	return s.layout.Top(s.doc.root, n) - s.scrollY
}

// OffsetTop returns n's top relative to the document.
func (s *Session) OffsetTop(n *html.Node) float64 {
	return s.layout.Top(s.doc.root, n)
}

// Assign starts a full navigation to rawURL.
func (s *Session) Assign(rawURL string) {
	u, err := s.resolve(rawURL)
	if err != nil {
		s.log.Error("bad navigation url", "url", rawURL, "err", err)
		return
	}
	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		s.log.Error("bad navigation request", "url", rawURL, "err", err)
		return
	}
	s.navigate("push", req, -1)
}

// Reload reloads the current entry.
func (s *Session) Reload() {
	cur := s.history.Current()
	if cur == nil {
		return
	}
	req, err := http.NewRequest(http.MethodGet, cur.URL.String(), nil)
	if err != nil {
		s.log.Error("bad reload request", "url", cur.URL, "err", err)
		return
	}
	s.navigate("reload", req, s.history.index)
}

// Back traverses one entry back.
func (s *Session) Back() { s.Go(-1) }

// Forward traverses one entry forward.
func (s *Session) Forward() { s.Go(1) }

// Go traverses delta entries. Entries created by the current document fire
// popstate; others are loaded.
func (s *Session) Go(delta int) {
	target := s.history.index + delta
	if delta == 0 || target < 0 || target >= len(s.history.entries) {
		return
	}
	entry := s.history.entries[target]
	if entry.generation == s.generation {
		s.history.index = target
		s.location = entry.URL
		state := entry.State()
		s.loop.Post(func() {
			s.dispatchWindow(&port.Event{Type: port.EventPopState, State: state})
		})
		return
	}
	req, err := http.NewRequest(http.MethodGet, entry.URL.String(), nil)
	if err != nil {
		s.log.Error("bad traverse request", "url", entry.URL, "err", err)
		return
	}
	s.navigate("traverse", req, target)
}

// navigate loads req as a new document. index is the history entry the
// document belongs to, or -1 to push a new entry.
func (s *Session) navigate(kind string, req *http.Request, index int) {
	s.log.Debug("navigate", "kind", kind, "method", req.Method, "url", req.URL)
	loop.Await(s.loop, func(ctx context.Context) (*port.Response, error) {
		return s.fetcher.Do(ctx, req)
	}, func(resp *port.Response, err error) {
		nav := Navigation{Kind: kind, Method: req.Method, URL: req.URL.String(), Err: err}
		if err != nil {
			s.log.Error("navigation failed", "url", req.URL, "err", err)
			s.navigations = append(s.navigations, nav)
			return
		}
		nav.Status = resp.Status
		nav.URL = resp.URL
		if err := s.commit(resp, index); err != nil {
			nav.Err = err
			s.log.Error("navigation commit failed", "url", resp.URL, "err", err)
		}
		s.navigations = append(s.navigations, nav)
	})
}

func (s *Session) commit(resp *port.Response, index int) error {
	u, err := url.Parse(resp.URL)
	if err != nil {
		return err
	}
	root, err := html.Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return err
	}

	s.generation++
	s.doc = newDocument(s, root)
	s.windowListeners = make(listenerSet)
	s.scrollY = 0
	s.location = u

	if index < 0 {
		s.history.push(&Entry{Key: uuid.NewString(), URL: u, generation: s.generation})
	} else {
		s.history.index = index
		entry := s.history.entries[index]
		entry.URL = u
		entry.generation = s.generation
	}

	for _, script := range s.scripts {
		script(s)
	}
	return nil
}

// Navigations returns every full document load so far.
func (s *Session) Navigations() []Navigation {
	return append([]Navigation(nil), s.navigations...)
}

// Submissions returns every form submission so far.
func (s *Session) Submissions() []Submission {
	return append([]Submission(nil), s.submissions...)
}

// Title returns the document title.
func (s *Session) Title() string {
	n, _ := s.doc.QuerySelector("title")
	if n == nil {
		return ""
	}
	return s.doc.TextContent(n)
}

func (s *Session) resolve(rawURL string) (*url.URL, error) {
	ref, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("browser: parse url %q: %w", rawURL, err)
	}
	if s.location == nil {
		if !ref.IsAbs() {
			return nil, fmt.Errorf("browser: relative url %q without a document", rawURL)
		}
		return ref, nil
	}
	return s.location.ResolveReference(ref), nil
}
