package hxnav

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/pthm/hxnav/lib/browser"
	"github.com/pthm/hxnav/lib/loop"
	"github.com/pthm/hxnav/lib/port"
)

// TestTimeout bounds every Settle of a TestBrowser.
const TestTimeout = 5 * time.Second

// TestPage is a canned response of a TestSite. A negative Status drops the
// connection without answering.
type TestPage struct {
	Status int
	Body   string
}

// TestRequest is a request received by a TestSite.
type TestRequest struct {
	Method string
	URI    string
	Header http.Header
	Form   url.Values
}

// TestSite serves canned pages over HTTP for engine tests.
//
// Pages are looked up by request URI (path plus query) first, then by path.
// Unknown URIs get a 404.
//
//	site := hxnav.NewTestSite(map[string]string{
//	    "/":      `<a boost="true" href="/next">next</a>`,
//	    "/next":  `<p>next page</p>`,
//	})
//	defer site.Close()
type TestSite struct {
	Server *httptest.Server

	mu       sync.Mutex
	pages    map[string]TestPage
	requests []TestRequest
}

// NewTestSite starts a site serving pages with status 200.
func NewTestSite(pages map[string]string) *TestSite {
	s := &TestSite{pages: make(map[string]TestPage)}
	for uri, body := range pages {
		s.pages[uri] = TestPage{Status: http.StatusOK, Body: body}
	}
	s.Server = httptest.NewServer(s)
	return s
}

// Handle sets the response for uri.
func (s *TestSite) Handle(uri string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[uri] = TestPage{Status: status, Body: body}
}

// URL returns the absolute URL of uri on the site.
func (s *TestSite) URL(uri string) string {
	return s.Server.URL + uri
}

// Close shuts the server down.
func (s *TestSite) Close() {
	s.Server.Close()
}

// Requests returns every request received so far.
func (s *TestSite) Requests() []TestRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]TestRequest(nil), s.requests...)
}

// Hits counts the requests received for uri.
func (s *TestSite) Hits(uri string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.URI == uri {
			n++
		}
	}
	return n
}

func (s *TestSite) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		_ = r.ParseMultipartForm(1 << 20)
	} else {
		_ = r.ParseForm()
	}

	s.mu.Lock()
	s.requests = append(s.requests, TestRequest{
		Method: r.Method,
		URI:    r.URL.RequestURI(),
		Header: r.Header.Clone(),
		Form:   r.Form,
	})
	page, ok := s.pages[r.URL.RequestURI()]
	if !ok {
		page, ok = s.pages[r.URL.Path]
	}
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	if page.Status < 0 {
		if hj, ok := w.(http.Hijacker); ok {
			if conn, _, err := hj.Hijack(); err == nil {
				_ = conn.Close()
				return
			}
		}
		page.Status = http.StatusBadGateway
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(page.Status)
	_, _ = io.WriteString(w, page.Body)
}

// TestBrowser is a headless session that starts an engine on every load,
// driven by a manual clock.
//
//	b := hxnav.NewTestBrowser()
//	defer b.Close()
//	if err := b.Open(site.URL("/")); err != nil { ... }
//	b.Click("a[boost]")
//	b.Settle()
type TestBrowser struct {
	*browser.Session

	Clock *loop.ManualClock

	// Engine is the engine started by the latest document load.
	Engine *Engine

	// Errors collects everything reported through OnError.
	Errors []error

	// Loads counts engine starts (full document loads).
	Loads int
}

// NewTestBrowser creates a test browser. opts are passed to every engine.
func NewTestBrowser(opts ...Option) *TestBrowser {
	quiet := log.New(io.Discard)
	b := &TestBrowser{Clock: loop.NewManualClock(time.Unix(0, 0))}

	engineOpts := append([]Option{
		WithLogger(quiet),
		WithErrorHandler(func(err error) {
			b.Errors = append(b.Errors, err)
		}),
	}, opts...)

	b.Session = browser.New(
		browser.WithClock(b.Clock),
		browser.WithLogger(quiet),
		browser.WithScript(func(w port.Window) {
			b.Loads++
			b.Engine = New(w, engineOpts...)
			b.Engine.Start()
		}),
	)
	return b
}

// Open loads rawURL and settles.
func (b *TestBrowser) Open(rawURL string) error {
	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()
	return b.Session.Open(ctx, rawURL)
}

// Settle runs the session until idle.
func (b *TestBrowser) Settle() error {
	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()
	return b.Session.Settle(ctx)
}

// Advance moves the clock forward and settles.
func (b *TestBrowser) Advance(d time.Duration) error {
	b.Clock.Advance(d)
	return b.Settle()
}

// HTMLContains checks if the live document contains substr.
func (b *TestBrowser) HTMLContains(substr string) bool {
	return strings.Contains(b.Doc().HTML(), substr)
}

// Text returns the text content of the first element matching selector, or
// "" when nothing matches.
func (b *TestBrowser) Text(selector string) string {
	n, err := b.Doc().QuerySelector(selector)
	if err != nil || n == nil {
		return ""
	}
	return b.Doc().TextContent(n)
}

// Value returns the value of the first form control matching selector.
func (b *TestBrowser) Value(selector string) string {
	n, err := b.Doc().QuerySelector(selector)
	if err != nil || n == nil {
		return ""
	}
	return b.Doc().Value(n)
}
