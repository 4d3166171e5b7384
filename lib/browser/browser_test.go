package browser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/pthm/hxnav/lib/loop"
	"github.com/pthm/hxnav/lib/port"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

type server struct {
	*httptest.Server

	mu    sync.Mutex
	seen  []*http.Request
	forms []map[string][]string
}

func newServer(t *testing.T, pages map[string]string) *server {
	t.Helper()
	s := &server{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
			_ = r.ParseMultipartForm(1 << 20)
		} else {
			_ = r.ParseForm()
		}
		s.mu.Lock()
		s.seen = append(s.seen, r)
		s.forms = append(s.forms, r.Form)
		s.mu.Unlock()

		if r.URL.Path == "/redirect" {
			http.Redirect(w, r, "/b", http.StatusFound)
			return
		}
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *server) requests() []*http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*http.Request(nil), s.seen...)
}

func newSession(t *testing.T, opts ...Option) (*Session, *loop.ManualClock) {
	t.Helper()
	clock := loop.NewManualClock(time.Unix(0, 0))
	opts = append([]Option{WithClock(clock), WithLogger(log.New(io.Discard))}, opts...)
	s := New(opts...)
	t.Cleanup(s.Close)
	return s, clock
}

func settle(t *testing.T, s *Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Settle(ctx))
}

func open(t *testing.T, s *Session, url string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Open(ctx, url))
}

var pages = map[string]string{
	"/a": `<html><head><title>A</title></head><body><a id="to-b" href="/b">b</a><a id="frag" href="#top">top</a></body></html>`,
	"/b": `<html><head><title>B</title></head><body><p>b</p></body></html>`,
}

func TestOpenAndNavigate(t *testing.T) {
	srv := newServer(t, pages)
	s, _ := newSession(t)

	open(t, s, srv.URL+"/a")
	assert.Equal(t, "A", s.Title())
	assert.Equal(t, "/a", s.Location().Path)

	require.NoError(t, s.Click("#to-b"))
	settle(t, s)
	assert.Equal(t, "B", s.Title())
	assert.Equal(t, 2, s.Entries().Len())

	navs := s.Navigations()
	require.Len(t, navs, 2)
	assert.Equal(t, "push", navs[1].Kind)
	assert.Equal(t, http.StatusOK, navs[1].Status)
}

func TestOpenFailsOnMissingPage(t *testing.T) {
	srv := newServer(t, pages)
	s, _ := newSession(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.Error(t, s.Open(ctx, srv.URL+"/missing"))
}

func TestFragmentLinksDoNotNavigate(t *testing.T) {
	srv := newServer(t, pages)
	s, _ := newSession(t)
	open(t, s, srv.URL+"/a")

	require.NoError(t, s.Click("#frag"))
	settle(t, s)
	assert.Len(t, s.Navigations(), 1)
}

func TestRedirectUpdatesLocation(t *testing.T) {
	srv := newServer(t, pages)
	s, _ := newSession(t)

	open(t, s, srv.URL+"/redirect")
	assert.Equal(t, "/b", s.Location().Path)
	assert.Equal(t, "/b", s.Entries().Current().URL.Path)
}

func TestScriptsRunOnEveryLoad(t *testing.T) {
	srv := newServer(t, pages)
	var titles []string
	s, _ := newSession(t, WithScript(func(w port.Window) {
		n, _ := w.Document().QuerySelector("title")
		titles = append(titles, w.Document().TextContent(n))
	}))

	open(t, s, srv.URL+"/a")
	require.NoError(t, s.Click("#to-b"))
	settle(t, s)
	s.Back()
	settle(t, s)

	assert.Equal(t, []string{"A", "B", "A"}, titles)
}

func TestPushStateTraversalFiresPopState(t *testing.T) {
	srv := newServer(t, pages)
	s, _ := newSession(t)
	open(t, s, srv.URL+"/a")

	var popped []*port.HistoryState
	s.AddEventListener(port.EventPopState, func(ev *port.Event) {
		popped = append(popped, ev.State)
	})

	y := 42.0
	require.NoError(t, s.History().ReplaceState(&port.HistoryState{ScrollY: &y}, ""))
	require.NoError(t, s.History().PushState(nil, "/a?page=2"))
	assert.Equal(t, "page=2", s.Location().RawQuery)

	s.Back()
	settle(t, s)

	require.Len(t, popped, 1)
	require.NotNil(t, popped[0])
	assert.Equal(t, 42.0, *popped[0].ScrollY)
	assert.Len(t, s.Navigations(), 1, "same-document traversal must not load")
	assert.Equal(t, "", s.Location().RawQuery)

	s.Forward()
	settle(t, s)
	require.Len(t, popped, 2)
	assert.Nil(t, popped[1])
}

func TestTraversalAcrossDocumentsLoads(t *testing.T) {
	srv := newServer(t, pages)
	s, _ := newSession(t)
	open(t, s, srv.URL+"/a")
	require.NoError(t, s.Click("#to-b"))
	settle(t, s)

	popped := 0
	s.AddEventListener(port.EventPopState, func(*port.Event) { popped++ })

	s.Back()
	settle(t, s)

	assert.Equal(t, 0, popped)
	assert.Equal(t, "A", s.Title())
	assert.Equal(t, "traverse", s.Navigations()[2].Kind)
	assert.Equal(t, 0, s.Entries().Index())
	assert.Equal(t, 2, s.Entries().Len())
}

func TestHistoryStateIsCloned(t *testing.T) {
	srv := newServer(t, pages)
	s, _ := newSession(t)
	open(t, s, srv.URL+"/a")

	y := 10.0
	st := &port.HistoryState{ScrollY: &y}
	require.NoError(t, s.History().ReplaceState(st, ""))
	y = 99

	got := s.History().State()
	require.NotNil(t, got)
	assert.Equal(t, 10.0, *got.ScrollY)

	*got.ScrollY = 5
	assert.Equal(t, 10.0, *s.History().State().ScrollY)
}

func TestPushStateRejectsOtherOrigins(t *testing.T) {
	srv := newServer(t, pages)
	s, _ := newSession(t)
	open(t, s, srv.URL+"/a")

	err := s.History().PushState(nil, "http://example.com/x")
	assert.ErrorIs(t, err, ErrSecurity)
	assert.Equal(t, 1, s.Entries().Len())
}

func TestPushStateDropsForwardEntries(t *testing.T) {
	srv := newServer(t, pages)
	s, _ := newSession(t)
	open(t, s, srv.URL+"/a")

	require.NoError(t, s.History().PushState(nil, "/a?1"))
	require.NoError(t, s.History().PushState(nil, "/a?2"))
	s.Back()
	s.Back()
	settle(t, s)
	require.NoError(t, s.History().PushState(nil, "/a?3"))

	assert.Equal(t, 2, s.Entries().Len())
	assert.Equal(t, "3", s.Entries().Current().URL.RawQuery)
}

func TestWriteErasesListeners(t *testing.T) {
	srv := newServer(t, pages)
	s, _ := newSession(t)
	open(t, s, srv.URL+"/a")

	a, err := s.Doc().QuerySelector("#to-b")
	require.NoError(t, err)
	s.Doc().AddEventListener(a, port.EventClick, func(*port.Event) {})
	s.AddEventListener(port.EventScroll, func(*port.Event) {})
	s.ScrollTo(100)
	settle(t, s)

	require.NoError(t, s.Document().Write([]byte(`<html><body><p id="new">new</p></body></html>`)))

	assert.Equal(t, 0, s.Doc().ListenerCount(a, port.EventClick))
	assert.Equal(t, 0, s.WindowListenerCount(port.EventScroll))
	assert.Equal(t, 0.0, s.ScrollY())
	assert.Equal(t, "/a", s.Location().Path, "write keeps the URL")
	assert.Equal(t, 1, s.Entries().Len())

	n, err := s.Doc().QuerySelector("#new")
	require.NoError(t, err)
	assert.NotNil(t, n)
}

func TestEventsBubble(t *testing.T) {
	srv := newServer(t, map[string]string{
		"/": `<html><body><div id="outer"><span id="inner">x</span></div></body></html>`,
	})
	s, _ := newSession(t)
	open(t, s, srv.URL+"/")

	var order []string
	outer, _ := s.Doc().QuerySelector("#outer")
	inner, _ := s.Doc().QuerySelector("#inner")
	s.Doc().AddEventListener(outer, port.EventClick, func(*port.Event) { order = append(order, "outer") })
	remove := s.Doc().AddEventListener(inner, port.EventClick, func(*port.Event) { order = append(order, "inner") })

	require.NoError(t, s.Click("#inner"))
	remove()
	require.NoError(t, s.Click("#inner"))

	assert.Equal(t, []string{"inner", "outer", "outer"}, order)
}

func TestPreventDefaultStopsNavigation(t *testing.T) {
	srv := newServer(t, pages)
	s, _ := newSession(t)
	open(t, s, srv.URL+"/a")

	a, _ := s.Doc().QuerySelector("#to-b")
	s.Doc().AddEventListener(a, port.EventClick, func(ev *port.Event) { ev.PreventDefault() })

	require.NoError(t, s.Click("#to-b"))
	settle(t, s)
	assert.Equal(t, "A", s.Title())
}

func TestFetchSendsHeaders(t *testing.T) {
	srv := newServer(t, pages)
	s, _ := newSession(t, WithConfig(Config{UserAgent: "test-agent", ViewportHeight: 600, RowHeight: 20}))
	open(t, s, srv.URL+"/a")

	var got *port.Response
	s.Fetch("/b", http.Header{"X-Test": {"1"}}, func(resp *port.Response, err error) {
		require.NoError(t, err)
		got = resp
	})
	settle(t, s)

	require.NotNil(t, got)
	assert.True(t, got.OK())
	assert.Contains(t, string(got.Body), "<p>b</p>")

	reqs := srv.requests()
	last := reqs[len(reqs)-1]
	assert.Equal(t, "1", last.Header.Get("X-Test"))
	assert.Equal(t, "test-agent", last.Header.Get("User-Agent"))
	assert.Equal(t, 600.0, s.InnerHeight())
}

func TestFetchBadURL(t *testing.T) {
	s, _ := newSession(t)

	var gotErr error
	s.Fetch("relative", nil, func(_ *port.Response, err error) { gotErr = err })
	settle(t, s)
	assert.Error(t, gotErr)
}

func TestSetTimeout(t *testing.T) {
	s, clock := newSession(t)

	fired := 0
	s.SetTimeout(time.Second, func() { fired++ })
	stopped := s.SetTimeout(time.Second, func() { fired += 10 })
	assert.True(t, stopped.Stop())

	clock.Advance(time.Second)
	settle(t, s)
	assert.Equal(t, 1, fired)
}

func TestNavigationDropsPendingCallbacks(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/slow" {
			<-release
		}
		body, ok := pages[r.URL.Path]
		if !ok {
			body = `<html><head><title>slow</title></head><body></body></html>`
		}
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	// The slow response is held until /b has replaced the document.
	var once sync.Once
	s, clock := newSession(t, WithScript(func(w port.Window) {
		if w.Location().Path == "/b" {
			once.Do(func() { close(release) })
		}
	}))
	open(t, s, srv.URL+"/a")

	fetched, fired := false, false
	s.Fetch("/slow", nil, func(*port.Response, error) { fetched = true })
	s.SetTimeout(time.Second, func() { fired = true })

	s.Assign(srv.URL + "/b")
	settle(t, s)
	clock.Advance(time.Second)
	settle(t, s)

	assert.False(t, fetched, "fetch completion ran after navigation")
	assert.False(t, fired, "timer ran after navigation")
	assert.Equal(t, "B", s.Title())
	assert.Equal(t, "/b", s.Location().Path)
	assert.Equal(t, 2, s.Entries().Len())
}

func TestLayout(t *testing.T) {
	var body strings.Builder
	for i := range 10 {
		fmt.Fprintf(&body, `<div id="r%d">%d</div>`, i, i)
	}
	srv := newServer(t, map[string]string{"/": "<html><body>" + body.String() + "</body></html>"})
	s, _ := newSession(t, WithConfig(Config{ViewportHeight: 100, RowHeight: 20}))
	open(t, s, srv.URL+"/")

	r5, _ := s.Doc().QuerySelector("#r5")
	assert.Equal(t, 100.0, s.OffsetTop(r5))
	s.ScrollTo(40)
	assert.Equal(t, 60.0, s.BoundingClientTop(r5))

	s.ScrollToEnd()
	assert.Equal(t, 100.0, s.ScrollY())

	s.ScrollTo(-5)
	assert.Equal(t, 0.0, s.ScrollY())
}

func TestScrollDispatchesAsync(t *testing.T) {
	srv := newServer(t, pages)
	s, _ := newSession(t)
	open(t, s, srv.URL+"/a")

	scrolls := 0
	s.AddEventListener(port.EventScroll, func(*port.Event) { scrolls++ })
	s.ScrollBy(10)
	assert.Equal(t, 0, scrolls)
	settle(t, s)
	assert.Equal(t, 1, scrolls)
}

func TestStorage(t *testing.T) {
	st := NewMemoryStorage()
	_, ok := st.GetItem("k")
	assert.False(t, ok)

	require.NoError(t, st.SetItem("k", "v"))
	v, ok := st.GetItem("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	st.RemoveItem("k")
	assert.Equal(t, 0, st.Len())
}

func TestFormSubmission(t *testing.T) {
	srv := newServer(t, map[string]string{
		"/": `<html><body>
<form id="search" action="/results">
  <input name="q" value="cats">
  <input type="checkbox" name="hd" checked>
  <input type="checkbox" name="4k">
  <select name="sort"><option value="new">New</option><option value="old" selected>Old</option></select>
  <button id="go">Go</button>
</form>
<form id="upload" method="post" action="/results" enctype="multipart/form-data">
  <input name="title" value="clip">
  <textarea name="desc">about</textarea>
  <input type="file" id="file" name="file">
  <input type="submit" id="send" value="Send">
</form>
</body></html>`,
		"/results": `<html><head><title>results</title></head><body></body></html>`,
	})
	s, _ := newSession(t)
	open(t, s, srv.URL+"/")

	require.NoError(t, s.Click("#go"))
	settle(t, s)
	assert.Equal(t, "results", s.Title())
	assert.Equal(t, "hd=on&q=cats&sort=old", s.Location().RawQuery)

	s.Back()
	settle(t, s)
	require.NoError(t, s.SelectFiles("#file", "clip.mp4"))
	require.NoError(t, s.Click("#send"))
	settle(t, s)

	subs := s.Submissions()
	require.Len(t, subs, 2)
	assert.Equal(t, http.MethodPost, subs[1].Method)
	assert.Equal(t, "clip.mp4", subs[1].Values.Get("file"))

	srv.mu.Lock()
	form := srv.forms[len(srv.forms)-1]
	srv.mu.Unlock()
	assert.Equal(t, []string{"clip"}, form["title"])
	assert.Equal(t, []string{"about"}, form["desc"])
}

func TestSelectFilesRejectsOtherInputs(t *testing.T) {
	srv := newServer(t, map[string]string{"/": `<html><body><input id="t" type="text"></body></html>`})
	s, _ := newSession(t)
	open(t, s, srv.URL+"/")

	assert.Error(t, s.SelectFiles("#t", "x"))
	assert.Error(t, s.Click("#missing"))
}
