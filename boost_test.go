package hxnav

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/pthm/hxnav/lib/browser"
	"github.com/pthm/hxnav/lib/port"
)

const (
	boostHome = `<html><head><title>one</title></head><body>
<p id="one">one</p>
<a id="next" boost="true" href="/two">two</a>
<a id="broken" boost="true" href="/broken">broken</a>
<a id="dead" boost="true" href="/dead">dead</a>
<a id="plain" href="/two">plain</a>
</body></html>`
	boostTwo = `<html><head><title>two</title></head><body>
<p id="two">two</p>
<a id="home" boost="true" href="/">home</a>
</body></html>`
)

func openBoost(t *testing.T) (*TestSite, *TestBrowser) {
	t.Helper()
	site := NewTestSite(map[string]string{
		"/":    boostHome,
		"/two": boostTwo,
	})
	site.Handle("/broken", http.StatusInternalServerError, "<p>oops</p>")
	site.Handle("/dead", -1, "")
	t.Cleanup(site.Close)

	b := NewTestBrowser()
	t.Cleanup(b.Close)
	require.NoError(t, b.Open(site.URL("/")))
	return site, b
}

func TestBoostSwapsDocument(t *testing.T) {
	site, b := openBoost(t)

	b.ScrollTo(120)
	require.NoError(t, b.Settle())
	require.NoError(t, b.Click("#next"))
	require.NoError(t, b.Settle())

	assert.Equal(t, "two", b.Title())
	assert.Equal(t, "/two", b.Location().Path)
	assert.Equal(t, 1, b.Loads, "boosted navigation must not reload")
	assert.Len(t, b.Navigations(), 1)

	history := b.Entries()
	require.Equal(t, 2, history.Len())
	assert.Equal(t, 1, history.Index())
	state := history.Entry(0).State()
	require.NotNil(t, state)
	require.NotNil(t, state.ScrollY)
	assert.Equal(t, 120.0, *state.ScrollY)

	reqs := site.Requests()
	last := reqs[len(reqs)-1]
	assert.Equal(t, "/two", last.URI)
	assert.Equal(t, RequestBoost, last.Header.Get(HeaderRequest))

	// The new document is bound.
	home, err := b.Doc().QuerySelector("#home")
	require.NoError(t, err)
	assert.True(t, b.Engine.Binder().Bound(DirectiveBoost, home))
	assert.Equal(t, 1, b.WindowListenerCount("popstate"))
}

func TestBoostChains(t *testing.T) {
	_, b := openBoost(t)

	require.NoError(t, b.Click("#next"))
	require.NoError(t, b.Settle())
	require.NoError(t, b.Click("#home"))
	require.NoError(t, b.Settle())

	assert.Equal(t, "one", b.Title())
	assert.Equal(t, 3, b.Entries().Len())
	assert.Equal(t, 1, b.Loads)
}

func TestBoostFallbackOnBadStatus(t *testing.T) {
	site, b := openBoost(t)

	require.NoError(t, b.Click("#broken"))
	require.NoError(t, b.Settle())

	navs := b.Navigations()
	require.Len(t, navs, 2)
	assert.Equal(t, "push", navs[1].Kind)
	assert.Equal(t, site.URL("/broken"), navs[1].URL)
	assert.Equal(t, http.StatusInternalServerError, navs[1].Status)

	reqs := site.Requests()
	require.Len(t, reqs, 3)
	assert.Equal(t, RequestBoost, reqs[1].Header.Get(HeaderRequest))
	assert.Empty(t, reqs[2].Header.Get(HeaderRequest))
	assert.Equal(t, 2, b.Loads)
}

func TestBoostFallbackOnRejectedFetch(t *testing.T) {
	site, b := openBoost(t)

	require.NoError(t, b.Click("#dead"))
	require.NoError(t, b.Settle())

	navs := b.Navigations()
	require.Len(t, navs, 2)
	assert.Equal(t, site.URL("/dead"), navs[1].URL)
	assert.Error(t, navs[1].Err)

	// The document was never replaced.
	assert.Equal(t, "one", b.Title())
	assert.Equal(t, 1, b.Entries().Len())
}

func TestBoostIgnoresModifiedClicks(t *testing.T) {
	site, b := openBoost(t)

	next, err := b.Doc().QuerySelector("#next")
	require.NoError(t, err)
	b.ClickNode(next, browser.ClickOptions{CtrlKey: true})
	b.ClickNode(next, browser.ClickOptions{Button: 1})
	require.NoError(t, b.Settle())

	assert.Equal(t, 0, site.Hits("/two"))
	assert.Equal(t, "one", b.Title())
}

func TestBoostIgnoresCrossOrigin(t *testing.T) {
	other := NewTestSite(map[string]string{
		"/elsewhere": `<html><head><title>elsewhere</title></head><body></body></html>`,
	})
	defer other.Close()

	site := NewTestSite(map[string]string{
		"/": `<html><body><a id="out" boost="true" href="` + other.URL("/elsewhere") + `">out</a></body></html>`,
	})
	defer site.Close()

	b := NewTestBrowser()
	defer b.Close()
	require.NoError(t, b.Open(site.URL("/")))

	require.NoError(t, b.Click("#out"))
	require.NoError(t, b.Settle())

	assert.Equal(t, "elsewhere", b.Title())
	assert.Equal(t, 2, b.Loads)
	require.Len(t, other.Requests(), 1)
	assert.Empty(t, other.Requests()[0].Header.Get(HeaderRequest))
}

func TestBoostMissingHref(t *testing.T) {
	site := NewTestSite(map[string]string{
		"/": `<html><body><a id="x" boost="true">x</a><a id="y" boost="false" href="/y">y</a></body></html>`,
	})
	defer site.Close()

	b := NewTestBrowser()
	defer b.Close()
	require.NoError(t, b.Open(site.URL("/")))

	for _, sel := range []string{"#x", "#y"} {
		n, err := b.Doc().QuerySelector(sel)
		require.NoError(t, err)
		assert.False(t, b.Engine.Binder().Bound(DirectiveBoost, n), sel)
	}
}

func TestBoostSkipsFragmentLinks(t *testing.T) {
	site := NewTestSite(map[string]string{
		"/": `<html><body><a id="top" boost="true" href="#top">top</a></body></html>`,
	})
	defer site.Close()

	b := NewTestBrowser()
	defer b.Close()
	require.NoError(t, b.Open(site.URL("/")))

	require.NoError(t, b.Click("#top"))
	require.NoError(t, b.Settle())

	assert.Equal(t, 1, site.Hits("/"))
	assert.Equal(t, 1, b.Entries().Len())
	assert.Len(t, b.Navigations(), 1)
	assert.Empty(t, b.Errors)
}

const unparsable = "<!-- unparsable -->"

// rejectingWindow serves a document that cannot parse bodies carrying the
// unparsable marker.
type rejectingWindow struct{ port.Window }

func (w rejectingWindow) Document() port.Document {
	return rejectingDocument{w.Window.Document()}
}

type rejectingDocument struct{ port.Document }

func (d rejectingDocument) Parse(markup []byte) (*html.Node, error) {
	if bytes.Contains(markup, []byte(unparsable)) {
		return nil, errors.New("unparsable")
	}
	return d.Document.Parse(markup)
}

func (d rejectingDocument) Write(markup []byte) error {
	if bytes.Contains(markup, []byte(unparsable)) {
		return errors.New("unparsable")
	}
	return d.Document.Write(markup)
}

func TestBoostSwapFailureKeepsHistory(t *testing.T) {
	site := NewTestSite(map[string]string{
		"/":    `<html><body><a id="bad" boost="true" href="/bad">bad</a></body></html>`,
		"/bad": `<html><head><title>bad</title></head><body>` + unparsable + `</body></html>`,
	})
	defer site.Close()

	loads := 0
	s := browser.New(
		browser.WithLogger(log.New(io.Discard)),
		browser.WithScript(func(w port.Window) {
			loads++
			New(rejectingWindow{w}, WithLogger(log.New(io.Discard))).Start()
		}),
	)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()
	require.NoError(t, s.Open(ctx, site.URL("/")))
	require.NoError(t, s.Click("#bad"))
	require.NoError(t, s.Settle(ctx))

	// The failed swap falls back to one full navigation and one new entry.
	assert.Equal(t, "bad", s.Title())
	assert.Equal(t, 2, loads)
	history := s.Entries()
	assert.Equal(t, 2, history.Len())
	assert.Equal(t, 1, history.Index())
	assert.Nil(t, history.Entry(0).State())
}

func TestScrollRoundTrip(t *testing.T) {
	_, b := openBoost(t)

	b.ScrollTo(240)
	require.NoError(t, b.Settle())
	require.NoError(t, b.Click("#next"))
	require.NoError(t, b.Settle())
	require.Equal(t, 0.0, b.ScrollY())

	b.Back()
	require.NoError(t, b.Settle())

	assert.Equal(t, "one", b.Title())
	assert.Equal(t, 2, b.Loads, "back must force a full reload")
	assert.Equal(t, "reload", b.Navigations()[len(b.Navigations())-1].Kind)
	assert.Equal(t, 240.0, b.ScrollY())
	assert.Equal(t, 0, b.Storage().Len())
}

func TestPopStateWithoutOffset(t *testing.T) {
	_, b := openBoost(t)

	require.NoError(t, b.Click("#next"))
	require.NoError(t, b.Settle())
	b.Back()
	require.NoError(t, b.Settle())
	require.Equal(t, 2, b.Loads)

	// Forward to the boosted entry: its state is empty and it belongs to an
	// older document, so it is loaded in full.
	b.Forward()
	require.NoError(t, b.Settle())
	assert.Equal(t, "two", b.Title())
	assert.Equal(t, 3, b.Loads)
	assert.Equal(t, 0.0, b.ScrollY())
	assert.Equal(t, 0, b.Storage().Len())
}

func TestRestoreScrollDiscardsGarbage(t *testing.T) {
	site := NewTestSite(map[string]string{"/": boostHome})
	defer site.Close()

	b := NewTestBrowser()
	defer b.Close()
	require.NoError(t, b.Storage().SetItem(DefaultScrollKey, "not-a-number"))
	require.NoError(t, b.Open(site.URL("/")))

	assert.Equal(t, 0.0, b.ScrollY())
	assert.Equal(t, 0, b.Storage().Len())
}

func TestStartLogsBanner(t *testing.T) {
	site := NewTestSite(map[string]string{"/": boostHome})
	defer site.Close()

	var buf bytes.Buffer
	b := NewTestBrowser(WithConfig(DefaultConfig()), WithLogger(log.New(&buf)))
	defer b.Close()
	require.NoError(t, b.Open(site.URL("/")))

	assert.Contains(t, buf.String(), "hxnav: source code is available at "+site.URL("/source.tar.gz"))
}
