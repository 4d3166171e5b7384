package hxnav

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/pthm/hxnav/lib/port"
)

func (e *Engine) bindBoost(el *html.Node) error {
	href, ok := attr(el, "href")
	if !ok || strings.TrimSpace(href) == "" {
		return fmt.Errorf("%w: boost needs an href", ErrBadAttribute)
	}
	if strings.HasPrefix(strings.TrimSpace(href), "#") {
		// Same-document fragment; the browser scrolls without a fetch.
		return nil
	}
	target, err := e.resolve(href)
	if err != nil {
		return err
	}
	e.win.Document().AddEventListener(el, port.EventClick, func(ev *port.Event) {
		if ev.Modified() || !e.sameOrigin(target) {
			return
		}
		ev.PreventDefault()
		e.boost(target.String())
	})
	return nil
}

// boost fetches dest and swaps it in as a new history entry, falling back to
// a full navigation on any failure.
func (e *Engine) boost(dest string) {
	e.log.Debug("boosted navigation", "url", dest)
	header := http.Header{}
	header.Set(HeaderRequest, RequestBoost)
	e.win.Fetch(dest, header, func(resp *port.Response, err error) {
		if err == nil && !resp.OK() {
			err = &FetchError{URL: dest, Status: resp.Status}
		} else if err != nil {
			err = &FetchError{URL: dest, Err: err}
		}
		if err != nil {
			e.log.Error("boosted navigation failed, falling back", "url", dest, "err", err)
			e.win.Assign(dest)
			return
		}
		if err := e.swap(dest, resp.Body); err != nil {
			e.log.Error("document swap failed, falling back", "url", dest, "err", err)
			e.win.Assign(dest)
		}
	})
}

// swap leaves history untouched unless the body parses, so a failed swap
// falls back without an orphan entry.
func (e *Engine) swap(dest string, body []byte) error {
	doc := e.win.Document()
	if _, err := doc.Parse(body); err != nil {
		return err
	}
	y := e.win.ScrollY()
	history := e.win.History()
	if err := history.ReplaceState(&port.HistoryState{ScrollY: &y}, ""); err != nil {
		return err
	}
	if err := history.PushState(nil, dest); err != nil {
		return err
	}
	if err := doc.Write(body); err != nil {
		return err
	}
	e.attach()
	return nil
}

// onPopState stashes the popped scroll offset and reloads; the next page
// load restores it.
func (e *Engine) onPopState(ev *port.Event) {
	if ev.State != nil && ev.State.ScrollY != nil {
		v := strconv.FormatFloat(*ev.State.ScrollY, 'f', -1, 64)
		if err := e.win.SessionStorage().SetItem(e.cfg.ScrollKey, v); err != nil {
			e.log.Warn("could not save scroll offset", "err", err)
		}
	}
	e.win.Reload()
}

func (e *Engine) restoreScroll() {
	storage := e.win.SessionStorage()
	raw, ok := storage.GetItem(e.cfg.ScrollKey)
	if !ok {
		return
	}
	storage.RemoveItem(e.cfg.ScrollKey)
	y, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		e.log.Warn("discarding saved scroll offset", "value", raw, "err", err)
		return
	}
	e.log.Debug("restoring scroll offset", "y", y)
	e.win.ScrollTo(y)
}
