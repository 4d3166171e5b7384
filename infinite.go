package hxnav

import (
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/net/html"

	"github.com/pthm/hxnav/lib/port"
)

// HarvestSelector matches the container, in a fetched page, whose children
// are appended after the sentinel.
const HarvestSelector = "[infinite-scroll-data]"

func (e *Engine) bindInfinite(el *html.Node) error {
	raw, _ := attr(el, "infinite-scroll")
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("%w: infinite-scroll needs a url", ErrBadAttribute)
	}
	target, err := e.resolve(raw)
	if err != nil {
		return err
	}
	dest := target.String()

	var remove func()
	remove = e.win.AddEventListener(port.EventScroll, func(*port.Event) {
		if e.win.BoundingClientTop(el)-e.win.InnerHeight() > e.cfg.PrefetchMargin {
			return
		}
		remove()
		e.loadMore(el, dest)
	})
	return nil
}

func (e *Engine) loadMore(sentinel *html.Node, dest string) {
	e.log.Debug("loading more", "url", dest)
	header := http.Header{}
	header.Set(HeaderRequest, RequestInfinite)
	e.win.Fetch(dest, header, func(resp *port.Response, err error) {
		if err != nil {
			e.fail(&FetchError{URL: dest, Err: err})
			return
		}
		if !resp.OK() {
			e.fail(&FetchError{URL: dest, Status: resp.Status})
			return
		}
		if err := e.appendPage(sentinel, resp.Body); err != nil {
			e.fail(fmt.Errorf("infinite scroll %s: %w", dest, err))
		}
	})
}

// appendPage moves the harvest container's children in after sentinel and
// rebinds the document.
func (e *Engine) appendPage(sentinel *html.Node, body []byte) error {
	doc := e.win.Document()
	if !contains(doc.Root(), sentinel) {
		e.log.Debug("sentinel left the document, dropping page")
		return nil
	}
	page, err := doc.Parse(body)
	if err != nil {
		return err
	}
	containers, err := doc.QuerySelectorAll(page, HarvestSelector)
	if err != nil {
		return err
	}
	if len(containers) == 0 {
		return ErrHarvestMissing
	}
	if len(containers) > 1 {
		e.log.Warn("page has several harvest containers, using the first", "count", len(containers))
	}

	var children []*html.Node
	for c := containers[0].FirstChild; c != nil; c = c.NextSibling {
		children = append(children, c)
	}
	doc.InsertAfter(sentinel, children...)
	e.BindAll(doc.Root())
	return nil
}

func contains(root, n *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n == root {
			return true
		}
	}
	return false
}
