package hxnav

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/pthm/hxnav/lib/port"
)

// SubmitNearestForm submits the closest form enclosing el, looking at most
// maxDepth ancestors up. maxDepth is clamped to [1, MaxFormDepth]. It returns
// ErrNoForm when no form is found: the control is useless without one.
func SubmitNearestForm(doc port.Document, el *html.Node, maxDepth int) error {
	maxDepth = max(1, min(maxDepth, MaxFormDepth))
	n := el
	for range maxDepth {
		n = n.Parent
		if n == nil {
			break
		}
		if n.Type == html.ElementNode && n.Data == "form" {
			return doc.Submit(n)
		}
	}
	return fmt.Errorf("%w: %s within %d ancestors", ErrNoForm, describe(el), maxDepth)
}

func (e *Engine) bindSubmitNearestForm(el *html.Node) error {
	event, _ := attr(el, "submit-nearest-form")
	event = strings.TrimSpace(event)
	if event == "" || event == "true" {
		event = port.EventClick
	}
	e.win.Document().AddEventListener(el, event, func(ev *port.Event) {
		ev.PreventDefault()
		if err := SubmitNearestForm(e.win.Document(), el, e.cfg.FormDepth); err != nil {
			e.fail(err)
		}
	})
	return nil
}

func (e *Engine) bindFilenameDefault(el *html.Node) error {
	sel, _ := attr(el, "filename-default-to")
	if strings.TrimSpace(sel) == "" {
		return fmt.Errorf("%w: filename-default-to needs a selector", ErrBadAttribute)
	}
	doc := e.win.Document()
	companion, err := doc.QuerySelector(sel)
	if err != nil {
		return fmt.Errorf("%w: filename-default-to %q: %v", ErrBadAttribute, sel, err)
	}
	if companion == nil {
		return fmt.Errorf("%w: filename-default-to %q", ErrMissingCompanion, sel)
	}
	doc.AddEventListener(el, port.EventChange, func(*port.Event) {
		doc := e.win.Document()
		if doc.Value(companion) != "" {
			return
		}
		if files := doc.Files(el); len(files) > 0 {
			doc.SetValue(companion, files[0])
		}
	})
	return nil
}
