package browser

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/pthm/hxnav/lib/port"
)

// ClickOptions carries pointer modifiers for a click.
type ClickOptions struct {
	Button   int
	CtrlKey  bool
	MetaKey  bool
	ShiftKey bool
	AltKey   bool
}

// Click dispatches a click on the first element matching selector.
func (s *Session) Click(selector string) error {
	n, err := s.find(selector)
	if err != nil {
		return err
	}
	s.ClickNode(n, ClickOptions{})
	return nil
}

// ClickNode dispatches a click on n and runs the default action unless a
// listener prevented it.
func (s *Session) ClickNode(n *html.Node, opts ClickOptions) {
	ev := &port.Event{
		Type:     port.EventClick,
		Target:   n,
		Button:   opts.Button,
		CtrlKey:  opts.CtrlKey,
		MetaKey:  opts.MetaKey,
		ShiftKey: opts.ShiftKey,
		AltKey:   opts.AltKey,
	}
	if !s.doc.dispatch(ev) {
		return
	}
	s.activate(n, ev)
}

// activate runs a click's default action.
func (s *Session) activate(n *html.Node, ev *port.Event) {
	if a := closest(n, "a"); a != nil {
		href, ok := attr(a, "href")
		if !ok || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
			return
		}
		if ev.Modified() {
			// New-tab gestures are not modelled.
			return
		}
		s.Assign(href)
		return
	}

	if !isSubmitter(n) {
		return
	}
	if form := closest(n, "form"); form != nil {
		if err := s.submit(form); err != nil {
			s.log.Error("form submission failed", "err", err)
		}
	}
}

func isSubmitter(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	typ, _ := attr(n, "type")
	switch n.Data {
	case "button":
		return typ == "" || typ == "submit"
	case "input":
		return typ == "submit" || typ == "image"
	}
	return false
}

// SetValue sets a control's value and dispatches change.
func (s *Session) SetValue(selector, value string) error {
	n, err := s.find(selector)
	if err != nil {
		return err
	}
	s.doc.SetValue(n, value)
	s.doc.dispatch(&port.Event{Type: port.EventChange, Target: n})
	return nil
}

// SelectFiles sets the files of a file input and dispatches change.
func (s *Session) SelectFiles(selector string, names ...string) error {
	n, err := s.find(selector)
	if err != nil {
		return err
	}
	if typ, _ := attr(n, "type"); n.Data != "input" || typ != "file" {
		return fmt.Errorf("browser: %q is not a file input", selector)
	}
	s.doc.files[n] = append([]string(nil), names...)
	s.doc.dispatch(&port.Event{Type: port.EventChange, Target: n})
	return nil
}

func (s *Session) find(selector string) (*html.Node, error) {
	n, err := s.doc.QuerySelector(selector)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, fmt.Errorf("browser: no element matches %q", selector)
	}
	return n, nil
}
