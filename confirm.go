package hxnav

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/pthm/hxnav/lib/port"
)

// ConfirmPrompt is the label shown while a confirmation is in progress.
func ConfirmPrompt(remaining int) string {
	unit := "times"
	if remaining == 1 {
		unit = "time"
	}
	return fmt.Sprintf("Click %d more %s to confirm", remaining, unit)
}

// confirmation guards a control behind RequiredClicks consecutive clicks.
// Each click stops the pending reset, so a reset never races a confirm.
type confirmation struct {
	e      *Engine
	el     *html.Node
	target *html.Node
	label  string
	count  int
	reset  port.Timer
}

func (e *Engine) bindConfirm(el *html.Node) error {
	sel, _ := attr(el, "confirm")
	if strings.TrimSpace(sel) == "" {
		return fmt.Errorf("%w: confirm needs a selector", ErrBadAttribute)
	}
	doc := e.win.Document()
	target, err := doc.QuerySelector(sel)
	if err != nil {
		return fmt.Errorf("%w: confirm %q: %v", ErrBadAttribute, sel, err)
	}
	if target == nil {
		return fmt.Errorf("%w: confirm %q", ErrMissingCompanion, sel)
	}
	c := &confirmation{e: e, el: el, target: target}
	c.label = c.text()
	doc.AddEventListener(el, port.EventClick, c.click)
	return nil
}

func (c *confirmation) click(ev *port.Event) {
	ev.PreventDefault()
	if c.reset != nil {
		c.reset.Stop()
		c.reset = nil
	}
	c.count++
	required := c.e.cfg.RequiredClicks
	if c.count >= required {
		c.count = 0
		c.setText(c.label)
		c.e.log.Debug("confirmed", "element", describe(c.el))
		c.e.submit(c.target)
		return
	}
	c.setText(ConfirmPrompt(required - c.count))
	c.reset = c.e.win.SetTimeout(c.e.cfg.ConfirmTimeout, c.expire)
}

func (c *confirmation) expire() {
	c.reset = nil
	c.count = 0
	c.setText(c.label)
}

// text reads the visible label; input buttons keep it in their value.
func (c *confirmation) text() string {
	doc := c.e.win.Document()
	if c.el.Data == "input" {
		return doc.Value(c.el)
	}
	return doc.TextContent(c.el)
}

func (c *confirmation) setText(s string) {
	doc := c.e.win.Document()
	if c.el.Data == "input" {
		doc.SetValue(c.el, s)
		return
	}
	doc.SetTextContent(c.el, s)
}

// submit submits target if it is a form, or the form around it.
func (e *Engine) submit(target *html.Node) {
	doc := e.win.Document()
	var err error
	if target.Type == html.ElementNode && target.Data == "form" {
		err = doc.Submit(target)
	} else {
		err = SubmitNearestForm(doc, target, e.cfg.FormDepth)
	}
	if err != nil {
		e.fail(err)
	}
}
