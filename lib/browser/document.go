package browser

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/pthm/hxnav/lib/port"
)

type listener struct {
	fn      port.Listener
	removed bool
}

// listenerSet holds listeners by event type.
type listenerSet map[string][]*listener

func (ls listenerSet) add(typ string, fn port.Listener) func() {
	l := &listener{fn: fn}
	ls[typ] = append(ls[typ], l)
	return func() {
		if l.removed {
			return
		}
		l.removed = true
		live := ls[typ][:0]
		for _, other := range ls[typ] {
			if other != l {
				live = append(live, other)
			}
		}
		ls[typ] = live
	}
}

// snapshot copies the live listeners so that listeners added during dispatch
// are not called and removed ones are skipped.
func (ls listenerSet) snapshot(typ string) []*listener {
	return append([]*listener(nil), ls[typ]...)
}

var (
	selectorMu    sync.Mutex
	selectorCache = map[string]cascadia.SelectorGroup{}
)

// compile parses a selector group, caching the result.
func compile(selector string) (cascadia.SelectorGroup, error) {
	selectorMu.Lock()
	defer selectorMu.Unlock()
	if sel, ok := selectorCache[selector]; ok {
		return sel, nil
	}
	sel, err := cascadia.ParseGroup(selector)
	if err != nil {
		return nil, fmt.Errorf("browser: invalid selector %q: %w", selector, err)
	}
	selectorCache[selector] = sel
	return sel, nil
}

// Document is a live document backed by an html.Node tree.
type Document struct {
	s         *Session
	root      *html.Node
	listeners map[*html.Node]listenerSet
	files     map[*html.Node][]string
}

var _ port.Document = (*Document)(nil)

func newDocument(s *Session, root *html.Node) *Document {
	return &Document{
		s:         s,
		root:      root,
		listeners: make(map[*html.Node]listenerSet),
		files:     make(map[*html.Node][]string),
	}
}

// Root returns the document node.
func (d *Document) Root() *html.Node {
	return d.root
}

// QuerySelector returns the first element in the document matching selector.
func (d *Document) QuerySelector(selector string) (*html.Node, error) {
	sel, err := compile(selector)
	if err != nil {
		return nil, err
	}
	return cascadia.Query(d.root, sel), nil
}

// QuerySelectorAll returns the descendants of root matching selector.
func (d *Document) QuerySelectorAll(root *html.Node, selector string) ([]*html.Node, error) {
	sel, err := compile(selector)
	if err != nil {
		return nil, err
	}
	if root == nil {
		root = d.root
	}
	return cascadia.QueryAll(root, sel), nil
}

// AddEventListener registers fn on target.
func (d *Document) AddEventListener(target *html.Node, typ string, fn port.Listener) func() {
	ls, ok := d.listeners[target]
	if !ok {
		ls = make(listenerSet)
		d.listeners[target] = ls
	}
	return ls.add(typ, fn)
}

// ListenerCount returns the number of listeners of typ registered on n.
func (d *Document) ListenerCount(n *html.Node, typ string) int {
	return len(d.listeners[n][typ])
}

// dispatch delivers ev to its target and then each ancestor. It reports
// whether the default action should run.
func (d *Document) dispatch(ev *port.Event) bool {
	for n := ev.Target; n != nil; n = n.Parent {
		ls, ok := d.listeners[n]
		if !ok {
			continue
		}
		for _, l := range ls.snapshot(ev.Type) {
			if !l.removed {
				l.fn(ev)
			}
		}
	}
	return !ev.DefaultPrevented()
}

// TextContent returns the concatenated text of n's descendants.
func (d *Document) TextContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// SetTextContent replaces n's children with a single text node.
func (d *Document) SetTextContent(n *html.Node, text string) {
	for n.FirstChild != nil {
		n.RemoveChild(n.FirstChild)
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

// Value returns the current value of a form control.
func (d *Document) Value(n *html.Node) string {
	switch n.Data {
	case "textarea":
		return d.TextContent(n)
	case "select":
		var first *html.Node
		for _, opt := range descendants(n, "option") {
			if first == nil {
				first = opt
			}
			if _, ok := attr(opt, "selected"); ok {
				return optionValue(d, opt)
			}
		}
		if first != nil {
			return optionValue(d, first)
		}
		return ""
	}
	v, _ := attr(n, "value")
	return v
}

// SetValue sets the current value of a form control.
func (d *Document) SetValue(n *html.Node, value string) {
	switch n.Data {
	case "textarea":
		d.SetTextContent(n, value)
	case "select":
		for _, opt := range descendants(n, "option") {
			removeAttr(opt, "selected")
			if optionValue(d, opt) == value {
				setAttr(opt, "selected", "")
			}
		}
	default:
		setAttr(n, "value", value)
	}
}

// Files returns the file names selected in input.
func (d *Document) Files(input *html.Node) []string {
	return append([]string(nil), d.files[input]...)
}

// InsertAfter moves nodes, in order, to immediately after ref.
func (d *Document) InsertAfter(ref *html.Node, nodes ...*html.Node) {
	parent := ref.Parent
	if parent == nil {
		return
	}
	next := ref.NextSibling
	for _, n := range nodes {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
		parent.InsertBefore(n, next)
	}
}

// Submit submits form as a navigation.
func (d *Document) Submit(form *html.Node) error {
	if form == nil || form.Type != html.ElementNode || form.Data != "form" {
		return fmt.Errorf("browser: submit target is not a form")
	}
	return d.s.submit(form)
}

// Write replaces the document with markup, erasing every document and
// window listener.
func (d *Document) Write(markup []byte) error {
	root, err := html.Parse(bytes.NewReader(markup))
	if err != nil {
		return fmt.Errorf("browser: parse document: %w", err)
	}
	d.root = root
	d.listeners = make(map[*html.Node]listenerSet)
	d.files = make(map[*html.Node][]string)
	d.s.windowListeners = make(listenerSet)
	d.s.scrollY = 0
	return nil
}

// Parse parses markup into a detached document.
func (d *Document) Parse(markup []byte) (*html.Node, error) {
	root, err := html.Parse(bytes.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("browser: parse fragment: %w", err)
	}
	return root, nil
}

// HTML renders the document.
func (d *Document) HTML() string {
	var buf bytes.Buffer
	if err := html.Render(&buf, d.root); err != nil {
		return ""
	}
	return buf.String()
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace != "" || a.Key != key {
			kept = append(kept, a)
		}
	}
	n.Attr = kept
}

func descendants(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == tag {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

func optionValue(d *Document, opt *html.Node) string {
	if v, ok := attr(opt, "value"); ok {
		return v
	}
	return strings.TrimSpace(d.TextContent(opt))
}

// closest returns the nearest ancestor-or-self element with the given tag.
func closest(n *html.Node, tag string) *html.Node {
	for ; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && n.Data == tag {
			return n
		}
	}
	return nil
}
