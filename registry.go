package hxnav

import (
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/charmbracelet/log"
	"golang.org/x/net/html"

	"github.com/pthm/hxnav/lib/port"
)

// BindFunc attaches a directive's behavior to one element. A returned error
// means the element could not be bound and is skipped.
type BindFunc func(el *html.Node) error

// Directive is a declarative marker and the behavior it opts an element into.
type Directive struct {
	// Name identifies the directive in logs and in the bound table.
	Name string
	// Selector matches the elements carrying the marker.
	Selector string
	Bind     BindFunc
}

// Binder attaches directives to elements exactly once.
//
// Bound flags live in a side table keyed by node, never on the nodes
// themselves. A node is flagged before its BindFunc runs so a BindAll
// triggered from inside a BindFunc cannot bind it twice; the flag is
// dropped again if binding fails so a later pass can retry.
type Binder struct {
	log        *log.Logger
	directives []Directive
	bound      map[string]map[*html.Node]struct{}
}

// NewBinder creates an empty binder.
func NewBinder(logger *log.Logger) *Binder {
	if logger == nil {
		logger = log.Default()
	}
	return &Binder{
		log:   logger,
		bound: make(map[string]map[*html.Node]struct{}),
	}
}

// Register adds directives. Directives bind in registration order.
// Panics on a duplicate name, an empty name, a nil BindFunc or a selector
// that does not parse.
func (b *Binder) Register(directives ...Directive) {
	for _, d := range directives {
		if d.Name == "" {
			panic("hxnav: directive name is empty")
		}
		if d.Bind == nil {
			panic(fmt.Sprintf("hxnav: directive %q has no bind func", d.Name))
		}
		if _, exists := b.bound[d.Name]; exists {
			panic(fmt.Sprintf("hxnav: directive %q registered twice", d.Name))
		}
		if _, err := cascadia.ParseGroup(d.Selector); err != nil {
			panic(fmt.Sprintf("hxnav: directive %q selector %q: %v", d.Name, d.Selector, err))
		}
		b.directives = append(b.directives, d)
		b.bound[d.Name] = make(map[*html.Node]struct{})
	}
}

// Directives returns the registered directive names in binding order.
func (b *Binder) Directives() []string {
	names := make([]string, len(b.directives))
	for i, d := range b.directives {
		names[i] = d.Name
	}
	return names
}

// BindAll binds every directive to every matching, not yet bound descendant
// of root. It never fails: elements that cannot be bound are logged and
// skipped.
func (b *Binder) BindAll(doc port.Document, root *html.Node) {
	for _, d := range b.directives {
		nodes, err := doc.QuerySelectorAll(root, d.Selector)
		if err != nil {
			b.log.Warn("directive query failed", "directive", d.Name, "err", err)
			continue
		}
		set := b.bound[d.Name]
		for _, n := range nodes {
			if _, ok := set[n]; ok {
				continue
			}
			set[n] = struct{}{}
			if err := bindOne(d, n); err != nil {
				delete(set, n)
				b.log.Warn("skipping element", "directive", d.Name, "element", describe(n), "err", err)
			}
		}
	}
}

func bindOne(d Directive, n *html.Node) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("hxnav: directive %q panicked: %v", d.Name, v)
		}
	}()
	return d.Bind(n)
}

// Bound reports whether n is bound for the named directive.
func (b *Binder) Bound(name string, n *html.Node) bool {
	_, ok := b.bound[name][n]
	return ok
}

// Len returns the number of elements bound for the named directive.
func (b *Binder) Len(name string) int {
	return len(b.bound[name])
}

// Reset forgets every bound element. Call it when the document is
// rewritten: the old nodes and their listeners are gone.
func (b *Binder) Reset() {
	for name := range b.bound {
		b.bound[name] = make(map[*html.Node]struct{})
	}
}

// describe renders a short, log-friendly form of an element's start tag.
func describe(n *html.Node) string {
	if n == nil {
		return "<nil>"
	}
	if n.Type != html.ElementNode {
		return fmt.Sprintf("#node(%d)", n.Type)
	}
	var sb strings.Builder
	sb.WriteString("<")
	sb.WriteString(n.Data)
	for _, a := range n.Attr {
		sb.WriteString(" ")
		sb.WriteString(a.Key)
		if a.Val != "" {
			fmt.Fprintf(&sb, "=%q", a.Val)
		}
	}
	sb.WriteString(">")
	return sb.String()
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
