package browser

import (
	"golang.org/x/net/html"
)

// Layout positions elements. The headless browser does no real rendering,
// so geometry comes from a model the caller can replace.
type Layout interface {
	// Top returns the offset of n from the top of the document.
	Top(root, n *html.Node) float64
	// Height returns the height of the whole document.
	Height(root *html.Node) float64
}

// RowLayout stacks every element of the body as a fixed-height row in
// document order.
type RowLayout struct {
	RowHeight float64
}

// Top returns n's row index times the row height. Nodes outside the
// document are placed at the end.
func (l RowLayout) Top(root, n *html.Node) float64 {
	row := 0
	found := false
	walkElements(bodyOf(root), func(el *html.Node) bool {
		if el == n {
			found = true
			return false
		}
		row++
		return true
	})
	if !found {
		return l.Height(root)
	}
	return float64(row) * l.RowHeight
}

// Height returns the number of rows times the row height.
func (l RowLayout) Height(root *html.Node) float64 {
	rows := 0
	walkElements(bodyOf(root), func(*html.Node) bool {
		rows++
		return true
	})
	return float64(rows) * l.RowHeight
}

func bodyOf(root *html.Node) *html.Node {
	var body *html.Node
	walkElements(root, func(el *html.Node) bool {
		if el.Data == "body" {
			body = el
			return false
		}
		return true
	})
	if body == nil {
		return root
	}
	return body
}

// walkElements visits the element descendants of n in document order until
// fn returns false.
func walkElements(n *html.Node, fn func(*html.Node) bool) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && !fn(c) {
			return false
		}
		if !walkElements(c, fn) {
			return false
		}
	}
	return true
}
