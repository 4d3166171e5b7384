package demo

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// pageRange is the number of page links shown either side of the current
// page.
const pageRange = 3

// Paging describes where a listing page sits in the whole result.
type Paging struct {
	URL     func(page int) string
	Current int
	Pages   int
}

// PageLink is one entry of the pagination bar.
type PageLink struct {
	URL      string
	Label    string
	Active   bool
	Disabled bool
}

// Next returns the URL of the following page, or "" on the last page.
func (p Paging) Next() string {
	if p.Current+1 > p.Pages {
		return ""
	}
	return p.URL(p.Current + 1)
}

// Links returns the pagination bar: the pages within pageRange of the
// current one, the first and last pages, and gaps marked by a disabled "...".
func (p Paging) Links() []PageLink {
	start := max(p.Current-pageRange, 1)
	end := min(p.Current+pageRange, p.Pages)

	var links []PageLink
	if start > 1 {
		links = append(links, PageLink{Label: "1", URL: p.URL(1)})
	}
	if start > 2 {
		links = append(links, PageLink{Label: "...", Disabled: true})
	}
	for i := start; i <= end; i++ {
		links = append(links, PageLink{
			Label:  strconv.Itoa(i),
			URL:    p.URL(i),
			Active: i == p.Current,
		})
	}
	if end < p.Pages-1 {
		links = append(links, PageLink{Label: "...", Disabled: true})
	}
	if end < p.Pages {
		links = append(links, PageLink{Label: strconv.Itoa(p.Pages), URL: p.URL(p.Pages)})
	}
	return links
}

// pageCount returns the number of pages needed for total items.
func pageCount(total, perPage int) int {
	if total <= 0 {
		return 1
	}
	return (total + perPage - 1) / perPage
}

// parsePage reads the 1-based page query parameter.
func parsePage(raw string) (int, error) {
	if raw == "" {
		return 1, nil
	}
	p, err := strconv.Atoi(raw)
	if err != nil || p < 1 {
		return 0, fmt.Errorf("demo: bad page number %q", raw)
	}
	return p, nil
}

// queryURL appends the non-empty key/value pairs of kv to base, in order.
func queryURL(base string, kv ...string) string {
	var parts []string
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] == "" {
			continue
		}
		parts = append(parts, url.QueryEscape(kv[i])+"="+url.QueryEscape(kv[i+1]))
	}
	if len(parts) == 0 {
		return base
	}
	return base + "?" + strings.Join(parts, "&")
}
