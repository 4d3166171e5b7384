package demo

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/a-h/templ"

	"github.com/pthm/hxnav"
)

// pageState is what every page needs besides its own content.
type pageState struct {
	Title    string
	Flashes  []Flash
	ReadOnly bool
	Token    string
}

// formState carries submitted values back into a form that failed
// validation.
type formState struct {
	Error       string
	Title       string
	Tags        string
	Description string
}

// searchState is the current search form selection.
type searchState struct {
	Text string
	Tags string
	Sort string
}

// htmlWriter writes markup and remembers the first error.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (h *htmlWriter) raw(s string) {
	if h.err == nil {
		_, h.err = io.WriteString(h.w, s)
	}
}

func (h *htmlWriter) rawf(format string, args ...any) {
	h.raw(fmt.Sprintf(format, args...))
}

func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

// attrs writes a in key order. true renders a bare attribute, false and nil
// are omitted.
func (h *htmlWriter) attrs(a templ.Attributes) {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch v := a[k].(type) {
		case bool:
			if v {
				h.raw(" " + k)
			}
		case nil:
		default:
			h.raw(" " + k + `="`)
			h.text(fmt.Sprint(v))
			h.raw(`"`)
		}
	}
}

func (h *htmlWriter) render(ctx context.Context, c templ.Component) {
	if h.err == nil && c != nil {
		h.err = c.Render(ctx, h.w)
	}
}

func component(fn func(ctx context.Context, h *htmlWriter)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		fn(ctx, h)
		return h.err
	})
}

func boostLink(h *htmlWriter, class, href, label string) {
	h.raw(`<a`)
	h.attrs(templ.Attributes{"class": class, "href": href})
	h.attrs(hxnav.Boost())
	h.raw(`>`)
	h.text(label)
	h.raw(`</a>`)
}

func xsrfField(h *htmlWriter, token string) {
	h.raw(`<input type="hidden" name="_xsrf" value="`)
	h.text(token)
	h.raw(`">`)
}

func layout(st pageState, body templ.Component) templ.Component {
	return component(func(ctx context.Context, h *htmlWriter) {
		h.raw(`<!DOCTYPE html><html><head><meta charset="utf-8"><title>`)
		h.text(st.Title)
		h.raw(` - hxnav</title><link rel="stylesheet" href="/static/site.css"></head><body>`)
		h.raw(`<nav class="top">`)
		boostLink(h, "home", "/", "Home")
		boostLink(h, "search", "/search", "Search")
		if !st.ReadOnly {
			boostLink(h, "upload", "/upload", "Upload")
		}
		h.raw(`</nav>`)
		h.render(ctx, Toasts(st.Flashes))
		h.raw(`<main>`)
		h.render(ctx, body)
		h.raw(`</main></body></html>`)
	})
}

// videoRows renders one row per video.
func videoRows(videos []Video) templ.Component {
	return component(func(ctx context.Context, h *htmlWriter) {
		for _, v := range videos {
			h.rawf(`<div class="video" id="video-%d">`, v.ID)
			boostLink(h, "video-link", fmt.Sprintf("/watch/%d", v.ID), v.Title)
			h.raw(`</div>`)
		}
	})
}

// videoList renders a page of videos as harvestable content. The sentinel
// for the following page sits inside the container so that it travels with
// the rows it follows.
func videoList(videos []Video, p Paging) templ.Component {
	return hxnav.Harvest(component(func(ctx context.Context, h *htmlWriter) {
		if len(videos) == 0 && p.Current == 1 {
			h.raw(`<p class="empty">No videos found.</p>`)
		}
		h.render(ctx, videoRows(videos))
		h.render(ctx, hxnav.Sentinel(p.Next()))
	}))
}

func pager(p Paging) templ.Component {
	return component(func(ctx context.Context, h *htmlWriter) {
		if p.Pages <= 1 {
			return
		}
		h.raw(`<nav class="pages">`)
		for _, l := range p.Links() {
			switch {
			case l.Disabled:
				h.raw(`<span class="page disabled">`)
				h.text(l.Label)
				h.raw(`</span>`)
			case l.Active:
				h.raw(`<span class="page active">`)
				h.text(l.Label)
				h.raw(`</span>`)
			default:
				boostLink(h, "page", l.URL, l.Label)
			}
		}
		h.raw(`</nav>`)
	})
}

func homePage(st pageState, videos []Video, p Paging) templ.Component {
	return layout(st, component(func(ctx context.Context, h *htmlWriter) {
		h.raw(`<section id="videos">`)
		h.render(ctx, videoList(videos, p))
		h.raw(`</section>`)
		h.render(ctx, pager(p))
	}))
}

func searchPage(st pageState, q searchState, videos []Video, p Paging) templ.Component {
	return layout(st, component(func(ctx context.Context, h *htmlWriter) {
		h.raw(`<form id="search" method="get" action="/search">`)
		h.raw(`<input type="search" id="text" name="text" value="`)
		h.text(q.Text)
		h.raw(`">`)
		if q.Tags != "" {
			h.raw(`<input type="hidden" name="tags" value="`)
			h.text(q.Tags)
			h.raw(`">`)
		}
		h.raw(`<select id="sort" name="sort"`)
		h.attrs(hxnav.NearestFormSubmit("change"))
		h.raw(`>`)
		for _, s := range Sorts {
			h.raw(`<option`)
			h.attrs(templ.Attributes{"value": s, "selected": s == q.Sort})
			h.raw(`>`)
			h.text(sortLabels[s])
			h.raw(`</option>`)
		}
		h.raw(`</select><button type="submit">Search</button></form>`)
		h.raw(`<section id="videos">`)
		h.render(ctx, videoList(videos, p))
		h.raw(`</section>`)
		h.render(ctx, pager(p))
	}))
}

func watchPage(st pageState, v Video) templ.Component {
	return layout(st, component(func(ctx context.Context, h *htmlWriter) {
		h.rawf(`<article id="watch" data-id="%d"><h1>`, v.ID)
		h.text(v.Title)
		h.raw(`</h1><p class="description">`)
		h.text(v.Description)
		h.raw(`</p><p class="file">`)
		h.text(v.OriginalFileName)
		h.raw(`</p><ul class="tags">`)
		for _, tag := range v.Tags {
			h.raw(`<li>`)
			boostLink(h, "tag", queryURL("/search", "tags", tag), tag)
			h.raw(`</li>`)
		}
		h.raw(`</ul>`)
		if !st.ReadOnly {
			boostLink(h, "edit", fmt.Sprintf("/edit/%d", v.ID), "Edit")
			h.rawf(`<form id="delete-form" method="post" action="/delete/%d">`, v.ID)
			xsrfField(h, st.Token)
			h.raw(`<button type="submit" id="delete"`)
			h.attrs(hxnav.Confirm("#delete-form"))
			h.raw(`>Delete</button></form>`)
		}
		h.raw(`</article>`)
	}))
}

// deletePage asks for confirmation when the engine is not running.
func deletePage(st pageState, v Video) templ.Component {
	return layout(st, component(func(ctx context.Context, h *htmlWriter) {
		h.raw(`<p class="question">Delete `)
		h.text(v.Title)
		h.raw(`?</p>`)
		h.rawf(`<form id="delete-form" method="post" action="/delete/%d">`, v.ID)
		xsrfField(h, st.Token)
		h.raw(`<button type="submit" id="delete">Delete</button>`)
		boostLink(h, "cancel", fmt.Sprintf("/watch/%d", v.ID), "Cancel")
		h.raw(`</form>`)
	}))
}

// videoForm renders the upload form, or the edit form when action is not
// /upload.
func videoForm(st pageState, action string, f formState) templ.Component {
	upload := action == "/upload"
	return layout(st, component(func(ctx context.Context, h *htmlWriter) {
		h.raw(`<form id="video-form" method="post" action="`)
		h.text(action)
		h.raw(`"`)
		if upload {
			h.raw(` enctype="multipart/form-data"`)
		}
		h.raw(`>`)
		if f.Error != "" {
			h.raw(`<p class="error">`)
			h.text(f.Error)
			h.raw(`</p>`)
		}
		xsrfField(h, st.Token)
		if upload {
			h.raw(`<input type="file" id="file" name="file" accept="video/*"`)
			h.attrs(hxnav.FilenameDefaultTo("#title"))
			h.raw(`>`)
		}
		h.raw(`<input type="text" id="title" name="title" placeholder="Title" value="`)
		h.text(f.Title)
		h.raw(`"><input type="text" id="tags" name="tags" placeholder="Tags" value="`)
		h.text(f.Tags)
		h.raw(`"><textarea id="description" name="description">`)
		h.text(f.Description)
		h.raw(`</textarea><button type="submit" id="save">`)
		if upload {
			h.raw(`Upload`)
		} else {
			h.raw(`Save`)
		}
		h.raw(`</button></form>`)
	}))
}

func errorPage(st pageState, status int, msg string) templ.Component {
	return layout(st, component(func(ctx context.Context, h *htmlWriter) {
		h.rawf(`<section class="error" data-status="%d"><h1>`, status)
		h.text(msg)
		h.raw(`</h1>`)
		boostLink(h, "home", "/", "Back to the catalogue")
		h.raw(`</section>`)
	}))
}

func joinTags(tags []string) string {
	return strings.Join(tags, ", ")
}
