package hxnav

import (
	"context"
	"html"
	"io"

	"github.com/a-h/templ"
)

// Boost returns the attributes that opt a link into boosted navigation.
//
//	<a href="/watch?v=1" { hxnav.Boost()... }>Watch</a>
func Boost() templ.Attributes {
	return templ.Attributes{"boost": "true"}
}

// Confirm returns the attributes that guard a control behind repeated clicks.
// target selects the form (or an element inside it) submitted once the
// confirmation completes.
//
//	<button { hxnav.Confirm("#delete-form")... }>Delete</button>
func Confirm(target string) templ.Attributes {
	return templ.Attributes{"confirm": target}
}

// FilenameDefaultTo returns the attributes for a file input that fills the
// text input matched by target with the chosen file name while it is empty.
func FilenameDefaultTo(target string) templ.Attributes {
	return templ.Attributes{"filename-default-to": target}
}

// NearestFormSubmit returns the attributes for a control outside the form's
// submit machinery that submits its enclosing form when event fires. An
// empty event means click.
//
//	<select name="sort" { hxnav.NearestFormSubmit("change")... }>
func NearestFormSubmit(event string) templ.Attributes {
	if event == "" {
		event = "click"
	}
	return templ.Attributes{"submit-nearest-form": event}
}

// InfiniteScroll returns the attributes that make an element a sentinel
// loading nextURL when it nears the viewport.
func InfiniteScroll(nextURL string) templ.Attributes {
	return templ.Attributes{"infinite-scroll": nextURL}
}

// Sentinel renders an empty sentinel element for nextURL. Render it after
// the last item of a page; nothing is rendered when nextURL is empty.
func Sentinel(nextURL string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if nextURL == "" {
			return nil
		}
		_, err := io.WriteString(w, `<div class="infinite-scroll-sentinel" infinite-scroll="`+html.EscapeString(nextURL)+`"></div>`)
		return err
	})
}

// Harvest wraps the items of a page in the container whose children an
// infinite scroll appends:
//
//	@hxnav.Harvest(rows(page))
func Harvest(children templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<div infinite-scroll-data>`); err != nil {
			return err
		}
		if children != nil {
			if err := children.Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</div>`)
		return err
	})
}
