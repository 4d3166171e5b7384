package demo

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// Flash levels for toast notifications.
const (
	FlashSuccess = "success"
	FlashError   = "error"
)

// Flash is a one-time notification shown after a redirect.
//
// Handlers redirect with a flash query parameter naming one of the known
// notices; the next page renders it as a toast:
//
//	return c.Redirect(http.StatusFound, "/?flash=deleted")
type Flash struct {
	Level   string
	Message string
}

// notices maps the flash query parameter to its message.
var notices = map[string]Flash{
	"uploaded": {Level: FlashSuccess, Message: "Video uploaded"},
	"saved":    {Level: FlashSuccess, Message: "Video saved"},
	"deleted":  {Level: FlashSuccess, Message: "Video deleted"},
	"missing":  {Level: FlashError, Message: "That video no longer exists"},
}

// flashFor returns the notice named key, if any.
func flashFor(key string) []Flash {
	if f, ok := notices[key]; ok {
		return []Flash{f}
	}
	return nil
}

// Toasts renders the toast container with flashes in it.
//
// The container is always rendered so that pages keep the same shape with
// and without a notice.
func Toasts(flashes []Flash) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<div id="toasts" class="toast-container">`)
		for _, f := range flashes {
			h.raw(`<div class="toast toast-`)
			h.text(f.Level)
			h.raw(`">`)
			h.text(f.Message)
			h.raw(`</div>`)
		}
		h.raw(`</div>`)
		return h.err
	})
}
