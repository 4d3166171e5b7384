package demo

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/a-h/templ"
)

func renderString(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return buf.String()
}

func TestToastsEmpty(t *testing.T) {
	got := renderString(t, Toasts(nil))
	if got != `<div id="toasts" class="toast-container"></div>` {
		t.Errorf("Toasts(nil) = %q", got)
	}
}

func TestToastsEscapes(t *testing.T) {
	got := renderString(t, Toasts([]Flash{{Level: FlashError, Message: "<b>bad</b>"}}))

	if !strings.Contains(got, `class="toast toast-error"`) {
		t.Error("Missing toast-error class")
	}
	if strings.Contains(got, "<b>") {
		t.Error("message should be escaped")
	}
	if !strings.Contains(got, "&lt;b&gt;bad&lt;/b&gt;") {
		t.Errorf("escaped message missing: %q", got)
	}
}

func TestFlashFor(t *testing.T) {
	if got := flashFor("deleted"); len(got) != 1 || got[0].Message != "Video deleted" {
		t.Errorf("flashFor(deleted) = %v", got)
	}
	if got := flashFor("unknown"); got != nil {
		t.Errorf("flashFor(unknown) = %v, want nil", got)
	}
}

func TestAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := &htmlWriter{w: &buf}
	h.attrs(templ.Attributes{
		"value":    `a"b`,
		"selected": true,
		"hidden":   false,
		"nothing":  nil,
		"boost":    "true",
	})
	want := ` boost="true" selected value="a&#34;b"`
	if buf.String() != want {
		t.Errorf("attrs = %q, want %q", buf.String(), want)
	}
}

func TestWatchPageMarkers(t *testing.T) {
	v := Video{ID: 7, Title: "Clip", Tags: []string{"fun"}}
	got := renderString(t, watchPage(pageState{Title: v.Title, Token: "tok"}, v))

	for _, want := range []string{
		`<form id="delete-form" method="post" action="/delete/7">`,
		`confirm="#delete-form"`,
		`<input type="hidden" name="_xsrf" value="tok">`,
		`href="/search?tags=fun"`,
		`boost="true"`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("watch page missing %q", want)
		}
	}
}

func TestUploadFormMarkers(t *testing.T) {
	got := renderString(t, videoForm(pageState{}, "/upload", formState{Error: "oops"}))

	for _, want := range []string{
		`enctype="multipart/form-data"`,
		`filename-default-to="#title"`,
		`<p class="error">oops</p>`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("upload form missing %q", want)
		}
	}

	edit := renderString(t, videoForm(pageState{}, "/edit/1", formState{}))
	if strings.Contains(edit, "filename-default-to") || strings.Contains(edit, "multipart") {
		t.Error("edit form should not carry upload markers")
	}
}
