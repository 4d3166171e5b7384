package hxnav

import (
	"io"
	"net/http"
	"strings"
	"testing"
)

func TestTestSiteServesPages(t *testing.T) {
	site := NewTestSite(map[string]string{
		"/":         "home",
		"/list":     "list",
		"/list?p=2": "page two",
	})
	defer site.Close()
	site.Handle("/gone", http.StatusGone, "gone")

	tests := []struct {
		uri    string
		status int
		body   string
	}{
		{"/", 200, "home"},
		{"/list", 200, "list"},
		{"/list?p=2", 200, "page two"},
		{"/list?p=3", 200, "list"},
		{"/gone", 410, "gone"},
		{"/missing", 404, "404 page not found\n"},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			resp, err := http.Get(site.URL(tt.uri))
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)

			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if string(body) != tt.body {
				t.Errorf("body = %q, want %q", body, tt.body)
			}
		})
	}

	if got := site.Hits("/list?p=2"); got != 1 {
		t.Errorf("Hits() = %d, want 1", got)
	}
}

func TestTestSiteRecordsForms(t *testing.T) {
	site := NewTestSite(map[string]string{"/save": "ok"})
	defer site.Close()

	resp, err := http.Post(site.URL("/save"), "application/x-www-form-urlencoded", strings.NewReader("title=clip"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	reqs := site.Requests()
	if len(reqs) != 1 {
		t.Fatalf("got %d requests", len(reqs))
	}
	if reqs[0].Method != http.MethodPost || reqs[0].Form.Get("title") != "clip" {
		t.Errorf("request = %+v", reqs[0])
	}
}

func TestTestBrowserStartsEngine(t *testing.T) {
	site := NewTestSite(map[string]string{
		"/": `<html><body><a id="a" boost="true" href="/b">b</a></body></html>`,
	})
	defer site.Close()

	b := NewTestBrowser()
	defer b.Close()
	if err := b.Open(site.URL("/")); err != nil {
		t.Fatal(err)
	}

	if b.Loads != 1 || b.Engine == nil {
		t.Fatalf("Loads = %d, Engine = %v", b.Loads, b.Engine)
	}
	if !b.HTMLContains(`boost="true"`) {
		t.Error("document not loaded")
	}
	if b.Text("#a") != "b" {
		t.Errorf("Text() = %q", b.Text("#a"))
	}
	if b.Text("#nope") != "" {
		t.Error("Text() of a missing element should be empty")
	}
}

func TestTestBrowserOpenFails(t *testing.T) {
	site := NewTestSite(nil)
	defer site.Close()

	b := NewTestBrowser()
	defer b.Close()
	if err := b.Open(site.URL("/")); err == nil {
		t.Error("Open() of a 404 should fail")
	}
}
