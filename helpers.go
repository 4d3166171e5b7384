package hxnav

import (
	"net/http"

	"github.com/a-h/templ"
)

// HeaderRequest is set on every fetch the engine issues. Its value says which
// behavior issued it.
const HeaderRequest = "Hxnav-Request"

// Values of HeaderRequest.
const (
	RequestBoost    = "boost"
	RequestInfinite = "infinite"
)

// Render writes a templ component to the HTTP response.
//
// Sets Content-Type to text/html and renders the component using the
// request's context:
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    hxnav.Render(w, r, page())
//	}
//
// Boosted navigations expect a complete document, so handlers normally render
// the same full page whether or not IsEnhanced reports true.
func Render(w http.ResponseWriter, r *http.Request, component templ.Component) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	MarkVary(w)
	return component.Render(r.Context(), w)
}

// IsEnhanced returns true if the request was issued by the engine rather
// than by a full browser navigation.
func IsEnhanced(r *http.Request) bool {
	return r.Header.Get(HeaderRequest) != ""
}

// IsBoosted returns true if the request is a boosted navigation.
//
// Responses to boosted requests replace the whole document, so they must
// still be complete pages; use this for logging or analytics.
func IsBoosted(r *http.Request) bool {
	return r.Header.Get(HeaderRequest) == RequestBoost
}

// IsInfinite returns true if the request fetches the next page of an
// infinite scroll.
//
// Only the children of the page's harvest container are used, so handlers
// may skip expensive layout chrome:
//
//	if hxnav.IsInfinite(r) {
//	    return hxnav.Harvest(rows)
//	}
func IsInfinite(r *http.Request) bool {
	return r.Header.Get(HeaderRequest) == RequestInfinite
}

// MarkVary adds HeaderRequest to the response's Vary header so caches keep
// enhanced and plain responses apart.
func MarkVary(w http.ResponseWriter) {
	h := w.Header()
	for _, v := range h.Values("Vary") {
		if v == HeaderRequest {
			return
		}
	}
	h.Add("Vary", HeaderRequest)
}
