// Package hxnav binds progressive-enhancement behaviors to server-rendered
// HTML pages.
//
// Pages stay fully server-rendered. hxnav only attaches behavior to
// declarative markers in the markup and, for boosted navigation, swaps the
// whole document for a freshly fetched one. Everything degrades to plain
// links and forms when the engine is absent.
//
// # Markers
//
//	boost="true"                 on a link: fetch the target and swap the document
//	confirm="<selector>"         on a control: require repeated clicks, then submit
//	infinite-scroll="<url>"      on a sentinel: append the next page near the viewport
//	infinite-scroll-data         in a fetched page: the container whose children are appended
//	filename-default-to="<sel>"  on a file input: prefill an empty text input with the file name
//	submit-nearest-form="<evt>"  on a control: submit the enclosing form on evt
//
// The helpers in markers.go (Boost, Confirm, Sentinel, Harvest...) produce
// these attributes from templ templates.
//
// # The Port
//
// The engine never touches a browser directly. It is written against
// port.Window (lib/port): document queries, listeners, fetch, history,
// session storage, timers and scrolling. lib/browser implements the port as a
// headless browser; tests may substitute their own double.
//
//	sess := browser.New(browser.WithScript(hxnav.Script()))
//	err := sess.Open(ctx, "http://localhost:8080/")
//
// # Binding
//
// A Binder owns an ordered set of directives and a side table of the elements
// each one is already bound to. BindAll may be called any number of times,
// including from a directive's own side effects: an element never receives
// the same behavior twice. There is no mutation observer. Any code that
// inserts markup must call Engine.BindAll afterwards; boosted navigation and
// infinite scroll do so themselves.
//
// # History
//
// Before a boosted navigation departs, the current scroll offset is written
// into the departing history entry. Back and forward do not replay
// client-side state: the popstate handler moves the saved offset into a
// session storage slot and reloads the page, and the next Start scrolls to
// it and clears the slot.
//
// # Errors
//
// Markup problems found while binding (a confirm selector matching nothing,
// a sentinel without a URL) are logged and only that element is skipped.
// Failures after binding go to Engine.OnError: a submit-nearest-form control
// with no form around it, and infinite-scroll loads that fail or lack a
// harvest container. A failed boosted fetch falls back to a full navigation.
// Use IsConfigError and IsTransportError to tell them apart.
package hxnav
