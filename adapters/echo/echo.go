// Package hxnavecho provides Echo framework integration for hxnav pages.
//
// Mount the engine middleware onto an Echo instance or group:
//
//	e := echo.New()
//	hxnavecho.Mount(e, hxnavecho.WithSource(sources))
//
// Or mount on a group with its own middleware:
//
//	g := e.Group("/app", authMiddleware)
//	hxnavecho.MountGroup(g)
//
// Handlers render full pages with Render and may shorten responses to
// infinite scroll fetches:
//
//	if hxnavecho.IsInfinite(c) {
//	    return hxnavecho.Render(c, hxnav.Harvest(rows))
//	}
package hxnavecho

import (
	"io/fs"
	"net/http"
	"sync"

	"github.com/a-h/templ"
	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"

	"github.com/pthm/hxnav"
)

// Option configures the Mount and MountGroup functions.
type Option func(*options)

type options struct {
	logger     *log.Logger
	source     fs.FS
	sourcePath string
}

// WithLogger sets the logger that records engine requests at debug level.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithSource serves fsys as a gzipped tar archive at the source path, the
// URL the engine's startup banner points at.
func WithSource(fsys fs.FS) Option {
	return func(o *options) {
		o.source = fsys
	}
}

// WithSourcePath sets the URL path of the source archive.
// Defaults to hxnav.DefaultSourcePath.
func WithSourcePath(path string) Option {
	return func(o *options) {
		o.sourcePath = path
	}
}

func newOptions(opts []Option) *options {
	o := &options{sourcePath: hxnav.DefaultSourcePath}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = log.Default()
	}
	return o
}

// Mount installs the middleware on an Echo instance, and the source archive
// route when WithSource is given.
//
//	e := echo.New()
//	hxnavecho.Mount(e)
func Mount(e *echo.Echo, opts ...Option) {
	o := newOptions(opts)
	e.Use(middleware(o))
	if o.source != nil {
		e.GET(o.sourcePath, sourceHandler(o))
	}
}

// MountGroup installs the middleware on an Echo group. The group's own
// middleware runs first.
//
//	g := e.Group("/app", authMiddleware)
//	hxnavecho.MountGroup(g)
func MountGroup(g *echo.Group, opts ...Option) {
	o := newOptions(opts)
	g.Use(middleware(o))
	if o.source != nil {
		g.GET(o.sourcePath, sourceHandler(o))
	}
}

// Middleware returns the middleware Mount installs on its own.
func Middleware(opts ...Option) echo.MiddlewareFunc {
	return middleware(newOptions(opts))
}

func middleware(o *options) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			hxnav.MarkVary(c.Response())
			if kind := c.Request().Header.Get(hxnav.HeaderRequest); kind != "" {
				o.logger.Debug("engine request", "kind", kind, "method", c.Request().Method, "uri", c.Request().RequestURI)
			}
			return next(c)
		}
	}
}

func sourceHandler(o *options) echo.HandlerFunc {
	var (
		once    sync.Once
		archive []byte
		err     error
	)
	return func(c echo.Context) error {
		once.Do(func() {
			archive, err = SourceArchive(o.source)
			if err != nil {
				o.logger.Error("source archive failed", "err", err)
			}
		})
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "source archive unavailable")
		}
		return c.Blob(http.StatusOK, "application/gzip", archive)
	}
}

// Render writes a templ component to the Echo response.
//
//	func handler(c echo.Context) error {
//	    return hxnavecho.Render(c, myPage())
//	}
func Render(c echo.Context, component templ.Component) error {
	return RenderStatus(c, http.StatusOK, component)
}

// RenderStatus writes a templ component with the given status code.
func RenderStatus(c echo.Context, status int, component templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	hxnav.MarkVary(c.Response())
	c.Response().WriteHeader(status)
	return component.Render(c.Request().Context(), c.Response())
}

// IsEnhanced returns true if the request was issued by the engine.
func IsEnhanced(c echo.Context) bool {
	return hxnav.IsEnhanced(c.Request())
}

// IsBoosted returns true if the request is a boosted navigation.
func IsBoosted(c echo.Context) bool {
	return hxnav.IsBoosted(c.Request())
}

// IsInfinite returns true if the request fetches the next page of an
// infinite scroll.
func IsInfinite(c echo.Context) bool {
	return hxnav.IsInfinite(c.Request())
}
