// Package demo is a small video catalogue that exercises every marker the
// engine understands: boosted links, a paged listing streamed by infinite
// scroll, a delete button guarded by confirmation, an upload form whose
// title defaults to the chosen file name and a sort select that submits
// its form.
package demo

import (
	"crypto/rand"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/net/xsrftoken"

	hxnavecho "github.com/pthm/hxnav/adapters/echo"
)

// ErrXSRFInvalid is returned when a form's XSRF token does not validate.
var ErrXSRFInvalid = errors.New("demo: xsrf token invalid")

//go:embed *.go static
var sources embed.FS

// Sources returns the files served as the source archive.
func Sources() fs.FS {
	return sources
}

// Option configures a Site.
type Option func(*Site)

// WithLogger sets the site logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Site) {
		s.log = l
	}
}

// WithStore replaces the seeded in-memory store.
func WithStore(store *Store) Option {
	return func(s *Site) {
		s.store = store
	}
}

// Site is the demo web application.
type Site struct {
	cfg   Config
	log   *log.Logger
	store *Store
	key   string
	echo  *echo.Echo
}

// New builds the site and its routes.
func New(cfg Config, opts ...Option) *Site {
	s := &Site{cfg: cfg.withDefaults()}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = log.Default()
	}
	if s.store == nil {
		s.store = NewStore()
		s.store.Seed(s.cfg.Videos)
	}

	s.key = s.cfg.XSRFKey
	if s.key == "" {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			panic(fmt.Sprintf("demo: failed to generate xsrf key: %v", err))
		}
		s.key = hex.EncodeToString(b)
		s.log.Warn("no xsrf key configured, using a random one")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.log.Debug("request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))
	hxnavecho.Mount(e, hxnavecho.WithLogger(s.log), hxnavecho.WithSource(sources))

	static, err := fs.Sub(sources, "static")
	if err != nil {
		panic(fmt.Sprintf("demo: static files: %v", err))
	}
	e.StaticFS("/static", static)

	e.GET("/", s.home)
	e.GET("/search", s.search)
	e.GET("/watch/:id", s.watch)
	if !s.cfg.ReadOnly {
		e.GET("/upload", s.uploadForm)
		e.POST("/upload", s.upload)
		e.GET("/edit/:id", s.editForm)
		e.POST("/edit/:id", s.edit)
		e.GET("/delete/:id", s.deleteForm)
		e.POST("/delete/:id", s.delete)
	}
	s.echo = e
	return s
}

// Handler returns the site's HTTP handler.
func (s *Site) Handler() http.Handler { return s.echo }

// Echo returns the underlying Echo instance.
func (s *Site) Echo() *echo.Echo { return s.echo }

// Store returns the video store.
func (s *Site) Store() *Store { return s.store }

// Config returns the effective settings.
func (s *Site) Config() Config { return s.cfg }

func (s *Site) state(c echo.Context, title string) pageState {
	return pageState{
		Title:    title,
		Flashes:  flashFor(c.QueryParam("flash")),
		ReadOnly: s.cfg.ReadOnly,
		Token:    xsrftoken.Generate(s.key, "0", "0"),
	}
}

func (s *Site) validateXSRF(token string) error {
	if xsrftoken.Valid(token, s.key, "0", "0") {
		return nil
	}
	return ErrXSRFInvalid
}

// handleError renders failures as pages instead of Echo's JSON bodies.
func (s *Site) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	msg := "Something went wrong"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		msg = fmt.Sprint(he.Message)
	}
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "uri", c.Request().RequestURI, "err", err)
	}
	if rerr := hxnavecho.RenderStatus(c, status, errorPage(s.state(c, "Error"), status, msg)); rerr != nil {
		s.log.Error("error page failed", "err", rerr)
	}
}

// listing loads one page of videos and renders it: the whole page for
// navigations, only the harvestable rows for infinite scroll fetches.
func (s *Site) listing(c echo.Context, f Filter, pageURL func(int) string, page func(Paging, []Video) templ.Component) error {
	current, err := parsePage(c.QueryParam("page"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Bad page number")
	}

	size := s.cfg.PageSize
	videos, total, err := s.store.List(f, size, (current-1)*size)
	if err != nil {
		return err
	}
	p := Paging{URL: pageURL, Current: current, Pages: pageCount(total, size)}

	if hxnavecho.IsInfinite(c) {
		return hxnavecho.Render(c, videoList(videos, p))
	}
	return hxnavecho.Render(c, page(p, videos))
}

func (s *Site) home(c echo.Context) error {
	return s.listing(c, Filter{Sort: SortNewest},
		func(p int) string { return queryURL("/", "page", strconv.Itoa(p)) },
		func(p Paging, videos []Video) templ.Component {
			return homePage(s.state(c, "Home"), videos, p)
		})
}

func (s *Site) search(c echo.Context) error {
	q := searchState{
		Text: c.QueryParam("text"),
		Tags: c.QueryParam("tags"),
		Sort: c.QueryParam("sort"),
	}
	if _, ok := sortLabels[q.Sort]; !ok {
		q.Sort = SortNewest
	}
	f := Filter{Text: q.Text, Tags: splitTags(q.Tags), Sort: q.Sort}

	return s.listing(c, f,
		func(p int) string {
			return queryURL("/search", "sort", q.Sort, "tags", q.Tags, "text", q.Text, "page", strconv.Itoa(p))
		},
		func(p Paging, videos []Video) templ.Component {
			return searchPage(s.state(c, "Search"), q, videos, p)
		})
}

func (s *Site) video(c echo.Context) (Video, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 0)
	if err != nil {
		return Video{}, echo.NewHTTPError(http.StatusBadRequest, "Bad video id")
	}
	v, err := s.store.Get(uint(id))
	if errors.Is(err, ErrVideoNotFound) {
		return Video{}, echo.NewHTTPError(http.StatusNotFound, "Video not found")
	}
	return v, err
}

func (s *Site) watch(c echo.Context) error {
	v, err := s.video(c)
	if err != nil {
		return err
	}
	return hxnavecho.Render(c, watchPage(s.state(c, v.Title), v))
}

func (s *Site) uploadForm(c echo.Context) error {
	return hxnavecho.Render(c, videoForm(s.state(c, "Upload"), "/upload", formState{}))
}

func (s *Site) upload(c echo.Context) error {
	f := formState{
		Title:       strings.TrimSpace(c.FormValue("title")),
		Tags:        c.FormValue("tags"),
		Description: c.FormValue("description"),
	}
	retry := func(status int, msg string) error {
		f.Error = msg
		return hxnavecho.RenderStatus(c, status, videoForm(s.state(c, "Upload"), "/upload", f))
	}

	if err := s.validateXSRF(c.FormValue("_xsrf")); err != nil {
		return retry(http.StatusUnprocessableEntity, "XSRF token expired")
	}
	file, err := c.FormFile("file")
	if err != nil {
		return retry(http.StatusBadRequest, "Choose a video file to upload")
	}
	if f.Title == "" {
		f.Title = file.Filename
	}

	v := s.store.Add(Video{
		Title:            f.Title,
		Description:      f.Description,
		OriginalFileName: file.Filename,
		Tags:             splitTags(f.Tags),
	})
	s.log.Info("video uploaded", "id", v.ID, "file", v.OriginalFileName)
	return c.Redirect(http.StatusFound, fmt.Sprintf("/watch/%d?flash=uploaded", v.ID))
}

func (s *Site) editForm(c echo.Context) error {
	v, err := s.video(c)
	if err != nil {
		return err
	}
	f := formState{Title: v.Title, Tags: joinTags(v.Tags), Description: v.Description}
	return hxnavecho.Render(c, videoForm(s.state(c, "Edit "+v.Title), fmt.Sprintf("/edit/%d", v.ID), f))
}

func (s *Site) edit(c echo.Context) error {
	v, err := s.video(c)
	if err != nil {
		return err
	}
	f := formState{
		Title:       strings.TrimSpace(c.FormValue("title")),
		Tags:        c.FormValue("tags"),
		Description: c.FormValue("description"),
	}
	action := fmt.Sprintf("/edit/%d", v.ID)

	if err := s.validateXSRF(c.FormValue("_xsrf")); err != nil {
		f.Error = "XSRF token expired"
		return hxnavecho.RenderStatus(c, http.StatusUnprocessableEntity, videoForm(s.state(c, "Edit "+v.Title), action, f))
	}
	if f.Title == "" {
		f.Error = "Title is required"
		return hxnavecho.RenderStatus(c, http.StatusBadRequest, videoForm(s.state(c, "Edit "+v.Title), action, f))
	}

	if _, err := s.store.Update(v.ID, f.Title, f.Description, splitTags(f.Tags)); err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, fmt.Sprintf("/watch/%d?flash=saved", v.ID))
}

func (s *Site) deleteForm(c echo.Context) error {
	v, err := s.video(c)
	if err != nil {
		return err
	}
	return hxnavecho.Render(c, deletePage(s.state(c, "Delete "+v.Title), v))
}

func (s *Site) delete(c echo.Context) error {
	v, err := s.video(c)
	if err != nil {
		if he, ok := err.(*echo.HTTPError); ok && he.Code == http.StatusNotFound {
			return c.Redirect(http.StatusFound, "/?flash=missing")
		}
		return err
	}
	if err := s.validateXSRF(c.FormValue("_xsrf")); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "XSRF token expired")
	}
	if err := s.store.Delete(v.ID); err != nil {
		return err
	}
	s.log.Info("video deleted", "id", v.ID)
	return c.Redirect(http.StatusFound, "/?flash=deleted")
}
