package hxnav

import (
	"fmt"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/net/html"

	"github.com/pthm/hxnav/lib/port"
)

// Engine defaults.
const (
	DefaultRequiredClicks = 4
	DefaultConfirmTimeout = 2 * time.Second
	DefaultPrefetchMargin = 250
	DefaultFormDepth      = 10
	DefaultScrollKey      = "hxnav:scroll"
	DefaultSourcePath     = "/source.tar.gz"

	// MaxFormDepth caps the ancestor walk of SubmitNearestForm.
	MaxFormDepth = 64
)

// Directive names of the built-in behaviors.
const (
	DirectiveBoost             = "boost"
	DirectiveConfirm           = "confirm"
	DirectiveInfiniteScroll    = "infinite-scroll"
	DirectiveFilenameDefault   = "filename-default-to"
	DirectiveSubmitNearestForm = "submit-nearest-form"
)

// Config holds engine settings. Zero fields take their defaults.
type Config struct {
	RequiredClicks int           `toml:"required_clicks"`
	ConfirmTimeout time.Duration `toml:"confirm_timeout"`
	PrefetchMargin float64       `toml:"prefetch_margin"`
	FormDepth      int           `toml:"form_depth"`
	ScrollKey      string        `toml:"scroll_key"`

	Banner     bool   `toml:"banner"`
	Project    string `toml:"project"`
	SourcePath string `toml:"source_path"`
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		RequiredClicks: DefaultRequiredClicks,
		ConfirmTimeout: DefaultConfirmTimeout,
		PrefetchMargin: DefaultPrefetchMargin,
		FormDepth:      DefaultFormDepth,
		ScrollKey:      DefaultScrollKey,
		Banner:         true,
		Project:        "hxnav",
		SourcePath:     DefaultSourcePath,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.RequiredClicks <= 0 {
		c.RequiredClicks = d.RequiredClicks
	}
	if c.ConfirmTimeout <= 0 {
		c.ConfirmTimeout = d.ConfirmTimeout
	}
	if c.PrefetchMargin <= 0 {
		c.PrefetchMargin = d.PrefetchMargin
	}
	if c.FormDepth <= 0 {
		c.FormDepth = d.FormDepth
	}
	c.FormDepth = min(c.FormDepth, MaxFormDepth)
	if c.ScrollKey == "" {
		c.ScrollKey = d.ScrollKey
	}
	if c.Project == "" {
		c.Project = d.Project
	}
	if c.SourcePath == "" {
		c.SourcePath = d.SourcePath
	}
	return c
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	cfg        Config
	logger     *log.Logger
	onError    func(error)
	directives []func(*Engine) Directive
}

// WithConfig replaces the engine settings.
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.cfg = cfg
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithErrorHandler sets the handler for use-time failures.
func WithErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.onError = fn
	}
}

// WithDirective registers an extra directive after the built-in ones. The
// constructor receives the engine so the directive can use its window.
func WithDirective(fn func(e *Engine) Directive) Option {
	return func(o *options) {
		o.directives = append(o.directives, fn)
	}
}

// Engine binds hxnav behaviors to the document of one window.
//
// An Engine lives for one full page load: construct and Start it from the
// page's on-load script. Every method must be called on the window's event
// loop.
type Engine struct {
	win    port.Window
	cfg    Config
	log    *log.Logger
	binder *Binder

	// OnError receives failures that happen after binding: a missing form
	// for submit-nearest-form, failed infinite-scroll loads. Defaults to
	// logging at error level.
	OnError func(error)

	started  bool
	popState func()
}

// New creates an engine for win. Panics if a directive from WithDirective
// collides with a built-in one.
func New(win port.Window, opts ...Option) *Engine {
	o := options{cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.Default()
	}

	e := &Engine{
		win: win,
		cfg: o.cfg.withDefaults(),
		log: o.logger,
	}
	e.OnError = o.onError
	if e.OnError == nil {
		e.OnError = func(err error) {
			e.log.Error("hxnav error", "err", err)
		}
	}

	e.binder = NewBinder(e.log)
	e.binder.Register(
		Directive{Name: DirectiveBoost, Selector: `[boost="true"]`, Bind: e.bindBoost},
		Directive{Name: DirectiveConfirm, Selector: "[confirm]", Bind: e.bindConfirm},
		Directive{Name: DirectiveInfiniteScroll, Selector: "[infinite-scroll]", Bind: e.bindInfinite},
		Directive{Name: DirectiveFilenameDefault, Selector: "[filename-default-to]", Bind: e.bindFilenameDefault},
		Directive{Name: DirectiveSubmitNearestForm, Selector: "[submit-nearest-form]", Bind: e.bindSubmitNearestForm},
	)
	for _, fn := range o.directives {
		e.binder.Register(fn(e))
	}
	return e
}

// Script returns an on-load script that starts a fresh engine for every
// document load, for use with browser.WithScript.
func Script(opts ...Option) func(port.Window) {
	return func(win port.Window) {
		New(win, opts...).Start()
	}
}

// Config returns the effective settings.
func (e *Engine) Config() Config { return e.cfg }

// Window returns the window the engine is bound to.
func (e *Engine) Window() port.Window { return e.win }

// Binder returns the engine's directive binder.
func (e *Engine) Binder() *Binder { return e.binder }

// Start prints the banner, restores a scroll offset saved by a backward
// navigation and binds the document. Calling it twice is a no-op.
func (e *Engine) Start() {
	if e.started {
		e.log.Warn("engine already started")
		return
	}
	e.started = true
	if e.cfg.Banner {
		e.log.Info(Banner(e.cfg.Project, e.win.Location(), e.cfg.SourcePath))
	}
	e.restoreScroll()
	e.attach()
}

// BindAll binds every directive under root. It is the required step after
// any markup is inserted into the document.
func (e *Engine) BindAll(root *html.Node) {
	if root == nil {
		root = e.win.Document().Root()
	}
	e.binder.BindAll(e.win.Document(), root)
}

// attach registers window listeners and binds the current document from
// scratch.
func (e *Engine) attach() {
	if e.popState != nil {
		e.popState()
	}
	e.binder.Reset()
	e.popState = e.win.AddEventListener(port.EventPopState, e.onPopState)
	e.BindAll(e.win.Document().Root())
}

func (e *Engine) fail(err error) {
	if e.OnError != nil {
		e.OnError(err)
	}
}

func (e *Engine) resolve(raw string) (*url.URL, error) {
	ref, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: url %q: %v", ErrBadAttribute, raw, err)
	}
	return e.win.Location().ResolveReference(ref), nil
}

func (e *Engine) sameOrigin(u *url.URL) bool {
	loc := e.win.Location()
	if loc.Host == "" {
		return true
	}
	return u.Scheme == loc.Scheme && u.Host == loc.Host
}
