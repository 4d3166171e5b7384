// Package loop provides a single-threaded cooperative event loop.
//
// Tasks, timer callbacks and async completions all run on the goroutine that
// drives the loop (Run or RunUntilIdle), one at a time. Blocking work started
// with Await runs on its own goroutine and only its completion is posted back.
package loop

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Option configures a Loop.
type Option func(*Loop)

// WithClock sets the clock used for timers. Defaults to RealClock.
func WithClock(c Clock) Option {
	return func(l *Loop) {
		l.clock = c
	}
}

// WithPanicHandler recovers panics raised by tasks and hands them to fn,
// letting the loop continue. Without it a task panic propagates.
func WithPanicHandler(fn func(v any)) Option {
	return func(l *Loop) {
		l.onPanic = fn
	}
}

// Loop is a task queue drained by a single goroutine.
type Loop struct {
	clock   Clock
	onPanic func(v any)

	mu       sync.Mutex
	queue    []func()
	inflight int
	wake     chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a loop.
func New(opts ...Option) *Loop {
	ctx, cancel := context.WithCancel(context.Background())
	l := &Loop{
		clock:  RealClock{},
		wake:   make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Clock returns the loop's clock.
func (l *Loop) Clock() Clock {
	return l.clock
}

// Post queues fn. Safe to call from any goroutine.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	l.signal()
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Timer is a loop callback scheduled with AfterFunc.
type Timer struct {
	state atomic.Int32 // 0 pending, 1 fired, 2 stopped
	clock Stopper
}

// Stop cancels the timer. The callback never runs after Stop returns true,
// even if its task was already queued.
func (t *Timer) Stop() bool {
	if !t.state.CompareAndSwap(0, 2) {
		return false
	}
	t.clock.Stop()
	return true
}

// AfterFunc runs fn on the loop after d.
func (l *Loop) AfterFunc(d time.Duration, fn func()) *Timer {
	t := &Timer{}
	t.clock = l.clock.AfterFunc(d, func() {
		l.Post(func() {
			if t.state.CompareAndSwap(0, 1) {
				fn()
			}
		})
	})
	return t
}

// Await runs work on a new goroutine and posts done with its result to the
// loop. The work context is cancelled by Close.
func Await[T any](l *Loop, work func(ctx context.Context) (T, error), done func(T, error)) {
	l.mu.Lock()
	l.inflight++
	l.mu.Unlock()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		v, err := work(l.ctx)

		// Completion is queued in the same critical section that drops the
		// in-flight count so RunUntilIdle never sees a false idle.
		l.mu.Lock()
		l.inflight--
		l.queue = append(l.queue, func() { done(v, err) })
		l.mu.Unlock()
		l.signal()
	}()
}

func (l *Loop) next() (func(), int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, l.inflight
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, l.inflight
}

func (l *Loop) runTask(fn func()) {
	if l.onPanic != nil {
		defer func() {
			if v := recover(); v != nil {
				l.onPanic(v)
			}
		}()
	}
	fn()
}

// RunUntilIdle drains the queue until it is empty and no Await work is in
// flight. Pending timers do not keep the loop busy.
func (l *Loop) RunUntilIdle(ctx context.Context) error {
	for {
		fn, inflight := l.next()
		if fn != nil {
			l.runTask(fn)
			continue
		}
		if inflight == 0 {
			return nil
		}
		select {
		case <-l.wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Run drains the queue until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if fn, _ := l.next(); fn != nil {
			l.runTask(fn)
			continue
		}
		select {
		case <-l.wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Idle reports whether nothing is queued or in flight.
func (l *Loop) Idle() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue) == 0 && l.inflight == 0
}

// Close cancels in-flight work, waits for its goroutines to exit and drops
// anything still queued.
func (l *Loop) Close() {
	l.cancel()
	l.wg.Wait()
	l.mu.Lock()
	l.queue = nil
	l.mu.Unlock()
}
