package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/crimson-sun/timber/internal/doc"
	"github.com/crimson-sun/timber/internal/output"
)

const (
	defaultBufferSize   = 1024
	defaultDrainTimeout = 5 * time.Second
)

// Option configures an Async wrapper.
type Option func(*Async)

// WithBufferSize sets the channel buffer capacity. Default: 1024.
func WithBufferSize(n int) Option {
	return func(a *Async) { a.bufSize = n }
}

// WithOnError sets the callback invoked when the inner output's Write fails.
// Default: logs a warning via slog.
func WithOnError(f func(error)) Option {
	return func(a *Async) { a.errFunc = f }
}

// WithDropOnFull makes Write return immediately, dropping the document, when
// the buffer is full.
func WithDropOnFull() Option {
	return func(a *Async) { a.dropOnFull = true }
}

// WithDrainTimeout bounds how long Close waits for buffered documents. Default: 5s.
func WithDrainTimeout(d time.Duration) Option {
	return func(a *Async) { a.drainTimeout = d }
}

// Async decouples document production from delivery via a buffered channel.
// Documents are cloned on Write so the caller may keep mutating its copy.
// Errors from the inner output go to errFunc rather than the caller.
type Async struct {
	inner        output.Output
	ch           chan *doc.Doc
	done         chan struct{}
	errFunc      func(error)
	bufSize      int
	dropOnFull   bool
	drainTimeout time.Duration
	closeOnce    sync.Once
}

// New wraps inner and starts the drain goroutine.
func New(inner output.Output, opts ...Option) *Async {
	a := &Async{
		inner:        inner,
		bufSize:      defaultBufferSize,
		drainTimeout: defaultDrainTimeout,
		errFunc:      func(err error) { slog.Warn("async output write error", "error", err) },
	}
	for _, opt := range opts {
		opt(a)
	}
	a.ch = make(chan *doc.Doc, a.bufSize)
	a.done = make(chan struct{})
	go a.drain()
	return a
}

// Write enqueues a copy of d. By default it blocks while the buffer is full.
// With WithDropOnFull it returns nil immediately and the document is lost.
func (a *Async) Write(ctx context.Context, d *doc.Doc) error {
	c := d.Clone()
	if a.dropOnFull {
		select {
		case a.ch <- c:
		default:
			slog.Warn("async output buffer full, dropping document", "buffer", a.bufSize)
		}
		return nil
	}
	select {
	case a.ch <- c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close closes the channel, waits for the drain goroutine to finish
// (with a timeout), then closes the inner output.
func (a *Async) Close() error {
	var err error
	a.closeOnce.Do(func() {
		close(a.ch)
		select {
		case <-a.done:
		case <-time.After(a.drainTimeout):
			slog.Warn("async output drain timed out", "pending", len(a.ch))
		}
		err = a.inner.Close()
	})
	return err
}

func (a *Async) drain() {
	defer close(a.done)
	for d := range a.ch {
		if err := a.inner.Write(context.Background(), d); err != nil {
			a.errFunc(err)
		}
	}
}
