package pdfrenderer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// LoadFunc initializes a rendering backend
type LoadFunc func(ctx context.Context) (Backend, error)

// Loader lazily initializes a Backend at most once. Every caller that arrives
// while initialization is in flight waits for the same result, later callers
// get the resolved backend straight away. A failed initialization is kept as
// well; there is no retry.
type Loader struct {
	load LoadFunc

	once    sync.Once
	done    chan struct{}
	backend Backend
	err     error

	loads atomic.Int32
}

// NewLoader wraps load so that it runs at most once
func NewLoader(load LoadFunc) *Loader {
	return &Loader{
		load: load,
		done: make(chan struct{}),
	}
}

// NewRendererLoader returns a Loader for the named backend
func NewRendererLoader(name string, workers int) *Loader {
	return NewLoader(func(ctx context.Context) (Backend, error) {
		return NewRenderer(name, workers)
	})
}

// Get returns the backend, starting initialization on first use. ctx only
// bounds how long this caller waits; the shared initialization keeps running
// for the other callers.
func (l *Loader) Get(ctx context.Context) (Backend, error) {
	l.once.Do(func() {
		go l.run(context.WithoutCancel(ctx))
	})

	select {
	case <-l.done:
		return l.backend, l.err
	default:
	}

	select {
	case <-l.done:
		return l.backend, l.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *Loader) run(ctx context.Context) {
	defer close(l.done)
	defer func() {
		if r := recover(); r != nil {
			l.backend = nil
			l.err = fmt.Errorf("backend initialization panicked: %s", describe(r))
		}
	}()

	l.loads.Add(1)
	logger().Info("Loading PDF rendering backend")
	backend, err := l.load(ctx)
	if err != nil {
		l.err = fmt.Errorf("failed to load PDF backend: %w", err)
		logger().Error("PDF rendering backend failed to load", "error", err)
		return
	}
	if backend == nil {
		l.err = fmt.Errorf("failed to load PDF backend: loader returned no backend")
		return
	}
	l.backend = backend
	logger().Info("PDF rendering backend ready", "backend", backend.Name())
}

// Loaded reports whether initialization has finished, successfully or not
func (l *Loader) Loaded() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

// Loads returns how many times initialization actually ran (0 or 1)
func (l *Loader) Loads() int {
	return int(l.loads.Load())
}

// Close shuts the backend down if it was loaded. It does not wait for an
// in-flight initialization.
func (l *Loader) Close() error {
	if !l.Loaded() || l.backend == nil {
		return nil
	}
	return l.backend.Close()
}
