// Package goroutine runs background work, such as OTP dispatch, off the
// request path with a concurrency cap and panic recovery.
package goroutine

import (
	"context"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/shandysiswandi/phoneauth/internal/pkg/stacktrace"
	"go.uber.org/atomic"
)

// DefaultMaxGoroutine is multiplied by NumCPU when NewManager gets a
// non-positive limit.
const DefaultMaxGoroutine int = 100

// Manager runs tasks in goroutines, at most max at a time. Task errors are
// logged, not returned to the caller that scheduled them.
type Manager struct {
	wg      sync.WaitGroup
	sema    chan struct{}
	stateMu sync.RWMutex
	closed  bool

	failed  atomic.Int64
	dropped atomic.Int64
}

// NewManager creates a Manager allowing maxGoroutine concurrent tasks.
func NewManager(maxGoroutine int) *Manager {
	if maxGoroutine < 1 {
		maxGoroutine = runtime.NumCPU() * DefaultMaxGoroutine
	}

	return &Manager{sema: make(chan struct{}, maxGoroutine)}
}

// Go runs f in a new goroutine if a slot is free. When the manager is full or
// closed the task is dropped and a warning is logged.
func (g *Manager) Go(ctx context.Context, name string, f func(ctx context.Context) error) {
	if g == nil {
		return
	}

	g.stateMu.RLock()
	defer g.stateMu.RUnlock()

	if g.closed {
		g.dropped.Inc()
		slog.WarnContext(ctx, "goroutine manager is closed, task dropped", "task", name)
		return
	}

	select {
	case g.sema <- struct{}{}:
	default:
		g.dropped.Inc()
		slog.WarnContext(ctx, "goroutine limit reached, task dropped", "task", name)
		return
	}

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer func() { <-g.sema }()
		defer g.recover(ctx, name)

		if err := ctx.Err(); err != nil {
			slog.WarnContext(ctx, "task canceled before start", "task", name, "error", err)
			return
		}

		if err := f(ctx); err != nil {
			g.failed.Inc()
			slog.ErrorContext(ctx, "background task failed", "task", name, "error", err)
		}
	}()
}

func (g *Manager) recover(ctx context.Context, name string) {
	rvr := recover()
	if rvr == nil {
		return
	}

	g.failed.Inc()
	stack := debug.Stack()
	if paths := stacktrace.InternalPaths(stack); len(paths) > 0 {
		slog.ErrorContext(ctx, "panic in background task", "task", name, "panic", rvr, "stack", paths)
		return
	}
	slog.ErrorContext(ctx, "panic in background task", "task", name, "panic", rvr, "stack", string(stack))
}

// Failed returns how many tasks returned an error or panicked.
func (g *Manager) Failed() int64 { return g.failed.Load() }

// Dropped returns how many tasks were never started.
func (g *Manager) Dropped() int64 { return g.dropped.Load() }

// Wait stops accepting tasks and blocks until running ones finish.
func (g *Manager) Wait() error {
	if g == nil {
		return nil
	}

	g.stateMu.Lock()
	g.closed = true
	g.stateMu.Unlock()

	g.wg.Wait()
	return nil
}
