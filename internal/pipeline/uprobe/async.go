package uprobe

import (
	"log/slog"
	"time"
)

// AsyncSideEffect wraps a Handler whose job is to observe an event (log
// it externally, fire a webhook, run a shell script) rather than to
// resolve it. It always returns Unhandled immediately so the chain keeps
// walking, and runs the wrapped handler's Handle in a bounded worker
// pool — the surviving idea from the teacher's executionPool, which ran
// every hook concurrently with a semaphore-bounded goroutine limit.
type AsyncSideEffect struct {
	inner   Handler
	workers chan struct{}
	logger  *slog.Logger
}

// NewAsyncSideEffect wraps inner with a worker pool capped at
// concurrency simultaneous executions.
func NewAsyncSideEffect(inner Handler, concurrency int, logger *slog.Logger) *AsyncSideEffect {
	if concurrency <= 0 {
		concurrency = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AsyncSideEffect{inner: inner, workers: make(chan struct{}, concurrency), logger: logger}
}

func (a *AsyncSideEffect) Name() string { return a.inner.Name() }

func (a *AsyncSideEffect) Handle(e Event) Result {
	run := func() {
		defer func() { <-a.workers }()

		start := time.Now()
		res := a.inner.Handle(e)
		elapsed := time.Since(start)

		if res.Status == StatusError {
			a.logger.Error("async side-effect probe failed", "handler", a.inner.Name(), "event", e.Kind.String(), "duration", elapsed, "error", res.Err)
		} else {
			a.logger.Debug("async side-effect probe ran", "handler", a.inner.Name(), "event", e.Kind.String(), "duration", elapsed)
		}
	}
	// Take a free worker slot before returning so Close waits for this
	// execution; when every slot is busy, wait for one in the background.
	select {
	case a.workers <- struct{}{}:
		go run()
	default:
		go func() {
			a.workers <- struct{}{}
			run()
		}()
	}
	return Unhandled()
}

// Close blocks until every in-flight execution has finished, by
// acquiring every worker slot in turn — the same drain-by-acquiring-all-
// slots technique the teacher's executionPool.close used.
func (a *AsyncSideEffect) Close() {
	for i := 0; i < cap(a.workers); i++ {
		a.workers <- struct{}{}
	}
}
