package uprobe

import (
	"log/slog"
	"sync"
)

// Probe is an ordered chain of handlers a stage throws events through.
// Unlike the teacher's HookManager (which fans an event out to every
// registered hook concurrently and discards the result), Throw walks
// handlers in registration order and stops at the first Handled or
// Error: a probe answering e.g. need-buffer-manager must prevent a
// later, more generic logging probe from being mistaken for having
// resolved it.
type Probe struct {
	mu       sync.RWMutex
	handlers []Handler
	logger   *slog.Logger
}

// NewProbe creates an empty chain. A nil logger falls back to slog.Default.
func NewProbe(logger *slog.Logger) *Probe {
	if logger == nil {
		logger = slog.Default()
	}
	return &Probe{logger: logger}
}

// Register appends h to the end of the chain.
func (p *Probe) Register(h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = append(p.handlers, h)
}

// Unregister removes the first handler named name, reporting whether one
// was found.
func (p *Probe) Unregister(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, h := range p.handlers {
		if h.Name() == name {
			p.handlers = append(p.handlers[:i], p.handlers[i+1:]...)
			return true
		}
	}
	return false
}

// Throw walks the chain in order, invoking each handler until one
// returns Handled or Error, and returns that Result. If every handler
// returns Unhandled, Throw itself returns Unhandled.
func (p *Probe) Throw(e Event) Result {
	p.mu.RLock()
	handlers := make([]Handler, len(p.handlers))
	copy(handlers, p.handlers)
	p.mu.RUnlock()

	for _, h := range handlers {
		res := h.Handle(e)
		if res.Status == StatusError {
			p.logger.Error("probe handler errored", "handler", h.Name(), "event", e.Kind.String(), "error", res.Err)
			return res
		}
		if res.Status == StatusHandled {
			p.logger.Debug("probe handler claimed event", "handler", h.Name(), "event", e.Kind.String())
			return res
		}
	}
	return Unhandled()
}
