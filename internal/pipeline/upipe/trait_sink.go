package upipe

import (
	"sync"

	"github.com/alxayo/pipe/internal/pipeline/ubuf"
	"github.com/alxayo/pipe/internal/pipeline/uref"
)

// SinkHolder is the fourth capability trait: the per-stage queue the
// glossary's "sink holder" names — records deferred until some
// precondition (a manager being attached, a deal being granted, a
// trick-play rate resuming) is met.
type SinkHolder struct {
	mu      sync.Mutex
	held    []*uref.Ref
	blocked bool
}

// Block marks the holder as blocked: subsequent Hold calls accumulate
// rather than being expected to drain immediately.
func (s *SinkHolder) Block() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocked = true
}

// Unblock clears the blocked flag and reports whether it had been set.
func (s *SinkHolder) Unblock() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	was := s.blocked
	s.blocked = false
	return was
}

// Blocked reports the current blocked state.
func (s *SinkHolder) Blocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blocked
}

// Hold appends rec to the internal queue.
func (s *SinkHolder) Hold(rec *uref.Ref) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.held = append(s.held, rec)
}

// Len reports the number of held records.
func (s *SinkHolder) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.held)
}

// PeekFront returns the oldest held record without removing it, for
// callers that need to inspect it (e.g. trick-play's check-start scan)
// before deciding whether to pop or keep waiting.
func (s *SinkHolder) PeekFront() (*uref.Ref, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.held) == 0 {
		return nil, false
	}
	return s.held[0], true
}

// PopFront removes and returns the oldest held record.
func (s *SinkHolder) PopFront() (*uref.Ref, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.held) == 0 {
		return nil, false
	}
	rec := s.held[0]
	s.held = s.held[1:]
	return rec, true
}

// Drain removes and returns every held record, clearing the queue. The
// caller is responsible for reprocessing them through normal Input.
func (s *SinkHolder) Drain() []*uref.Ref {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.held
	s.held = nil
	return out
}

// Flush discards every held record, releasing each one's buffer via
// mgr — used when a deal or a stage is aborted rather than drained.
func (s *SinkHolder) Flush(mgr *ubuf.Manager) {
	s.mu.Lock()
	held := s.held
	s.held = nil
	s.mu.Unlock()
	for _, rec := range held {
		rec.Free(mgr)
	}
}
