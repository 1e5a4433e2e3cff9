package upipe

import (
	"sync"

	"github.com/alxayo/pipe/internal/pipeline/ubuf"
	"github.com/alxayo/pipe/internal/pipeline/upump"
	"github.com/alxayo/pipe/internal/pipeline/uref"
)

// DealRegistry holds one non-blocking mutex per named critical section
// that a stage wishing exclusive access to a foreign library's global
// lock grabs before calling into it. Stages across the whole pipeline
// share a
// DealRegistry so two independent stages wrapping the same foreign
// library serialize against each other correctly.
type DealRegistry struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewDealRegistry creates an empty registry.
func NewDealRegistry() *DealRegistry {
	return &DealRegistry{locks: make(map[string]*sync.Mutex)}
}

func (r *DealRegistry) lockFor(name string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[name]
	if !ok {
		l = &sync.Mutex{}
		r.locks[name] = l
	}
	return l
}

// TryAcquire attempts a non-blocking grab of the named section.
func (r *DealRegistry) TryAcquire(name string) bool { return r.lockFor(name).TryLock() }

// Release releases the named section, previously acquired via TryAcquire.
func (r *DealRegistry) Release(name string) { r.lockFor(name).Unlock() }

// Deal is the cross-stage mutual exclusion primitive, modeled on
// libupipe's upipe_helper_deal's grab/grant handshake: while an
// exclusive grab is pending, the owning stage
// blocks its SinkHolder (incoming records queue instead of flowing);
// once granted, the protected operation runs, the section is released,
// and every queued record replays through drain in order. An idler pump
// provides the "attempt, and if it fails, try again next tick" retry
// loop — the same "try once, reschedule on failure" shape as a
// reconnect-with-backoff loop, collapsed to a fixed idle-poll interval
// since a local mutex grab never needs real backoff.
type Deal struct {
	mu       sync.Mutex
	registry *DealRegistry
	name     string
	sink     *SinkHolder
	pump     upump.Pump
	aborted  bool
}

// NewDeal creates a Deal for the named critical section, backed by sink
// for queuing records while the grab is pending.
func NewDeal(registry *DealRegistry, name string, sink *SinkHolder) *Deal {
	return &Deal{registry: registry, name: name, sink: sink}
}

// Start blocks the sink holder and arms an idler pump on mgr that
// retries TryAcquire every tick; once acquired, onGranted runs inside
// the protected section, the section is released, and every record
// queued while blocked replays through drain — in order, as normal
// Input would have. Returns an error if the pump could not be allocated.
func (d *Deal) Start(mgr upump.Manager, onGranted func(), drain func(rec *uref.Ref)) error {
	d.sink.Block()
	p, err := mgr.AllocIdler(func() {
		d.mu.Lock()
		if d.aborted {
			d.mu.Unlock()
			return
		}
		d.mu.Unlock()

		if !d.registry.TryAcquire(d.name) {
			return
		}
		onGranted()
		d.registry.Release(d.name)

		d.mu.Lock()
		pump := d.pump
		d.mu.Unlock()
		if pump != nil {
			_ = pump.Stop()
			pump.Free()
		}
		d.sink.Unblock()
		for _, rec := range d.sink.Drain() {
			drain(rec)
		}
	})
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.pump = p
	d.mu.Unlock()
	return p.Start()
}

// Abort cancels a pending deal: the retry pump is stopped and freed and
// every record queued while blocked is flushed (freed), not replayed —
// the right behavior when e.g. a stage's pump manager is swapped out
// while a deal is still outstanding and the old retry pump can no
// longer be trusted to fire.
func (d *Deal) Abort(bufMgr *ubuf.Manager) {
	d.mu.Lock()
	d.aborted = true
	pump := d.pump
	d.mu.Unlock()
	if pump != nil {
		_ = pump.Stop()
		pump.Free()
	}
	d.sink.Unblock()
	d.sink.Flush(bufMgr)
}
