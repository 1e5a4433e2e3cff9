package upump

import (
	"os"
	"sync"
	"sync/atomic"
	"time"

	pipeerr "github.com/alxayo/pipe/internal/errors"
)

// TimeWheel is a Manager backed entirely by the Go standard library:
// time.Timer/time.Ticker for timers, a low-rate poll goroutine for
// idlers, and a blocking-read goroutine per fd watch. Every fired
// callback is funneled through one channel and invoked serially on the
// loop goroutine (Run), giving the pipeline the same single-threaded
// cooperative scheduling model libupipe's own pump managers assume — a
// pump callback never runs concurrently with another pump's callback or
// with a stage's Input call.
type TimeWheel struct {
	events chan func()
	done   chan struct{}
	once   sync.Once
}

// NewTimeWheel creates a TimeWheel with the given event queue depth.
func NewTimeWheel(queueDepth int) *TimeWheel {
	return &TimeWheel{
		events: make(chan func(), queueDepth),
		done:   make(chan struct{}),
	}
}

// Run drives the loop until the Manager is closed or ctx-like done
// channel fires; callers typically run this inside a suture service
// (see Supervisor in supervisor.go).
func (tw *TimeWheel) Run() {
	for {
		select {
		case fn := <-tw.events:
			fn()
		case <-tw.done:
			return
		}
	}
}

// Close stops the loop goroutine. Idempotent.
func (tw *TimeWheel) Close() {
	tw.once.Do(func() { close(tw.done) })
}

func (tw *TimeWheel) post(cb Callback) {
	select {
	case tw.events <- cb:
	case <-tw.done:
	}
}

type timerPump struct {
	tw       *TimeWheel
	interval time.Duration
	cb       Callback
	timer    *time.Timer
	blocked  atomic.Bool
	mu       sync.Mutex
}

func (tw *TimeWheel) AllocTimer(interval time.Duration, cb Callback) (Pump, error) {
	if cb == nil {
		return nil, pipeerr.NewInvalidError("upump.alloc_timer", errNilCallback)
	}
	return &timerPump{tw: tw, interval: interval, cb: cb}, nil
}

func (p *timerPump) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timer = time.AfterFunc(p.interval, p.fire)
	return nil
}

func (p *timerPump) fire() {
	if !p.blocked.Load() {
		p.tw.post(p.cb)
	}
	p.mu.Lock()
	if p.timer != nil {
		p.timer.Reset(p.interval)
	}
	p.mu.Unlock()
}

func (p *timerPump) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.timer != nil {
		p.timer.Stop()
	}
	return nil
}

func (p *timerPump) Block()   { p.blocked.Store(true) }
func (p *timerPump) Unblock() { p.blocked.Store(false) }
func (p *timerPump) Free()    { _ = p.Stop() }

type idlerPump struct {
	tw      *TimeWheel
	cb      Callback
	stop    chan struct{}
	blocked atomic.Bool
	once    sync.Once
}

// idlePoll is the rate at which an idler pump re-checks for work when
// armed. It is not meant to model a true OS idle-notification (no
// platform-portable equivalent exists in the standard library); it gives
// idle-priority callbacks — e.g. the deal primitive's retry-grab attempt
// — a steady low-overhead heartbeat instead.
const idlePoll = 2 * time.Millisecond

func (tw *TimeWheel) AllocIdler(cb Callback) (Pump, error) {
	if cb == nil {
		return nil, pipeerr.NewInvalidError("upump.alloc_idler", errNilCallback)
	}
	return &idlerPump{tw: tw, cb: cb, stop: make(chan struct{})}, nil
}

func (p *idlerPump) Start() error {
	go func() {
		ticker := time.NewTicker(idlePoll)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if !p.blocked.Load() {
					p.tw.post(p.cb)
				}
			case <-p.stop:
				return
			case <-p.tw.done:
				return
			}
		}
	}()
	return nil
}

func (p *idlerPump) Stop() error {
	p.once.Do(func() { close(p.stop) })
	return nil
}
func (p *idlerPump) Block()   { p.blocked.Store(true) }
func (p *idlerPump) Unblock() { p.blocked.Store(false) }
func (p *idlerPump) Free()    { _ = p.Stop() }

// fdPump watches a raw file descriptor from a dedicated goroutine: read
// pumps issue blocking 1-byte Reads, write pumps issue zero-length
// Writes — the only wait primitives available without OS-specific
// poller bindings.
type fdPump struct {
	tw      *TimeWheel
	f       *os.File
	write   bool
	cb      Callback
	stop    chan struct{}
	blocked atomic.Bool
	once    sync.Once
}

func (tw *TimeWheel) AllocFDRead(fd uintptr, cb Callback) (Pump, error) {
	return tw.allocFD(fd, cb, false)
}

func (tw *TimeWheel) AllocFDWrite(fd uintptr, cb Callback) (Pump, error) {
	return tw.allocFD(fd, cb, true)
}

func (tw *TimeWheel) allocFD(fd uintptr, cb Callback, write bool) (Pump, error) {
	if cb == nil {
		return nil, pipeerr.NewInvalidError("upump.alloc_fd", errNilCallback)
	}
	return &fdPump{tw: tw, f: os.NewFile(fd, "upump-fd"), write: write, cb: cb, stop: make(chan struct{})}, nil
}

func (p *fdPump) Start() error {
	go func() {
		buf := make([]byte, 1)
		for {
			select {
			case <-p.stop:
				return
			case <-p.tw.done:
				return
			default:
			}
			var err error
			if p.write {
				_, err = p.f.Write(nil)
			} else {
				_, err = p.f.Read(buf)
			}
			if err != nil {
				return
			}
			if !p.blocked.Load() {
				p.tw.post(p.cb)
			}
		}
	}()
	return nil
}

func (p *fdPump) Stop() error {
	p.once.Do(func() { close(p.stop) })
	return nil
}
func (p *fdPump) Block()   { p.blocked.Store(true) }
func (p *fdPump) Unblock() { p.blocked.Store(false) }
func (p *fdPump) Free() {
	_ = p.Stop()
	_ = p.f.Close()
}
