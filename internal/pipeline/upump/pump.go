// Package upump adapts the pipeline to an external event loop: timers,
// idlers, and file-descriptor/path watches. All record flow, control
// dispatch, and probe handling is
// meant to execute on the single loop thread a Manager drives; stages
// never suspend mid-method, only between callback invocations.
package upump

import "time"

// Callback is invoked by the loop thread when a pump fires.
type Callback func()

// Pump is one armed event-loop handle: a timer, idler, or fd/path watch.
type Pump interface {
	// Start arms the pump so its callback will fire on the loop thread.
	Start() error
	// Stop disarms the pump without releasing its resources; Start may
	// be called again later.
	Stop() error
	// Block prevents the pump's callback from firing without disarming
	// the underlying OS resource.
	Block()
	// Unblock reverses Block.
	Unblock()
	// Free releases the pump permanently; it must not be used afterward.
	Free()
}

// Manager is the factory interface the framework consumes to obtain
// pumps. Implementations exist for any reactor; a
// implementation that cannot honor a given Alloc* call returns an
// UnhandledError rather than panicking, consistent with the "unhandled"
// error kind standard controls may return.
type Manager interface {
	AllocTimer(interval time.Duration, cb Callback) (Pump, error)
	AllocIdler(cb Callback) (Pump, error)
	AllocFDRead(fd uintptr, cb Callback) (Pump, error)
	AllocFDWrite(fd uintptr, cb Callback) (Pump, error)
}
