package uprobe

import (
	"github.com/alxayo/pipe/internal/pipeline/ubuf"
	"github.com/alxayo/pipe/internal/pipeline/uclock"
	"github.com/alxayo/pipe/internal/pipeline/upump"
)

// The four capability interfaces below are deliberately narrow and
// declared here rather than imported from upipe: a stage satisfies one
// structurally simply by exposing the matching setter method, with no
// compile-time dependency from this package back to upipe.

type bufferManagerReceiver interface {
	SetBufferManager(*ubuf.Manager) error
}

type clockReceiver interface {
	SetClock(uclock.Clock) error
}

type pumpManagerReceiver interface {
	SetPumpManager(upump.Manager) error
}

type outputReceiver interface {
	SetOutput(flowDef string) error
}

// BufferManagerInjector answers a stage's KindNeedBufferManager event by
// handing it a shared *ubuf.Manager, then claims the event (Handled) so
// no later, more generic probe treats it as unresolved.
type BufferManagerInjector struct{ mgr *ubuf.Manager }

func NewBufferManagerInjector(mgr *ubuf.Manager) *BufferManagerInjector {
	return &BufferManagerInjector{mgr: mgr}
}

func (p *BufferManagerInjector) Name() string { return "buffer-manager-injector" }

func (p *BufferManagerInjector) Handle(e Event) Result {
	if e.Kind != KindNeedBufferManager {
		return Unhandled()
	}
	r, ok := e.Stage.(bufferManagerReceiver)
	if !ok {
		return Unhandled()
	}
	if err := r.SetBufferManager(p.mgr); err != nil {
		return ErrorResult(err)
	}
	return Handled()
}

// ClockInjector answers KindNeedClock.
type ClockInjector struct{ clock uclock.Clock }

func NewClockInjector(clock uclock.Clock) *ClockInjector { return &ClockInjector{clock: clock} }

func (p *ClockInjector) Name() string { return "clock-injector" }

func (p *ClockInjector) Handle(e Event) Result {
	if e.Kind != KindNeedClock {
		return Unhandled()
	}
	r, ok := e.Stage.(clockReceiver)
	if !ok {
		return Unhandled()
	}
	if err := r.SetClock(p.clock); err != nil {
		return ErrorResult(err)
	}
	return Handled()
}

// PumpManagerInjector answers KindNeedPumpMgr.
type PumpManagerInjector struct{ mgr upump.Manager }

func NewPumpManagerInjector(mgr upump.Manager) *PumpManagerInjector {
	return &PumpManagerInjector{mgr: mgr}
}

func (p *PumpManagerInjector) Name() string { return "pump-manager-injector" }

func (p *PumpManagerInjector) Handle(e Event) Result {
	if e.Kind != KindNeedPumpMgr {
		return Unhandled()
	}
	r, ok := e.Stage.(pumpManagerReceiver)
	if !ok {
		return Unhandled()
	}
	if err := r.SetPumpManager(p.mgr); err != nil {
		return ErrorResult(err)
	}
	return Handled()
}

// OutputAutoWire answers KindNeedOutput by asking the stage to set its
// own output to e.FlowDef — the glue a topology loader installs so a
// freshly-allocated stage whose output isn't explicitly wired picks up
// whatever downstream sink/stage the configuration names for that flow.
type OutputAutoWire struct {
	resolve func(flowDef string) (outputReceiver, bool)
}

// NewOutputAutoWire creates a probe that resolves a downstream stage
// from a flow definition string via resolve (typically a topology's flow
// routing table).
func NewOutputAutoWire(resolve func(flowDef string) (outputReceiver, bool)) *OutputAutoWire {
	return &OutputAutoWire{resolve: resolve}
}

func (p *OutputAutoWire) Name() string { return "output-auto-wire" }

func (p *OutputAutoWire) Handle(e Event) Result {
	if e.Kind != KindNeedOutput {
		return Unhandled()
	}
	target, ok := p.resolve(e.FlowDef)
	if !ok {
		return Unhandled()
	}
	if err := target.SetOutput(e.FlowDef); err != nil {
		return ErrorResult(err)
	}
	return Handled()
}
