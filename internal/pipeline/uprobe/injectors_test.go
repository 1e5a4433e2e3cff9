package uprobe

import (
	"testing"

	"github.com/alxayo/pipe/internal/pipeline/ubuf"
)

type fakeStage struct {
	mgr *ubuf.Manager
}

func (s *fakeStage) SetBufferManager(mgr *ubuf.Manager) error {
	s.mgr = mgr
	return nil
}

func TestBufferManagerInjectorClaimsMatchingEvent(t *testing.T) {
	mgr := ubuf.NewManager(ubuf.NewPoolAllocator(nil))
	stage := &fakeStage{}
	p := NewProbe(nil)
	p.Register(NewBufferManagerInjector(mgr))

	res := p.Throw(Event{Kind: KindNeedBufferManager, Stage: stage})
	if res.Status != StatusHandled {
		t.Fatalf("expected injector to claim need-buffer-manager event, got %v", res.Status)
	}
	if stage.mgr != mgr {
		t.Fatalf("expected stage to receive the injected buffer manager")
	}
}

func TestBufferManagerInjectorIgnoresOtherKinds(t *testing.T) {
	mgr := ubuf.NewManager(ubuf.NewPoolAllocator(nil))
	p := NewProbe(nil)
	p.Register(NewBufferManagerInjector(mgr))

	res := p.Throw(Event{Kind: KindReady})
	if res.Status != StatusUnhandled {
		t.Fatalf("expected injector to ignore unrelated event kind, got %v", res.Status)
	}
}

func TestOutputAutoWireResolvesByFlowDef(t *testing.T) {
	var wired string
	sink := &fakeOutputReceiver{}
	p := NewProbe(nil)
	p.Register(NewOutputAutoWire(func(flowDef string) (outputReceiver, bool) {
		wired = flowDef
		return sink, true
	}))

	res := p.Throw(Event{Kind: KindNeedOutput, FlowDef: "block.mpegtspsi."})
	if res.Status != StatusHandled {
		t.Fatalf("expected auto-wire to claim event, got %v", res.Status)
	}
	if wired != "block.mpegtspsi." || sink.flowDef != "block.mpegtspsi." {
		t.Fatalf("expected sink to be wired with flow def, got wired=%q sink=%q", wired, sink.flowDef)
	}
}

type fakeOutputReceiver struct{ flowDef string }

func (s *fakeOutputReceiver) SetOutput(flowDef string) error {
	s.flowDef = flowDef
	return nil
}
