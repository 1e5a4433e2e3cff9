package upipe

import (
	"testing"

	"github.com/alxayo/pipe/internal/pipeline/udict"
	"github.com/alxayo/pipe/internal/pipeline/uref"
)

func TestRefCountedReleaseFiresAtZero(t *testing.T) {
	var rc RefCounted
	rc.InitRefCount()
	rc.Use() // count now 2

	fired := 0
	rc.Release(func() { fired++ })
	if fired != 0 {
		t.Fatalf("expected no teardown at count 1, fired=%d", fired)
	}
	rc.Release(func() { fired++ })
	if fired != 1 {
		t.Fatalf("expected teardown exactly once at count 0, fired=%d", fired)
	}
}

type fakeSub struct{ id string }

func (f *fakeSub) Signature() string { return "fake-sub" }

func TestSubPipeRegistryOwningBackReference(t *testing.T) {
	var parent RefCounted
	parent.InitRefCount()

	reg := &SubPipeRegistry{}
	sub := &fakeSub{id: "s1"}
	reg.Register(&parent, sub)

	if parent.Count() != 2 {
		t.Fatalf("expected parent refcount 2 after registering one subpipe, got %d", parent.Count())
	}
	if reg.Len() != 1 {
		t.Fatalf("expected 1 subpipe registered, got %d", reg.Len())
	}

	torn := false
	reg.Unregister(&parent, sub, func() { torn = true })
	if parent.Count() != 1 {
		t.Fatalf("expected parent refcount back to 1 after unregister, got %d", parent.Count())
	}
	if torn {
		t.Fatalf("parent should not tear down while its own initial reference remains")
	}
	if reg.Len() != 0 {
		t.Fatalf("expected 0 subpipes after unregister, got %d", reg.Len())
	}
}

func TestOutputWiringSendsFlowDefOnceThenData(t *testing.T) {
	var delivered []*uref.Ref
	var ow OutputWiring
	ow.SetOutput(func(rec *uref.Ref, pumpCtx any) { delivered = append(delivered, rec) })
	ow.SetFlowDef("block.mpegtspsi.")

	r1 := uref.New(udict.New())
	if err := ow.Emit(r1, nil); err != nil {
		t.Fatalf("emit 1: %v", err)
	}
	if len(delivered) != 2 {
		t.Fatalf("expected flow-def header + data record on first emit, got %d records", len(delivered))
	}
	def, ok := delivered[0].FlowDef()
	if !ok || def != "block.mpegtspsi." {
		t.Fatalf("expected first delivered record to carry the flow def, got %q ok=%v", def, ok)
	}
	if delivered[1] != r1 {
		t.Fatalf("expected second delivered record to be the data record")
	}

	r2 := uref.New(udict.New())
	if err := ow.Emit(r2, nil); err != nil {
		t.Fatalf("emit 2: %v", err)
	}
	if len(delivered) != 3 {
		t.Fatalf("expected no repeated flow-def header on second emit, got %d total records", len(delivered))
	}
}

func TestOutputWiringEmitWithoutOutputFails(t *testing.T) {
	var ow OutputWiring
	if err := ow.Emit(uref.New(udict.New()), nil); err == nil {
		t.Fatalf("expected error emitting with no output wired")
	}
}

func TestSinkHolderHoldDrain(t *testing.T) {
	var sh SinkHolder
	sh.Block()
	sh.Hold(uref.New(udict.New()))
	sh.Hold(uref.New(udict.New()))
	if sh.Len() != 2 {
		t.Fatalf("expected 2 held records, got %d", sh.Len())
	}

	drained := sh.Drain()
	if len(drained) != 2 || sh.Len() != 0 {
		t.Fatalf("expected Drain to empty the queue, remaining=%d", sh.Len())
	}
}
