package uref

import (
	"testing"

	"github.com/alxayo/pipe/internal/pipeline/ubuf"
	"github.com/alxayo/pipe/internal/pipeline/udict"
)

func TestDuplicateSharesBufferCopiesDict(t *testing.T) {
	mgr := ubuf.NewManager(ubuf.NewPoolAllocator(nil))
	buf, err := mgr.AllocBlock(8)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}

	d := udict.New()
	d.SetFlowDef("block.mpegtspsi.")
	r := NewWithBuffer(d, buf)
	r.Times.SetPTS(ClockProg, 1000)
	r.SetRap(42)

	dup := r.Duplicate()

	// Dict mutation on the duplicate must not reach the original.
	dup.Dict.SetFlowDef("block.mpegtspsi.changed")
	orig, _ := r.FlowDef()
	if orig != "block.mpegtspsi." {
		t.Fatalf("original flow def mutated via duplicate: %s", orig)
	}

	// Buffer must be shared (same storage, COW semantics apply).
	if !r.Buf.Shared() || !dup.Buf.Shared() {
		t.Fatalf("expected duplicate to share the buffer's storage")
	}

	// Time coordinates and Rap must carry over by value.
	pts, ok := dup.Times.PTS(ClockProg)
	if !ok || pts != 1000 {
		t.Fatalf("expected duplicated pts 1000, got %d ok=%v", pts, ok)
	}
	rap, ok := dup.GetRap()
	if !ok || rap != 42 {
		t.Fatalf("expected duplicated rap 42, got %d ok=%v", rap, ok)
	}
}

func TestUnsetSentinel(t *testing.T) {
	ts := NewTimeSet()
	if _, ok := ts.PTS(ClockSys); ok {
		t.Fatalf("expected fresh TimeSet to have unset sys pts")
	}
	if _, ok := ts.DTSPTSDelay(); ok {
		t.Fatalf("expected fresh TimeSet to have unset dts-pts delay")
	}
}

func TestRebasePTSFromDTS(t *testing.T) {
	ts := NewTimeSet()
	ts.SetDTS(ClockOrig, 5000)
	ts.SetDTSPTSDelay(200)
	pts, ok := ts.RebasePTSFromDTS(ClockOrig)
	if !ok || pts != 5200 {
		t.Fatalf("expected rebased pts 5200, got %d ok=%v", pts, ok)
	}

	// An already-known PTS wins over rebasing.
	ts.SetPTS(ClockOrig, 9999)
	pts2, ok := ts.RebasePTSFromDTS(ClockOrig)
	if !ok || pts2 != 9999 {
		t.Fatalf("expected existing pts 9999 preserved, got %d ok=%v", pts2, ok)
	}
}

func TestFreeReleasesBufferReference(t *testing.T) {
	mgr := ubuf.NewManager(ubuf.NewPoolAllocator(nil))
	buf, err := mgr.AllocBlock(4)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	r := NewWithBuffer(udict.New(), buf)
	dup := r.Duplicate()

	r.Free(mgr)
	if r.Buf != nil {
		t.Fatalf("expected Free to clear the Ref's buffer field")
	}
	// The duplicate's buffer must still be usable (it held its own ref).
	if _, err := dup.Buf.ReadMap("", 0, 4); err != nil {
		t.Fatalf("expected duplicate's buffer to still be readable: %v", err)
	}
	_ = dup.Buf.Unmap("", false)
}
