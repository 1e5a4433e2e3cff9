package trickplay

import (
	"testing"

	"github.com/alxayo/pipe/internal/pipeline/ubuf"
	"github.com/alxayo/pipe/internal/pipeline/udict"
	"github.com/alxayo/pipe/internal/pipeline/upipe"
	"github.com/alxayo/pipe/internal/pipeline/uprobe"
	"github.com/alxayo/pipe/internal/pipeline/uref"
)

// fakeClock is a settable uclock.Clock for deterministic check-start tests.
type fakeClock struct{ now uint64 }

func (c *fakeClock) Now() uint64 { return c.now }

type harness struct {
	t          *testing.T
	parentMgr  *ParentManager
	subMgr     *SubManager
	parent     upipe.Stage
	clock      *fakeClock
	picOut     []*uref.Ref
	soundOut   []*uref.Ref
	pic, sound upipe.Stage
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	bufMgr := ubuf.NewManager(ubuf.NewPoolAllocator(nil))
	clock := &fakeClock{now: 10000}
	probe := uprobe.NewProbe(nil)
	probe.Register(uprobe.NewBufferManagerInjector(bufMgr))
	probe.Register(uprobe.NewClockInjector(clock))

	h := &harness{t: t, parentMgr: NewParentManager(), subMgr: NewSubManager(), clock: clock}

	parent, err := h.parentMgr.Alloc(probe)
	if err != nil {
		t.Fatalf("parent alloc: %v", err)
	}
	h.parent = parent

	pic, err := h.subMgr.Alloc(probe, "pic.", parent.(*ParentStage))
	if err != nil {
		t.Fatalf("pic sub alloc: %v", err)
	}
	h.pic = pic
	if _, err := h.subMgr.Control(pic, upipe.Control{
		Kind: upipe.KindSetOutput,
		Ext:  upipe.InputFunc(func(rec *uref.Ref, _ any) { h.picOut = append(h.picOut, rec) }),
	}); err != nil {
		t.Fatalf("pic set output: %v", err)
	}

	sound, err := h.subMgr.Alloc(probe, "sound.", parent.(*ParentStage))
	if err != nil {
		t.Fatalf("sound sub alloc: %v", err)
	}
	h.sound = sound
	if _, err := h.subMgr.Control(sound, upipe.Control{
		Kind: upipe.KindSetOutput,
		Ext:  upipe.InputFunc(func(rec *uref.Ref, _ any) { h.soundOut = append(h.soundOut, rec) }),
	}); err != nil {
		t.Fatalf("sound set output: %v", err)
	}

	return h
}

func (h *harness) input(sub upipe.Stage, pts uint64) {
	h.t.Helper()
	d := udict.New()
	rec := uref.New(d)
	rec.Times.SetPTS(uref.ClockProg, pts)
	h.subMgr.Input(sub, rec, nil)
}

func (h *harness) setRate(rate udict.Rational) {
	h.t.Helper()
	args := &LocalArgs{Command: CmdSetRate, Rate: rate}
	if _, err := h.parentMgr.Control(h.parent, upipe.Control{Kind: upipe.KindLocal, Signature: ParentSignature, Ext: args}); err != nil {
		h.t.Fatalf("set rate: %v", err)
	}
}

// S4 — trick-play start alignment. ts_origin is anchored to the
// earliest of {picture pts, sound pts}; systime_offset is now()+0.1s in
// 27MHz ticks (the scenario's own arithmetic — now=10000,
// systime_offset=12700000 — does not add up for a 0.1s delay expressed
// in 27MHz ticks (2,700,000), so this test uses self-consistent values
// while preserving the scenario's shape: two tracks, picture earlier
// than sound, sound's sys offset greater than picture's by exactly its
// pts delta).
func TestS4StartAlignment(t *testing.T) {
	h := newHarness(t)

	h.input(h.pic, 1000)
	if len(h.picOut) != 0 {
		t.Fatalf("expected picture held pending check-start, got %d emitted", len(h.picOut))
	}

	h.input(h.sound, 1500)

	if len(h.picOut) != 1 {
		t.Fatalf("expected exactly 1 emitted picture record after check-start, got %d", len(h.picOut))
	}
	if len(h.soundOut) != 1 {
		t.Fatalf("expected exactly 1 emitted sound record after check-start, got %d", len(h.soundOut))
	}

	wantOffset := h.clock.now + ptsDelay
	picSys, ok := h.picOut[0].Times.PTS(uref.ClockSys)
	if !ok || picSys != wantOffset {
		t.Fatalf("expected picture sys=%d, got %d ok=%v", wantOffset, picSys, ok)
	}
	soundSys, ok := h.soundOut[0].Times.PTS(uref.ClockSys)
	if !ok || soundSys != wantOffset+500 {
		t.Fatalf("expected sound sys=%d, got %d ok=%v", wantOffset+500, soundSys, ok)
	}

	p := h.parent.(*ParentStage)
	if p.tsOrigin != 1000 {
		t.Fatalf("expected ts_origin=1000, got %d", p.tsOrigin)
	}
}

// S5 — trick-play half-rate. After S4, a set-rate resets the anchor;
// check-start only re-fires once every non-subpicture track has
// supplied a fresh record (the spec text discusses only the picture
// track, but the algorithm requires both before re-anchoring, which
// this test makes explicit).
func TestS5HalfRate(t *testing.T) {
	h := newHarness(t)
	h.input(h.pic, 1000)
	h.input(h.sound, 1500)
	h.picOut, h.soundOut = nil, nil // discard S4's output, focus on the rate change

	h.setRate(udict.Rational{Num: 1, Den: 2})

	h.input(h.pic, 2000)
	if len(h.picOut) != 0 {
		t.Fatalf("expected picture held until sound also reports in, got %d emitted", len(h.picOut))
	}

	h.input(h.sound, 2500)
	if len(h.picOut) != 1 || len(h.soundOut) != 1 {
		t.Fatalf("expected both tracks to emit exactly once after re-anchor, pic=%d sound=%d", len(h.picOut), len(h.soundOut))
	}

	rate, ok := h.picOut[0].Dict.GetClockRate()
	if !ok || rate.Num != 1 || rate.Den != 2 {
		t.Fatalf("expected rate 1/2 on emitted record, got %+v ok=%v", rate, ok)
	}

	p := h.parent.(*ParentStage)
	systimeOffset := p.systimeOffset
	picSys, _ := h.picOut[0].Times.PTS(uref.ClockSys)
	if picSys != systimeOffset {
		t.Fatalf("expected picture sys=%d (delta 0), got %d", systimeOffset, picSys)
	}

	h.input(h.pic, 3000)
	if len(h.picOut) != 2 {
		t.Fatalf("expected a second emitted picture record, got %d", len(h.picOut))
	}
	want := systimeOffset + 2000 // delta=1000, rate den/num=2/1 -> 1000*2=2000
	got, _ := h.picOut[1].Times.PTS(uref.ClockSys)
	if got != want {
		t.Fatalf("expected sys=%d for pts=3000 at half rate, got %d", want, got)
	}
}

// Testable property 5: monotonicity of sys timestamps on one sub-pipe
// across a run of increasing program timestamps at a fixed rate.
func TestProperty5SysMonotonicity(t *testing.T) {
	h := newHarness(t)
	h.input(h.pic, 1000)
	h.input(h.sound, 1000)
	h.picOut = nil

	progs := []uint64{1100, 1150, 1300, 1300, 1900}
	for _, pts := range progs {
		h.input(h.pic, pts)
	}
	if len(h.picOut) != len(progs) {
		t.Fatalf("expected %d emitted records, got %d", len(progs), len(h.picOut))
	}
	var prevSys uint64
	for i, rec := range h.picOut {
		sys, ok := rec.Times.PTS(uref.ClockSys)
		if !ok {
			t.Fatalf("record %d missing sys pts", i)
		}
		if i > 0 && sys < prevSys {
			t.Fatalf("record %d: sys=%d regressed behind previous %d", i, sys, prevSys)
		}
		prevSys = sys
	}
}

// Pause: a paused rate (num==0) holds records and never emits until
// resumed.
func TestPauseHoldsRecords(t *testing.T) {
	h := newHarness(t)
	h.input(h.pic, 1000)
	h.input(h.sound, 1000)
	h.picOut, h.soundOut = nil, nil

	h.setRate(udict.Rational{Num: 0, Den: 1})
	h.input(h.pic, 2000)
	if len(h.picOut) != 0 {
		t.Fatalf("expected no output while paused, got %d", len(h.picOut))
	}
	p := h.parent.(*ParentStage)
	if !p.paused() {
		t.Fatalf("expected parent to report paused")
	}
	pic := h.pic.(*SubStage)
	if pic.Len() != 1 {
		t.Fatalf("expected the paused record to be held, got %d held", pic.Len())
	}
}

// A non-dated record arriving during check-start is dropped with a
// warning rather than blocking the anchor forever.
func TestCheckStartDropsNonDatedLeadingRecord(t *testing.T) {
	h := newHarness(t)

	undated := uref.New(udict.New())
	h.subMgr.Input(h.pic, undated, nil)
	h.input(h.pic, 1000)
	h.input(h.sound, 1000)

	if len(h.picOut) != 1 {
		t.Fatalf("expected the dated record to be emitted once the undated one is dropped, got %d", len(h.picOut))
	}
	p := h.parent.(*ParentStage)
	if p.tsOrigin != 1000 {
		t.Fatalf("expected ts_origin=1000 (from the dated record), got %d", p.tsOrigin)
	}
}

// Boundary clamp: a record whose program timestamp precedes ts_origin
// (clock went backwards) clamps to ts_origin instead of going negative.
func TestBoundaryClampOnPastTimestamp(t *testing.T) {
	h := newHarness(t)
	h.input(h.pic, 1000)
	h.input(h.sound, 1000)
	h.picOut = nil

	h.input(h.pic, 500) // earlier than ts_origin=1000
	if len(h.picOut) != 1 {
		t.Fatalf("expected the out-of-order record to still be emitted, got %d", len(h.picOut))
	}
	sys, ok := h.picOut[0].Times.PTS(uref.ClockSys)
	if !ok {
		t.Fatalf("expected a sys pts to be set")
	}
	p := h.parent.(*ParentStage)
	if sys != p.systimeOffset {
		t.Fatalf("expected clamped sys==systime_offset (%d), got %d", p.systimeOffset, sys)
	}
}

// Subpicture tracks are excluded from the check-start scan: an undated
// subpicture record queued before the anchor forms must not block
// picture/sound alignment.
func TestSubpictureExcludedFromCheckStartScan(t *testing.T) {
	h := newHarness(t)
	probe := uprobe.NewProbe(nil)
	bufMgr := ubuf.NewManager(ubuf.NewPoolAllocator(nil))
	probe.Register(uprobe.NewBufferManagerInjector(bufMgr))
	probe.Register(uprobe.NewClockInjector(h.clock))

	sub, err := h.subMgr.Alloc(probe, "pic.sub.", h.parent.(*ParentStage))
	if err != nil {
		t.Fatalf("subpic alloc: %v", err)
	}
	subStage := sub.(*SubStage)
	if subStage.Kind() != TrackSubpicture {
		t.Fatalf("expected pic.sub. to classify as subpicture, got %v", subStage.Kind())
	}

	var subOut []*uref.Ref
	if _, err := h.subMgr.Control(sub, upipe.Control{
		Kind: upipe.KindSetOutput,
		Ext:  upipe.InputFunc(func(rec *uref.Ref, _ any) { subOut = append(subOut, rec) }),
	}); err != nil {
		t.Fatalf("subpic set output: %v", err)
	}

	// Queue a subpicture record with no timestamp at all before the
	// anchor forms: since subpicture tracks are skipped by the scan,
	// this must not prevent picture/sound from anchoring.
	h.subMgr.Input(sub, uref.New(udict.New()), nil)

	h.input(h.pic, 1000)
	h.input(h.sound, 1500)

	if len(h.picOut) != 1 || len(h.soundOut) != 1 {
		t.Fatalf("expected picture and sound to anchor despite the pending subpicture record, pic=%d sound=%d", len(h.picOut), len(h.soundOut))
	}
}
