// Package trickplay implements the trick-play timestamp remapper: a
// parent stage holding shared playback state (rate, ts_origin,
// systime_offset) plus one sub-stage per media track, converting
// program-timeline timestamps to system-timeline timestamps scaled by a
// rational playback rate.
package trickplay

import (
	"sync"

	pipeerr "github.com/alxayo/pipe/internal/errors"
	"github.com/alxayo/pipe/internal/pipeline/ubuf"
	"github.com/alxayo/pipe/internal/pipeline/uclock"
	"github.com/alxayo/pipe/internal/pipeline/udict"
	"github.com/alxayo/pipe/internal/pipeline/upipe"
	"github.com/alxayo/pipe/internal/pipeline/uprobe"
	"github.com/alxayo/pipe/internal/pipeline/uref"
)

// ParentSignature identifies stages ParentManager allocates, gating
// KindLocal control commands (get/set rate) to this manager kind.
const ParentSignature = "TRKP"

// ptsDelay is the minimum lead time before presenting a flow after
// check-start anchors the timeline: 0.1s in 27MHz ticks.
const ptsDelay = uclock.Freq / 10

// LocalCommand identifies a trick-play-specific control command carried
// in a upipe.Control with Kind==upipe.KindLocal and
// Signature==ParentSignature (spec's "control commands above a per-manager
// sentinel carry that signature").
type LocalCommand uint8

const (
	CmdGetRate LocalCommand = iota
	CmdSetRate
)

// LocalArgs is the Ext payload for ParentManager's local commands. Pass
// a pointer so CmdGetRate can write its result back into Rate.
type LocalArgs struct {
	Command LocalCommand
	Rate    udict.Rational
}

// ParentStage holds state shared by every sub-pipe: the current playing
// rate and the anchor (ts_origin, systime_offset) computed by
// check-start. It carries no input of its own — data flows through its
// sub-pipes — but holds a buffer manager purely to free a record
// defensively if one is ever mis-wired directly into the parent.
type ParentStage struct {
	upipe.RefCounted
	upipe.Identity

	probe  *uprobe.Probe
	bufMgr *ubuf.Manager

	mu            sync.Mutex
	clock         uclock.Clock
	rate          udict.Rational
	tsOrigin      uint64
	systimeOffset uint64
	subs          upipe.SubPipeRegistry
}

func (p *ParentStage) Signature() string { return ParentSignature }

// SetBufferManager satisfies uprobe's bufferManagerReceiver.
func (p *ParentStage) SetBufferManager(mgr *ubuf.Manager) error {
	p.mu.Lock()
	p.bufMgr = mgr
	p.mu.Unlock()
	return nil
}

// SetClock satisfies uprobe's clockReceiver, answering a KindNeedClock
// event thrown by a sub-pipe (the parent, not the sub, owns the clock:
// every track anchors against the same timeline).
func (p *ParentStage) SetClock(c uclock.Clock) error {
	p.mu.Lock()
	p.clock = c
	p.mu.Unlock()
	return nil
}

func (p *ParentStage) snapshotClock() uclock.Clock {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clock
}

// paused reports rate.num==0 or rate.den==0 (spec's pause predicate).
func (p *ParentStage) paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rate.Num == 0 || p.rate.Den == 0
}

// started reports whether check-start has already anchored the timeline.
func (p *ParentStage) started() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.systimeOffset != 0
}

func (p *ParentStage) snapshotTimeline() (rate udict.Rational, tsOrigin, systimeOffset uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rate, p.tsOrigin, p.systimeOffset
}

func (p *ParentStage) resetUclock() {
	p.mu.Lock()
	p.tsOrigin = 0
	p.systimeOffset = 0
	p.mu.Unlock()
}

// recordTimestamp prefers dts over pts, matching
// upipe_trickp_check_start's "uref_clock_get_dts(...) || uref_clock_get_pts(...)" order.
func recordTimestamp(rec *uref.Ref) (uint64, bool) {
	if dts, ok := rec.Times.DTS(uref.ClockProg); ok {
		return dts, true
	}
	return rec.Times.PTS(uref.ClockProg)
}

// checkStart scans every non-subpicture sub's held queue; if any is
// empty it is not yet ready to start. Otherwise it anchors ts_origin to
// the earliest timestamp seen, sets systime_offset, and drains every
// sub's held queue through normal processing.
func (p *ParentStage) checkStart() {
	clock := p.snapshotClock()
	if p.paused() || clock == nil {
		return
	}

	subs := p.subs.Iterate()
	earliest := uref.Unset
	for _, st := range subs {
		sub, ok := st.(*SubStage)
		if !ok || sub.kind == TrackSubpicture {
			continue
		}
		for {
			rec, ok := sub.PeekFront()
			if !ok {
				return // this track has nothing queued yet: not ready
			}
			ts, ok := recordTimestamp(rec)
			if !ok {
				dropped, _ := sub.PopFront()
				dropped.Free(sub.bufMgr)
				sub.probe.Throw(uprobe.Event{
					Kind:      uprobe.KindCustom,
					Signature: SubSignature,
					StageID:   sub.ID(),
					Stage:     sub,
					Err:       errNonDatedRecord,
				})
				continue
			}
			if ts < earliest {
				earliest = ts
			}
			break
		}
	}

	p.mu.Lock()
	p.tsOrigin = earliest
	p.systimeOffset = clock.Now() + ptsDelay
	p.mu.Unlock()

	for _, st := range subs {
		sub, ok := st.(*SubStage)
		if !ok {
			continue
		}
		held := sub.Drain()
		sub.Unblock()
		for _, rec := range held {
			sub.process(rec, nil)
		}
	}
}

// setRate replaces the playing rate and re-anchors the timeline (spec's
// "a rate change re-anchors the playback timeline" rationale).
func (p *ParentStage) setRate(rate udict.Rational) {
	p.mu.Lock()
	p.rate = rate
	p.systimeOffset = 0
	p.tsOrigin = 0
	p.mu.Unlock()
	p.checkStart()
}

// ParentManager is the upipe.Manager for trick-play parent stages.
type ParentManager struct{}

func NewParentManager() *ParentManager { return &ParentManager{} }

func (m *ParentManager) Alloc(probe *uprobe.Probe, args ...any) (upipe.Stage, error) {
	p := &ParentStage{probe: probe, rate: udict.Rational{Num: 1, Den: 1}}
	p.InitRefCount()
	p.InitIdentity()

	probe.Throw(uprobe.Event{Kind: uprobe.KindReady, Signature: ParentSignature, StageID: p.ID(), Stage: p})

	res := probe.Throw(uprobe.Event{Kind: uprobe.KindNeedBufferManager, Signature: ParentSignature, StageID: p.ID(), Stage: p})
	if res.Status != uprobe.StatusHandled {
		return nil, pipeerr.NewInvalidError("trickplay.parent.alloc", errNoBufferManager)
	}
	return p, nil
}

// Input accepts no data on the parent itself (spec: data flows through
// sub-pipes only); a stray record is freed defensively rather than
// leaked, satisfying the "no leaks" testable property even on a
// mis-wired topology.
func (m *ParentManager) Input(stage upipe.Stage, rec *uref.Ref, pumpCtx any) {
	p, ok := stage.(*ParentStage)
	if !ok {
		return
	}
	p.mu.Lock()
	mgr := p.bufMgr
	p.mu.Unlock()
	rec.Free(mgr)
}

func (m *ParentManager) Control(stage upipe.Stage, cmd upipe.Control) (upipe.Status, error) {
	p, ok := stage.(*ParentStage)
	if !ok {
		return upipe.StatusError, pipeerr.NewInvalidError("trickplay.parent.control", errWrongStageType)
	}

	switch cmd.Kind {
	case upipe.KindGetClock:
		if ptr, ok := cmd.Ext.(*uclock.Clock); ok {
			*ptr = p.snapshotClock()
		}
		return upipe.StatusOK, nil

	case upipe.KindAttachClock:
		c, ok := cmd.Ext.(uclock.Clock)
		if !ok {
			return upipe.StatusError, pipeerr.NewInvalidError("trickplay.parent.control.attach_clock", errBadControlExt)
		}
		return upipe.StatusOK, p.SetClock(c)

	case upipe.KindSetClock:
		c, ok := cmd.Ext.(uclock.Clock)
		if !ok {
			return upipe.StatusError, pipeerr.NewInvalidError("trickplay.parent.control.set_clock", errBadControlExt)
		}
		// Matches upipe_trickp_control's UPIPE_SET_UCLOCK branch: an
		// explicit clock swap resets the anchor, unlike the need-clock
		// auto-injection path which must not disturb an already-running
		// timeline.
		p.resetUclock()
		return upipe.StatusOK, p.SetClock(c)

	case upipe.KindSetBufferManager:
		mgr, ok := cmd.Ext.(*ubuf.Manager)
		if !ok {
			return upipe.StatusError, pipeerr.NewInvalidError("trickplay.parent.control.set_buffer_manager", errBadControlExt)
		}
		return upipe.StatusOK, p.SetBufferManager(mgr)

	case upipe.KindIterateSubPipes:
		if ptr, ok := cmd.Ext.(*[]upipe.Stage); ok {
			*ptr = p.subs.Iterate()
		}
		return upipe.StatusOK, nil

	case upipe.KindLocal:
		if cmd.Signature != ParentSignature {
			return upipe.StatusError, pipeerr.NewInvalidError("trickplay.parent.control.local", errBadSignature)
		}
		args, ok := cmd.Ext.(*LocalArgs)
		if !ok {
			return upipe.StatusError, pipeerr.NewInvalidError("trickplay.parent.control.local", errBadControlExt)
		}
		switch args.Command {
		case CmdGetRate:
			p.mu.Lock()
			args.Rate = p.rate
			p.mu.Unlock()
			return upipe.StatusOK, nil
		case CmdSetRate:
			p.setRate(args.Rate)
			return upipe.StatusOK, nil
		default:
			return upipe.StatusError, pipeerr.NewInvalidError("trickplay.parent.control.local", errUnknownLocalCmd)
		}

	default:
		return upipe.StatusUnhandled, nil
	}
}

// Free releases the parent. Sub-pipes hold an owning back-reference to
// their parent (incremented at sub-create, released at sub-free), so
// this only tears the parent down once every sub-pipe
// allocated against it has already been freed and the external holder's
// own release lands last.
func (m *ParentManager) Free(stage upipe.Stage) error {
	p, ok := stage.(*ParentStage)
	if !ok {
		return pipeerr.NewInvalidError("trickplay.parent.free", errWrongStageType)
	}
	p.Release(func() {
		p.probe.Throw(uprobe.Event{Kind: uprobe.KindDead, Signature: ParentSignature, StageID: p.ID(), Stage: p})
	})
	return nil
}
