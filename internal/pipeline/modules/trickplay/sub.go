package trickplay

import (
	"strings"

	pipeerr "github.com/alxayo/pipe/internal/errors"
	"github.com/alxayo/pipe/internal/pipeline/ubuf"
	"github.com/alxayo/pipe/internal/pipeline/udict"
	"github.com/alxayo/pipe/internal/pipeline/upipe"
	"github.com/alxayo/pipe/internal/pipeline/uprobe"
	"github.com/alxayo/pipe/internal/pipeline/uref"
)

// SubSignature identifies stages SubManager allocates.
const SubSignature = "TRKS"

// SubType classifies a track by its flow definition prefix, matching
// upipe_trickp_sub_alloc's own flow-def sniffing.
type SubType uint8

const (
	// TrackSubpicture is the default classification — a flow def of
	// "pic.sub." matches here and is never overridden, matching
	// upipe_trickp_sub_alloc's initial assignment that only PIC/SOUND
	// ever override it.
	TrackSubpicture SubType = iota
	TrackPicture
	TrackSound
)

// classify returns the SubType for a flow definition string, grounded on
// upipe_trickp_sub_alloc: picture for a "pic." prefix other than the more
// specific "pic.sub.", sound for a "sound." prefix, and subpicture for
// everything else.
func classify(flowDef string) SubType {
	if strings.HasPrefix(flowDef, "pic.sub.") {
		return TrackSubpicture
	}
	if strings.HasPrefix(flowDef, "pic.") {
		return TrackPicture
	}
	if strings.HasPrefix(flowDef, "sound.") {
		return TrackSound
	}
	return TrackSubpicture
}

// SubStage is one trick-play track: a sub-pipe of a ParentStage. It
// holds a queue (SinkHolder) of records deferred while paused, while
// waiting for check-start, or while an earlier record in the same
// track is still queued (preserving per-track ordering).
type SubStage struct {
	upipe.RefCounted
	upipe.OutputWiring
	upipe.SinkHolder
	upipe.Identity

	parent *ParentStage
	probe  *uprobe.Probe
	bufMgr *ubuf.Manager
	kind   SubType
}

func (s *SubStage) Signature() string { return SubSignature }

func (s *SubStage) SetBufferManager(mgr *ubuf.Manager) error {
	s.bufMgr = mgr
	return nil
}

// Kind reports this track's classification (picture/sound/subpicture).
func (s *SubStage) Kind() SubType { return s.kind }

// mapTimestamp converts a program-timeline timestamp to a system one,
// clamping to ts_origin (with a warning thrown) if it is in the past.
func mapTimestamp(s *SubStage, ts uint64, rate udict.Rational, tsOrigin, systimeOffset uint64) uint64 {
	if ts < tsOrigin {
		s.probe.Throw(uprobe.Event{
			Kind:      uprobe.KindCustom,
			Signature: SubSignature,
			StageID:   s.ID(),
			Stage:     s,
			Err:       errTimestampInPast,
		})
		ts = tsOrigin
	}
	delta := ts - tsOrigin
	return delta*uint64(rate.Den)/uint64(rate.Num) + systimeOffset
}

// process stamps rec with the parent's current rate and sys timestamps,
// then emits it downstream.
func (s *SubStage) process(rec *uref.Ref, pumpCtx any) {
	rate, tsOrigin, systimeOffset := s.parent.snapshotTimeline()

	rec.Dict.SetClockRate(rate)
	if pts, ok := rec.Times.PTS(uref.ClockProg); ok {
		rec.Times.SetPTS(uref.ClockSys, mapTimestamp(s, pts, rate, tsOrigin, systimeOffset))
	}
	if dts, ok := rec.Times.DTS(uref.ClockProg); ok {
		rec.Times.SetDTS(uref.ClockSys, mapTimestamp(s, dts, rate, tsOrigin, systimeOffset))
	}
	s.emit(rec, pumpCtx)
}

// emit delivers rec downstream, throwing a one-shot need-output event if
// nothing is wired yet and dropping the record (with a warning) if that
// throw still leaves no output wired.
func (s *SubStage) emit(rec *uref.Ref, pumpCtx any) {
	if !s.OutputWiring.HasOutput() {
		s.probe.Throw(uprobe.Event{
			Kind:      uprobe.KindNeedOutput,
			Signature: SubSignature,
			StageID:   s.ID(),
			Stage:     s,
			FlowDef:   s.OutputWiring.FlowDef(),
		})
		if !s.OutputWiring.HasOutput() {
			rec.Free(s.bufMgr)
			s.probe.Throw(uprobe.Event{Kind: uprobe.KindCustom, Signature: SubSignature, StageID: s.ID(), Stage: s, Err: errNoOutputWired})
			return
		}
	}
	if err := s.OutputWiring.Emit(rec, pumpCtx); err != nil {
		rec.Free(s.bufMgr)
	}
}

// handleInput implements upipe_trickp_sub_input's per-track dispatch:
// hold while paused or not yet anchored, otherwise stamp and emit in
// order.
func (s *SubStage) handleInput(rec *uref.Ref, pumpCtx any) {
	if s.parent.snapshotClock() == nil {
		s.probe.Throw(uprobe.Event{Kind: uprobe.KindNeedClock, Signature: ParentSignature, StageID: s.parent.ID(), Stage: s.parent})
		if s.parent.snapshotClock() == nil {
			rec.Free(s.bufMgr)
			return
		}
	}

	switch {
	case s.parent.paused():
		s.Hold(rec)
		s.Block()
	case !s.parent.started():
		s.Hold(rec)
		s.parent.checkStart()
	case s.Len() == 0:
		s.process(rec, pumpCtx)
	default:
		// Something is already queued ahead of rec on this track: hold
		// it too so per-track ordering is preserved.
		s.Hold(rec)
		s.Block()
	}
}

// SubManager is the upipe.Manager for trick-play sub-pipes. Alloc takes
// two arguments: the flow definition string (classifying the track) and
// the *ParentStage it belongs to.
type SubManager struct{}

func NewSubManager() *SubManager { return &SubManager{} }

func (m *SubManager) Alloc(probe *uprobe.Probe, args ...any) (upipe.Stage, error) {
	if len(args) < 2 {
		return nil, pipeerr.NewInvalidError("trickplay.sub.alloc", errMissingParent)
	}
	flowDef, ok := args[0].(string)
	if !ok {
		return nil, pipeerr.NewInvalidError("trickplay.sub.alloc", errMissingFlowDef)
	}
	parent, ok := args[1].(*ParentStage)
	if !ok {
		return nil, pipeerr.NewInvalidError("trickplay.sub.alloc", errMissingParent)
	}

	s := &SubStage{probe: probe, parent: parent, kind: classify(flowDef)}
	s.InitRefCount()
	s.InitIdentity()
	s.OutputWiring.SetFlowDef(flowDef)
	parent.subs.Register(&parent.RefCounted, s)

	probe.Throw(uprobe.Event{Kind: uprobe.KindReady, Signature: SubSignature, StageID: s.ID(), Stage: s, FlowDef: flowDef})

	res := probe.Throw(uprobe.Event{Kind: uprobe.KindNeedBufferManager, Signature: SubSignature, StageID: s.ID(), Stage: s})
	if res.Status != uprobe.StatusHandled {
		parent.subs.Unregister(&parent.RefCounted, s, nil)
		return nil, pipeerr.NewInvalidError("trickplay.sub.alloc", errNoBufferManager)
	}
	return s, nil
}

func (m *SubManager) Input(stage upipe.Stage, rec *uref.Ref, pumpCtx any) {
	s, ok := stage.(*SubStage)
	if !ok {
		return
	}
	if def, ok := rec.FlowDef(); ok {
		s.OutputWiring.SetFlowDef(def)
		return
	}
	s.handleInput(rec, pumpCtx)
}

func (m *SubManager) Control(stage upipe.Stage, cmd upipe.Control) (upipe.Status, error) {
	s, ok := stage.(*SubStage)
	if !ok {
		return upipe.StatusError, pipeerr.NewInvalidError("trickplay.sub.control", errWrongStageType)
	}

	switch cmd.Kind {
	case upipe.KindGetFlowDef:
		if ptr, ok := cmd.Ext.(*string); ok {
			*ptr = s.OutputWiring.FlowDef()
		}
		return upipe.StatusOK, nil

	case upipe.KindGetOutput:
		if ptr, ok := cmd.Ext.(*bool); ok {
			*ptr = s.OutputWiring.HasOutput()
		}
		return upipe.StatusOK, nil

	case upipe.KindSetOutput:
		input, ok := cmd.Ext.(upipe.InputFunc)
		if !ok {
			return upipe.StatusError, pipeerr.NewInvalidError("trickplay.sub.control.set_output", errBadControlExt)
		}
		s.OutputWiring.SetOutput(input)
		return upipe.StatusOK, nil

	case upipe.KindSetBufferManager:
		mgr, ok := cmd.Ext.(*ubuf.Manager)
		if !ok {
			return upipe.StatusError, pipeerr.NewInvalidError("trickplay.sub.control.set_buffer_manager", errBadControlExt)
		}
		return upipe.StatusOK, s.SetBufferManager(mgr)

	default:
		return upipe.StatusUnhandled, nil
	}
}

// Free releases stage, unregistering it from its parent (releasing the
// owning back-reference) and flushing anything still held.
func (m *SubManager) Free(stage upipe.Stage) error {
	s, ok := stage.(*SubStage)
	if !ok {
		return pipeerr.NewInvalidError("trickplay.sub.free", errWrongStageType)
	}
	s.Release(func() {
		s.SinkHolder.Flush(s.bufMgr)
		s.probe.Throw(uprobe.Event{Kind: uprobe.KindDead, Signature: SubSignature, StageID: s.ID(), Stage: s})
	})
	s.parent.subs.Unregister(&s.parent.RefCounted, s, nil)
	return nil
}
