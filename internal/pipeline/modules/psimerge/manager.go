package psimerge

import (
	"strings"

	pipeerr "github.com/alxayo/pipe/internal/errors"
	"github.com/alxayo/pipe/internal/pipeline/ubuf"
	"github.com/alxayo/pipe/internal/pipeline/upipe"
	"github.com/alxayo/pipe/internal/pipeline/uprobe"
	"github.com/alxayo/pipe/internal/pipeline/uref"
)

// Manager is the upipe.Manager implementation for PSI merge stages.
type Manager struct{}

// NewManager creates a psimerge Manager. One Manager serves any number of
// allocated Stages.
func NewManager() *Manager { return &Manager{} }

// Alloc creates a new Stage wired to probe, throwing the standard ready
// and need-buffer-manager events during construction.
func (m *Manager) Alloc(probe *uprobe.Probe, args ...any) (upipe.Stage, error) {
	s := &Stage{probe: probe}
	s.InitRefCount()
	s.InitIdentity()

	probe.Throw(uprobe.Event{Kind: uprobe.KindReady, Signature: Signature, StageID: s.ID(), Stage: s})

	res := probe.Throw(uprobe.Event{Kind: uprobe.KindNeedBufferManager, Signature: Signature, StageID: s.ID(), Stage: s})
	if res.Status != uprobe.StatusHandled {
		return nil, pipeerr.NewInvalidError("psimerge.alloc", errNoBufferManager)
	}
	return s, nil
}

// Input delivers rec to stage. Flow-definition-only records (those
// carrying a flow def attribute) are not merged: they update the output's
// announced flow def and are otherwise dropped, matching upipe's
// convention that a flow-def record is a control signal riding the data
// path rather than section payload.
func (m *Manager) Input(stage upipe.Stage, rec *uref.Ref, pumpCtx any) {
	s, ok := stage.(*Stage)
	if !ok {
		return
	}
	if def, ok := rec.FlowDef(); ok {
		if !strings.HasPrefix(def, expectedFlowDefPrefix) {
			s.probe.Throw(uprobe.Event{
				Kind:      uprobe.KindFatal,
				Signature: Signature,
				StageID:   s.ID(),
				Stage:     s,
				Err:       pipeerr.NewInvalidError("psimerge.input.flow_def", errBadFlowDef),
			})
			return
		}
		s.OutputWiring.SetFlowDef(def)
		return
	}
	s.handleInput(rec, pumpCtx)
}

// Control dispatches a standard control command to stage.
func (m *Manager) Control(stage upipe.Stage, cmd upipe.Control) (upipe.Status, error) {
	s, ok := stage.(*Stage)
	if !ok {
		return upipe.StatusError, pipeerr.NewInvalidError("psimerge.control", errWrongStageType)
	}

	switch cmd.Kind {
	case upipe.KindSetOutput:
		input, ok := cmd.Ext.(upipe.InputFunc)
		if !ok {
			return upipe.StatusError, pipeerr.NewInvalidError("psimerge.control.set_output", errBadControlExt)
		}
		s.OutputWiring.SetOutput(input)
		return upipe.StatusOK, nil

	case upipe.KindGetOutput:
		if ptr, ok := cmd.Ext.(*bool); ok {
			*ptr = s.OutputWiring.HasOutput()
		}
		return upipe.StatusOK, nil

	case upipe.KindSetFlowDef:
		if !strings.HasPrefix(cmd.FlowDef, expectedFlowDefPrefix) {
			return upipe.StatusError, pipeerr.NewInvalidError("psimerge.control.set_flow_def", errBadFlowDef)
		}
		s.OutputWiring.SetFlowDef(cmd.FlowDef)
		return upipe.StatusOK, nil

	case upipe.KindGetFlowDef:
		if ptr, ok := cmd.Ext.(*string); ok {
			*ptr = s.OutputWiring.FlowDef()
		}
		return upipe.StatusOK, nil

	case upipe.KindSetBufferManager:
		mgr, ok := cmd.Ext.(*ubuf.Manager)
		if !ok {
			return upipe.StatusError, pipeerr.NewInvalidError("psimerge.control.set_buffer_manager", errBadControlExt)
		}
		return upipe.StatusOK, s.SetBufferManager(mgr)

	default:
		return upipe.StatusUnhandled, nil
	}
}

// Free drops the caller's reference to stage; at zero it frees any
// partially accumulated section and throws a dead event. The wired
// output is not released: the stage holds only an InputFunc for it.
func (m *Manager) Free(stage upipe.Stage) error {
	s, ok := stage.(*Stage)
	if !ok {
		return pipeerr.NewInvalidError("psimerge.free", errWrongStageType)
	}
	s.Release(func() {
		s.mu.Lock()
		if s.next != nil {
			s.next.Free(s.bufMgr)
			s.next = nil
		}
		s.mu.Unlock()
		s.probe.Throw(uprobe.Event{Kind: uprobe.KindDead, Signature: Signature, StageID: s.ID(), Stage: s})
	})
	return nil
}
