// Package psimerge implements the PSI (Program Specific Information)
// section reassembly stage: it accepts TS payload fragments on a
// "block.mpegtspsi." input and emits one complete record per reassembled
// section, regardless of how the section's bytes were split across input
// records.
package psimerge

import (
	"sync"

	pipeerr "github.com/alxayo/pipe/internal/errors"
	"github.com/alxayo/pipe/internal/pipeline/ubuf"
	"github.com/alxayo/pipe/internal/pipeline/upipe"
	"github.com/alxayo/pipe/internal/pipeline/uprobe"
	"github.com/alxayo/pipe/internal/pipeline/uref"
)

// Signature identifies stages this package's Manager allocates. psimerge
// defines no KindLocal commands; its Control answers them as unhandled.
const Signature = "PSIM"

const (
	expectedFlowDefPrefix = "block.mpegtspsi."
	psiHeaderSize         = 3
	psiMaxSize            = 4096
)

// Stage is one PSI merge pipe instance. It holds exactly one
// partially-accumulated section at a time (next); a nil next means the
// stage is either in the desync state or in-section with nothing yet
// accumulated.
type Stage struct {
	upipe.RefCounted
	upipe.OutputWiring
	upipe.Identity

	probe  *uprobe.Probe
	bufMgr *ubuf.Manager

	mu       sync.Mutex
	acquired bool
	next     *uref.Ref
}

// Signature identifies the manager kind that allocated s.
func (s *Stage) Signature() string { return Signature }

// SetBufferManager satisfies uprobe's bufferManagerReceiver, answering a
// KindNeedBufferManager event thrown during Alloc.
func (s *Stage) SetBufferManager(mgr *ubuf.Manager) error {
	s.mu.Lock()
	s.bufMgr = mgr
	s.mu.Unlock()
	return nil
}

func (s *Stage) handleInput(rec *uref.Ref, pumpCtx any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.Dict.GetDiscontinuity() {
		s.flushLocked()
	}

	if rec.Dict.GetBlockStart() {
		size, _ := rec.Buf.Size("")
		if s.acquired {
			if size < 1 {
				rec.Free(s.bufMgr)
				return
			}
			if err := rec.Buf.Resize(1, size-1); err != nil {
				rec.Free(s.bufMgr)
				s.flushLocked()
				return
			}
		} else {
			if size < 1 {
				rec.Free(s.bufMgr)
				return
			}
			pointerField, err := rec.Buf.Peek("", 0, 1)
			if err != nil {
				rec.Free(s.bufMgr)
				return
			}
			skip := 1 + int(pointerField[0])
			if skip > size {
				rec.Free(s.bufMgr)
				return
			}
			if err := rec.Buf.Resize(skip, size-skip); err != nil {
				rec.Free(s.bufMgr)
				return
			}
			s.acquired = true
			s.probe.Throw(uprobe.Event{Kind: uprobe.KindSyncAcquired, Signature: Signature, StageID: s.ID(), Stage: s})
		}
	} else if s.next == nil {
		// A continuation record arrived with nothing pending to continue:
		// stray data, drop it and lose sync if we had any (grounded on
		// upipe_ts_psim_input's next_uref==NULL branch, which flushes too).
		rec.Free(s.bufMgr)
		s.flushLocked()
		return
	}

	s.mergeLoop(rec, pumpCtx)
	rec.Free(s.bufMgr)
}

// mergeLoop implements spec's reassembly loop: accumulate rec's remaining
// bytes, check for a complete section, emit it, and if rec still holds
// bytes beyond the completed section, re-enter the loop treating them as
// a synthetic continuation.
func (s *Stage) mergeLoop(rec *uref.Ref, pumpCtx any) {
	for {
		recSize, _ := rec.Buf.Size("")
		priorAccum := 0

		if s.next == nil {
			if recSize == 0 {
				return
			}
			tableID, err := rec.Buf.Peek("", 0, 1)
			if err != nil {
				s.throwFatal(err)
				return
			}
			if tableID[0] == 0xff {
				return // stuffing: drop the remainder, stay in-section empty
			}
			s.next = rec.Duplicate()
		} else {
			priorAccum, _ = s.next.Buf.Size("")
			if recSize > 0 {
				data, err := rec.Buf.Peek("", 0, recSize)
				if err != nil {
					s.throwFatal(err)
					return
				}
				if err := s.next.Buf.Append(s.bufMgr.Allocator(), data); err != nil {
					s.flushLocked()
					s.throwFatal(err)
					return
				}
			}
		}

		total, _ := s.next.Buf.Size("")
		if total < psiHeaderSize {
			return
		}
		header, err := s.next.Buf.Peek("", 0, psiHeaderSize)
		if err != nil {
			s.throwFatal(err)
			return
		}
		length := int(header[1]&0x0f)<<8 | int(header[2])
		sectionSize := length + psiHeaderSize
		if sectionSize > psiMaxSize {
			s.acquired = false
			s.probe.Throw(uprobe.Event{Kind: uprobe.KindSyncLost, Signature: Signature, StageID: s.ID(), Stage: s, Err: errMalformedHeader})
			s.next.Free(s.bufMgr)
			s.next = nil
			return
		}
		if total < sectionSize {
			return // wait for more
		}

		if err := s.next.Buf.Resize(0, sectionSize); err != nil {
			s.throwFatal(err)
			return
		}
		out := s.next
		s.next = nil
		s.emit(out, pumpCtx)

		consumedFromRec := sectionSize - priorAccum
		residual := recSize - consumedFromRec
		if residual <= 0 {
			return
		}
		if err := rec.Buf.Resize(consumedFromRec, residual); err != nil {
			s.throwFatal(err)
			return
		}
		// loop again: rec now holds only its residual bytes, s.next is nil
	}
}

// emit delivers out downstream, throwing a one-shot need-output event
// if nothing is wired yet and dropping the record (with a warning) if
// that throw still leaves no output wired — the same contract
// trickplay's sub-pipe emit implements.
func (s *Stage) emit(out *uref.Ref, pumpCtx any) {
	if !s.OutputWiring.HasOutput() {
		s.probe.Throw(uprobe.Event{
			Kind:      uprobe.KindNeedOutput,
			Signature: Signature,
			StageID:   s.ID(),
			Stage:     s,
			FlowDef:   s.OutputWiring.FlowDef(),
		})
		if !s.OutputWiring.HasOutput() {
			out.Free(s.bufMgr)
			s.probe.Throw(uprobe.Event{Kind: uprobe.KindCustom, Signature: Signature, StageID: s.ID(), Stage: s, Err: errNoOutputWired})
			return
		}
	}
	if err := s.OutputWiring.Emit(out, pumpCtx); err != nil {
		out.Free(s.bufMgr)
	}
}

func (s *Stage) flushLocked() {
	if s.next != nil {
		s.next.Free(s.bufMgr)
		s.next = nil
	}
	if s.acquired {
		s.acquired = false
		s.probe.Throw(uprobe.Event{Kind: uprobe.KindSyncLost, Signature: Signature, StageID: s.ID(), Stage: s})
	}
}

func (s *Stage) throwFatal(err error) {
	s.probe.Throw(uprobe.Event{Kind: uprobe.KindFatal, Signature: Signature, StageID: s.ID(), Stage: s, Err: pipeerr.NewOutOfMemoryError("psimerge.merge", err)})
}
