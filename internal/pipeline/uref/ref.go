// Package uref implements the record: an attribute dictionary plus an
// optional buffer plus time coordinates, flowing between stages —
// libupipe's uref.
package uref

import (
	"github.com/alxayo/pipe/internal/pipeline/ubuf"
	"github.com/alxayo/pipe/internal/pipeline/udict"
)

// Ref is one unit of data flowing through the pipeline. Dict is never
// nil; Buf is nil for attribute-only records (flow definitions, control
// events carried as records). Rap is the random-access-point index
// carried alongside a record so a consumer can seek to the nearest
// keyframe without decoding every preceding frame.
type Ref struct {
	Dict  *udict.Dict
	Buf   *ubuf.Buffer
	Times TimeSet
	Rap   uint64
}

// New creates a record over an existing dictionary (typically produced by
// a stage's own allocation helper) with no buffer and unset time
// coordinates.
func New(d *udict.Dict) *Ref {
	return &Ref{Dict: d, Times: NewTimeSet(), Rap: Unset}
}

// NewWithBuffer creates a record carrying buf.
func NewWithBuffer(d *udict.Dict, buf *ubuf.Buffer) *Ref {
	return &Ref{Dict: d, Buf: buf, Times: NewTimeSet(), Rap: Unset}
}

// Duplicate deep-copies the dictionary and time coordinates but shares
// the buffer by reference count. The returned Ref is an independent
// value; mutating its Dict never affects the original's.
func (r *Ref) Duplicate() *Ref {
	nr := &Ref{
		Dict:  r.Dict.Duplicate(),
		Times: r.Times.Duplicate(),
		Rap:   r.Rap,
	}
	if r.Buf != nil {
		nr.Buf = r.Buf.Duplicate()
	}
	return nr
}

// Free releases r's buffer reference via mgr, if any. The Dict needs no
// explicit release (plain Go map, garbage collected).
func (r *Ref) Free(mgr *ubuf.Manager) {
	if r.Buf != nil {
		mgr.Release(r.Buf)
		r.Buf = nil
	}
}

// FlowDef proxies to the underlying dictionary's flow definition string.
func (r *Ref) FlowDef() (string, bool) { return r.Dict.GetFlowDef() }

// SetRap stores a random-access-point index on the record.
func (r *Ref) SetRap(v uint64) { r.Rap = v }

// GetRap retrieves the random-access-point index, if one was set.
func (r *Ref) GetRap() (uint64, bool) { return r.Rap, r.Rap != Unset }
