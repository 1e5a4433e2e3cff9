package upipe

import (
	"sync"

	pipeerr "github.com/alxayo/pipe/internal/errors"
	"github.com/alxayo/pipe/internal/pipeline/udict"
	"github.com/alxayo/pipe/internal/pipeline/uref"
)

// InputFunc delivers a record to a stage's manager, matching the shape
// of Manager.Input bound to a specific (manager, stage) pair so
// OutputWiring doesn't need to hold a Manager reference itself.
type InputFunc func(rec *uref.Ref, pumpCtx any)

// OutputWiring is the second capability trait: tracks a stage's
// downstream (its single output) plus the flow definition announced on
// it, resending the flow-def record whenever it changes before the
// next data record — the Go shape of the source's flow_def/flow_def_sent
// pair (present on every upipe_*_output helper struct, e.g.
// upipe_ts_psi_merge's own fields of the same name).
type OutputWiring struct {
	mu          sync.Mutex
	input       InputFunc
	flowDef     string
	flowDefSent bool
}

// SetOutput wires input as the downstream consumer of this stage's
// records. Passing a nil input detaches the output.
func (o *OutputWiring) SetOutput(input InputFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.input = input
}

// HasOutput reports whether an output is currently wired.
func (o *OutputWiring) HasOutput() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.input != nil
}

// SetFlowDef records a new output flow definition, marking it unsent so
// the next Emit resends the header record before any data record.
func (o *OutputWiring) SetFlowDef(def string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if def != o.flowDef {
		o.flowDef = def
		o.flowDefSent = false
	}
}

// FlowDef returns the currently configured output flow definition.
func (o *OutputWiring) FlowDef() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.flowDef
}

// Emit delivers rec downstream, first sending a flow-definition-only
// record if the flow def hasn't been announced since it last changed.
// Returns an InvalidError if no output is currently wired.
func (o *OutputWiring) Emit(rec *uref.Ref, pumpCtx any) error {
	o.mu.Lock()
	input := o.input
	needsHeader := !o.flowDefSent && o.flowDef != ""
	flowDef := o.flowDef
	o.mu.Unlock()

	if input == nil {
		return pipeerr.NewInvalidError("upipe.output.emit", errNoOutput)
	}
	if needsHeader {
		hdr := uref.New(udict.New())
		hdr.Dict.SetFlowDef(flowDef)
		input(hdr, pumpCtx)
		o.mu.Lock()
		o.flowDefSent = true
		o.mu.Unlock()
	}
	input(rec, pumpCtx)
	return nil
}
