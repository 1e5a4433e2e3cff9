package upipe

import (
	"github.com/alxayo/pipe/internal/pipeline/uprobe"
	"github.com/alxayo/pipe/internal/pipeline/uref"
)

// Stage is a running pipe instance. Concrete stage types (psimerge,
// trickplay) implement this plus whatever capability-receiver methods
// the probes in uprobe/injectors.go look for (SetBufferManager,
// SetClock, SetPumpManager, SetOutput) and whatever stage-specific
// methods its own Manager.Control switch needs.
type Stage interface {
	// Signature identifies the manager kind that allocated this stage,
	// used to gate stage-specific Control.Kind == KindLocal commands.
	Signature() string
}

// Manager is the four-operation contract every libupipe pipe manager
// implements: alloc, input, control, free. A signature identifies the
// manager kind and gates which local control commands a given Manager
// answers.
type Manager interface {
	// Alloc creates a new stage wired to probe, or returns an error if
	// construction fails (e.g. a required sub-allocation is refused).
	Alloc(probe *uprobe.Probe, args ...any) (Stage, error)
	// Input delivers one record to stage. pumpCtx is opaque context the
	// calling pump supplies (e.g. which fd/timer produced this call);
	// stages that don't need it ignore it.
	Input(stage Stage, rec *uref.Ref, pumpCtx any)
	// Control dispatches cmd to stage, returning ok/unhandled/error.
	Control(stage Stage, cmd Control) (Status, error)
	// Free drops the caller's reference to stage, which tears itself
	// down once its reference count reaches zero. The stages in this
	// module do not release their output (held as an InputFunc, not a
	// stage) and a parent does not release its subpipes (each subpipe
	// holds a reference on its parent instead).
	Free(stage Stage) error
}
