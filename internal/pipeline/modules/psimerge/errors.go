package psimerge

import "errors"

var (
	errWrongStageType  = errors.New("stage was not allocated by this manager")
	errBadFlowDef      = errors.New("flow definition does not match block.mpegtspsi.")
	errNoBufferManager = errors.New("no buffer manager was injected during alloc")
	errMalformedHeader = errors.New("psi section length exceeds the maximum private-section size")
	errBadControlExt   = errors.New("control command carried an unexpected payload type")
	errNoOutputWired   = errors.New("no output wired after need-output probe throw")
)
