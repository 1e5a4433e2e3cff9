package trickplay

import "errors"

var (
	errWrongStageType  = errors.New("stage was not allocated by this manager")
	errBadControlExt   = errors.New("control command carried an unexpected payload type")
	errBadSignature    = errors.New("control signature does not match the trick-play parent manager")
	errUnknownLocalCmd = errors.New("unrecognized trick-play local command")
	errNoBufferManager = errors.New("no buffer manager was injected during alloc")
	errMissingParent   = errors.New("sub alloc requires a *ParentStage argument")
	errMissingFlowDef  = errors.New("sub alloc requires a flow definition string argument")
	errNonDatedRecord  = errors.New("dropped a record with neither pts nor dts during check-start")
	errTimestampInPast = errors.New("record timestamp precedes ts_origin, clamping")
	errNoOutputWired   = errors.New("no output wired after need-output throw, dropping record")
)
