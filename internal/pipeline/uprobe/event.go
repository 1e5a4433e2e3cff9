// Package uprobe implements the probe chain: an ordered collection of
// handlers a stage throws events through, stopping at the first handler
// that claims or errors on the event — libupipe's own probe-chain model.
package uprobe

// Kind identifies what happened. The first several are the fixed set
// every manager in this module throws; a manager is free to throw a
// Kind of its own by setting Signature and populating Ext, identified
// by that signature rather than by Kind.
type Kind uint8

const (
	KindReady Kind = iota
	KindDead
	KindFatal
	KindAError // asynchronous error from a deal/pump callback
	KindNeedBufferManager
	KindNeedOutput
	KindNeedPumpMgr
	KindNeedClock
	KindNewFlow
	KindSyncAcquired
	KindSyncLost
	KindCustom
)

func (k Kind) String() string {
	switch k {
	case KindReady:
		return "ready"
	case KindDead:
		return "dead"
	case KindFatal:
		return "fatal"
	case KindAError:
		return "aerror"
	case KindNeedBufferManager:
		return "need-buffer-manager"
	case KindNeedOutput:
		return "need-output"
	case KindNeedPumpMgr:
		return "need-upump-mgr"
	case KindNeedClock:
		return "need-clock"
	case KindNewFlow:
		return "new-flow"
	case KindSyncAcquired:
		return "sync-acquired"
	case KindSyncLost:
		return "sync-lost"
	default:
		return "custom"
	}
}

// Event is a tagged union passed along the probe chain. Stage is the
// stage handle throwing the event, narrowly typed as `any` here so this
// package has no dependency on upipe's concrete Stage type; standard
// probes that need to act on it (the injector family) type-assert it
// against the small capability interfaces declared in injectors.go.
type Event struct {
	Kind      Kind
	Signature string // manager signature, gates stage-specific extensions
	StageID   string
	FlowDef   string
	Err       error
	Stage     any
	Ext       any
}
