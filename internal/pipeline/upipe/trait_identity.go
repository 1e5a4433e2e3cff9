package upipe

import "github.com/google/uuid"

// Identity is the fifth capability trait: a stable, process-unique
// instance identifier assigned once at Alloc, grounded on the
// uuid.UUID-keyed session/relay identity pattern in the pack (e.g. a
// relay session's ID field) rather than the teacher's own monotonic
// integer connection counter — a pipe graph's stages are torn down and
// rebuilt far more often than RTMP connections are accepted, so reusing
// small integers across rebuilds risks two log lines from unrelated
// stage instances looking identical; a UUID never collides across
// rebuilds.
type Identity struct {
	id string
}

// InitIdentity assigns a fresh instance ID, called once from a stage's
// Alloc alongside InitRefCount.
func (i *Identity) InitIdentity() { i.id = uuid.NewString() }

// ID returns the instance's identifier, used as uprobe.Event.StageID so
// two stages of the same kind are distinguishable in logs.
func (i *Identity) ID() string { return i.id }
