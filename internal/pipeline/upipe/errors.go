package upipe

import "errors"

var (
	errNoOutput     = errors.New("no output wired")
	errDealAborted  = errors.New("deal aborted before it was granted")
	errUnknownKind  = errors.New("unrecognized control kind")
	errBadSignature = errors.New("control signature does not match this manager")
)
