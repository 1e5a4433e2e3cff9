package ubuf

import "errors"

var (
	errAlreadyWriteMapped = errors.New("storage already write-mapped")
	errAlreadyReadMapped  = errors.New("storage has active read-maps")
	errUnknownPlane       = errors.New("unknown plane name")
	errOffsetOutOfRange   = errors.New("offset/size out of range")
	errNotBlockBuffer     = errors.New("operation requires a block buffer")
)
