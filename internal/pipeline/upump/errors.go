package upump

import "errors"

var (
	errNilCallback   = errors.New("pump callback must not be nil")
	errFDUnsupported = errors.New("fd-based pumps are not supported by this reactor; use AllocPathWatch")
)
