package catalog

import "errors"

// Domain error kinds. Callers classify with errors.Is; the wrapped message
// carries the offending field and surfaces as the HTTP {detail}.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrAlreadyExists     = errors.New("already exists")
	ErrReferenceNotFound = errors.New("reference not found")
	ErrNotFound          = errors.New("not found")
	ErrInUse             = errors.New("in use")

	ErrFileFormat         = errors.New("unsupported file format")
	ErrFileTooLarge       = errors.New("file too large")
	ErrStorageUnavailable = errors.New("storage unavailable")
)
