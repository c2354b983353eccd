package sentinel

import "errors"

// Sentinel dependency errors. Stores and collaborators should return these
// (optionally wrapped) so services can translate them into domain errors
// exactly once.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInvalidState = errors.New("invalid state")
	ErrDuplicate    = errors.New("duplicate")
	ErrUnavailable  = errors.New("unavailable")
)
