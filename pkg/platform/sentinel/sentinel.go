package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Allocators and other stores
// return these (optionally wrapped) so services can translate them into
// domain errors.
//
//   - ErrNotFound: record does not exist in the store
//   - ErrConflict: concurrent writer won; caller may retry
//   - ErrExhausted: a bounded counter has no values left for its scope
//   - ErrUnavailable: backing service temporarily unavailable
//
// For validation errors (bad input, malformed identifiers) use
// pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrExhausted   = errors.New("exhausted")
	ErrUnavailable = errors.New("unavailable")
)
