package sentinel

import "errors"

// Sentinel errors for storage facts. Stores return these (optionally wrapped)
// so services can translate them into domain errors.
//
//   - ErrNotFound: record does not exist
//   - ErrAlreadyUsed: a unique key (passport number, category name) is taken
//   - ErrReferenced: record is still referenced by a pawn transaction
//   - ErrDanglingReference: a write points at a client or category that does not exist
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyUsed       = errors.New("already used")
	ErrReferenced        = errors.New("referenced")
	ErrDanglingReference = errors.New("dangling reference")
)
