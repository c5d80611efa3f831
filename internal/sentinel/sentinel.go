package sentinel

import "errors"

// Sentinel dependency errors. Agents and ledger adapters return these (optionally
// wrapped) so services can translate them into domain errors exactly once.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnavailable  = errors.New("unavailable")
	ErrRejected     = errors.New("rejected by user")
	ErrPermission   = errors.New("permission denied")
	ErrReverted     = errors.New("execution reverted")
	ErrSigning      = errors.New("signing failed")
)
