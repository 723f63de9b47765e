package models

import "errors"

// Error kinds surfaced to callers. Operations wrap one of these with
// fmt.Errorf("%w: ...") so the transport layer can map them with errors.Is.
var (
	ErrValidation       = errors.New("validation error")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("not found")
	ErrInvalidState     = errors.New("invalid state")
	ErrConflict         = errors.New("conflict")

	// ErrSettlementFailed means the deal lock and ledger emission could not be
	// committed together. It must not be retried blindly.
	ErrSettlementFailed = errors.New("settlement failed")
)
