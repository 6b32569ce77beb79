package chain

import "errors"

// Error taxonomy for ledger calls. Any of these aborts the whole call:
// the executor discards every staged write, so there is never a partial
// commit. ErrInternal marks an engine invariant breach rather than a
// caller mistake; it aborts all the same.
var (
	ErrValidation        = errors.New("validation failed")
	ErrAuthorization     = errors.New("invalid witness")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientFunds = errors.New("not enough balance")
	ErrTransferRejected  = errors.New("transfer failed")
	ErrSignature         = errors.New("invalid signature")
	ErrInternal          = errors.New("internal invariant violated")
)
