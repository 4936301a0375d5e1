package ledgererr

import "errors"

// Sentinel business errors. Components return these (or errors wrapping
// them via errors.Is) from their domain logic; Translate turns them into the
// caller-facing typed errors below.
var (
	ErrValidation         = errors.New("LC0001")
	ErrDuplicateOperation = errors.New("LC0002")
	ErrIdempotentReplay   = errors.New("LC0003")
	ErrInsufficientFunds  = errors.New("LC0004")
	ErrCreditLimit        = errors.New("LC0005")
	ErrAccountClosed      = errors.New("LC0006")
	ErrMismatchedCurrency = errors.New("LC0007")
	ErrConflictingReplay  = errors.New("LC0008")
	ErrTransientStorage   = errors.New("LC0009")
	ErrSagaCompensated    = errors.New("LC0010")
	ErrSagaFailed         = errors.New("LC0011")
	ErrHeartbeatTimeout   = errors.New("LC0012")
	ErrEntityNotFound     = errors.New("LC0013")
	ErrUnauthorized       = errors.New("LC0014")
)
