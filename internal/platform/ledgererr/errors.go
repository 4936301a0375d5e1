// Package ledgererr defines the typed business errors surfaced to OPS/API
// callers and the switchboard that translates sentinel errors raised deep in
// the ledger/wallet/saga layers into one of this service's nine
// caller-facing error kinds (spec §7).
package ledgererr

import (
	"errors"
	"fmt"
)

// ValidationError indicates the request failed schema or business
// validation before any I/O occurred.
type ValidationError struct {
	EntityType string
	Code       string
	Title      string
	Message    string
	Err        error
}

func (e ValidationError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s - %s", e.Code, e.Message)
	}

	return e.Message
}

func (e ValidationError) Unwrap() error { return e.Err }

// ConflictError indicates the operation collided with an existing one
// (DuplicateOperation, ConflictingReplay).
type ConflictError struct {
	EntityType string
	Code       string
	Title      string
	Message    string
	Err        error
}

func (e ConflictError) Error() string  { return e.Message }
func (e ConflictError) Unwrap() error  { return e.Err }

// ReplayError indicates an idempotent replay — not a failure, the caller
// should receive the prior result with success=true.
type ReplayError struct {
	Code    string
	Title   string
	Message string
	TxID    string
}

func (e ReplayError) Error() string { return e.Message }

// PreconditionError indicates an account-state precondition failed
// (AccountClosed, MismatchedCurrency) or an authorization limit was hit
// (InsufficientFunds, CreditLimitExceeded).
type PreconditionError struct {
	EntityType string
	Code       string
	Title      string
	Message    string
	Err        error
}

func (e PreconditionError) Error() string { return e.Message }
func (e PreconditionError) Unwrap() error { return e.Err }

// NotFoundError indicates the referenced entity does not exist.
type NotFoundError struct {
	EntityType string
	Code       string
	Title      string
	Message    string
}

func (e NotFoundError) Error() string { return e.Message }

// UnauthorizedError indicates the caller's capability lookup failed.
type UnauthorizedError struct {
	Code    string
	Title   string
	Message string
}

func (e UnauthorizedError) Error() string { return e.Message }

// TransientError wraps a storage fault that the caller's layer should retry
// with bounded backoff before surfacing failure.
type TransientError struct {
	Code    string
	Message string
	Err     error
}

func (e TransientError) Error() string { return e.Message }
func (e TransientError) Unwrap() error { return e.Err }

// SagaOutcomeError reports a saga that ran to a non-success terminal state.
type SagaOutcomeError struct {
	SagaID string
	Status string // compensated | failed | recovered
	Cause  error
}

func (e SagaOutcomeError) Error() string {
	return fmt.Sprintf("saga %s ended %s: %v", e.SagaID, e.Status, e.Cause)
}

func (e SagaOutcomeError) Unwrap() error { return e.Cause }

// Translate maps a sentinel error (or an error wrapping one) raised by a
// domain layer into its caller-facing typed form. entityType and args feed
// the message templates for errors that carry context.
//
//nolint:gocyclo
func Translate(err error, entityType string, args ...any) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrValidation):
		return ValidationError{
			EntityType: entityType,
			Code:       ErrValidation.Error(),
			Title:      "Validation Error",
			Message:    fmt.Sprintf("The request is invalid: %s", fmt.Sprint(args...)),
			Err:        err,
		}
	case errors.Is(err, ErrDuplicateOperation):
		return ConflictError{
			EntityType: entityType,
			Code:       ErrDuplicateOperation.Error(),
			Title:      "Duplicate Operation",
			Message:    "A non-terminal operation with this idempotency key already exists.",
			Err:        err,
		}
	case errors.Is(err, ErrConflictingReplay):
		return ConflictError{
			EntityType: entityType,
			Code:       ErrConflictingReplay.Error(),
			Title:      "Conflicting Replay",
			Message:    "The externalRef was already used for an operation with different parameters.",
			Err:        err,
		}
	case errors.Is(err, ErrInsufficientFunds):
		return PreconditionError{
			EntityType: entityType,
			Code:       ErrInsufficientFunds.Error(),
			Title:      "Insufficient Funds",
			Message:    "The source account does not have sufficient available balance for this operation.",
			Err:        err,
		}
	case errors.Is(err, ErrCreditLimit):
		return PreconditionError{
			EntityType: entityType,
			Code:       ErrCreditLimit.Error(),
			Title:      "Credit Limit Exceeded",
			Message:    "Posting this entry would push the account past its configured credit limit.",
			Err:        err,
		}
	case errors.Is(err, ErrAccountClosed):
		return PreconditionError{
			EntityType: entityType,
			Code:       ErrAccountClosed.Error(),
			Title:      "Account Closed",
			Message:    "One of the accounts referenced by this operation is closed to further postings.",
			Err:        err,
		}
	case errors.Is(err, ErrMismatchedCurrency):
		return PreconditionError{
			EntityType: entityType,
			Code:       ErrMismatchedCurrency.Error(),
			Title:      "Mismatched Currency",
			Message:    "The source and destination accounts do not share a currency.",
			Err:        err,
		}
	case errors.Is(err, ErrEntityNotFound):
		return NotFoundError{
			EntityType: entityType,
			Code:       ErrEntityNotFound.Error(),
			Title:      "Entity Not Found",
			Message:    fmt.Sprintf("No %s was found for the given identifier.", entityType),
		}
	case errors.Is(err, ErrUnauthorized):
		return UnauthorizedError{
			Code:    ErrUnauthorized.Error(),
			Title:   "Unauthorized",
			Message: "The caller's permission lookup denied this operation.",
		}
	case errors.Is(err, ErrTransientStorage):
		return TransientError{
			Code:    ErrTransientStorage.Error(),
			Message: "A transient storage fault occurred and retries were exhausted.",
			Err:     err,
		}
	default:
		return err
	}
}
