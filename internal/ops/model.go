// Package ops implements OPS: Deposit, Withdrawal and Transfer composed as
// sagas over LDG, WAL and IDG (spec §4.5). Each entry point derives an
// idempotency key, guards against a duplicate in-flight attempt, posts one
// or two ledger transactions, persists a Transfer aggregate, and syncs the
// wallet projection inline.
package ops

import "time"

// Status is the closed set of Transfer lifecycle states (spec §4.5.3).
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether status can no longer transition (spec §4.5.3:
// "Terminal set = {completed, failed, cancelled}. Transitions are monotonic;
// no re-opening.").
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Kind distinguishes the three entry points; Transfer carries the kind that
// created it so a recovered saga knows which Definition to look up.
type Kind string

const (
	KindDeposit    Kind = "deposit"
	KindWithdrawal Kind = "withdrawal"
	KindTransfer   Kind = "transfer"
)

// Transfer is the aggregate OPS persists once a saga starts (spec §3:
// "Exists iff both the debit and credit ledger transactions exist.").
type Transfer struct {
	ID          string
	TenantID    string
	Kind        Kind
	FromUserID  string
	ToUserID    string
	Amount      int64
	FeeAmount   int64
	Currency    string
	Status      Status
	ExternalRef string // the idempotency key: caller-supplied or IDG-derived
	SagaID      string
	DebitTxID   *string
	CreditTxID  *string
	Metadata    map[string]any
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Request is the input shared by CreateDeposit/CreateWithdrawal/CreateTransfer
// (spec §6 "Operations API").
type Request struct {
	TenantID    string
	FromUserID  string
	ToUserID    string
	Amount      int64
	Currency    string
	Method      string
	ExternalRef string
	Metadata    map[string]any
}

// Result is what every OPS entry point returns (spec §6).
type Result struct {
	Success         bool
	Transfer        *Transfer
	DebitTxID       string
	CreditTxID      string
	SagaID          string
	Errors          []string
	ExecutionTimeMs int64
}
