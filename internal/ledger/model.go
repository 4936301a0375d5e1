// Package ledger implements LDG: the double-entry store of record. It is
// the only component that ever authorizes or performs a posting; every
// other component (WAL, OPS) treats it as the single source of truth for
// balances.
package ledger

import "time"

// Subtype enumerates the closed set of account subtypes spec.md §3 defines.
type Subtype string

const (
	SubtypeMain       Subtype = "main"
	SubtypeBonus      Subtype = "bonus"
	SubtypeLocked     Subtype = "locked"
	SubtypeConversion Subtype = "conversion"
	SubtypeFee        Subtype = "fee"
)

// AccountStatus is the closed set of account lifecycle states.
type AccountStatus string

const (
	AccountActive AccountStatus = "active"
	AccountClosed AccountStatus = "closed"
)

// TransactionType is the closed set of ledger transaction kinds.
type TransactionType string

const (
	TxDeposit    TransactionType = "deposit"
	TxWithdrawal TransactionType = "withdrawal"
	TxTransfer   TransactionType = "transfer"
	TxFee        TransactionType = "fee"
	TxConversion TransactionType = "conversion"
	TxBet        TransactionType = "bet"
	TxWin        TransactionType = "win"
	TxRefund     TransactionType = "refund"
)

// TransactionStatus is the closed set of ledger transaction states.
type TransactionStatus string

const (
	TxPosted   TransactionStatus = "posted"
	TxReversed TransactionStatus = "reversed"
)

// Direction is debit or credit, on a single ledger entry.
type Direction string

const (
	DirectionDebit  Direction = "debit"
	DirectionCredit Direction = "credit"
)

// AccountPolicy carries the caller-supplied posting rules for an account,
// fixed at creation time (spec §9 open question: the allowNegative flag is
// frozen at creation; flipping it requires a distinct admin operation, not
// modeled here since it is out of LDG's scope).
type AccountPolicy struct {
	AllowNegative bool
	CreditLimit   *int64 // nil means no credit limit
}

// Account is a single ledger account: one per (tenant, user, subtype, currency).
type Account struct {
	ID            string
	TenantID      string
	UserID        string
	Subtype       Subtype
	Currency      string
	Balance       int64
	AllowNegative bool
	CreditLimit   *int64
	Status        AccountStatus
	CreatedAt     time.Time
}

// AvailableBalance returns balance minus lockedAmount, the "available for
// further posting" figure spec §4.1 defines for getBalance.
func (a Account) AvailableBalance(lockedAmount int64) int64 {
	return a.Balance - lockedAmount
}

// PostRequest is the input to Post; see spec §4.1.
type PostRequest struct {
	TenantID       string
	Type           TransactionType
	FromAccountID  string
	ToAccountID    string
	Amount         int64
	Currency       string
	ExternalRef    string
	ChargeRole     string // disambiguates (tenant, externalRef) for multi-leg operations, e.g. "debit"/"credit"/"fee"
	InitiatedBy    string
	Metadata       map[string]any
	ParentTxID     *string
}

// Transaction is an immutable, posted (or reversed) double-entry record.
type Transaction struct {
	ID            string
	TenantID      string
	Type          TransactionType
	FromAccountID string
	ToAccountID   string
	Amount        int64
	Currency      string
	ExternalRef   string
	ChargeRole    string
	ParentTxID    *string
	Metadata      map[string]any
	InitiatedBy   string
	Status        TransactionStatus
	CreatedAt     time.Time
	Sequence      int64
}

// Entry is one leg (debit or credit) of a Transaction.
type Entry struct {
	ID            string
	TransactionID string
	AccountID     string
	Direction     Direction
	Amount        int64
	BalanceAfter  int64
	Sequence      int64
	CreatedAt     time.Time
}

// Balance is the result of getBalance: balance plus availability after
// subtracting any locked amount known to the caller (WAL tracks locked funds;
// LDG itself has no notion of a lock beyond the account's balance).
type Balance struct {
	Balance          int64
	AvailableBalance int64
}
