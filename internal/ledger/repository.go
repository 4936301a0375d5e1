package ledger

import "context"

// Tx is the minimal transaction handle the posting algorithm drives. The
// production implementation's BeginTx returns a *sql.Tx (which already
// satisfies this interface); fakes used in tests satisfy it without a real
// database.
type Tx interface {
	Commit() error
	Rollback() error
}

// Repository is the storage-layer contract LDG's service depends on. All
// mutating methods accept a Tx so the posting algorithm in service.go can
// run steps 1-6 of spec §4.1 as one ACID unit of work.
type Repository interface {
	// BeginTx starts a transaction with the isolation the posting algorithm
	// requires (repeatable read, so the FOR UPDATE row locks below are safe
	// against write skew).
	BeginTx(ctx context.Context) (Tx, error)

	// GetAccountForUpdate locks accountID's row for the duration of tx.
	GetAccountForUpdate(ctx context.Context, tx Tx, accountID string) (*Account, error)

	// GetAccountByKey looks up an account by its natural key, used by
	// getOrCreateAccount before attempting an insert.
	GetAccountByKey(ctx context.Context, tenantID, userID string, subtype Subtype, currency string) (*Account, error)

	// GetAccount looks up an account by id, outside any transaction.
	GetAccount(ctx context.Context, accountID string) (*Account, error)

	// BulkGetAccounts batches a lookup of multiple accounts by id.
	BulkGetAccounts(ctx context.Context, accountIDs []string) ([]Account, error)

	// CreateAccount inserts a new account; implementations translate a
	// unique-key violation on (tenant,user,subtype,currency) into
	// ErrAccountAlreadyExists so the caller can read-and-return the winner.
	CreateAccount(ctx context.Context, account *Account) error

	// UpdateBalance persists account's new balance inside tx.
	UpdateBalance(ctx context.Context, tx Tx, accountID string, newBalance int64) error

	// NextSequence allocates the next per-tenant monotonic sequence number.
	NextSequence(ctx context.Context, tx Tx, tenantID string) (int64, error)

	// GetTransaction looks up a transaction by id, used by Reverse.
	GetTransaction(ctx context.Context, txID string) (*Transaction, error)

	// FindTransactionByKey looks up a transaction by its idempotency key,
	// used both by the conflict-resolution path in Post and by callers
	// checking for a prior result.
	FindTransactionByKey(ctx context.Context, tenantID, externalRef, chargeRole string) (*Transaction, error)

	// InsertTransaction inserts txn inside tx; implementations translate a
	// unique-key violation on (tenant,externalRef,chargeRole) into
	// ErrTransactionAlreadyExists.
	InsertTransaction(ctx context.Context, tx Tx, txn *Transaction) error

	// InsertEntry inserts e inside tx.
	InsertEntry(ctx context.Context, tx Tx, e *Entry) error

	// ListTransactions returns up to limit transactions for tenantID whose
	// sequence is strictly below the cursor, newest first (supplemented cursor-pagination
	// feature, SPEC_FULL §3).
	ListTransactions(ctx context.Context, tenantID string, cursor *int64, limit int) ([]Transaction, error)
}
