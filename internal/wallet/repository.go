package wallet

import "context"

// Repository is the storage contract WAL's service depends on.
type Repository interface {
	// GetByKey looks up a wallet by its natural key.
	GetByKey(ctx context.Context, tenantID, userID, currency string, category Category) (*Wallet, error)

	// Get looks up a wallet by id.
	Get(ctx context.Context, walletID string) (*Wallet, error)

	// GetByAccountID looks up the wallet whose main or bonus account is
	// accountID, used by the event-driven sync path which only knows the
	// ledger account that changed.
	GetByAccountID(ctx context.Context, accountID string) (*Wallet, error)

	// BulkGet batches a lookup of multiple wallets by id.
	BulkGet(ctx context.Context, walletIDs []string) ([]Wallet, error)

	// ListByUser returns every currency/category wallet tenantID/userID owns
	// (spec §6 "userBalances").
	ListByUser(ctx context.Context, tenantID, userID string) ([]Wallet, error)

	// Create inserts a new wallet; implementations translate a unique-key
	// violation on (tenant,user,currency,category) into ErrAlreadyExists.
	Create(ctx context.Context, w *Wallet) error

	// UpdateBalances overwrites the projected balance fields for walletID.
	UpdateBalances(ctx context.Context, walletID string, balance, bonusBalance int64) error

	// IncrementLifetimeCounters adds deposits, withdrawals and fees to the
	// matching lifetime counters;
	// these are advisory only (spec: "must not be used for any
	// authorization decision").
	IncrementLifetimeCounters(ctx context.Context, walletID string, deposits, withdrawals, fees int64) error
}
