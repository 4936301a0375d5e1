package ledger

import (
	"context"
	"sync"
)

// fakeTx is an in-memory Tx used by service tests in place of a *sql.Tx.
type fakeTx struct {
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit() error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback() error {
	if !t.committed {
		t.rolledBack = true
	}

	return nil
}

// fakeRepository is an in-memory Repository used to unit test the posting
// algorithm in service.go without a Postgres connection. It is grounded on
// the same call shape as PostgresRepository but keeps state in plain maps
// guarded by a mutex, since Post drives GetAccountForUpdate/UpdateBalance
// sequentially within a single tx.
type fakeRepository struct {
	mu sync.Mutex

	accounts      map[string]*Account
	accountsByKey map[string]string // tenant|user|subtype|currency -> accountID
	transactions  map[string]*Transaction
	txByKey       map[string]string // tenant|externalRef|chargeRole -> txID
	entries       []*Entry
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		accounts:      make(map[string]*Account),
		accountsByKey: make(map[string]string),
		transactions:  make(map[string]*Transaction),
		txByKey:       make(map[string]string),
	}
}

func accountKey(tenantID, userID string, subtype Subtype, currency string) string {
	return tenantID + "|" + userID + "|" + string(subtype) + "|" + currency
}

func txKey(tenantID, externalRef, chargeRole string) string {
	return tenantID + "|" + externalRef + "|" + chargeRole
}

func (f *fakeRepository) BeginTx(ctx context.Context) (Tx, error) {
	return &fakeTx{}, nil
}

func (f *fakeRepository) GetAccountForUpdate(ctx context.Context, tx Tx, accountID string) (*Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	a, ok := f.accounts[accountID]
	if !ok {
		return nil, ErrNotFound
	}

	cp := *a

	return &cp, nil
}

func (f *fakeRepository) GetAccountByKey(ctx context.Context, tenantID, userID string, subtype Subtype, currency string) (*Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id, ok := f.accountsByKey[accountKey(tenantID, userID, subtype, currency)]
	if !ok {
		return nil, ErrNotFound
	}

	cp := *f.accounts[id]

	return &cp, nil
}

func (f *fakeRepository) GetAccount(ctx context.Context, accountID string) (*Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	a, ok := f.accounts[accountID]
	if !ok {
		return nil, ErrNotFound
	}

	cp := *a

	return &cp, nil
}

func (f *fakeRepository) BulkGetAccounts(ctx context.Context, accountIDs []string) ([]Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]Account, 0, len(accountIDs))

	for _, id := range accountIDs {
		a, ok := f.accounts[id]
		if !ok {
			continue
		}

		out = append(out, *a)
	}

	return out, nil
}

func (f *fakeRepository) CreateAccount(ctx context.Context, a *Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := accountKey(a.TenantID, a.UserID, a.Subtype, a.Currency)
	if _, exists := f.accountsByKey[key]; exists {
		return ErrAccountAlreadyExists
	}

	cp := *a
	f.accounts[a.ID] = &cp
	f.accountsByKey[key] = a.ID

	return nil
}

func (f *fakeRepository) UpdateBalance(ctx context.Context, tx Tx, accountID string, newBalance int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	a, ok := f.accounts[accountID]
	if !ok {
		return ErrNotFound
	}

	a.Balance = newBalance

	return nil
}

func (f *fakeRepository) NextSequence(ctx context.Context, tx Tx, tenantID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var max int64

	for _, t := range f.transactions {
		if t.TenantID == tenantID && t.Sequence > max {
			max = t.Sequence
		}
	}

	return max + 1, nil
}

func (f *fakeRepository) GetTransaction(ctx context.Context, txID string) (*Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.transactions[txID]
	if !ok {
		return nil, ErrNotFound
	}

	cp := *t

	return &cp, nil
}

func (f *fakeRepository) FindTransactionByKey(ctx context.Context, tenantID, externalRef, chargeRole string) (*Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id, ok := f.txByKey[txKey(tenantID, externalRef, chargeRole)]
	if !ok {
		return nil, ErrNotFound
	}

	cp := *f.transactions[id]

	return &cp, nil
}

func (f *fakeRepository) InsertTransaction(ctx context.Context, tx Tx, t *Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := txKey(t.TenantID, t.ExternalRef, t.ChargeRole)
	if _, exists := f.txByKey[key]; exists {
		return ErrTransactionAlreadyExists
	}

	cp := *t
	f.transactions[t.ID] = &cp
	f.txByKey[key] = t.ID

	return nil
}

func (f *fakeRepository) InsertEntry(ctx context.Context, tx Tx, e *Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	cp := *e
	f.entries = append(f.entries, &cp)

	return nil
}

func (f *fakeRepository) ListTransactions(ctx context.Context, tenantID string, cursor *int64, limit int) ([]Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []Transaction

	for _, t := range f.transactions {
		if t.TenantID != tenantID {
			continue
		}

		if cursor != nil && t.Sequence >= *cursor {
			continue
		}

		out = append(out, *t)
	}

	return out, nil
}
