package wallet

import (
	"context"
	"sync"

	"github.com/shoreline-pay/ledgercore/internal/ledger"
)

// fakeRepository is an in-memory wallet.Repository used by service tests.
type fakeRepository struct {
	mu sync.Mutex

	wallets map[string]*Wallet
	byKey   map[string]string // tenant|user|currency|category -> walletID
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		wallets: make(map[string]*Wallet),
		byKey:   make(map[string]string),
	}
}

func walletKey(tenantID, userID, currency string, category Category) string {
	return tenantID + "|" + userID + "|" + currency + "|" + string(category)
}

func (f *fakeRepository) GetByKey(ctx context.Context, tenantID, userID, currency string, category Category) (*Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id, ok := f.byKey[walletKey(tenantID, userID, currency, category)]
	if !ok {
		return nil, ErrNotFound
	}

	cp := *f.wallets[id]

	return &cp, nil
}

func (f *fakeRepository) Get(ctx context.Context, walletID string) (*Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w, ok := f.wallets[walletID]
	if !ok {
		return nil, ErrNotFound
	}

	cp := *w

	return &cp, nil
}

func (f *fakeRepository) GetByAccountID(ctx context.Context, accountID string) (*Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, w := range f.wallets {
		if w.MainAccountID == accountID || w.BonusAccountID == accountID {
			cp := *w
			return &cp, nil
		}
	}

	return nil, ErrNotFound
}

func (f *fakeRepository) BulkGet(ctx context.Context, walletIDs []string) ([]Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]Wallet, 0, len(walletIDs))

	for _, id := range walletIDs {
		if w, ok := f.wallets[id]; ok {
			out = append(out, *w)
		}
	}

	return out, nil
}

func (f *fakeRepository) Create(ctx context.Context, w *Wallet) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := walletKey(w.TenantID, w.UserID, w.Currency, w.Category)
	if _, exists := f.byKey[key]; exists {
		return ErrAlreadyExists
	}

	cp := *w
	f.wallets[w.ID] = &cp
	f.byKey[key] = w.ID

	return nil
}

func (f *fakeRepository) UpdateBalances(ctx context.Context, walletID string, balance, bonusBalance int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	w, ok := f.wallets[walletID]
	if !ok {
		return ErrNotFound
	}

	w.Balance = balance
	w.BonusBalance = bonusBalance

	return nil
}

func (f *fakeRepository) IncrementLifetimeCounters(ctx context.Context, walletID string, deposits, withdrawals, fees int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	w, ok := f.wallets[walletID]
	if !ok {
		return ErrNotFound
	}

	w.LifetimeDeposits += deposits
	w.LifetimeWithdrawals += withdrawals
	w.LifetimeFees += fees

	return nil
}

// fakeLedgerRepository is the minimal in-memory ledger.Repository needed to
// drive wallet service tests without pulling in ledger's own test-only fake
// (unexported across packages).
type fakeLedgerRepository struct {
	mu            sync.Mutex
	accounts      map[string]*ledger.Account
	accountsByKey map[string]string
	transactions  map[string]*ledger.Transaction
	txByKey       map[string]string
}

func newFakeLedgerRepository() *fakeLedgerRepository {
	return &fakeLedgerRepository{
		accounts:      make(map[string]*ledger.Account),
		accountsByKey: make(map[string]string),
		transactions:  make(map[string]*ledger.Transaction),
		txByKey:       make(map[string]string),
	}
}

type fakeLedgerTx struct{}

func (fakeLedgerTx) Commit() error   { return nil }
func (fakeLedgerTx) Rollback() error { return nil }

func ledgerAccountKey(tenantID, userID string, subtype ledger.Subtype, currency string) string {
	return tenantID + "|" + userID + "|" + string(subtype) + "|" + currency
}

func (f *fakeLedgerRepository) BeginTx(ctx context.Context) (ledger.Tx, error) {
	return fakeLedgerTx{}, nil
}

func (f *fakeLedgerRepository) GetAccountForUpdate(ctx context.Context, tx ledger.Tx, accountID string) (*ledger.Account, error) {
	return f.GetAccount(ctx, accountID)
}

func (f *fakeLedgerRepository) GetAccountByKey(ctx context.Context, tenantID, userID string, subtype ledger.Subtype, currency string) (*ledger.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id, ok := f.accountsByKey[ledgerAccountKey(tenantID, userID, subtype, currency)]
	if !ok {
		return nil, ledger.ErrNotFound
	}

	cp := *f.accounts[id]

	return &cp, nil
}

func (f *fakeLedgerRepository) GetAccount(ctx context.Context, accountID string) (*ledger.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	a, ok := f.accounts[accountID]
	if !ok {
		return nil, ledger.ErrNotFound
	}

	cp := *a

	return &cp, nil
}

func (f *fakeLedgerRepository) BulkGetAccounts(ctx context.Context, accountIDs []string) ([]ledger.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]ledger.Account, 0, len(accountIDs))

	for _, id := range accountIDs {
		if a, ok := f.accounts[id]; ok {
			out = append(out, *a)
		}
	}

	return out, nil
}

func (f *fakeLedgerRepository) CreateAccount(ctx context.Context, a *ledger.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := ledgerAccountKey(a.TenantID, a.UserID, a.Subtype, a.Currency)
	if _, exists := f.accountsByKey[key]; exists {
		return ledger.ErrAccountAlreadyExists
	}

	cp := *a
	f.accounts[a.ID] = &cp
	f.accountsByKey[key] = a.ID

	return nil
}

func (f *fakeLedgerRepository) UpdateBalance(ctx context.Context, tx ledger.Tx, accountID string, newBalance int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	a, ok := f.accounts[accountID]
	if !ok {
		return ledger.ErrNotFound
	}

	a.Balance = newBalance

	return nil
}

func (f *fakeLedgerRepository) NextSequence(ctx context.Context, tx ledger.Tx, tenantID string) (int64, error) {
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

func (f *fakeLedgerRepository) GetTransaction(ctx context.Context, txID string) (*ledger.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.transactions[txID]
	if !ok {
		return nil, ledger.ErrNotFound
	}

	cp := *t

	return &cp, nil
}

func (f *fakeLedgerRepository) FindTransactionByKey(ctx context.Context, tenantID, externalRef, chargeRole string) (*ledger.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id, ok := f.txByKey[tenantID+"|"+externalRef+"|"+chargeRole]
	if !ok {
		return nil, ledger.ErrNotFound
	}

	cp := *f.transactions[id]

	return &cp, nil
}

func (f *fakeLedgerRepository) InsertTransaction(ctx context.Context, tx ledger.Tx, t *ledger.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := t.TenantID + "|" + t.ExternalRef + "|" + t.ChargeRole
	if _, exists := f.txByKey[key]; exists {
		return ledger.ErrTransactionAlreadyExists
	}

	cp := *t
	f.transactions[t.ID] = &cp
	f.txByKey[key] = t.ID

	return nil
}

func (f *fakeLedgerRepository) InsertEntry(ctx context.Context, tx ledger.Tx, e *ledger.Entry) error {
	return nil
}

func (f *fakeLedgerRepository) ListTransactions(ctx context.Context, tenantID string, cursor *int64, limit int) ([]ledger.Transaction, error) {
	return nil, nil
}
