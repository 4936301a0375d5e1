package ops

import (
	"context"
	"errors"
	"sync"

	"github.com/shoreline-pay/ledgercore/internal/idempotency"
	"github.com/shoreline-pay/ledgercore/internal/ledger"
	"github.com/shoreline-pay/ledgercore/internal/wallet"
)

// errInjectedSyncFailure simulates a wallet-projection write fault, used to
// drive saga-compensation tests that fail the SyncWallets step.
var errInjectedSyncFailure = errors.New("fake: injected sync failure")

// fakeRepository is an in-memory ops.Repository used by service tests.
type fakeRepository struct {
	mu         sync.Mutex
	transfers  map[string]*Transfer
	byExternal map[string]string // tenant|externalRef -> id
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		transfers:  make(map[string]*Transfer),
		byExternal: make(map[string]string),
	}
}

func externalKey(tenantID, externalRef string) string {
	return tenantID + "|" + externalRef
}

func (f *fakeRepository) Create(ctx context.Context, t *Transfer) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := externalKey(t.TenantID, t.ExternalRef)
	if _, exists := f.byExternal[key]; exists {
		return ErrAlreadyExists
	}

	cp := *t
	f.transfers[t.ID] = &cp
	f.byExternal[key] = t.ID

	return nil
}

func (f *fakeRepository) Get(ctx context.Context, id string) (*Transfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.transfers[id]
	if !ok {
		return nil, ErrNotFound
	}

	cp := *t

	return &cp, nil
}

func (f *fakeRepository) GetByExternalRef(ctx context.Context, tenantID, externalRef string) (*Transfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id, ok := f.byExternal[externalKey(tenantID, externalRef)]
	if !ok {
		return nil, ErrNotFound
	}

	cp := *f.transfers[id]

	return &cp, nil
}

func (f *fakeRepository) UpdateStatus(ctx context.Context, id string, status Status, debitTxID, creditTxID *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.transfers[id]
	if !ok {
		return ErrNotFound
	}

	t.Status = status

	if debitTxID != nil {
		t.DebitTxID = debitTxID
	}

	if creditTxID != nil {
		t.CreditTxID = creditTxID
	}

	return nil
}

func (f *fakeRepository) ExistsNonTerminal(ctx context.Context, tenantID, idempotencyKey string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id, ok := f.byExternal[externalKey(tenantID, idempotencyKey)]
	if !ok {
		return false, nil
	}

	return !f.transfers[id].Status.Terminal(), nil
}

// fakeLocker is an in-memory Locker: every Acquire call succeeds
// immediately and Release is a no-op, sufficient for single-goroutine
// service tests that don't exercise IDG's pre-lock contention itself.
type fakeLocker struct{}

func (fakeLocker) Acquire(ctx context.Context, tenantID, key string) (idempotency.Release, error) {
	return func() {}, nil
}

// fakeLedgerRepository is the minimal in-memory ledger.Repository needed to
// drive ops service tests without pulling in ledger's own test-only fake
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

// fakeWalletRepository is the minimal in-memory wallet.Repository needed to
// drive ops service tests.
type fakeWalletRepository struct {
	mu        sync.Mutex
	wallets   map[string]*wallet.Wallet
	byKey     map[string]string // tenant|user|currency|category -> id
	byAccount map[string]string // accountID -> wallet id

	// failUpdateBalances, when true, makes every UpdateBalances call fail;
	// used to inject a SyncWallets-step failure in compensation tests.
	failUpdateBalances bool
}

func newFakeWalletRepository() *fakeWalletRepository {
	return &fakeWalletRepository{
		wallets:   make(map[string]*wallet.Wallet),
		byKey:     make(map[string]string),
		byAccount: make(map[string]string),
	}
}

func walletKey(tenantID, userID, currency string, category wallet.Category) string {
	return tenantID + "|" + userID + "|" + currency + "|" + string(category)
}

func (f *fakeWalletRepository) GetByKey(ctx context.Context, tenantID, userID, currency string, category wallet.Category) (*wallet.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id, ok := f.byKey[walletKey(tenantID, userID, currency, category)]
	if !ok {
		return nil, wallet.ErrNotFound
	}

	cp := *f.wallets[id]

	return &cp, nil
}

func (f *fakeWalletRepository) Get(ctx context.Context, walletID string) (*wallet.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w, ok := f.wallets[walletID]
	if !ok {
		return nil, wallet.ErrNotFound
	}

	cp := *w

	return &cp, nil
}

func (f *fakeWalletRepository) GetByAccountID(ctx context.Context, accountID string) (*wallet.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id, ok := f.byAccount[accountID]
	if !ok {
		return nil, wallet.ErrNotFound
	}

	cp := *f.wallets[id]

	return &cp, nil
}

func (f *fakeWalletRepository) BulkGet(ctx context.Context, walletIDs []string) ([]wallet.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]wallet.Wallet, 0, len(walletIDs))

	for _, id := range walletIDs {
		if w, ok := f.wallets[id]; ok {
			out = append(out, *w)
		}
	}

	return out, nil
}

func (f *fakeWalletRepository) ListByUser(ctx context.Context, tenantID, userID string) ([]wallet.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []wallet.Wallet

	for _, w := range f.wallets {
		if w.TenantID == tenantID && w.UserID == userID {
			out = append(out, *w)
		}
	}

	return out, nil
}

func (f *fakeWalletRepository) Create(ctx context.Context, w *wallet.Wallet) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := walletKey(w.TenantID, w.UserID, w.Currency, w.Category)
	if _, exists := f.byKey[key]; exists {
		return wallet.ErrAlreadyExists
	}

	cp := *w
	f.wallets[w.ID] = &cp
	f.byKey[key] = w.ID
	f.byAccount[w.MainAccountID] = w.ID
	f.byAccount[w.BonusAccountID] = w.ID

	return nil
}

func (f *fakeWalletRepository) UpdateBalances(ctx context.Context, walletID string, balance, bonusBalance int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failUpdateBalances {
		return errInjectedSyncFailure
	}

	w, ok := f.wallets[walletID]
	if !ok {
		return wallet.ErrNotFound
	}

	w.Balance = balance
	w.BonusBalance = bonusBalance

	return nil
}

func (f *fakeWalletRepository) IncrementLifetimeCounters(ctx context.Context, walletID string, deposits, withdrawals, fees int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	w, ok := f.wallets[walletID]
	if !ok {
		return wallet.ErrNotFound
	}

	w.LifetimeDeposits += deposits
	w.LifetimeWithdrawals += withdrawals
	w.LifetimeFees += fees

	return nil
}
