package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/shoreline-pay/ledgercore/internal/events"
	"github.com/shoreline-pay/ledgercore/internal/ledger"
	"github.com/shoreline-pay/ledgercore/internal/platform/ledgererr"
	"github.com/shoreline-pay/ledgercore/internal/platform/mlog"
	"github.com/shoreline-pay/ledgercore/internal/platform/motel"
)

// UseCase is WAL's entry point. It never authorizes a posting on wallet
// state alone (spec §4.2 "Rule"): every balance figure it serves is read
// straight from, or recomputed from, Ledger.
type UseCase struct {
	Repo   Repository
	Ledger *ledger.UseCase
}

// NewUseCase wires a UseCase over repo and the ledger use case it projects.
func NewUseCase(repo Repository, ledgerUC *ledger.UseCase) *UseCase {
	return &UseCase{Repo: repo, Ledger: ledgerUC}
}

// EnsureWallet returns the wallet for (tenant, user, currency, category),
// lazily creating both its main and bonus ledger accounts and the wallet
// row itself on first reference. Races on the wallet's natural key collapse
// via unique-index conflict, same discipline as getOrCreateAccount.
func (uc *UseCase) EnsureWallet(ctx context.Context, tenantID, userID, currency string, policy ledger.AccountPolicy) (*Wallet, error) {
	logger := mlog.NewLoggerFromContext(ctx)
	ctx, span := motel.StartSpan(ctx, "wallet", "ensure_wallet")
	defer span.End()

	existing, err := uc.Repo.GetByKey(ctx, tenantID, userID, currency, CategoryStandard)
	if err == nil {
		return existing, nil
	}

	if !errors.Is(err, ErrNotFound) {
		return nil, motel.RecordSpanError(span, err)
	}

	mainAccount, err := uc.Ledger.GetOrCreateAccount(ctx, tenantID, userID, ledger.SubtypeMain, currency, policy)
	if err != nil {
		return nil, motel.RecordSpanError(span, err)
	}

	bonusAccount, err := uc.Ledger.GetOrCreateAccount(ctx, tenantID, userID, ledger.SubtypeBonus, currency, ledger.AccountPolicy{AllowNegative: false})
	if err != nil {
		return nil, motel.RecordSpanError(span, err)
	}

	w := &Wallet{
		ID:             uuid.NewString(),
		TenantID:       tenantID,
		UserID:         userID,
		Currency:       currency,
		Category:       CategoryStandard,
		MainAccountID:  mainAccount.ID,
		BonusAccountID: bonusAccount.ID,
		AllowNegative:  policy.AllowNegative,
		CreditLimit:    policy.CreditLimit,
		Status:         StatusActive,
		UpdatedAt:      time.Now(),
	}

	if err := uc.Repo.Create(ctx, w); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			logger.Infof("wallet creation race lost for tenant=%s user=%s currency=%s, reading winner", tenantID, userID, currency)

			return uc.Repo.GetByKey(ctx, tenantID, userID, currency, CategoryStandard)
		}

		return nil, motel.RecordSpanError(span, err)
	}

	return w, nil
}

// ReadBalance returns the projected wallet, which may lag LDG by up to the
// staleness bound (spec §5).
func (uc *UseCase) ReadBalance(ctx context.Context, walletID string) (*Wallet, error) {
	ctx, span := motel.StartSpan(ctx, "wallet", "read_balance")
	defer span.End()

	w, err := uc.Repo.Get(ctx, walletID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ledgererr.Translate(ledgererr.ErrEntityNotFound, "Wallet")
		}

		return nil, motel.RecordSpanError(span, err)
	}

	return w, nil
}

// BulkReadBalances batches a lookup of multiple wallets (SPEC_FULL §3
// supplemented feature, mirrors bulkWalletBalances of spec §6).
func (uc *UseCase) BulkReadBalances(ctx context.Context, walletIDs []string) ([]Wallet, error) {
	ctx, span := motel.StartSpan(ctx, "wallet", "bulk_read_balances")
	defer span.End()

	ws, err := uc.Repo.BulkGet(ctx, walletIDs)

	return ws, motel.RecordSpanError(span, err)
}

// UserBalances returns every wallet a user holds across currencies (spec
// §6 "userBalances"), read straight from the projection — same staleness
// bound as ReadBalance.
func (uc *UseCase) UserBalances(ctx context.Context, tenantID, userID string) ([]Wallet, error) {
	ctx, span := motel.StartSpan(ctx, "wallet", "user_balances")
	defer span.End()

	ws, err := uc.Repo.ListByUser(ctx, tenantID, userID)

	return ws, motel.RecordSpanError(span, err)
}

// SyncFromLedger recomputes balance and bonusBalance for walletID straight
// from LDG and writes them atomically (spec §4.2 "Update protocol").
func (uc *UseCase) SyncFromLedger(ctx context.Context, walletID string) error {
	ctx, span := motel.StartSpan(ctx, "wallet", "sync_from_ledger")
	defer span.End()

	w, err := uc.Repo.Get(ctx, walletID)
	if err != nil {
		return motel.RecordSpanError(span, err)
	}

	accs, err := uc.Ledger.BulkGetAccounts(ctx, []string{w.MainAccountID, w.BonusAccountID})
	if err != nil {
		return motel.RecordSpanError(span, err)
	}

	var mainBalance, bonusBalance int64

	for _, a := range accs {
		switch a.ID {
		case w.MainAccountID:
			mainBalance = a.Balance
		case w.BonusAccountID:
			bonusBalance = a.Balance
		}
	}

	return motel.RecordSpanError(span, uc.Repo.UpdateBalances(ctx, walletID, mainBalance, bonusBalance))
}

// SyncFromAccount is the event-driven sync path: given the id of a ledger
// account that just posted, it resolves the owning wallet (if any — system
// accounts such as conversion or fee accounts have none) and syncs it.
func (uc *UseCase) SyncFromAccount(ctx context.Context, accountID string) error {
	ctx, span := motel.StartSpan(ctx, "wallet", "sync_from_account")
	defer span.End()

	w, err := uc.Repo.GetByAccountID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}

		return motel.RecordSpanError(span, err)
	}

	return uc.SyncFromLedger(ctx, w.ID)
}

// HandleLedgerEvent is the consumer-side handler bound to ledger.*.completed
// routing keys, implementing the event-driven half of the update protocol;
// OPS additionally calls SyncFromLedger inline so a request's own read sees
// the new balance without waiting on delivery (spec §4.2 "Inline fallback").
func (uc *UseCase) HandleLedgerEvent(ctx context.Context, evt events.Event) error {
	fromAccountID, _ := evt.Extra["fromAccountId"].(string)
	toAccountID, _ := evt.Extra["toAccountId"].(string)

	for _, accountID := range []string{fromAccountID, toAccountID} {
		if accountID == "" {
			continue
		}

		if err := uc.SyncFromAccount(ctx, accountID); err != nil {
			return err
		}
	}

	return nil
}

// IncrementLifetimeCounters records advisory deposit/withdrawal/fee
// lifetime totals. OPS calls this, never LDG (spec §4.2).
func (uc *UseCase) IncrementLifetimeCounters(ctx context.Context, walletID string, deposits, withdrawals, fees int64) error {
	ctx, span := motel.StartSpan(ctx, "wallet", "increment_lifetime_counters")
	defer span.End()

	return motel.RecordSpanError(span, uc.Repo.IncrementLifetimeCounters(ctx, walletID, deposits, withdrawals, fees))
}
