package wallet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoreline-pay/ledgercore/internal/events"
	"github.com/shoreline-pay/ledgercore/internal/ledger"
)

func eventWithLegs(fromAccountID, toAccountID string) events.Event {
	return events.Event{
		Topic: "ledger.deposit.completed",
		Extra: map[string]any{"fromAccountId": fromAccountID, "toAccountId": toAccountID},
	}
}

var _ Repository = (*fakeRepository)(nil)
var _ ledger.Repository = (*fakeLedgerRepository)(nil)

func newTestUseCase() (*UseCase, *ledger.UseCase) {
	ledgerUC := ledger.NewUseCase(newFakeLedgerRepository(), nil)
	walletUC := NewUseCase(newFakeRepository(), ledgerUC)

	return walletUC, ledgerUC
}

func TestEnsureWallet_CreatesMainAndBonusAccounts(t *testing.T) {
	uc, ledgerUC := newTestUseCase()
	ctx := context.Background()

	w, err := uc.EnsureWallet(ctx, "tenant-1", "user-1", "USD", ledger.AccountPolicy{})
	require.NoError(t, err)
	assert.NotEmpty(t, w.MainAccountID)
	assert.NotEmpty(t, w.BonusAccountID)
	assert.NotEqual(t, w.MainAccountID, w.BonusAccountID)

	main, err := ledgerUC.GetAccount(ctx, w.MainAccountID)
	require.NoError(t, err)
	assert.Equal(t, ledger.SubtypeMain, main.Subtype)

	bonus, err := ledgerUC.GetAccount(ctx, w.BonusAccountID)
	require.NoError(t, err)
	assert.Equal(t, ledger.SubtypeBonus, bonus.Subtype)
}

func TestEnsureWallet_IsIdempotent(t *testing.T) {
	uc, _ := newTestUseCase()
	ctx := context.Background()

	first, err := uc.EnsureWallet(ctx, "tenant-1", "user-1", "USD", ledger.AccountPolicy{})
	require.NoError(t, err)

	second, err := uc.EnsureWallet(ctx, "tenant-1", "user-1", "USD", ledger.AccountPolicy{})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.MainAccountID, second.MainAccountID)
}

func TestSyncFromLedger_ReflectsLedgerBalances(t *testing.T) {
	uc, ledgerUC := newTestUseCase()
	ctx := context.Background()

	w, err := uc.EnsureWallet(ctx, "tenant-1", "user-1", "USD", ledger.AccountPolicy{})
	require.NoError(t, err)

	other, err := ledgerUC.GetOrCreateAccount(ctx, "tenant-1", "user-2", ledger.SubtypeMain, "USD", ledger.AccountPolicy{AllowNegative: true})
	require.NoError(t, err)

	_, err = ledgerUC.Post(ctx, ledger.PostRequest{
		TenantID:      "tenant-1",
		Type:          ledger.TxDeposit,
		FromAccountID: other.ID,
		ToAccountID:   w.MainAccountID,
		Amount:        500,
		Currency:      "USD",
		ExternalRef:   "dep-1",
		ChargeRole:    "deposit",
	})
	require.NoError(t, err)

	require.NoError(t, uc.SyncFromLedger(ctx, w.ID))

	refreshed, err := uc.ReadBalance(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), refreshed.Balance)
}

func TestSyncFromAccount_IgnoresUnknownAccount(t *testing.T) {
	uc, _ := newTestUseCase()
	ctx := context.Background()

	err := uc.SyncFromAccount(ctx, "account-with-no-wallet")
	assert.NoError(t, err, "system accounts (fee, conversion) have no owning wallet and must not error")
}

func TestHandleLedgerEvent_SyncsBothLegs(t *testing.T) {
	uc, ledgerUC := newTestUseCase()
	ctx := context.Background()

	from, err := uc.EnsureWallet(ctx, "tenant-1", "user-1", "USD", ledger.AccountPolicy{AllowNegative: true})
	require.NoError(t, err)

	to, err := uc.EnsureWallet(ctx, "tenant-1", "user-2", "USD", ledger.AccountPolicy{})
	require.NoError(t, err)

	_, err = ledgerUC.Post(ctx, ledger.PostRequest{
		TenantID:      "tenant-1",
		Type:          ledger.TxDeposit,
		FromAccountID: from.MainAccountID,
		ToAccountID:   to.MainAccountID,
		Amount:        200,
		Currency:      "USD",
		ExternalRef:   "dep-2",
		ChargeRole:    "deposit",
	})
	require.NoError(t, err)

	err = uc.HandleLedgerEvent(ctx, eventWithLegs(from.MainAccountID, to.MainAccountID))
	require.NoError(t, err)

	refreshedFrom, err := uc.ReadBalance(ctx, from.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(-200), refreshedFrom.Balance)

	refreshedTo, err := uc.ReadBalance(ctx, to.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(200), refreshedTo.Balance)
}
