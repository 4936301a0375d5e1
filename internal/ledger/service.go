package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shoreline-pay/ledgercore/internal/events"
	"github.com/shoreline-pay/ledgercore/internal/platform/assert"
	"github.com/shoreline-pay/ledgercore/internal/platform/ledgererr"
	"github.com/shoreline-pay/ledgercore/internal/platform/mlog"
	"github.com/shoreline-pay/ledgercore/internal/platform/motel"
)

// MetadataIndexer mirrors metadata.UseCase.Index, kept as a narrow
// interface here so LDG does not depend on the metadata package's Mongo
// wiring — only on the one method it calls.
type MetadataIndexer interface {
	Index(ctx context.Context, entityType, entityID string, data map[string]any)
}

type noopIndexer struct{}

func (noopIndexer) Index(context.Context, string, string, map[string]any) {}

// UseCase is LDG's entry point: the only component permitted to mutate
// Account.balance (spec §5 "Shared-resource policy").
type UseCase struct {
	Repo      Repository
	Publisher events.Publisher
	Metadata  MetadataIndexer
}

// NewUseCase wires a UseCase over repo, defaulting to a no-op publisher
// and a no-op metadata indexer when none is supplied.
func NewUseCase(repo Repository, publisher events.Publisher) *UseCase {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}

	return &UseCase{Repo: repo, Publisher: publisher, Metadata: noopIndexer{}}
}

// WithMetadataIndexer sets the metadata secondary index UseCase.Post
// mirrors every posted transaction's metadata into, returning uc for
// chaining at construction time.
func (uc *UseCase) WithMetadataIndexer(indexer MetadataIndexer) *UseCase {
	uc.Metadata = indexer

	return uc
}

// GetOrCreateAccount returns the account for (tenant, user, subtype,
// currency), creating it lazily on first reference. Concurrent creation
// races are safe: the loser of the unique-index race reads back the winner.
func (uc *UseCase) GetOrCreateAccount(ctx context.Context, tenantID, userID string, subtype Subtype, currency string, policy AccountPolicy) (*Account, error) {
	logger := mlog.NewLoggerFromContext(ctx)
	ctx, span := motel.StartSpan(ctx, "ledger", "get_or_create_account")
	defer span.End()

	existing, err := uc.Repo.GetAccountByKey(ctx, tenantID, userID, subtype, currency)
	if err == nil {
		return existing, nil
	}

	if !errors.Is(err, ErrNotFound) {
		return nil, motel.RecordSpanError(span, err)
	}

	account := &Account{
		ID:            uuid.NewString(),
		TenantID:      tenantID,
		UserID:        userID,
		Subtype:       subtype,
		Currency:      currency,
		Balance:       0,
		AllowNegative: policy.AllowNegative,
		CreditLimit:   policy.CreditLimit,
		Status:        AccountActive,
		CreatedAt:     time.Now(),
	}

	if err := uc.Repo.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, ErrAccountAlreadyExists) {
			logger.Infof("account creation race lost for tenant=%s user=%s subtype=%s currency=%s, reading winner", tenantID, userID, subtype, currency)

			return uc.Repo.GetAccountByKey(ctx, tenantID, userID, subtype, currency)
		}

		return nil, motel.RecordSpanError(span, err)
	}

	return account, nil
}

// GetAccount looks up an account by id.
func (uc *UseCase) GetAccount(ctx context.Context, accountID string) (*Account, error) {
	ctx, span := motel.StartSpan(ctx, "ledger", "get_account")
	defer span.End()

	acc, err := uc.Repo.GetAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ledgererr.Translate(ledgererr.ErrEntityNotFound, "Account")
		}

		return nil, motel.RecordSpanError(span, err)
	}

	return acc, nil
}

// BulkGetAccounts batches a lookup of multiple accounts (SPEC_FULL §3
// supplemented feature).
func (uc *UseCase) BulkGetAccounts(ctx context.Context, accountIDs []string) ([]Account, error) {
	ctx, span := motel.StartSpan(ctx, "ledger", "bulk_get_accounts")
	defer span.End()

	accs, err := uc.Repo.BulkGetAccounts(ctx, accountIDs)

	return accs, motel.RecordSpanError(span, err)
}

// GetBalance returns balance and availableBalance = balance - lockedAmount.
// LDG itself tracks no locks; lockedAmount is supplied by the caller (WAL
// tracks lockedBalance for the wallet projection).
func (uc *UseCase) GetBalance(ctx context.Context, accountID string, lockedAmount int64) (*Balance, error) {
	acc, err := uc.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	return &Balance{
		Balance:          acc.Balance,
		AvailableBalance: acc.Balance - lockedAmount,
	}, nil
}

// Post executes the posting algorithm of spec §4.1 as one ACID unit of
// work: lock both accounts, validate currency/status/authorization,
// allocate the per-tenant sequence, append two entries, persist the
// transaction record (idempotent on (tenant,externalRef,chargeRole)),
// update both balances, commit, then fire-and-forget the completion event.
func (uc *UseCase) Post(ctx context.Context, req PostRequest) (*Transaction, error) {
	logger := mlog.NewLoggerFromContext(ctx)
	ctx, span := motel.StartSpan(ctx, "ledger", "post")
	defer span.End()

	if req.Amount <= 0 {
		return nil, ledgererr.Translate(ledgererr.ErrValidation, "LedgerTransaction", "amount must be positive")
	}

	if req.FromAccountID == req.ToAccountID {
		return nil, ledgererr.Translate(ledgererr.ErrValidation, "LedgerTransaction", "source and destination accounts must differ")
	}

	// Idempotent-replay / conflicting-replay fast path: a prior attempt may
	// already have landed this externalRef before we even open a transaction.
	if prior, err := uc.Repo.FindTransactionByKey(ctx, req.TenantID, req.ExternalRef, req.ChargeRole); err == nil {
		return reconcileReplay(prior, req)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, motel.RecordSpanError(span, err)
	}

	tx, err := uc.Repo.BeginTx(ctx)
	if err != nil {
		return nil, motel.RecordSpanError(span, err)
	}
	defer tx.Rollback() //nolint:errcheck

	from, err := uc.Repo.GetAccountForUpdate(ctx, tx, req.FromAccountID)
	if err != nil {
		return nil, motel.RecordSpanError(span, err)
	}

	to, err := uc.Repo.GetAccountForUpdate(ctx, tx, req.ToAccountID)
	if err != nil {
		return nil, motel.RecordSpanError(span, err)
	}

	if from.Currency != req.Currency || to.Currency != req.Currency || from.Currency != to.Currency {
		return nil, ledgererr.Translate(ledgererr.ErrMismatchedCurrency, "LedgerTransaction")
	}

	if from.Status == AccountClosed || to.Status == AccountClosed {
		return nil, ledgererr.Translate(ledgererr.ErrAccountClosed, "LedgerTransaction")
	}

	newFrom := from.Balance - req.Amount
	if newFrom < 0 && !from.AllowNegative {
		return nil, ledgererr.Translate(ledgererr.ErrInsufficientFunds, "Account", from.ID)
	}

	if from.CreditLimit != nil && newFrom < -*from.CreditLimit {
		return nil, ledgererr.Translate(ledgererr.ErrCreditLimit, "Account", from.ID)
	}

	newTo := to.Balance + req.Amount

	seq, err := uc.Repo.NextSequence(ctx, tx, req.TenantID)
	if err != nil {
		return nil, motel.RecordSpanError(span, err)
	}

	now := time.Now()
	txnID := uuid.NewString()

	debit := &Entry{
		ID:            uuid.NewString(),
		TransactionID: txnID,
		AccountID:     from.ID,
		Direction:     DirectionDebit,
		Amount:        req.Amount,
		BalanceAfter:  newFrom,
		Sequence:      seq,
		CreatedAt:     now,
	}

	credit := &Entry{
		ID:            uuid.NewString(),
		TransactionID: txnID,
		AccountID:     to.ID,
		Direction:     DirectionCredit,
		Amount:        req.Amount,
		BalanceAfter:  newTo,
		Sequence:      seq,
		CreatedAt:     now,
	}

	assert.That(assert.DebitsEqualCredits(debit.Amount, credit.Amount), "debit and credit legs must carry equal amounts", "debit", debit.Amount, "credit", credit.Amount)

	if err := uc.Repo.InsertEntry(ctx, tx, debit); err != nil {
		return nil, motel.RecordSpanError(span, err)
	}

	if err := uc.Repo.InsertEntry(ctx, tx, credit); err != nil {
		return nil, motel.RecordSpanError(span, err)
	}

	txn := &Transaction{
		ID:            txnID,
		TenantID:      req.TenantID,
		Type:          req.Type,
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		ExternalRef:   req.ExternalRef,
		ChargeRole:    req.ChargeRole,
		ParentTxID:    req.ParentTxID,
		Metadata:      req.Metadata,
		InitiatedBy:   req.InitiatedBy,
		Status:        TxPosted,
		CreatedAt:     now,
		Sequence:      seq,
	}

	if err := uc.Repo.InsertTransaction(ctx, tx, txn); err != nil {
		if errors.Is(err, ErrTransactionAlreadyExists) {
			// Someone else won the race inside this same window; the unique
			// index is the final arbitrator (spec §5). Roll back our attempt
			// and reconcile against the winner.
			tx.Rollback() //nolint:errcheck

			prior, findErr := uc.Repo.FindTransactionByKey(ctx, req.TenantID, req.ExternalRef, req.ChargeRole)
			if findErr != nil {
				return nil, motel.RecordSpanError(span, findErr)
			}

			return reconcileReplay(prior, req)
		}

		return nil, motel.RecordSpanError(span, err)
	}

	if err := uc.Repo.UpdateBalance(ctx, tx, from.ID, newFrom); err != nil {
		return nil, motel.RecordSpanError(span, err)
	}

	if err := uc.Repo.UpdateBalance(ctx, tx, to.ID, newTo); err != nil {
		return nil, motel.RecordSpanError(span, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, motel.RecordSpanError(span, err)
	}

	logger.Infof("posted %s transaction %s for tenant %s amount %d %s", txn.Type, txn.ID, txn.TenantID, txn.Amount, txn.Currency)

	uc.Publisher.Publish(ctx, events.Event{
		Topic:     fmt.Sprintf("ledger.%s.completed", txn.Type),
		TenantID:  txn.TenantID,
		Currency:  txn.Currency,
		Amount:    txn.Amount,
		AccountID: txn.ToAccountID,
		TxID:      txn.ID,
		Timestamp: now.Unix(),
		Extra:     map[string]any{"fromAccountId": txn.FromAccountID, "toAccountId": txn.ToAccountID},
	})

	uc.Metadata.Index(ctx, "transactions", txn.ID, txn.Metadata)

	return txn, nil
}

// reconcileReplay implements the IdempotentReplay / ConflictingReplay split
// of spec §4.1 step 5: same logical operation replays as a success carrying
// the prior transaction; a different payload under the same key is fatal.
func reconcileReplay(prior *Transaction, req PostRequest) (*Transaction, error) {
	if prior.FromAccountID == req.FromAccountID && prior.ToAccountID == req.ToAccountID &&
		prior.Amount == req.Amount && prior.Currency == req.Currency && prior.Type == req.Type {
		return prior, nil
	}

	return nil, ledgererr.Translate(ledgererr.ErrConflictingReplay, "LedgerTransaction")
}

// Reverse creates a symmetric transaction with parentTxId=txId, restoring
// both accounts to their pre-txn balances. Reverse is itself idempotent:
// reversing the same txId twice yields the same reversing transaction via
// the externalRef-derived idempotency key below.
func (uc *UseCase) Reverse(ctx context.Context, txID, reason string) (*Transaction, error) {
	ctx, span := motel.StartSpan(ctx, "ledger", "reverse")
	defer span.End()

	original, err := uc.Repo.GetTransaction(ctx, txID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ledgererr.Translate(ledgererr.ErrEntityNotFound, "LedgerTransaction")
		}

		return nil, motel.RecordSpanError(span, err)
	}

	reversal, err := uc.Post(ctx, PostRequest{
		TenantID:      original.TenantID,
		Type:          original.Type,
		FromAccountID: original.ToAccountID,
		ToAccountID:   original.FromAccountID,
		Amount:        original.Amount,
		Currency:      original.Currency,
		ExternalRef:   "reverse:" + original.ID,
		ChargeRole:    "reversal",
		InitiatedBy:   "ledger.reverse",
		Metadata:      map[string]any{"reason": reason, "parentTxId": original.ID},
		ParentTxID:    &original.ID,
	})
	if err != nil {
		return nil, motel.RecordSpanError(span, err)
	}

	return reversal, nil
}
