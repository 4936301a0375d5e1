package ops

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/shoreline-pay/ledgercore/internal/events"
	"github.com/shoreline-pay/ledgercore/internal/idempotency"
	"github.com/shoreline-pay/ledgercore/internal/ledger"
	"github.com/shoreline-pay/ledgercore/internal/permission"
	"github.com/shoreline-pay/ledgercore/internal/platform/ledgererr"
	"github.com/shoreline-pay/ledgercore/internal/platform/mlog"
	"github.com/shoreline-pay/ledgercore/internal/platform/motel"
	"github.com/shoreline-pay/ledgercore/internal/saga"
	"github.com/shoreline-pay/ledgercore/internal/wallet"
)

// systemFeeOwner is the pseudo-user that owns every tenant's per-currency
// fee account (spec §9: fee collection is a separate ledger transaction
// with its own externalRef, chosen over embedding it in the main
// transaction's metadata — see DESIGN.md).
const systemFeeOwner = "_fees"

// opDeadline bounds a saga's total wall-clock time (spec §5 "Per-request
// deadlines bound total saga wall-clock time").
const opDeadline = 30 * time.Second

// UseCase is OPS's entry point: Deposit, Withdrawal and Transfer, each built
// as a saga.Definition over LDG, WAL and IDG.
type UseCase struct {
	Ledger     *ledger.UseCase
	Wallet     *wallet.UseCase
	Transfers  Repository
	Idem       Locker
	Saga       *saga.Coordinator
	Permission permission.Oracle
	FeePolicy  FeePolicy
	Publisher  events.Publisher
}

// NewUseCase wires a UseCase over its collaborators.
func NewUseCase(ledgerUC *ledger.UseCase, walletUC *wallet.UseCase, transfers Repository, idem Locker, coordinator *saga.Coordinator, oracle permission.Oracle, feePolicy FeePolicy, publisher events.Publisher) *UseCase {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}

	return &UseCase{
		Ledger:     ledgerUC,
		Wallet:     walletUC,
		Transfers:  transfers,
		Idem:       idem,
		Saga:       coordinator,
		Permission: oracle,
		FeePolicy:  feePolicy,
		Publisher:  publisher,
	}
}

// CreateDeposit posts funds from a house/system account into a user's
// wallet. The source account defaults to allowNegative=true: a deposit's
// authorization check is not expected to ever reject it (spec §4.5.1/§4.5.2
// "differ only in ... the direction of the authorization check").
func (uc *UseCase) CreateDeposit(ctx context.Context, req Request) (*Result, error) {
	return uc.run(ctx, KindDeposit, req, ledger.AccountPolicy{AllowNegative: true}, ledger.AccountPolicy{AllowNegative: false})
}

// CreateWithdrawal posts funds out of a user's wallet into a house/payout
// sink. The source account's allowNegative/creditLimit is resolved through
// the permission Oracle, so InsufficientFunds can actually fire on the LDG
// side (spec §4.5.2).
func (uc *UseCase) CreateWithdrawal(ctx context.Context, req Request) (*Result, error) {
	fromPolicy, err := uc.resolvePolicy(ctx, req.TenantID, req.FromUserID)
	if err != nil {
		return nil, err
	}

	return uc.run(ctx, KindWithdrawal, req, fromPolicy, ledger.AccountPolicy{AllowNegative: true})
}

// CreateTransfer moves funds peer-to-peer between two users' wallets, same
// currency, single LDG post (spec §4.5.3).
func (uc *UseCase) CreateTransfer(ctx context.Context, req Request) (*Result, error) {
	fromPolicy, err := uc.resolvePolicy(ctx, req.TenantID, req.FromUserID)
	if err != nil {
		return nil, err
	}

	return uc.run(ctx, KindTransfer, req, fromPolicy, ledger.AccountPolicy{AllowNegative: false})
}

func (uc *UseCase) resolvePolicy(ctx context.Context, tenantID, userID string) (ledger.AccountPolicy, error) {
	capability, err := uc.Permission.Lookup(ctx, tenantID, userID)
	if err != nil {
		return ledger.AccountPolicy{}, ledgererr.Translate(ledgererr.ErrUnauthorized, "Account")
	}

	return ledger.AccountPolicy{AllowNegative: capability.AllowNegative, CreditLimit: capability.CreditLimit}, nil
}

// run implements spec §4.5.1 steps 1-3 as synchronous pre-saga validation,
// then drives steps 4-8 through the Coordinator as one saga (spec §4.3).
func (uc *UseCase) run(ctx context.Context, kind Kind, req Request, fromPolicy, toPolicy ledger.AccountPolicy) (*Result, error) {
	logger := mlog.NewLoggerFromContext(ctx)
	ctx, span := motel.StartSpan(ctx, "ops", string(kind))
	defer span.End()

	start := time.Now()

	// Step 1: ComputeFee — pure, no I/O.
	fee, net := ComputeFee(req.Amount, req.Method, uc.FeePolicy)

	// Step 2: DeriveIdempotencyKey.
	idemKey := idempotency.DeriveKey(req.ExternalRef, req.FromUserID, req.ToUserID, req.Currency, req.Method, req.Amount, time.Now())

	// A prior attempt sharing this key may already have reached a terminal
	// state; replay it rather than running the saga again.
	if prior, err := uc.Transfers.GetByExternalRef(ctx, req.TenantID, idemKey); err == nil {
		return replayResult(prior), nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, motel.RecordSpanError(span, err)
	}

	// Step 3: GuardDuplicate.
	if err := idempotency.GuardDuplicate(ctx, uc.Transfers, req.TenantID, idemKey); err != nil {
		if errors.Is(err, idempotency.ErrDuplicateOperation) {
			return nil, ledgererr.Translate(ledgererr.ErrDuplicateOperation, "Transfer")
		}

		return nil, motel.RecordSpanError(span, err)
	}

	release, err := uc.Idem.Acquire(ctx, req.TenantID, idemKey)
	if err != nil {
		return nil, motel.RecordSpanError(span, err)
	}
	defer release()

	def := uc.definitionFor(kind, req, fee, net, fromPolicy, toPolicy, idemKey)

	seed := map[string]any{
		"tenantId":    req.TenantID,
		"kind":        string(kind),
		"externalRef": idemKey,
		"fromUserId":  req.FromUserID,
		"toUserId":    req.ToUserID,
		"amount":      req.Amount,
		"fee":         fee,
		"netAmount":   net,
		"currency":    req.Currency,
	}

	result := uc.Saga.Run(ctx, def, opDeadline, seed)

	out := &Result{
		Success:         result.Success,
		SagaID:          result.SagaID,
		ExecutionTimeMs: time.Since(start).Milliseconds(),
	}

	if transferID, ok := result.Data["transferId"].(string); ok && transferID != "" {
		if t, getErr := uc.Transfers.Get(ctx, transferID); getErr == nil {
			out.Transfer = t

			if t.DebitTxID != nil {
				out.DebitTxID = *t.DebitTxID
			}

			if t.CreditTxID != nil {
				out.CreditTxID = *t.CreditTxID
			}
		}
	}

	if !result.Success {
		if result.Err != nil {
			out.Errors = []string{result.Err.Error()}
		}

		logger.Warnf("ops: %s saga %s ended without success: %v", kind, result.SagaID, result.Err)

		return out, nil
	}

	return out, nil
}

func replayResult(t *Transfer) *Result {
	r := &Result{
		Success:  t.Status == StatusCompleted,
		Transfer: t,
		SagaID:   t.SagaID,
	}

	if t.DebitTxID != nil {
		r.DebitTxID = *t.DebitTxID
	}

	if t.CreditTxID != nil {
		r.CreditTxID = *t.CreditTxID
	}

	if t.Status == StatusCancelled || t.Status == StatusFailed {
		r.Errors = []string{"prior attempt ended " + string(t.Status)}
	}

	return r
}

// definitionFor builds the saga.Definition for kind (spec §4.5.1 steps
// 4-8). EnsureAccounts and SyncWallets carry no compensation of their own;
// compensation cascades backward through PostLedger (reverse the posted
// legs) and PersistTransfer (mark cancelled) — exactly the effects that can
// be undone.
func (uc *UseCase) definitionFor(kind Kind, req Request, fee, net int64, fromPolicy, toPolicy ledger.AccountPolicy, idemKey string) saga.Definition {
	txType := transactionType(kind)

	return saga.Definition{
		OpType: "ops." + string(kind),
		Steps: []saga.Step{
			{
				Name:     "ensure_accounts",
				Critical: true,
				Execute: func(ctx context.Context, sc *saga.Context) error {
					fromWallet, err := uc.Wallet.EnsureWallet(ctx, req.TenantID, req.FromUserID, req.Currency, fromPolicy)
					if err != nil {
						return err
					}

					toWallet, err := uc.Wallet.EnsureWallet(ctx, req.TenantID, req.ToUserID, req.Currency, toPolicy)
					if err != nil {
						return err
					}

					sc.Data["fromAccountId"] = fromWallet.MainAccountID
					sc.Data["toAccountId"] = toWallet.MainAccountID
					sc.Data["fromWalletId"] = fromWallet.ID
					sc.Data["toWalletId"] = toWallet.ID

					if fee > 0 {
						feeAccount, err := uc.Ledger.GetOrCreateAccount(ctx, req.TenantID, systemFeeOwner, ledger.SubtypeFee, req.Currency, ledger.AccountPolicy{AllowNegative: true})
						if err != nil {
							return err
						}

						sc.Data["feeAccountId"] = feeAccount.ID
					}

					return nil
				},
			},
			{
				Name:     "post_ledger",
				Critical: true,
				Execute: func(ctx context.Context, sc *saga.Context) error {
					fromAccountID, _ := sc.Data["fromAccountId"].(string)
					toAccountID, _ := sc.Data["toAccountId"].(string)

					main, err := uc.Ledger.Post(ctx, ledger.PostRequest{
						TenantID:      req.TenantID,
						Type:          txType,
						FromAccountID: fromAccountID,
						ToAccountID:   toAccountID,
						Amount:        net,
						Currency:      req.Currency,
						ExternalRef:   idemKey,
						ChargeRole:    "main",
						InitiatedBy:   "ops." + string(kind),
						Metadata:      req.Metadata,
					})
					if err != nil {
						return err
					}

					sc.Data["debitTxId"] = main.ID

					if fee > 0 {
						feeAccountID, _ := sc.Data["feeAccountId"].(string)

						feeTx, err := uc.Ledger.Post(ctx, ledger.PostRequest{
							TenantID:      req.TenantID,
							Type:          ledger.TxFee,
							FromAccountID: fromAccountID,
							ToAccountID:   feeAccountID,
							Amount:        fee,
							Currency:      req.Currency,
							ExternalRef:   idemKey,
							ChargeRole:    "fee",
							InitiatedBy:   "ops." + string(kind),
						})
						if err != nil {
							return err
						}

						sc.Data["creditTxId"] = feeTx.ID
					}

					return nil
				},
				Compensate: func(ctx context.Context, sc *saga.Context) error {
					// Reads tenantId/externalRef/fee from sc.Data (seeded
					// from the saga's persisted Seed) rather than the
					// closed-over req, so the same Definition compensates
					// correctly whether it's running live or rebuilt by REC
					// from disk (spec §4.4).
					tenantID, _ := sc.Data["tenantId"].(string)
					ref, _ := sc.Data["externalRef"].(string)
					feeAmount, _ := toInt64(sc.Data["fee"])

					if mainTx, err := uc.Ledger.Repo.FindTransactionByKey(ctx, tenantID, ref, "main"); err == nil && mainTx.Status != ledger.TxReversed {
						if _, err := uc.Ledger.Reverse(ctx, mainTx.ID, "saga compensation"); err != nil {
							return err
						}
					}

					if feeAmount > 0 {
						if feeTx, err := uc.Ledger.Repo.FindTransactionByKey(ctx, tenantID, ref, "fee"); err == nil && feeTx.Status != ledger.TxReversed {
							if _, err := uc.Ledger.Reverse(ctx, feeTx.ID, "saga compensation"); err != nil {
								return err
							}
						}
					}

					return nil
				},
			},
			{
				Name:     "persist_transfer",
				Critical: true,
				Execute: func(ctx context.Context, sc *saga.Context) error {
					debitTxID, _ := sc.Data["debitTxId"].(string)
					creditTxID, _ := sc.Data["creditTxId"].(string)

					now := time.Now()

					t := &Transfer{
						ID:          uuid.NewString(),
						TenantID:    req.TenantID,
						Kind:        kind,
						FromUserID:  req.FromUserID,
						ToUserID:    req.ToUserID,
						Amount:      req.Amount,
						FeeAmount:   fee,
						Currency:    req.Currency,
						Status:      StatusActive,
						ExternalRef: idemKey,
						SagaID:      sc.SagaID,
						Metadata:    req.Metadata,
						CreatedAt:   now,
						UpdatedAt:   now,
					}

					if debitTxID != "" {
						t.DebitTxID = &debitTxID
					}

					if creditTxID != "" {
						t.CreditTxID = &creditTxID
					}

					if err := uc.Transfers.Create(ctx, t); err != nil && !errors.Is(err, ErrAlreadyExists) {
						return err
					}

					sc.Data["transferId"] = t.ID

					return nil
				},
				Compensate: func(ctx context.Context, sc *saga.Context) error {
					tenantID, _ := sc.Data["tenantId"].(string)
					ref, _ := sc.Data["externalRef"].(string)

					t, err := uc.Transfers.GetByExternalRef(ctx, tenantID, ref)
					if err != nil {
						if errors.Is(err, ErrNotFound) {
							return nil
						}

						return err
					}

					if t.Status.Terminal() {
						return nil
					}

					return uc.Transfers.UpdateStatus(ctx, t.ID, StatusCancelled, nil, nil)
				},
			},
			{
				Name:     "sync_wallets",
				Critical: true,
				Execute: func(ctx context.Context, sc *saga.Context) error {
					fromWalletID, _ := sc.Data["fromWalletId"].(string)
					toWalletID, _ := sc.Data["toWalletId"].(string)

					if fromWalletID != "" {
						if err := uc.Wallet.SyncFromLedger(ctx, fromWalletID); err != nil {
							return err
						}
					}

					if toWalletID != "" {
						if err := uc.Wallet.SyncFromLedger(ctx, toWalletID); err != nil {
							return err
						}
					}

					deposits, withdrawals, fees := lifetimeDeltas(kind, net, fee)

					if fromWalletID != "" {
						if err := uc.Wallet.IncrementLifetimeCounters(ctx, fromWalletID, 0, withdrawals, fees); err != nil {
							return err
						}
					}

					if toWalletID != "" {
						if err := uc.Wallet.IncrementLifetimeCounters(ctx, toWalletID, deposits, 0, 0); err != nil {
							return err
						}
					}

					// Only mark the transfer completed once every prior
					// effect has landed; persist_transfer's Compensate
					// still sees StatusActive if this step never reaches
					// here, so it cancels the transfer correctly (spec
					// §4.5.1 test case: failure in SyncWallets must
					// cancel the transfer).
					transferID, _ := sc.Data["transferId"].(string)
					if transferID == "" {
						return nil
					}

					debitTxID, _ := sc.Data["debitTxId"].(string)
					creditTxID, _ := sc.Data["creditTxId"].(string)

					var debitPtr, creditPtr *string
					if debitTxID != "" {
						debitPtr = &debitTxID
					}

					if creditTxID != "" {
						creditPtr = &creditTxID
					}

					return uc.Transfers.UpdateStatus(ctx, transferID, StatusCompleted, debitPtr, creditPtr)
				},
			},
			{
				Name:     "emit_event",
				Critical: false,
				Execute: func(ctx context.Context, sc *saga.Context) error {
					uc.Publisher.Publish(ctx, events.Event{
						Topic:     "wallet." + string(kind) + ".completed",
						TenantID:  req.TenantID,
						Currency:  req.Currency,
						Amount:    net,
						Timestamp: time.Now().Unix(),
						Extra: map[string]any{
							"fromUserId": req.FromUserID,
							"toUserId":   req.ToUserID,
						},
					})

					return nil
				},
			},
		},
	}
}

// toInt64 reads a numeric sc.Data value as int64 so compensation reads the
// fee the same way on every path. The fee is seeded as int64 and is still
// int64 on a live in-process run and after the saga store's msgpack round
// trip; int and float64 are accepted as well.
func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

// RecoveryDefinitions returns the saga.Definition for every opType this
// UseCase can run, keyed the way REC's Registry expects (spec §4.4: "must be
// the same set of Definitions the live Coordinator runs"). Only the
// Compensate closures are exercised during recovery, and those read every
// value they need from the persisted Seed via sc.Data, so the Request, fee
// and policies closed over here are never read back on that path.
func (uc *UseCase) RecoveryDefinitions() map[string]saga.Definition {
	defs := make(map[string]saga.Definition, 3)

	for _, kind := range []Kind{KindDeposit, KindWithdrawal, KindTransfer} {
		def := uc.definitionFor(kind, Request{}, 0, 0, ledger.AccountPolicy{}, ledger.AccountPolicy{}, "")
		defs[def.OpType] = def
	}

	return defs
}

func transactionType(kind Kind) ledger.TransactionType {
	switch kind {
	case KindDeposit:
		return ledger.TxDeposit
	case KindWithdrawal:
		return ledger.TxWithdrawal
	default:
		return ledger.TxTransfer
	}
}

func lifetimeDeltas(kind Kind, net, fee int64) (deposits, withdrawals, fees int64) {
	switch kind {
	case KindDeposit:
		return net, 0, fee
	case KindWithdrawal:
		return 0, net, fee
	default:
		return 0, 0, fee
	}
}
