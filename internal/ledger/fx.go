package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/shoreline-pay/ledgercore/internal/platform/motel"
)

// ConversionPairRequest describes a cross-currency movement, expressed as
// two same-currency postings through a tenant-owned conversion account
// (spec §4.1 "Cross-currency posting" — a single transaction must never mix
// currencies).
type ConversionPairRequest struct {
	TenantID           string
	Type               TransactionType
	FromAccountID      string // source currency
	ToAccountID        string // destination currency
	SourceConversionID string // tenant conversion account, source currency
	TargetConversionID string // tenant conversion account, destination currency
	SourceAmount       int64  // in source currency minor units
	SourceCurrency     string
	TargetCurrency     string
	ExchangeRate       decimal.Decimal // targetAmount = sourceAmount * rate
	ExternalRef        string
	InitiatedBy        string
	Metadata           map[string]any
}

// ConversionPairResult carries both legs of a completed conversion.
type ConversionPairResult struct {
	DebitLeg     *Transaction // source currency: FromAccountID -> SourceConversionID
	CreditLeg    *Transaction // target currency: TargetConversionID -> ToAccountID
	TargetAmount int64
}

// PostConversionPair posts the debit-side and credit-side legs of a
// cross-currency movement. Both conversion accounts carry allowNegative=true
// (spec §4.1: "they represent pending FX positions") and are reconciled
// out-of-band; this call does not itself verify their net position.
func (uc *UseCase) PostConversionPair(ctx context.Context, req ConversionPairRequest) (*ConversionPairResult, error) {
	ctx, span := motel.StartSpan(ctx, "ledger", "post_conversion_pair")
	defer span.End()

	targetAmount := ConvertAmount(req.SourceAmount, req.ExchangeRate)

	debitLeg, err := uc.Post(ctx, PostRequest{
		TenantID:      req.TenantID,
		Type:          TxConversion,
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.SourceConversionID,
		Amount:        req.SourceAmount,
		Currency:      req.SourceCurrency,
		ExternalRef:   req.ExternalRef,
		ChargeRole:    "convert-debit",
		InitiatedBy:   req.InitiatedBy,
		Metadata:      withRate(req.Metadata, req.ExchangeRate),
	})
	if err != nil {
		return nil, motel.RecordSpanError(span, err)
	}

	creditLeg, err := uc.Post(ctx, PostRequest{
		TenantID:      req.TenantID,
		Type:          TxConversion,
		FromAccountID: req.TargetConversionID,
		ToAccountID:   req.ToAccountID,
		Amount:        targetAmount,
		Currency:      req.TargetCurrency,
		ExternalRef:   req.ExternalRef,
		ChargeRole:    "convert-credit",
		InitiatedBy:   req.InitiatedBy,
		Metadata:      withRate(req.Metadata, req.ExchangeRate),
	})
	if err != nil {
		return nil, motel.RecordSpanError(span, err)
	}

	return &ConversionPairResult{DebitLeg: debitLeg, CreditLeg: creditLeg, TargetAmount: targetAmount}, nil
}

// ConvertAmount applies rate to a minor-unit amount using exact decimal
// arithmetic, rounding to the nearest minor unit. Amounts stay int64
// end-to-end; decimal is used only for the rate itself (spec's "no floating
// point in any stored or computed balance" invariant, §3).
func ConvertAmount(sourceAmount int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(sourceAmount).Mul(rate).Round(0).IntPart()
}

func withRate(metadata map[string]any, rate decimal.Decimal) map[string]any {
	out := make(map[string]any, len(metadata)+1)

	for k, v := range metadata {
		out[k] = v
	}

	out["exchangeRate"] = rate.String()

	return out
}

// ReconcileConversionAccounts reports the net position per currency of the
// conversion accounts named in conversionAccountIDs (SPEC_FULL §3
// supplemented feature); tenantID is not used to find or filter accounts. It
// is a read-only report, not an authorization path.
func (uc *UseCase) ReconcileConversionAccounts(ctx context.Context, tenantID string, conversionAccountIDs []string) (map[string]int64, error) {
	accs, err := uc.BulkGetAccounts(ctx, conversionAccountIDs)
	if err != nil {
		return nil, err
	}

	net := make(map[string]int64, len(accs))

	for _, a := range accs {
		if a.Subtype != SubtypeConversion {
			return nil, fmt.Errorf("reconcile: account %s is not a conversion account", a.ID)
		}

		net[a.Currency] += a.Balance
	}

	return net, nil
}
