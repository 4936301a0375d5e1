package ops

import "github.com/shopspring/decimal"

// FeePolicy is a per-method fee rate expressed in percent-of-amount, keyed
// by the request's Method field ("" is the default bucket). Rates use exact
// decimal arithmetic; only the resulting fee is rounded to the nearest
// minor unit (spec §3 "no floating point in any stored or computed
// balance").
type FeePolicy struct {
	DefaultPercent decimal.Decimal
	ByMethod       map[string]decimal.Decimal
}

// NewFeePolicy builds a FeePolicy from a default percent and optional
// per-method overrides, mirroring the `defaultFeePercent`/`feePolicy`
// configuration knobs spec §6 recognizes.
func NewFeePolicy(defaultPercent decimal.Decimal, byMethod map[string]decimal.Decimal) FeePolicy {
	return FeePolicy{DefaultPercent: defaultPercent, ByMethod: byMethod}
}

func (p FeePolicy) rateFor(method string) decimal.Decimal {
	if rate, ok := p.ByMethod[method]; ok {
		return rate
	}

	return p.DefaultPercent
}

// ComputeFee is a pure function of (amount, feePolicy); no I/O (spec
// §4.5.1 step 1). netAmount = amount - fee.
func ComputeFee(amount int64, method string, policy FeePolicy) (fee, net int64) {
	rate := policy.rateFor(method)

	fee = decimal.NewFromInt(amount).Mul(rate).Div(decimal.NewFromInt(100)).Round(0).IntPart()
	if fee < 0 {
		fee = 0
	}

	if fee > amount {
		fee = amount
	}

	return fee, amount - fee
}
