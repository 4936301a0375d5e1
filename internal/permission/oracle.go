// Package permission supplies OPS's capability lookup: whether a user's
// source account is allowed to go negative when a debit would otherwise be
// rejected by LDG (spec §4.5.1 step 4, "source's allowNegative derives from
// caller's capability lookup").
package permission

import "context"

// Capability is the result of a lookup for one (tenant, user) pair.
type Capability struct {
	AllowNegative bool
	CreditLimit   *int64
}

// Oracle resolves a user's posting capability. Implementations must be
// safe to call once per saga step; OPS never caches the result across
// operations since a capability can change between requests.
type Oracle interface {
	Lookup(ctx context.Context, tenantID, userID string) (Capability, error)
}

// StubOracle returns a fixed Capability for every lookup; used in
// environments with no external capability service (tests, local dev).
type StubOracle struct {
	Default Capability
}

// Lookup implements Oracle.
func (o StubOracle) Lookup(ctx context.Context, tenantID, userID string) (Capability, error) {
	return o.Default, nil
}
