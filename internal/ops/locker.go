package ops

import (
	"context"

	"github.com/shoreline-pay/ledgercore/internal/idempotency"
)

// Locker is the pre-lock OPS acquires before running a saga, satisfied by
// *idempotency.Guard in production and by an in-memory fake in tests.
type Locker interface {
	Acquire(ctx context.Context, tenantID, key string) (idempotency.Release, error)
}
