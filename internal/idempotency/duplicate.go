package idempotency

import (
	"context"
	"errors"
)

// ErrDuplicateOperation is returned by GuardDuplicate when a non-terminal
// operation already holds this idempotency key.
var ErrDuplicateOperation = errors.New("idempotency: duplicate operation in progress")

// NonTerminalFinder is the minimal read GuardDuplicate needs; ops.Repository
// implements it over the transfers table.
type NonTerminalFinder interface {
	ExistsNonTerminal(ctx context.Context, tenantID, idempotencyKey string) (bool, error)
}

// GuardDuplicate implements spec §4.5.1 step 3: reject if a non-terminal
// transfer already carries this idempotency key. It is a best-effort early
// check — the externalRef-based unique index on ledger_transactions remains
// the source of truth once PostLedger actually runs.
func GuardDuplicate(ctx context.Context, finder NonTerminalFinder, tenantID, idempotencyKey string) error {
	exists, err := finder.ExistsNonTerminal(ctx, tenantID, idempotencyKey)
	if err != nil {
		return err
	}

	if exists {
		return ErrDuplicateOperation
	}

	return nil
}
