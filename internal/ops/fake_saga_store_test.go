package ops

import (
	"context"
	"sync"
	"time"

	"github.com/shoreline-pay/ledgercore/internal/saga"
)

// fakeSagaStore is an in-memory saga.Store, duplicated from the saga and
// recovery packages' own test fakes since unexported test types don't cross
// package boundaries.
type fakeSagaStore struct {
	mu     sync.Mutex
	states map[string]saga.State
}

func newFakeSagaStore() *fakeSagaStore {
	return &fakeSagaStore{states: make(map[string]saga.State)}
}

func (f *fakeSagaStore) Put(ctx context.Context, state saga.State, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.states[state.SagaID] = state

	return nil
}

func (f *fakeSagaStore) Get(ctx context.Context, sagaID string) (*saga.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	st, ok := f.states[sagaID]
	if !ok {
		return nil, saga.ErrNotFound
	}

	cp := st

	return &cp, nil
}

func (f *fakeSagaStore) Delete(ctx context.Context, sagaID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.states, sagaID)

	return nil
}

func (f *fakeSagaStore) ScanNonTerminal(ctx context.Context) ([]saga.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []saga.State

	for _, st := range f.states {
		if st.Status.NonTerminal() {
			out = append(out, st)
		}
	}

	return out, nil
}
