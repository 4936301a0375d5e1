package recovery

import (
	"context"
	"sync"
	"time"

	"github.com/shoreline-pay/ledgercore/internal/saga"
)

// fakeStore is an in-memory saga.Store for recovery tests.
type fakeStore struct {
	mu     sync.Mutex
	states map[string]saga.State
}

func newFakeStore() *fakeStore {
	return &fakeStore{states: make(map[string]saga.State)}
}

func (s *fakeStore) Put(ctx context.Context, state saga.State, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[state.SagaID] = state

	return nil
}

func (s *fakeStore) Get(ctx context.Context, sagaID string) (*saga.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[sagaID]
	if !ok {
		return nil, saga.ErrNotFound
	}

	return &st, nil
}

func (s *fakeStore) Delete(ctx context.Context, sagaID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.states, sagaID)

	return nil
}

func (s *fakeStore) ScanNonTerminal(ctx context.Context) ([]saga.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []saga.State

	for _, st := range s.states {
		if st.Status.NonTerminal() {
			out = append(out, st)
		}
	}

	return out, nil
}
