package saga

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrNotFound is returned by Store.Get when sagaId has no heartbeat entry
// (already expired, or never written).
var ErrNotFound = errors.New("saga: not found")

// Store is the heartbeat-store contract SAG and REC share.
type Store interface {
	// Put writes state under key saga:{sagaId}, resetting the TTL.
	Put(ctx context.Context, state State, ttl time.Duration) error

	// Get reads the current state for sagaID.
	Get(ctx context.Context, sagaID string) (*State, error)

	// Delete removes the heartbeat entry, used once a saga reaches a
	// terminal state and callers no longer need to poll it (terminal
	// entries are also left to expire naturally per spec §4.4).
	Delete(ctx context.Context, sagaID string) error

	// ScanNonTerminal returns every entry with status in {pending,
	// in_progress}, used by REC's stuck-saga sweep. Implementations may
	// return stale entries; callers filter by State.Stuck.
	ScanNonTerminal(ctx context.Context) ([]State, error)
}

// RedisStore serializes State with msgpack (a few nested slices and a map
// serialize much smaller than JSON, and the heartbeat store is written every
// H seconds per in-flight saga) and keeps a side-set of live saga ids so
// ScanNonTerminal does not need a Redis KEYS scan in production.
type RedisStore struct {
	client *goredis.Client
}

const liveSagaSet = "saga:live"

func NewRedisStore(client *goredis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func heartbeatKey(sagaID string) string {
	return "saga:" + sagaID
}

func (s *RedisStore) Put(ctx context.Context, state State, ttl time.Duration) error {
	body, err := msgpack.Marshal(state)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, heartbeatKey(state.SagaID), body, ttl)

	if state.Status.Terminal() {
		pipe.SRem(ctx, liveSagaSet, state.SagaID)
	} else {
		pipe.SAdd(ctx, liveSagaSet, state.SagaID)
	}

	_, err = pipe.Exec(ctx)

	return err
}

func (s *RedisStore) Get(ctx context.Context, sagaID string) (*State, error) {
	body, err := s.client.Get(ctx, heartbeatKey(sagaID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, err
	}

	var state State
	if err := msgpack.Unmarshal(body, &state); err != nil {
		return nil, err
	}

	return &state, nil
}

func (s *RedisStore) Delete(ctx context.Context, sagaID string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, heartbeatKey(sagaID))
	pipe.SRem(ctx, liveSagaSet, sagaID)
	_, err := pipe.Exec(ctx)

	return err
}

func (s *RedisStore) ScanNonTerminal(ctx context.Context) ([]State, error) {
	ids, err := s.client.SMembers(ctx, liveSagaSet).Result()
	if err != nil {
		return nil, err
	}

	out := make([]State, 0, len(ids))

	for _, id := range ids {
		state, err := s.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			// Expired between the SMEMBERS read and this Get; the entry's
			// own TTL already closed it out, just drop it from the set.
			s.client.SRem(ctx, liveSagaSet, id) //nolint:errcheck
			continue
		}

		if err != nil {
			return nil, err
		}

		if state.Status.NonTerminal() {
			out = append(out, *state)
		}
	}

	return out, nil
}
