package recovery

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoreline-pay/ledgercore/internal/platform/mlog"
	"github.com/shoreline-pay/ledgercore/internal/saga"
)

func newTestService(store saga.Store, registry Registry) *Service {
	return &Service{
		Store:         store,
		Registry:      registry,
		Logger:        &mlog.NoneLogger{},
		TStuck:        30 * time.Second,
		ScanInterval:  15 * time.Second,
		MaxConcurrent: 4,
	}
}

func TestScanOnce_FiltersByStuck(t *testing.T) {
	store := newFakeStore()

	stale := time.Now().Add(-time.Minute)
	fresh := time.Now()

	require.NoError(t, store.Put(context.Background(), saga.State{
		SagaID:        "stuck-1",
		OpType:        "test.op",
		Status:        saga.StatusInProgress,
		LastHeartbeat: stale,
	}, time.Hour))

	require.NoError(t, store.Put(context.Background(), saga.State{
		SagaID:        "live-1",
		OpType:        "test.op",
		Status:        saga.StatusInProgress,
		LastHeartbeat: fresh,
	}, time.Hour))

	require.NoError(t, store.Put(context.Background(), saga.State{
		SagaID:        "done-1",
		OpType:        "test.op",
		Status:        saga.StatusCompleted,
		LastHeartbeat: stale,
	}, time.Hour))

	svc := newTestService(store, Registry{
		"test.op": saga.Definition{OpType: "test.op", Steps: []saga.Step{}},
	})

	require.NoError(t, svc.ScanOnce(context.Background()))

	stuckState, err := store.Get(context.Background(), "stuck-1")
	require.NoError(t, err)
	assert.Equal(t, saga.StatusRecovered, stuckState.Status)
	assert.Equal(t, "heartbeat_timeout", stuckState.Error)

	liveState, err := store.Get(context.Background(), "live-1")
	require.NoError(t, err)
	assert.Equal(t, saga.StatusInProgress, liveState.Status, "fresh heartbeat must not be touched")

	doneState, err := store.Get(context.Background(), "done-1")
	require.NoError(t, err)
	assert.Equal(t, saga.StatusCompleted, doneState.Status, "already-terminal sagas are never scanned")
}

func TestRecoverOne_CompensatesExecutedStepsInReverse(t *testing.T) {
	store := newFakeStore()

	var compensated []string

	def := saga.Definition{
		OpType: "transfer.create",
		Steps: []saga.Step{
			{Name: "debit", Critical: true, Compensate: func(ctx context.Context, sc *saga.Context) error {
				compensated = append(compensated, "debit")
				return nil
			}},
			{Name: "credit", Critical: true, Compensate: func(ctx context.Context, sc *saga.Context) error {
				compensated = append(compensated, "credit")
				return nil
			}},
			{Name: "notify", Critical: false, Compensate: func(ctx context.Context, sc *saga.Context) error {
				compensated = append(compensated, "notify")
				return nil
			}},
		},
	}

	svc := newTestService(store, Registry{"transfer.create": def})

	state := saga.State{
		SagaID: "saga-1",
		OpType: "transfer.create",
		Status: saga.StatusInProgress,
		Steps: []saga.StepRecord{
			{Name: "debit", Critical: true, Executed: true},
			{Name: "credit", Critical: true, Executed: true},
			{Name: "notify", Critical: false, Executed: false},
		},
		CurrentStep:   2,
		LastHeartbeat: time.Now().Add(-time.Minute),
	}

	svc.recoverOne(context.Background(), state)

	assert.Equal(t, []string{"credit", "debit"}, compensated, "only executed steps compensate, in reverse order")
}

func TestRecoverOne_UnknownOpTypeLogsAndReturns(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, Registry{})

	state := saga.State{
		SagaID:        "saga-unknown",
		OpType:        "no.such.op",
		Status:        saga.StatusInProgress,
		LastHeartbeat: time.Now().Add(-time.Minute),
	}

	assert.NotPanics(t, func() {
		svc.recoverOne(context.Background(), state)
	})

	// Unknown opType means REC cannot safely compensate; it must not have
	// written a recovered terminal record for a saga it never touched.
	_, err := store.Get(context.Background(), "saga-unknown")
	assert.ErrorIs(t, err, saga.ErrNotFound)
}

func TestRecoverOne_AlwaysEndsRecovered(t *testing.T) {
	store := newFakeStore()

	def := saga.Definition{
		OpType: "deposit.create",
		Steps: []saga.Step{
			{Name: "credit", Critical: true, Compensate: func(ctx context.Context, sc *saga.Context) error {
				return nil
			}},
		},
	}

	svc := newTestService(store, Registry{"deposit.create": def})

	state := saga.State{
		SagaID: "saga-2",
		OpType: "deposit.create",
		Status: saga.StatusPending,
		Steps: []saga.StepRecord{
			{Name: "credit", Critical: true, Executed: false},
		},
		CurrentStep:   0,
		LastHeartbeat: time.Now().Add(-time.Minute),
	}

	require.NoError(t, store.Put(context.Background(), state, time.Hour))

	svc.recoverOne(context.Background(), state)

	got, err := store.Get(context.Background(), "saga-2")
	require.NoError(t, err)
	assert.Equal(t, saga.StatusRecovered, got.Status)
	assert.Equal(t, "heartbeat_timeout", got.Error)
	assert.NotNil(t, got.CompletedAt)
}
