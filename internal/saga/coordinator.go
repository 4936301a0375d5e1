package saga

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shoreline-pay/ledgercore/internal/platform/mlog"
	"github.com/shoreline-pay/ledgercore/internal/platform/motel"
)

// Coordinator runs Definitions step by step, maintaining a heartbeat in
// Store so REC can detect a coordinator that died mid-saga (spec §4.3/§4.4).
type Coordinator struct {
	Store  Store
	Logger mlog.Logger

	// H is the heartbeat interval; TStuck is the threshold REC uses to
	// declare a saga abandoned. H must be « TStuck (spec §5 suggests
	// H=5s, TStuck=30s).
	H      time.Duration
	TStuck time.Duration
}

// heartbeatTTL is the entry's Redis TTL: generous enough that a brief Redis
// hiccup doesn't expire a saga REC would otherwise still consider live
// (spec §6: "TTL = max(H×12, T_stuck×2)").
func (c *Coordinator) heartbeatTTL() time.Duration {
	byHeartbeat := c.H * 12
	byStuck := c.TStuck * 2

	if byHeartbeat > byStuck {
		return byHeartbeat
	}

	return byStuck
}

func stepRecords(steps []Step) []StepRecord {
	out := make([]StepRecord, len(steps))
	for i, s := range steps {
		out[i] = StepRecord{Name: s.Name, Critical: s.Critical}
	}

	return out
}

// Run executes def's steps in order against a fresh Context seeded with
// seed, enforcing the soft deadline T_op. On any critical-step failure, on
// deadline expiry, or on ctx cancellation observed between steps, it
// compensates every already-executed step in reverse order.
func (c *Coordinator) Run(ctx context.Context, def Definition, opDeadline time.Duration, seed map[string]any) Result {
	start := time.Now()
	sagaID := uuid.NewString()

	sc := NewContext(sagaID)
	for k, v := range seed {
		sc.Data[k] = v
	}

	var mu sync.Mutex

	state := &State{
		SagaID:        sagaID,
		OpType:        def.OpType,
		Status:        StatusPending,
		Steps:         stepRecords(def.Steps),
		CurrentStep:   -1,
		StartedAt:     start,
		LastHeartbeat: start,
		Seed:          seed,
	}

	ttl := c.heartbeatTTL()

	if err := c.Store.Put(ctx, *state, ttl); err != nil {
		c.Logger.Errorf("saga %s: write initial state: %v", sagaID, err)
	}

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()

	go c.heartbeat(hbCtx, &mu, state, ttl)

	deadlineAt := start.Add(opDeadline)
	executed := make([]int, 0, len(def.Steps))

	aborted := false
	var abortErr error

	for i, step := range def.Steps {
		if ctx.Err() != nil || time.Now().After(deadlineAt) {
			aborted = true
			abortErr = ctx.Err()

			break
		}

		mu.Lock()
		state.Status = StatusInProgress
		state.CurrentStep = i
		state.LastHeartbeat = time.Now()
		snapshot := *state
		mu.Unlock()

		if err := c.Store.Put(ctx, snapshot, ttl); err != nil {
			c.Logger.Errorf("saga %s: write state at step %s: %v", sagaID, step.Name, err)
		}

		err := step.Execute(ctx, sc)
		if err != nil {
			if step.Critical {
				c.Logger.Errorf("saga %s: critical step %s failed: %v", sagaID, step.Name, err)
				aborted = true
				abortErr = err

				break
			}

			c.Logger.Warnf("saga %s: non-critical step %s failed, continuing: %v", sagaID, step.Name, err)

			continue
		}

		mu.Lock()
		state.Steps[i].Executed = true
		mu.Unlock()

		executed = append(executed, i)
	}

	stopHeartbeat()

	if aborted {
		return c.compensate(ctx, def, sc, state, &mu, executed, ttl, abortErr, start)
	}

	now := time.Now()

	mu.Lock()
	state.Status = StatusCompleted
	state.CompletedAt = &now
	snapshot := *state
	mu.Unlock()

	if err := c.Store.Put(ctx, snapshot, ttl); err != nil {
		c.Logger.Errorf("saga %s: write completed state: %v", sagaID, err)
	}

	return Result{Success: true, SagaID: sagaID, Data: sc.Data, DurationMs: time.Since(start).Milliseconds()}
}

func (c *Coordinator) heartbeat(ctx context.Context, mu *sync.Mutex, state *State, ttl time.Duration) {
	ticker := time.NewTicker(c.H)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			mu.Lock()
			state.LastHeartbeat = time.Now()
			snapshot := *state
			mu.Unlock()

			if err := c.Store.Put(ctx, snapshot, ttl); err != nil {
				c.Logger.Errorf("saga %s: heartbeat write: %v", state.SagaID, err)
			}
		}
	}
}

// compensate runs Compensate for every executed step in reverse order,
// best-effort (spec §4.3: "Compensation errors are logged; saga terminal
// status becomes compensated ... or failed").
func (c *Coordinator) compensate(ctx context.Context, def Definition, sc *Context, state *State, mu *sync.Mutex, executed []int, ttl time.Duration, cause error, start time.Time) Result {
	compensationFailed := false

	for j := len(executed) - 1; j >= 0; j-- {
		idx := executed[j]
		step := def.Steps[idx]

		if step.Compensate == nil {
			continue
		}

		ctx, span := motel.StartSpan(ctx, "saga", "compensate_"+step.Name)

		if err := step.Compensate(ctx, sc); err != nil {
			c.Logger.Errorf("saga %s: compensating step %s failed: %v", state.SagaID, step.Name, err)
			compensationFailed = true
			motel.RecordSpanError(span, err)
		}

		span.End()
	}

	mu.Lock()

	if compensationFailed {
		state.Status = StatusFailed
	} else {
		state.Status = StatusCompensated
	}

	if cause != nil {
		state.Error = cause.Error()
	}

	now := time.Now()
	state.CompletedAt = &now
	snapshot := *state

	mu.Unlock()

	if err := c.Store.Put(ctx, snapshot, ttl); err != nil {
		c.Logger.Errorf("saga %s: write terminal state: %v", state.SagaID, err)
	}

	return Result{
		Success:    false,
		SagaID:     state.SagaID,
		Data:       sc.Data,
		Err:        cause,
		DurationMs: time.Since(start).Milliseconds(),
	}
}
