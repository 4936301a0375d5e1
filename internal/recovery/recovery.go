// Package recovery implements REC: a periodic sweep that finds sagas whose
// coordinator went quiet past the stuck threshold and compensates them from
// persisted state, without ever needing the original in-process Saga object
// (spec §4.4).
package recovery

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shoreline-pay/ledgercore/internal/platform/mlog"
	"github.com/shoreline-pay/ledgercore/internal/platform/motel"
	"github.com/shoreline-pay/ledgercore/internal/saga"
)

// auditTTL is how long a recovered saga's terminal record stays visible in
// the heartbeat store after REC finishes with it; durable audit lives in
// the storage layer, not here (spec §4.4).
const auditTTL = time.Hour

// Registry maps opType to the Definition REC uses to reconstruct a stuck
// saga's compensators. It must be the same set of Definitions the live
// Coordinator runs, keyed identically.
type Registry map[string]saga.Definition

// Service periodically scans Store for stuck sagas and compensates them.
type Service struct {
	Store         saga.Store
	Registry      Registry
	Logger        mlog.Logger
	TStuck        time.Duration
	ScanInterval  time.Duration
	MaxConcurrent int
}

// Run blocks, scanning every ScanInterval until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.ScanOnce(ctx); err != nil {
				s.Logger.Errorf("recovery: scan failed: %v", err)
			}
		}
	}
}

// ScanOnce runs a single sweep: find non-terminal sagas whose heartbeat is
// older than TStuck, and compensate each with bounded concurrency.
func (s *Service) ScanOnce(ctx context.Context) error {
	ctx, span := motel.StartSpan(ctx, "recovery", "scan")
	defer span.End()

	states, err := s.Store.ScanNonTerminal(ctx)
	if err != nil {
		return motel.RecordSpanError(span, err)
	}

	now := time.Now()

	var stuck []saga.State

	for _, st := range states {
		if st.Stuck(now, s.TStuck) {
			stuck = append(stuck, st)
		}
	}

	if len(stuck) == 0 {
		return nil
	}

	s.Logger.Infof("recovery: found %d stuck saga(s)", len(stuck))

	g, gctx := errgroup.WithContext(ctx)

	limit := s.MaxConcurrent
	if limit <= 0 {
		limit = 8
	}

	g.SetLimit(limit)

	for _, st := range stuck {
		st := st

		g.Go(func() error {
			s.recoverOne(gctx, st)
			return nil
		})
	}

	return g.Wait()
}

// recoverOne compensates a single stuck saga from its persisted steps and
// currentStep, then marks it recovered. Errors are logged, never returned:
// one unrecoverable saga must not stop the sweep from reaching the rest.
func (s *Service) recoverOne(ctx context.Context, state saga.State) {
	ctx, span := motel.StartSpan(ctx, "recovery", "recover_one")
	defer span.End()

	def, ok := s.Registry[state.OpType]
	if !ok {
		s.Logger.Errorf("recovery: no registered definition for opType %s (saga %s)", state.OpType, state.SagaID)
		return
	}

	sc := saga.NewContext(state.SagaID)
	for k, v := range state.Seed {
		sc.Data[k] = v
	}

	for i := state.CurrentStep; i >= 0; i-- {
		if i >= len(def.Steps) || i >= len(state.Steps) || !state.Steps[i].Executed {
			continue
		}

		step := def.Steps[i]
		if step.Compensate == nil {
			continue
		}

		// Compensators must be idempotent (spec §4.4): a retry of an
		// already-reversed effect is expected, not exceptional.
		if err := step.Compensate(ctx, sc); err != nil {
			s.Logger.Errorf("recovery: compensating step %s of saga %s: %v", step.Name, state.SagaID, err)
			motel.RecordSpanError(span, err)
		}
	}

	now := time.Now()
	state.Status = saga.StatusRecovered
	state.Error = "heartbeat_timeout"
	state.CompletedAt = &now

	if err := s.Store.Put(ctx, state, auditTTL); err != nil {
		s.Logger.Errorf("recovery: write recovered state for saga %s: %v", state.SagaID, err)
	}
}
