package saga

import "time"

// StepRecord is the durable, serializable record of one step's execution,
// persisted so REC can reconstruct "how far did this saga get" without the
// original Step funcs (those live only in the Definition's in-process
// Registry).
type StepRecord struct {
	Name     string `msgpack:"name"`
	Critical bool   `msgpack:"critical"`
	Executed bool   `msgpack:"executed"`
}

// State is the durable record of a saga's progress, written to the
// heartbeat store keyed by sagaId (spec §4.3/§4.4).
type State struct {
	SagaID        string         `msgpack:"sagaId"`
	OpType        string         `msgpack:"opType"`
	Status        Status         `msgpack:"status"`
	Steps         []StepRecord   `msgpack:"steps"`
	CurrentStep   int            `msgpack:"currentStep"`
	StartedAt     time.Time      `msgpack:"startedAt"`
	LastHeartbeat time.Time      `msgpack:"lastHeartbeat"`
	CompletedAt   *time.Time     `msgpack:"completedAt,omitempty"`
	Error         string         `msgpack:"error,omitempty"`

	// Seed is the saga's original input, persisted so REC can rebuild a
	// Context for compensation without the live caller's in-process state
	// (spec §4.4: recovery acts on "persisted steps and currentStep" alone).
	// Compensators must locate what to reverse from Seed plus durable
	// storage (e.g. re-deriving an externalRef to look up an already-posted
	// ledger transaction), never from values only Execute produced at
	// runtime.
	Seed map[string]any `msgpack:"seed,omitempty"`
}

// Stuck reports whether this state has gone quiet past T_stuck while still
// non-terminal (spec §4.4: "REC scans ... now - lastHeartbeat > T_stuck").
func (s State) Stuck(now time.Time, tStuck time.Duration) bool {
	return s.Status.NonTerminal() && now.Sub(s.LastHeartbeat) > tStuck
}
