package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/shoreline-pay/ledgercore/internal/platform/ledgererr"
)

// Executor wraps storage calls with a circuit breaker and bounded
// exponential backoff, implementing the spec's "LDG retries with bounded
// backoff (<=3 attempts)" failure model for TransientStorageError.
type Executor struct {
	breaker *gobreaker.CircuitBreaker
}

// NewExecutor builds an Executor named for the component it guards (used in
// breaker state-change logging and metrics).
func NewExecutor(name string) *Executor {
	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 10 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
	}

	return &Executor{breaker: gobreaker.NewCircuitBreaker(st)}
}

// IsTransient classifies an error returned from a repository call as a
// storage fault eligible for retry, as opposed to a deterministic business
// rejection that must propagate immediately.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) {
		return true
	}

	return errors.Is(err, context.DeadlineExceeded)
}

// Do runs fn through the circuit breaker with up to 3 attempts of bounded
// exponential backoff whenever fn's error is transient. A non-transient
// error (a business rejection) returns immediately without retry.
func (e *Executor) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)

	op := func() error {
		_, err := e.breaker.Execute(func() (any, error) {
			return nil, fn(ctx)
		})

		if err != nil && !IsTransient(err) {
			return backoff.Permanent(err)
		}

		return err
	}

	if err := backoff.Retry(op, bo); err != nil {
		if IsTransient(err) {
			return ledgererr.TransientError{
				Code:    ledgererr.ErrTransientStorage.Error(),
				Message: "storage operation failed after bounded retries",
				Err:     err,
			}
		}

		return err
	}

	return nil
}
