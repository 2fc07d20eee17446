package retrier

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrFatal marks errors that must not be retried (bad credentials, dimension
// mismatch, malformed requests). Do returns such errors immediately.
var ErrFatal = errors.New("fatal")

// ErrExhausted wraps the last error when the attempt budget ran out. Callers
// use errors.Is to distinguish an exhausted transient failure (degrade) from a
// fatal one (surface).
var ErrExhausted = errors.New("retry budget exhausted")

type fatalError struct {
	err error
}

func (e *fatalError) Error() string { return e.err.Error() }

func (e *fatalError) Unwrap() error { return e.err }

func (e *fatalError) Is(target error) bool { return target == ErrFatal }

// Fatal marks err as non-retryable.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

// Policy controls retry behavior for Do.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// BaseDelay is the delay before the second attempt; it doubles after each
	// failure.
	BaseDelay time.Duration
}

// DefaultPolicy matches the backoff used against the embedding and vector
// store APIs: three attempts, 1s/2s between them.
var DefaultPolicy = Policy{MaxAttempts: 3, BaseDelay: time.Second}

// Do runs fn until it succeeds, the attempt budget is exhausted, or ctx is
// cancelled. Between attempts it sleeps with exponential backoff. An error
// marked with Fatal stops retrying immediately; the original error is
// returned.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}

	var lastErr error
	delay := p.BaseDelay

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		var fatal *fatalError
		if errors.As(err, &fatal) {
			return fatal.err
		}
		lastErr = err

		if attempt == p.MaxAttempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, p.MaxAttempts, lastErr)
}
