// Package throttle implements the edit-pacing and retry controller (C9):
// a global minimum interval between successful edits for one credential,
// and an exponential-backoff-with-jitter retry policy for transient
// failures.
package throttle

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"gitlab.com/tozd/go/errors"
)

// Throttle enforces a minimum interval between successful edits, shared
// across every session using the same credential.
type Throttle struct {
	mu              sync.Mutex
	minEditInterval time.Duration
	lastEdit        time.Time
	maxlag          int
}

// New builds a Throttle with the given minimum edit interval and maxlag
// value propagated on every request by callers.
func New(minEditInterval time.Duration, maxlag int) *Throttle {
	return &Throttle{minEditInterval: minEditInterval, maxlag: maxlag}
}

// Maxlag returns the configured maxlag value callers should attach to
// every outbound request.
func (t *Throttle) Maxlag() int { return t.maxlag }

// AcquireEditPermit blocks until min_edit_interval has elapsed since the
// last edit, then records now as the new last-edit instant.
func (t *Throttle) AcquireEditPermit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.lastEdit.IsZero() {
		wait := t.minEditInterval - time.Since(t.lastEdit)
		if wait > 0 {
			timer := time.NewTimer(wait)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	t.lastEdit = time.Now()
	return nil
}

// FailureClass discriminates retryable from fatal operation failures.
type FailureClass int

const (
	// Retryable covers maxlag exceeded, HTTP 429 with Retry-After, HTTP
	// 503, stale auth tokens, and generic network errors.
	Retryable FailureClass = iota
	// Fatal covers auth denial, permission denial, edit conflicts, and
	// unknown API errors: these surface immediately.
	Fatal
)

// Classifier tells the retry policy whether an operation's error is
// retryable, and if so, an optional server-suggested delay (e.g.
// Retry-After), else zero.
type Classifier func(err error) (FailureClass, time.Duration)

// Policy is an exponential-backoff-with-jitter retry policy.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Classify   Classifier
}

// Do runs op, retrying on retryable failures per the policy until success,
// a fatal failure, max retries exceeded, or ctx cancellation.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempt := 0
	for {
		err := op(ctx)
		if err == nil {
			return nil
		}

		class, serverDelay := p.Classify(err)
		if class == Fatal {
			return err
		}

		attempt++
		if attempt > p.MaxRetries {
			return errors.WithStack(err)
		}

		delay := p.BaseDelay * time.Duration(1<<uint(attempt-1))
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
		if serverDelay > delay {
			delay = serverDelay
		}
		delay += time.Duration(rand.Float64() * float64(time.Second))

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}
