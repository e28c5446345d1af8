// Package retry runs an operation again after transient failures, doubling
// the wait between attempts.
//
//	err := retry.Do(ctx, retry.Policy{Attempts: 5}, func(ctx context.Context) error {
//	    return session.Open()
//	})
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Policy bounds how often and how slowly an operation is retried.
type Policy struct {
	// Attempts is the total number of calls, the first included. Values
	// below one mean a single call.
	Attempts int
	// Delay is the wait after the first failure. It doubles after each
	// further failure until it reaches MaxDelay.
	Delay    time.Duration
	MaxDelay time.Duration
	// Name labels log lines emitted between attempts.
	Name string
}

// Default suits gateway handshakes and other short network calls.
var Default = Policy{
	Attempts: 4,
	Delay:    time.Second,
	MaxDelay: 15 * time.Second,
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying. Do returns the wrapped error
// immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do calls fn until it succeeds, returns a Permanent error, the policy runs
// out of attempts, or ctx is done. The last error is returned.
func Do(ctx context.Context, p Policy, fn func(context.Context) error) error {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	if p.Delay <= 0 {
		p.Delay = Default.Delay
	}
	if p.MaxDelay < p.Delay {
		p.MaxDelay = p.Delay
	}

	wait := p.Delay
	var err error
	for attempt := 1; ; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Join(err, ctxErr)
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if attempt >= p.Attempts {
			return err
		}

		slog.Warn("retrying after failure",
			"op", p.Name, "attempt", attempt, "of", p.Attempts, "wait", wait, "err", err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(err, ctx.Err())
		case <-timer.C:
		}

		wait *= 2
		if wait > p.MaxDelay {
			wait = p.MaxDelay
		}
	}
}
