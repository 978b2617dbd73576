package retry

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type Policy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
}

// temporary is implemented by upstream status errors that may succeed on retry.
type temporary interface {
	Temporary() bool
}

// Do runs op until it succeeds, returns a permanent error, the policy is
// exhausted or ctx is done. Only transient failures are retried: network
// errors and errors reporting Temporary() == true.
func Do(ctx context.Context, p Policy, op func() error, notify func(err error, next time.Duration)) error {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	b.MaxElapsedTime = 0

	wrapped := func() error {
		err := op()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || !IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	return backoff.RetryNotify(wrapped, backoff.WithContext(backoff.WithMaxRetries(b, p.MaxRetries), ctx), notify)
}

// IsTransient reports whether err is worth another attempt.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	// net.Error also has Temporary(), so it must be matched first.
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var t temporary
	if errors.As(err, &t) {
		return t.Temporary()
	}
	return false
}
