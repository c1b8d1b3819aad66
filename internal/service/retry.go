package service

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"github.com/iliyamo/travel-booking/internal/metrics"
	"github.com/iliyamo/travel-booking/internal/repository"
)

// retryPolicy restarts a whole unit of work when storage reports lock
// contention.  Any other error is returned immediately.
type retryPolicy struct {
	attempts int
	backoff  time.Duration
}

func (p retryPolicy) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := p.attempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(ctx); err == nil || !errors.Is(err, repository.ErrRetryable) {
			return err
		}
		if i == attempts-1 {
			break
		}
		metrics.TxRetries.Inc()
		wait := p.delay(i)
		slog.Warn("retrying after storage conflict", "op", op, "attempt", i+1, "wait", wait, "err", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return err
}

// maxRetryDelay bounds the exponential part of the backoff.
const maxRetryDelay = time.Second

// delay doubles the base backoff per attempt, up to maxRetryDelay, and adds
// up to 50% jitter so competing requests do not retry in lockstep.
func (p retryPolicy) delay(attempt int) time.Duration {
	if p.backoff <= 0 {
		return 0
	}
	d := p.backoff
	for i := 0; i < attempt && d < maxRetryDelay; i++ {
		d *= 2
	}
	if d > maxRetryDelay {
		d = maxRetryDelay
	}
	return d + time.Duration(rand.Int63n(int64(d)/2+1))
}
