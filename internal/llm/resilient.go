package llm

import (
	"context"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/felixgeelhaar/fortify/timeout"
)

// ResilientCompleter retries and bounds each completion.
type ResilientCompleter struct {
	inner        Completer
	maxAttempts  int
	initialDelay time.Duration
	timeout      time.Duration
}

// NewResilient wraps inner with up to maxAttempts tries, each attempt chain
// bounded by timeout.
func NewResilient(inner Completer, maxAttempts int, timeout time.Duration) *ResilientCompleter {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	return &ResilientCompleter{
		inner:        inner,
		maxAttempts:  maxAttempts,
		initialDelay: time.Second,
		timeout:      timeout,
	}
}

// WithInitialDelay returns a copy using d as the first backoff delay.
func (r *ResilientCompleter) WithInitialDelay(d time.Duration) *ResilientCompleter {
	clone := *r
	clone.initialDelay = d
	return &clone
}

func (r *ResilientCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	rt := retry.New[string](retry.Config{
		MaxAttempts:   r.maxAttempts,
		InitialDelay:  r.initialDelay,
		BackoffPolicy: retry.BackoffExponential,
	})

	t := timeout.New[string](timeout.Config{
		DefaultTimeout: r.timeout,
	})

	return t.Execute(ctx, r.timeout, func(ctx context.Context) (string, error) {
		return rt.Do(ctx, func(ctx context.Context) (string, error) {
			return r.inner.Complete(ctx, system, user)
		})
	})
}
