// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-s3mcp.
//
// go-s3mcp is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package fetch

import (
	"math"
	"math/rand"
	"time"

	"context"
)

const (
	// DefaultMaxRetries is the attempt budget used when a caller does
	// not supply one.
	DefaultMaxRetries = 3

	defaultInitialBackoff = 100 * time.Millisecond
	defaultMaxBackoff     = 5 * time.Second
)

// RetryPolicy bounds retries of transient failures.
type RetryPolicy struct {
	// MaxRetries is the total number of attempts, including the first.
	MaxRetries int

	// InitialBackoff is the delay before the second attempt.
	InitialBackoff time.Duration

	// MaxBackoff caps the exponential growth of the delay.
	MaxBackoff time.Duration
}

// normalize fills zero fields with defaults.
func (p RetryPolicy) normalize() RetryPolicy {
	if p.MaxRetries <= 0 {
		p.MaxRetries = DefaultMaxRetries
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = defaultInitialBackoff
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = defaultMaxBackoff
	}
	return p
}

// withRetry runs operation up to policy.MaxRetries times. Transient
// failures are retried with increasing backoff; permanent failures
// surface immediately. Exhausting the budget returns the last error.
func withRetry[T any](ctx context.Context, policy RetryPolicy, operation func() (T, error)) (T, error) {
	var zero T
	policy = policy.normalize()

	var lastErr error
	for attempt := 1; attempt <= policy.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			if lastErr != nil {
				return zero, lastErr
			}
			return zero, WrapTransient(ctx.Err())
		default:
		}

		result, err := operation()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsTransient(err) {
			return zero, err
		}
		if attempt == policy.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return zero, lastErr
		case <-time.After(backoffFor(attempt, policy)):
		}
	}

	return zero, lastErr
}

// backoffFor computes the delay after the given attempt (1-based) using
// exponential growth with half jitter, so successive delays grow while
// concurrent retries stay decorrelated.
func backoffFor(attempt int, policy RetryPolicy) time.Duration {
	backoff := float64(policy.InitialBackoff) * math.Pow(2, float64(attempt-1))
	if backoff > float64(policy.MaxBackoff) {
		backoff = float64(policy.MaxBackoff)
	}
	half := backoff / 2
	return time.Duration(half + rand.Float64()*half)
}
