// Copyright 2026 Caisho
// SPDX-License-Identifier: Apache-2.0

package smartthings

import (
	"math/rand/v2"
	"time"
)

// RetryPolicy governs per-page retries. The policy is injectable so
// tests can simulate rate limits and failures without real delays: a
// fake clock stands in for Clock, a nil Jitter makes the backoff
// sequence deterministic.
//
// The backoff for retry n (1-based) is BaseDelay << (n-1), capped at
// MaxDelay, then passed through Jitter.
type RetryPolicy struct {
	// MaxAttempts bounds the total requests issued for one page,
	// including the first. Must be at least 1.
	MaxAttempts int

	// BaseDelay is the backoff before the first retry.
	BaseDelay time.Duration

	// MaxDelay caps the exponential growth.
	MaxDelay time.Duration

	// Jitter maps a computed backoff to the actual delay. Nil means
	// no jitter (the computed backoff is used as-is).
	Jitter func(time.Duration) time.Duration
}

// Backoff returns the delay to apply before retry number retry
// (1-based).
func (p RetryPolicy) Backoff(retry int) time.Duration {
	if retry < 1 || p.BaseDelay <= 0 {
		return 0
	}

	delay := p.BaseDelay
	for i := 1; i < retry; i++ {
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			delay = p.MaxDelay
			break
		}
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}

	if p.Jitter != nil {
		delay = p.Jitter(delay)
	}
	return delay
}

// EqualJitter spreads a backoff over [d/2, d]. Retries across
// concurrent extractions against the same rate-limited API stay
// desynchronized while still honoring roughly the computed delay.
func EqualJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	half := d / 2
	return half + rand.N(d-half+1)
}
