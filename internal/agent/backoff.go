package agent

import (
	"time"
)

const (
	// Backoff constants for bootstrap retries
	backoffBase = 1 * time.Second
	backoffMax  = 30 * time.Second
)

// backoffDelay returns the exponential backoff duration for a given attempt:
// backoffBase * 2^attempt, capped at backoffMax. Negative attempts get the
// base delay.
func backoffDelay(attempt int) time.Duration {
	if attempt < 0 {
		return backoffBase
	}

	// 2^30 seconds is already far beyond the cap; short-circuit to avoid
	// shift overflow.
	if attempt > 30 {
		return backoffMax
	}

	delay := backoffBase * time.Duration(1<<attempt)
	if delay > backoffMax {
		return backoffMax
	}

	return delay
}
