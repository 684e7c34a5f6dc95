package worker

import "time"

// maxBackoff caps NextDelay when a policy sets no MaxDelay.
const maxBackoff = time.Hour

// RetryPolicy controls how a worker backs off between attempts at one job.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

var (
	// auditRetryDefaults keep audit rows close to the transition that produced them.
	auditRetryDefaults = RetryPolicy{
		MaxRetries:    5,
		InitialDelay:  200 * time.Millisecond,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2,
	}
	// sheetsRetryDefaults leave room for Sheets API quota windows.
	sheetsRetryDefaults = RetryPolicy{
		MaxRetries:    5,
		InitialDelay:  2 * time.Second,
		MaxDelay:      time.Minute,
		BackoffFactor: 2,
	}
)

// withDefaults fills every unset field from def.
func (r RetryPolicy) withDefaults(def RetryPolicy) RetryPolicy {
	if r.MaxRetries <= 0 {
		r.MaxRetries = def.MaxRetries
	}
	if r.InitialDelay <= 0 {
		r.InitialDelay = def.InitialDelay
	}
	if r.MaxDelay <= 0 {
		r.MaxDelay = def.MaxDelay
	}
	if r.BackoffFactor <= 0 {
		r.BackoffFactor = def.BackoffFactor
	}
	return r
}

// Exhausted reports whether attempt (1-based) was the last one the policy allows.
func (r RetryPolicy) Exhausted(attempt int) bool {
	return attempt >= r.MaxRetries
}

// NextDelay returns the pause after a failed attempt (1-based):
// InitialDelay * BackoffFactor^(attempt-1), clamped to MaxDelay.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	limit := r.MaxDelay
	if limit <= 0 {
		limit = maxBackoff
	}
	d := r.InitialDelay
	if d <= 0 {
		d = time.Second
	}
	factor := r.BackoffFactor
	if factor <= 0 {
		factor = 2
	}

	for i := 1; i < attempt && d < limit; i++ {
		d = time.Duration(float64(d) * factor)
		if d <= 0 {
			return limit
		}
	}
	if d > limit {
		return limit
	}
	return d
}
