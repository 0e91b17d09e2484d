package voice

import "time"

// RetryPolicy schedules delayed re-attempts. MaxAttempts of zero means no cap;
// once Delays is exhausted its last entry repeats.
type RetryPolicy struct {
	MaxAttempts int
	Delays      []time.Duration
}

// FixedRetry retries forever with a constant delay.
func FixedRetry(delay time.Duration) RetryPolicy {
	return RetryPolicy{Delays: []time.Duration{delay}}
}

// Next returns the delay before retry number attempt (zero based) and whether
// the retry is allowed at all.
func (p RetryPolicy) Next(attempt int) (time.Duration, bool) {
	if attempt < 0 {
		attempt = 0
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		return 0, false
	}
	if len(p.Delays) == 0 {
		return 0, true
	}
	if attempt >= len(p.Delays) {
		return p.Delays[len(p.Delays)-1], true
	}
	return p.Delays[attempt], true
}
