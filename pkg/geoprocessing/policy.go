package geoprocessing

import (
	"time"

	"github.com/sethvargo/go-retry"
)

// DefaultPollInterval is the pause between two status fetches.
const DefaultPollInterval = 5 * time.Second

// PollPolicy bounds how a job is observed. Zero MaxPolls and MaxWait leave the
// loop unbounded; the server's own timeout then ends the job.
type PollPolicy struct {
	Interval time.Duration
	MaxPolls int
	MaxWait  time.Duration
}

// DefaultPollPolicy returns the unbounded policy with the default interval.
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{Interval: DefaultPollInterval}
}

func (p PollPolicy) interval() time.Duration {
	if p.Interval <= 0 {
		return DefaultPollInterval
	}
	return p.Interval
}

// RetryPolicy controls RunWithRetry.
type RetryPolicy struct {
	// MaxAttempts counts the first run. Values below 1 mean a single attempt.
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	JitterPercent  uint64
}

// DefaultRetryPolicy returns the default retry policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 10 * time.Second,
		MaxBackoff:     2 * time.Minute,
		JitterPercent:  10,
	}
}

func (p RetryPolicy) backoff() retry.Backoff {
	initial := p.InitialBackoff
	if initial <= 0 {
		initial = time.Second
	}

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	b := retry.NewExponential(initial)
	if p.MaxBackoff > 0 {
		b = retry.WithCappedDuration(p.MaxBackoff, b)
	}
	if p.JitterPercent > 0 {
		b = retry.WithJitterPercent(p.JitterPercent, b)
	}
	return retry.WithMaxRetries(uint64(attempts-1), b)
}
