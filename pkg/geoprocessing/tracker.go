package geoprocessing

import (
	"context"
	"time"

	"go.uber.org/zap"

	"yqhp/geoanalysis/common/logger"
	"yqhp/geoanalysis/pkg/connection"
	"yqhp/geoanalysis/pkg/metrics"
	"yqhp/geoanalysis/pkg/types"
)

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// ContextSleep is the default SleepFunc.
func ContextSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Tracker polls a job until it reaches a terminal status and relays every new
// progress message exactly once. It holds no per-job state, so one Tracker can
// observe many jobs concurrently.
type Tracker struct {
	conn   connection.Connection
	sink   MessageSink
	policy PollPolicy
	sleep  SleepFunc
	log    *zap.Logger
}

// NewTracker creates a tracker. A nil sink discards messages.
func NewTracker(conn connection.Connection, sink MessageSink, policy PollPolicy, l *zap.Logger) *Tracker {
	if sink == nil {
		sink = MultiSink(nil)
	}
	if l == nil {
		l = logger.Named("tracker")
	}
	return &Tracker{
		conn:   conn,
		sink:   sink,
		policy: policy,
		sleep:  ContextSleep,
		log:    l,
	}
}

// WithSleep returns a copy of t using sleep between polls.
func (t *Tracker) WithSleep(sleep SleepFunc) *Tracker {
	c := *t
	if sleep != nil {
		c.sleep = sleep
	}
	return &c
}

// Track fetches the job status immediately and then every policy interval until
// the job is terminal. On success the returned snapshot carries a non-empty
// results descriptor. Terminal failures return the last snapshot together with
// the matching error.
func (t *Tracker) Track(ctx context.Context, h JobHandle) (*types.JobSnapshot, error) {
	log := t.log.With(
		zap.String("task", h.Task),
		zap.String("job_id", h.JobID),
		zap.String("invocation_id", h.InvocationID))

	start := time.Now()
	polls := 0
	seen := 0

	snap, err := t.fetch(ctx, h)
	polls++
	if err != nil {
		return nil, err
	}
	if !snap.HasStatus() {
		return snap, &NoJobStatusError{Handle: h}
	}

	var last types.JobStatus
	for {
		if seen, err = t.relay(h, snap, seen); err != nil {
			return snap, err
		}

		if snap.HasStatus() {
			if snap.JobStatus != last {
				log.Debug("job status changed", zap.String("status", string(snap.JobStatus)))
			}
			last = snap.JobStatus

			if done, err := t.classify(h, snap); done {
				return snap, err
			}
		} else {
			log.Warn("status response without job status, polling again")
		}

		if t.policy.MaxPolls > 0 && polls >= t.policy.MaxPolls ||
			t.policy.MaxWait > 0 && time.Since(start) >= t.policy.MaxWait {
			return snap, &PollLimitError{
				Handle:     h,
				Polls:      polls,
				Elapsed:    time.Since(start),
				LastStatus: last,
			}
		}

		if err := t.sleep(ctx, t.policy.interval()); err != nil {
			return snap, &AbandonedError{Handle: h, Err: err}
		}

		next, err := t.fetch(ctx, h)
		polls++
		if err != nil {
			return snap, err
		}
		snap = next
	}
}

func (t *Tracker) fetch(ctx context.Context, h JobHandle) (*types.JobSnapshot, error) {
	metrics.StatusPollsTotal.WithLabelValues(h.Task).Inc()

	var snap types.JobSnapshot
	if err := t.conn.Post(ctx, h.StatusURL(), nil, &snap); err != nil {
		if ctx.Err() != nil {
			return nil, &AbandonedError{Handle: h, Err: ctx.Err()}
		}
		return nil, &StatusFetchError{Handle: h, Err: err}
	}
	return &snap, nil
}

// relay emits messages past index seen and returns the new count.
func (t *Tracker) relay(h JobHandle, snap *types.JobSnapshot, seen int) (int, error) {
	n := len(snap.Messages)
	if n < seen {
		return seen, &MessageRegressionError{Handle: h, Previous: seen, Current: n}
	}
	for i := seen; i < n; i++ {
		t.sink.Relay(types.MessageEvent{
			Task:    h.Task,
			JobID:   h.JobID,
			Index:   i,
			Message: snap.Messages[i],
		})
	}
	return n, nil
}

// classify reports whether snap ends tracking and with which error.
func (t *Tracker) classify(h JobHandle, snap *types.JobSnapshot) (bool, error) {
	switch snap.JobStatus {
	case types.JobStatusSucceeded:
		if len(snap.Results) == 0 {
			return true, &MalformedResultError{Handle: h, Reason: "job succeeded without results"}
		}
		return true, nil
	case types.JobStatusFailed:
		return true, &JobFailedError{Handle: h, Message: snap.LastErrorMessage()}
	case types.JobStatusCancelled, types.JobStatusDeleted:
		return true, &JobCancelledError{Handle: h, Status: snap.JobStatus, Message: snap.LastErrorMessage()}
	case types.JobStatusTimedOut:
		return true, &JobTimedOutError{Handle: h, Message: snap.LastErrorMessage()}
	default:
		return false, nil
	}
}
