package geoprocessing

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/duke-git/lancet/v2/maputil"
	"go.uber.org/zap"

	"yqhp/geoanalysis/common/logger"
	"yqhp/geoanalysis/pkg/connection"
	"yqhp/geoanalysis/pkg/journal"
	"yqhp/geoanalysis/pkg/metrics"
	"yqhp/geoanalysis/pkg/types"
)

// Service runs invocations against one geoprocessing service: submit, track,
// then resolve. The connection is injected; there is no default session.
type Service struct {
	conn       connection.Connection
	serviceURL string
	log        *zap.Logger
	sinks      []MessageSink
	policy     PollPolicy
	journal    journal.Journal
	sleep      SleepFunc

	submitter *Submitter
	tracker   *Tracker
	resolver  *Resolver
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithSinks adds message sinks. Messages are always logged as well.
func WithSinks(sinks ...MessageSink) ServiceOption {
	return func(s *Service) {
		s.sinks = append(s.sinks, sinks...)
	}
}

// WithPollPolicy sets the poll policy.
func WithPollPolicy(p PollPolicy) ServiceOption {
	return func(s *Service) {
		s.policy = p
	}
}

// WithJournal records every run in j.
func WithJournal(j journal.Journal) ServiceOption {
	return func(s *Service) {
		if j != nil {
			s.journal = j
		}
	}
}

// WithSleep replaces the wait between polls. Used by tests.
func WithSleep(sleep SleepFunc) ServiceOption {
	return func(s *Service) {
		if sleep != nil {
			s.sleep = sleep
		}
	}
}

// NewService creates a service for serviceURL.
func NewService(conn connection.Connection, serviceURL string, opts ...ServiceOption) *Service {
	s := &Service{
		conn:       conn,
		serviceURL: serviceURL,
		log:        logger.Named("geoprocessing"),
		policy:     DefaultPollPolicy(),
		journal:    journal.Nop{},
		sleep:      ContextSleep,
	}
	for _, opt := range opts {
		opt(s)
	}

	sink := append(MultiSink{NewLogSink(s.log.Named("job"))}, s.sinks...)

	s.submitter = NewSubmitter(conn, serviceURL, s.log.Named("submitter"))
	s.tracker = NewTracker(conn, sink, s.policy, s.log.Named("tracker")).WithSleep(s.sleep)
	s.resolver = NewResolver(conn, s.log.Named("resolver"))
	return s
}

// ServiceURL returns the service base URL.
func (s *Service) ServiceURL() string {
	return s.serviceURL
}

// Submit starts a job without observing it.
func (s *Service) Submit(ctx context.Context, inv Invocation) (*Submission, error) {
	return s.submitter.Submit(ctx, inv)
}

// Track observes a submitted job until it is terminal.
func (s *Service) Track(ctx context.Context, h JobHandle) (*types.JobSnapshot, error) {
	return s.tracker.Track(ctx, h)
}

// Resolve fetches the outputs of a succeeded job. With names, only those outputs
// are fetched.
func (s *Service) Resolve(ctx context.Context, h JobHandle, results map[string]types.ResultParam, names ...string) (map[string]any, error) {
	return s.resolver.ResolveOnly(ctx, h, results, names...)
}

// Run submits inv, tracks the job and resolves every output.
func (s *Service) Run(ctx context.Context, inv Invocation) (*Result, error) {
	return s.run(ctx, inv, nil)
}

// RunOutputs is Run resolving only the named outputs.
func (s *Service) RunOutputs(ctx context.Context, inv Invocation, names ...string) (*Result, error) {
	return s.run(ctx, inv, names)
}

func (s *Service) run(ctx context.Context, inv Invocation, names []string) (*Result, error) {
	sub, err := s.submitter.Submit(ctx, inv)
	if err != nil {
		return nil, err
	}

	metrics.ActiveJobs.Inc()
	defer metrics.ActiveJobs.Dec()

	res := &Result{Invocation: inv, Handle: sub.Handle}

	snap, err := s.tracker.Track(ctx, sub.Handle)
	res.Snapshot = snap
	if err == nil {
		res.Outputs, err = s.resolver.ResolveOnly(ctx, sub.Handle, snap.Results, names...)
	}
	res.Duration = time.Since(sub.SubmittedAt)

	outcome := Outcome(err)
	metrics.JobsFinishedTotal.WithLabelValues(inv.Task(), outcome).Inc()
	metrics.JobDuration.WithLabelValues(inv.Task()).Observe(res.Duration.Seconds())
	s.record(sub, res, outcome, err)

	if err != nil {
		return res, err
	}

	s.log.Info("job completed",
		zap.String("task", inv.Task()),
		zap.String("job_id", sub.Handle.JobID),
		zap.String("invocation_id", inv.ID()),
		zap.Duration("duration", res.Duration))
	return res, nil
}

// record writes the journal entry. A journal failure never fails the run.
func (s *Service) record(sub *Submission, res *Result, outcome string, runErr error) {
	outputs := maputil.Keys(res.Outputs)
	sort.Strings(outputs)

	entry := &journal.Entry{
		InvocationID: sub.Handle.InvocationID,
		Task:         sub.Handle.Task,
		JobID:        sub.Handle.JobID,
		Outcome:      outcome,
		Outputs:      outputs,
		SubmittedAt:  sub.SubmittedAt,
		FinishedAt:   sub.SubmittedAt.Add(res.Duration),
	}
	if res.Snapshot != nil {
		entry.Status = res.Snapshot.JobStatus
		entry.Messages = len(res.Snapshot.Messages)
	}
	if runErr != nil {
		entry.Error = runErr.Error()
	}

	// the caller's context may already be done
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.journal.Record(ctx, entry); err != nil {
		s.log.Warn("failed to record job in journal",
			zap.String("invocation_id", entry.InvocationID),
			zap.Error(err))
	}
}

// Outcome classifies a run error into a metrics outcome label.
func Outcome(err error) string {
	var (
		failed     *JobFailedError
		cancelled  *JobCancelledError
		timedOut   *JobTimedOutError
		malformed  *MalformedResultError
		noStatus   *NoJobStatusError
		regression *MessageRegressionError
		abandoned  *AbandonedError
		pollLimit  *PollLimitError
		unresolved *OutputResolutionError
	)
	switch {
	case err == nil:
		return metrics.OutcomeSucceeded
	case errors.As(err, &failed):
		return metrics.OutcomeFailed
	case errors.As(err, &cancelled):
		return metrics.OutcomeCancelled
	case errors.As(err, &timedOut):
		return metrics.OutcomeTimedOut
	case errors.As(err, &malformed), errors.As(err, &noStatus), errors.As(err, &regression):
		return metrics.OutcomeMalformed
	case errors.As(err, &abandoned), errors.As(err, &pollLimit):
		return metrics.OutcomeAbandoned
	case errors.As(err, &unresolved):
		return metrics.OutcomeUnresolved
	default:
		return metrics.OutcomeError
	}
}
