package geoprocessing

import (
	"context"
	"strings"
	"time"

	"github.com/duke-git/lancet/v2/strutil"
	"go.uber.org/zap"

	"yqhp/geoanalysis/common/logger"
	"yqhp/geoanalysis/pkg/connection"
	"yqhp/geoanalysis/pkg/metrics"
	"yqhp/geoanalysis/pkg/types"
)

// Submitter starts jobs on a geoprocessing service.
type Submitter struct {
	conn       connection.Connection
	serviceURL string
	log        *zap.Logger
}

// NewSubmitter creates a submitter for the service at serviceURL.
func NewSubmitter(conn connection.Connection, serviceURL string, l *zap.Logger) *Submitter {
	if l == nil {
		l = logger.Named("submitter")
	}
	return &Submitter{
		conn:       conn,
		serviceURL: strings.TrimRight(serviceURL, "/"),
		log:        l,
	}
}

// TaskURL returns the base URL of a task.
func (s *Submitter) TaskURL(task string) string {
	return s.serviceURL + "/" + task
}

// Submit posts the invocation to submitJob. It issues exactly one request and
// never polls. Transport errors are wrapped in SubmissionError and stay
// reachable through errors.Unwrap.
func (s *Submitter) Submit(ctx context.Context, inv Invocation) (*Submission, error) {
	if strutil.IsBlank(inv.Task()) {
		return nil, &SubmissionError{Task: inv.Task(), Err: ErrEmptyTask}
	}

	taskURL := s.TaskURL(inv.Task())

	var initial types.JobSnapshot
	if err := s.conn.Post(ctx, taskURL+"/submitJob", inv.params, &initial); err != nil {
		metrics.SubmissionFailuresTotal.WithLabelValues(inv.Task()).Inc()
		s.log.Warn("job submission failed",
			zap.String("task", inv.Task()),
			zap.String("invocation_id", inv.ID()),
			zap.Error(err))
		return nil, &SubmissionError{Task: inv.Task(), Err: err}
	}

	if initial.JobID == "" {
		metrics.SubmissionFailuresTotal.WithLabelValues(inv.Task()).Inc()
		return nil, &SubmissionError{Task: inv.Task(), Err: ErrMissingJobID}
	}

	metrics.JobsSubmittedTotal.WithLabelValues(inv.Task()).Inc()
	s.log.Info("job submitted",
		zap.String("task", inv.Task()),
		zap.String("job_id", initial.JobID),
		zap.String("invocation_id", inv.ID()))

	return &Submission{
		Handle: JobHandle{
			InvocationID: inv.ID(),
			Task:         inv.Task(),
			TaskURL:      taskURL,
			JobID:        initial.JobID,
		},
		Initial:     &initial,
		SubmittedAt: time.Now(),
	}, nil
}
