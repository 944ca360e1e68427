package geoprocessing

import (
	"errors"
	"fmt"
	"time"

	"yqhp/geoanalysis/pkg/connection"
	"yqhp/geoanalysis/pkg/types"
)

var (
	// ErrEmptyTask is returned when an invocation has no task name.
	ErrEmptyTask = errors.New("task name is empty")

	// ErrMissingJobID is returned when submitJob answers without a job id.
	ErrMissingJobID = errors.New("submit response does not contain a job id")

	// ErrMissingValue is returned when an output lookup answers without a value.
	ErrMissingValue = errors.New("output response does not contain a value")
)

// SubmissionError means the job never started: the submit request failed or the
// server did not hand out a job id.
type SubmissionError struct {
	Task string
	Err  error
}

// Error implements the error interface.
func (e *SubmissionError) Error() string {
	return fmt.Sprintf("failed to submit %s job: %v", e.Task, e.Err)
}

// Unwrap returns the underlying error.
func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// NoJobStatusError means the first status fetch carried no job status.
type NoJobStatusError struct {
	Handle JobHandle
}

// Error implements the error interface.
func (e *NoJobStatusError) Error() string {
	return fmt.Sprintf("no job status available for %s", e.Handle)
}

// JobFailedError means the server determined the analysis failed.
type JobFailedError struct {
	Handle  JobHandle
	Message string
}

// Error implements the error interface.
func (e *JobFailedError) Error() string {
	return withMessage(fmt.Sprintf("job %s failed", e.Handle), e.Message)
}

// JobCancelledError means the server cancelled (or deleted) the job.
type JobCancelledError struct {
	Handle  JobHandle
	Status  types.JobStatus
	Message string
}

// Error implements the error interface.
func (e *JobCancelledError) Error() string {
	return withMessage(fmt.Sprintf("job %s cancelled (%s)", e.Handle, e.Status), e.Message)
}

// JobTimedOutError means the job exceeded the server's time budget.
type JobTimedOutError struct {
	Handle  JobHandle
	Message string
}

// Error implements the error interface.
func (e *JobTimedOutError) Error() string {
	return withMessage(fmt.Sprintf("job %s timed out", e.Handle), e.Message)
}

// MalformedResultError means a succeeded job carried no usable results
// descriptor. Output is set when a single entry is at fault.
type MalformedResultError struct {
	Handle JobHandle
	Output string
	Reason string
}

// Error implements the error interface.
func (e *MalformedResultError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("malformed result for job %s, output %q: %s", e.Handle, e.Output, e.Reason)
	}
	return fmt.Sprintf("malformed result for job %s: %s", e.Handle, e.Reason)
}

// OutputResolutionError means the named output could not be fetched.
type OutputResolutionError struct {
	Handle JobHandle
	Output string
	Err    error
}

// Error implements the error interface.
func (e *OutputResolutionError) Error() string {
	return fmt.Sprintf("failed to resolve output %q of job %s: %v", e.Output, e.Handle, e.Err)
}

// Unwrap returns the underlying error.
func (e *OutputResolutionError) Unwrap() error {
	return e.Err
}

// MessageRegressionError means a later snapshot carried fewer messages than an
// earlier one, which breaks the append-only message contract.
type MessageRegressionError struct {
	Handle   JobHandle
	Previous int
	Current  int
}

// Error implements the error interface.
func (e *MessageRegressionError) Error() string {
	return fmt.Sprintf("job %s message list shrank from %d to %d", e.Handle, e.Previous, e.Current)
}

// StatusFetchError means a status poll could not be completed. The job itself
// may still be running.
type StatusFetchError struct {
	Handle JobHandle
	Err    error
}

// Error implements the error interface.
func (e *StatusFetchError) Error() string {
	return fmt.Sprintf("failed to fetch status of job %s: %v", e.Handle, e.Err)
}

// Unwrap returns the underlying error.
func (e *StatusFetchError) Unwrap() error {
	return e.Err
}

// PollLimitError means the client stopped observing a job that had not reached
// a terminal status within the configured poll budget. The remote job is not cancelled.
type PollLimitError struct {
	Handle     JobHandle
	Polls      int
	Elapsed    time.Duration
	LastStatus types.JobStatus
}

// Error implements the error interface.
func (e *PollLimitError) Error() string {
	return fmt.Sprintf("gave up observing job %s after %d polls (%s), last status %q",
		e.Handle, e.Polls, e.Elapsed.Round(time.Millisecond), e.LastStatus)
}

// AbandonedError means the caller's context ended while the job was observed.
type AbandonedError struct {
	Handle JobHandle
	Err    error
}

// Error implements the error interface.
func (e *AbandonedError) Error() string {
	return fmt.Sprintf("stopped observing job %s: %v", e.Handle, e.Err)
}

// Unwrap returns the context error.
func (e *AbandonedError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether re-running the whole submit, track and resolve
// sequence may succeed. Failed jobs and malformed responses are not retried.
func IsRetryable(err error) bool {
	var (
		cancelled   *JobCancelledError
		timedOut    *JobTimedOutError
		statusFetch *StatusFetchError
		submission  *SubmissionError
	)
	switch {
	case errors.As(err, &cancelled), errors.As(err, &timedOut):
		return true
	case errors.As(err, &statusFetch):
		return connection.IsRetryable(statusFetch.Err)
	case errors.As(err, &submission):
		return connection.IsRetryable(submission.Err)
	default:
		return false
	}
}

func withMessage(base, message string) string {
	if message == "" {
		return base
	}
	return base + ": " + message
}
