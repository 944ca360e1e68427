package geoprocessing

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"yqhp/geoanalysis/pkg/types"
)

// Invocation is one call of a server task: the task name plus the parameter bag
// in server field names. It is immutable once built.
type Invocation struct {
	id     string
	task   string
	params map[string]any
}

// NewInvocation creates an invocation with a fresh client-side id. params is copied.
func NewInvocation(task string, params map[string]any) Invocation {
	return Invocation{
		id:     uuid.New().String(),
		task:   task,
		params: copyParams(params),
	}
}

// ID returns the client-side invocation id used for log correlation and the journal.
func (i Invocation) ID() string { return i.id }

// Task returns the server task name.
func (i Invocation) Task() string { return i.task }

// Params returns a copy of the parameter bag.
func (i Invocation) Params() map[string]any { return copyParams(i.params) }

// Param returns a single parameter value.
func (i Invocation) Param(name string) (any, bool) {
	v, ok := i.params[name]
	return v, ok
}

// Retry returns a new invocation of the same task and params with a fresh id.
func (i Invocation) Retry() Invocation {
	return NewInvocation(i.task, i.params)
}

func copyParams(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}

// JobHandle identifies one server-side execution of an invocation.
type JobHandle struct {
	InvocationID string
	Task         string
	TaskURL      string
	JobID        string
}

// StatusURL returns the job status endpoint.
func (h JobHandle) StatusURL() string {
	return h.TaskURL + "/jobs/" + h.JobID
}

// ResultURL returns the lookup endpoint of an output parameter.
func (h JobHandle) ResultURL(paramURL string) string {
	return h.StatusURL() + "/" + strings.TrimPrefix(paramURL, "/")
}

// String returns a string representation of the handle.
func (h JobHandle) String() string {
	return h.Task + "/" + h.JobID
}

// Submission is the outcome of a successful submitJob request.
type Submission struct {
	Handle      JobHandle
	Initial     *types.JobSnapshot
	SubmittedAt time.Time
}

// Result is the outcome of a fully resolved job.
type Result struct {
	Invocation Invocation
	Handle     JobHandle
	Snapshot   *types.JobSnapshot
	Outputs    map[string]any
	Duration   time.Duration
}

// Output returns one resolved output value.
func (r *Result) Output(name string) (any, bool) {
	v, ok := r.Outputs[name]
	return v, ok
}
