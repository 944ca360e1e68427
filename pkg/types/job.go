package types

import "yqhp/geoanalysis/common/utils"

// JobStatus is the server-defined status string of a geoprocessing job.
type JobStatus string

const (
	JobStatusNew        JobStatus = "esriJobNew"
	JobStatusSubmitted  JobStatus = "esriJobSubmitted"
	JobStatusWaiting    JobStatus = "esriJobWaiting"
	JobStatusExecuting  JobStatus = "esriJobExecuting"
	JobStatusCancelling JobStatus = "esriJobCancelling"
	JobStatusSucceeded  JobStatus = "esriJobSucceeded"
	JobStatusFailed     JobStatus = "esriJobFailed"
	JobStatusTimedOut   JobStatus = "esriJobTimedOut"
	JobStatusCancelled  JobStatus = "esriJobCancelled"
	JobStatusDeleting   JobStatus = "esriJobDeleting"
	JobStatusDeleted    JobStatus = "esriJobDeleted"
)

// IsTerminal reports whether no further transition can occur from s.
// A deleted job is terminal as well: it no longer exists on the server.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusFailed, JobStatusTimedOut, JobStatusCancelled, JobStatusDeleted:
		return true
	default:
		return false
	}
}

// IsKnown reports whether s belongs to the closed set of server statuses.
func (s JobStatus) IsKnown() bool {
	switch s {
	case JobStatusNew, JobStatusSubmitted, JobStatusWaiting, JobStatusExecuting,
		JobStatusCancelling, JobStatusSucceeded, JobStatusFailed, JobStatusTimedOut,
		JobStatusCancelled, JobStatusDeleting, JobStatusDeleted:
		return true
	default:
		return false
	}
}

// MessageType is the severity tag of a job progress message.
type MessageType string

const (
	MessageTypeInformative MessageType = "esriJobMessageTypeInformative"
	MessageTypeWarning     MessageType = "esriJobMessageTypeWarning"
	MessageTypeError       MessageType = "esriJobMessageTypeError"
	MessageTypeEmpty       MessageType = "esriJobMessageTypeEmpty"
	MessageTypeAbort       MessageType = "esriJobMessageTypeAbort"
)

// Severity is the client-side severity a progress message is relayed at.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// Severity maps the server tag to a relay severity. Unknown tags are informative.
func (t MessageType) Severity() Severity {
	switch t {
	case MessageTypeWarning:
		return SeverityWarn
	case MessageTypeError, MessageTypeAbort:
		return SeverityError
	default:
		return SeverityInfo
	}
}

// JobMessage is one server-emitted progress message.
type JobMessage struct {
	Type        MessageType `json:"type"`
	Description string      `json:"description"`
}

// ResultParam is the secondary lookup entry of one output parameter.
type ResultParam struct {
	ParamURL string `json:"paramUrl"`
}

// JobSnapshot is the point-in-time view of a job returned by submitJob and by the
// job status endpoint. An absent jobStatus decodes to the empty string.
type JobSnapshot struct {
	JobID     string                 `json:"jobId,omitempty"`
	JobStatus JobStatus              `json:"jobStatus,omitempty"`
	Messages  []JobMessage           `json:"messages,omitempty"`
	Results   map[string]ResultParam `json:"results,omitempty"`
	Inputs    map[string]ResultParam `json:"inputs,omitempty"`
}

// HasStatus reports whether the server included a job status.
func (s *JobSnapshot) HasStatus() bool {
	return s != nil && s.JobStatus != ""
}

// LastErrorMessage returns the description of the latest error-severity message, if any.
func (s *JobSnapshot) LastErrorMessage() string {
	if s == nil {
		return ""
	}
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Type.Severity() == SeverityError {
			return s.Messages[i].Description
		}
	}
	return ""
}

// ParamValue is the response of an output parameter lookup. A null value is a
// resolved value; only an absent value key leaves HasValue false.
type ParamValue struct {
	ParamName string `json:"paramName,omitempty"`
	DataType  string `json:"dataType,omitempty"`
	Value     any    `json:"value"`

	present bool
}

// HasValue reports whether the decoded response carried a value key.
func (p *ParamValue) HasValue() bool {
	return p != nil && p.present
}

// UnmarshalJSON records the presence of the value key.
func (p *ParamValue) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := utils.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.ParamName, _ = raw["paramName"].(string)
	p.DataType, _ = raw["dataType"].(string)
	p.Value, p.present = raw["value"]
	return nil
}

// MessageEvent is a progress message relayed for a specific job. Index is the
// message position in the job's append-only message list.
type MessageEvent struct {
	Task    string
	JobID   string
	Index   int
	Message JobMessage
}
