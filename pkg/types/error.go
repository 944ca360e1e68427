package types

import (
	"fmt"
	"strings"
)

// ErrorEnvelope is the body the server answers with when a request is rejected,
// often with an HTTP 200 status.
type ErrorEnvelope struct {
	Error *ServiceError `json:"error,omitempty"`
}

// ServiceError is the error reported by the server inside an ErrorEnvelope.
type ServiceError struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	msg := fmt.Sprintf("service error %d: %s", e.Code, e.Message)
	if len(e.Details) > 0 {
		msg += " (" + strings.Join(e.Details, "; ") + ")"
	}
	return msg
}
