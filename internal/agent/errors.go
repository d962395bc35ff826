// internal/agent/errors.go
package agent

// ErrorCode classifies why a step did not apply cleanly. Codes are recorded
// in the run journal and logs.
type ErrorCode string

const (
	// -- Plan Validation Errors --
	ErrCodeElementIDMissing ErrorCode = "ELEMENT_ID_MISSING"
	ErrCodeStaleReference   ErrorCode = "STALE_REFERENCE"
	ErrCodeNotEditable      ErrorCode = "NOT_EDITABLE"
	ErrCodeUnknownAction    ErrorCode = "UNKNOWN_ACTION"
	ErrCodeInvalidElementID ErrorCode = "INVALID_ELEMENT_ID"

	// -- Interaction Errors --
	ErrCodeInteractionFailed ErrorCode = "INTERACTION_FAILED"
	ErrCodeOperatorTimeout   ErrorCode = "OPERATOR_TIMEOUT"

	// -- Internal System Errors --
	ErrCodeExecutorPanic ErrorCode = "EXECUTOR_PANIC"
)
