package agentcore

// ErrorCode classifies terminal agent failures. Codes are stable strings so
// they can cross process boundaries in reports and checkpoints.
type ErrorCode string

const (
	ErrCodeToolNotFound      ErrorCode = "tool_not_found"
	ErrCodeToolTimeout       ErrorCode = "tool_timeout"
	ErrCodeToolTransport     ErrorCode = "tool_transport_error"
	ErrCodeValidationFailure ErrorCode = "validation_failure"
	ErrCodeOracle            ErrorCode = "reasoning_oracle_error"
	ErrCodeSpawnDepth        ErrorCode = "spawn_depth_exceeded"
	ErrCodeIterationBudget   ErrorCode = "iteration_budget_exceeded"
	ErrCodeInternal          ErrorCode = "internal_error"
)
