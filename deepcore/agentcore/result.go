package agentcore

import (
	"github.com/deepline-systems/sdlcengine/deepcore/decision"
	"github.com/deepline-systems/sdlcengine/deepcore/toolcall"
)

// Terminal statuses of an agent run. Execute always returns one of these,
// never an error value.
const (
	StatusSuccess          = "success"
	StatusRequiresApproval = "requires_approval"
	StatusMaxIterations    = "max_iterations"
	StatusError            = "error"
)

// ToolCallRecord is one entry in the ordered tool-call trail of a run.
type ToolCallRecord struct {
	Iteration int              `json:"iteration"`
	Name      string           `json:"name"`
	Args      map[string]any   `json:"args,omitempty"`
	Result    *toolcall.Result `json:"result,omitempty"`
}

// AgentResult is the total outcome of one agent run. Panics, oracle failures
// and budget overruns all land here as data rather than escaping as errors.
type AgentResult struct {
	Status     string                   `json:"status"`
	Output     string                   `json:"output,omitempty"`
	Fields     map[string]any           `json:"fields,omitempty"`
	Confidence decision.ConfidenceLevel `json:"confidence"`
	Iterations int                      `json:"iterations"`

	ToolCalls []ToolCallRecord  `json:"tool_calls,omitempty"`
	Decisions []decision.Record `json:"decisions,omitempty"`

	// ChildResults holds outcomes of spawned sub-agents in spawn order.
	ChildResults []*AgentResult `json:"child_results,omitempty"`

	ErrorCode ErrorCode `json:"error_code,omitempty"`
	Error     string    `json:"error,omitempty"`

	// Annotations carries terminal notes such as degraded-completion or
	// spawning-disallowed markers.
	Annotations []string `json:"annotations,omitempty"`
}

// Succeeded reports whether the run produced a usable artifact.
func (r *AgentResult) Succeeded() bool {
	return r.Status == StatusSuccess
}

// LastDecision returns the final decision record, or nil for an empty run.
func (r *AgentResult) LastDecision() *decision.Record {
	if len(r.Decisions) == 0 {
		return nil
	}
	return &r.Decisions[len(r.Decisions)-1]
}

// errorResult builds a terminal error result. The audit trail always ends
// with a terminal record, so even an errored run carries one.
func errorResult(code ErrorCode, detail string) *AgentResult {
	rec := decision.NewRecord(0, decision.TypeComplete, decision.ConfidenceVeryLow, detail)
	rec.Metadata = map[string]any{"error_code": string(code)}
	return &AgentResult{
		Status:     StatusError,
		Confidence: decision.ConfidenceVeryLow,
		ErrorCode:  code,
		Error:      detail,
		Decisions:  []decision.Record{rec},
	}
}
