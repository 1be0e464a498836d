package decision

import "time"

// Record is one entry in an agent's decision history.
// The history is append-only and survives into the final result as an audit trail.
type Record struct {
	Iteration  int             `json:"iteration"`
	Type       Type            `json:"type"`
	Confidence ConfidenceLevel `json:"confidence"`
	Reasoning  string          `json:"reasoning"`
	NextAction string          `json:"next_action,omitempty"`
	DecidedAt  time.Time       `json:"decided_at"`
	Metadata   map[string]any  `json:"metadata,omitempty"`
}

// NewRecord creates a record stamped with the current time.
func NewRecord(iteration int, typ Type, confidence ConfidenceLevel, reasoning string) Record {
	return Record{
		Iteration:  iteration,
		Type:       typ,
		Confidence: confidence,
		Reasoning:  reasoning,
		DecidedAt:  time.Now().UTC(),
	}
}
