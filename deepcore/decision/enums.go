// Package decision provides the decision vocabulary for the agent execution loop:
// decision types, the ordinal confidence scale, per-iteration decision records,
// and the deterministic confidence assessor.
package decision

// Type represents what the agent chose to do after an iteration - exactly one per iteration.
type Type string

const (
	// TypeContinue indicates another iteration toward the same objective.
	TypeContinue Type = "continue"
	// TypeComplete indicates the objective is met and the loop terminates.
	TypeComplete Type = "complete"
	// TypeSelfCorrect indicates a retry informed by validation errors.
	TypeSelfCorrect Type = "self_correct"
	// TypeSpawnChild indicates delegation of a sub-objective to a child agent.
	TypeSpawnChild Type = "spawn_child"
	// TypeRequestApproval indicates suspension pending a human decision.
	TypeRequestApproval Type = "request_approval"
)

// IsTerminal returns true if the decision ends the agent loop.
func (t Type) IsTerminal() bool {
	return t == TypeComplete || t == TypeRequestApproval
}

// ParseType parses a decision type from oracle output, defaulting to continue.
func ParseType(s string) Type {
	switch Type(s) {
	case TypeContinue, TypeComplete, TypeSelfCorrect, TypeSpawnChild, TypeRequestApproval:
		return Type(s)
	default:
		return TypeContinue
	}
}

// ConfidenceLevel is the ordinal confidence scale attached to every decision.
// Levels are compared by rank, never by string value.
type ConfidenceLevel string

const (
	ConfidenceVeryLow  ConfidenceLevel = "very_low"
	ConfidenceLow      ConfidenceLevel = "low"
	ConfidenceMedium   ConfidenceLevel = "medium"
	ConfidenceHigh     ConfidenceLevel = "high"
	ConfidenceVeryHigh ConfidenceLevel = "very_high"
)

var confidenceRanks = map[ConfidenceLevel]int{
	ConfidenceVeryLow:  0,
	ConfidenceLow:      1,
	ConfidenceMedium:   2,
	ConfidenceHigh:     3,
	ConfidenceVeryHigh: 4,
}

// Rank returns the ordinal position of the level (very_low=0 .. very_high=4).
// Unknown levels rank as medium.
func (c ConfidenceLevel) Rank() int {
	if r, ok := confidenceRanks[c]; ok {
		return r
	}
	return confidenceRanks[ConfidenceMedium]
}

// AtLeast returns true if c ranks at or above other.
func (c ConfidenceLevel) AtLeast(other ConfidenceLevel) bool {
	return c.Rank() >= other.Rank()
}

// Cap returns c lowered to ceiling if c ranks above it.
func (c ConfidenceLevel) Cap(ceiling ConfidenceLevel) ConfidenceLevel {
	if c.Rank() > ceiling.Rank() {
		return ceiling
	}
	return c
}

// ParseConfidence parses a confidence level from oracle output.
// Unknown or empty values default to medium.
func ParseConfidence(s string) ConfidenceLevel {
	switch ConfidenceLevel(s) {
	case ConfidenceVeryLow, ConfidenceLow, ConfidenceMedium, ConfidenceHigh, ConfidenceVeryHigh:
		return ConfidenceLevel(s)
	default:
		return ConfidenceMedium
	}
}
