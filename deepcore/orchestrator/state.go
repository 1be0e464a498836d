// Package orchestrator runs configured pipelines stage by stage, each stage as
// one agent task. It owns all pipeline state: agents only ever see their own
// task and return a result; merging, skipping, suspension and resumption
// happen here, on a single logical thread.
package orchestrator

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/deepline-systems/sdlcengine/deepcore/decision"
	"github.com/deepline-systems/sdlcengine/deepcore/typeutil"
)

// Run statuses.
const (
	StatusRunning         = "running"
	StatusCompleted       = "completed"
	StatusPendingApproval = "pending_approval"
	StatusTerminated      = "terminated"
)

// Artifact is the accepted output of a completed stage.
type Artifact struct {
	Stage       string                   `json:"stage"`
	Output      string                   `json:"output"`
	Fields      map[string]any           `json:"fields,omitempty"`
	Confidence  decision.ConfidenceLevel `json:"confidence"`
	Iterations  int                      `json:"iterations"`
	ToolCalls   int                      `json:"tool_calls"`
	Annotations []string                 `json:"annotations,omitempty"`
	CompletedAt time.Time                `json:"completed_at"`
}

// SkipRecord captures why the breaker gave up on a stage.
type SkipRecord struct {
	Stage     string `json:"stage"`
	Attempts  int    `json:"attempts"`
	LastError string `json:"last_error"`
}

// DecisionEntry is one routing decision made by the orchestrator. The list of
// entries is an append-only audit trail of why the run went where it went.
type DecisionEntry struct {
	Stage  string    `json:"stage,omitempty"`
	Action string    `json:"action"`
	Detail string    `json:"detail,omitempty"`
	At     time.Time `json:"at"`
}

// PendingApproval is the suspension point of a run awaiting a human decision.
type PendingApproval struct {
	Stage       string                   `json:"stage"`
	Output      string                   `json:"output"`
	Fields      map[string]any           `json:"fields,omitempty"`
	Confidence  decision.ConfidenceLevel `json:"confidence"`
	Iterations  int                      `json:"iterations"`
	ToolCalls   int                      `json:"tool_calls"`
	RequestedAt time.Time                `json:"requested_at"`
}

// State is the full mutable state of one pipeline run. Only the orchestrator
// writes to it; it serializes losslessly for checkpointing.
type State struct {
	RunID    string `json:"run_id"`
	Pipeline string `json:"pipeline"`
	Input    string `json:"input"`
	Status   string `json:"status"`

	// Artifacts is keyed by artifact key (stage name by default).
	Artifacts map[string]*Artifact `json:"artifacts"`

	// StageFailures counts consecutive failed attempts per stage. Reset on
	// success, cleared into Skipped when the breaker trips.
	StageFailures map[string]int    `json:"stage_failures,omitempty"`
	LastErrors    map[string]string `json:"last_errors,omitempty"`

	// Skipped holds stages the breaker gave up on, keyed by stage name.
	Skipped map[string]*SkipRecord `json:"skipped,omitempty"`

	// Feedback accumulates operator guidance per stage across resumptions.
	Feedback map[string][]string `json:"feedback,omitempty"`

	// Decisions records every routing decision in order.
	Decisions []DecisionEntry `json:"decisions,omitempty"`

	Pending *PendingApproval `json:"pending,omitempty"`

	// Iterations counts pipeline loop passes (stage attempts), bounded by
	// the pipeline config.
	Iterations int `json:"iterations"`

	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewState creates the state for a fresh run.
func NewState(pipeline, input string) *State {
	now := time.Now().UTC()
	return &State{
		RunID:         uuid.NewString(),
		Pipeline:      pipeline,
		Input:         input,
		Status:        StatusRunning,
		Artifacts:     make(map[string]*Artifact),
		StageFailures: make(map[string]int),
		LastErrors:    make(map[string]string),
		Skipped:       make(map[string]*SkipRecord),
		Feedback:      make(map[string][]string),
		StartedAt:     now,
		UpdatedAt:     now,
	}
}

// recordDecision appends one entry to the routing audit trail.
func (s *State) recordDecision(stage, action, detail string) {
	s.Decisions = append(s.Decisions, DecisionEntry{
		Stage:  stage,
		Action: action,
		Detail: detail,
		At:     time.Now().UTC(),
	})
}

// ToStateDict serializes the state to a plain map for checkpointing.
func (s *State) ToStateDict() map[string]any {
	data, err := json.Marshal(s)
	if err != nil {
		return map[string]any{"run_id": s.RunID, "serialization_error": err.Error()}
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return map[string]any{"run_id": s.RunID, "serialization_error": err.Error()}
	}
	return out
}

// FromStateDict restores a state from a checkpoint map.
func FromStateDict(dict map[string]any) (*State, error) {
	if runID, _ := typeutil.SafeString(dict["run_id"]); runID == "" {
		return nil, fmt.Errorf("checkpoint state has no run_id")
	}
	data, err := json.Marshal(dict)
	if err != nil {
		return nil, fmt.Errorf("invalid checkpoint state: %w", err)
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("invalid checkpoint state: %w", err)
	}
	if s.Artifacts == nil {
		s.Artifacts = make(map[string]*Artifact)
	}
	if s.StageFailures == nil {
		s.StageFailures = make(map[string]int)
	}
	if s.LastErrors == nil {
		s.LastErrors = make(map[string]string)
	}
	if s.Skipped == nil {
		s.Skipped = make(map[string]*SkipRecord)
	}
	if s.Feedback == nil {
		s.Feedback = make(map[string][]string)
	}
	return &s, nil
}
