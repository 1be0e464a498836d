package orchestrator

import (
	"fmt"
	"strings"

	"github.com/deepline-systems/sdlcengine/deepcore/config"
)

// Per-stage report statuses.
const (
	StageStatusCompleted       = "completed"
	StageStatusSkippedFailure  = "skipped-failure"
	StageStatusPendingApproval = "pending-approval"
	StageStatusPending         = "pending"
)

// StageReport summarizes one stage of a run.
type StageReport struct {
	Stage      string `json:"stage"`
	Status     string `json:"status"`
	Confidence string `json:"confidence,omitempty"`
	Iterations int    `json:"iterations,omitempty"`
	ToolCalls  int    `json:"tool_calls,omitempty"`
	Attempts   int    `json:"attempts,omitempty"`
	LastError  string `json:"last_error,omitempty"`
}

// RunReport is the final report of a pipeline run, enumerating every
// configured stage in order.
type RunReport struct {
	RunID      string        `json:"run_id"`
	Pipeline   string        `json:"pipeline"`
	Status     string        `json:"status"`
	Iterations int           `json:"iterations"`
	Stages     []StageReport `json:"stages"`
}

// Report builds the run report from config order and final state.
func Report(cfg *config.PipelineConfig, state *State) *RunReport {
	report := &RunReport{
		RunID:      state.RunID,
		Pipeline:   state.Pipeline,
		Status:     state.Status,
		Iterations: state.Iterations,
		Stages:     make([]StageReport, 0, len(cfg.Stages)),
	}

	for _, stage := range cfg.Stages {
		sr := StageReport{Stage: stage.Name, Status: StageStatusPending}

		switch {
		case state.Artifacts[stage.ArtifactKey] != nil:
			artifact := state.Artifacts[stage.ArtifactKey]
			sr.Status = StageStatusCompleted
			sr.Confidence = string(artifact.Confidence)
			sr.Iterations = artifact.Iterations
			sr.ToolCalls = artifact.ToolCalls

		case state.Skipped[stage.Name] != nil:
			skip := state.Skipped[stage.Name]
			sr.Status = StageStatusSkippedFailure
			sr.Attempts = skip.Attempts
			sr.LastError = skip.LastError

		case state.Pending != nil && state.Pending.Stage == stage.Name:
			sr.Status = StageStatusPendingApproval
			sr.Confidence = string(state.Pending.Confidence)
			sr.Iterations = state.Pending.Iterations
		}

		report.Stages = append(report.Stages, sr)
	}
	return report
}

// Render formats the report as human-readable text.
func (r *RunReport) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Pipeline %s (run %s): %s after %d iterations\n",
		r.Pipeline, r.RunID, r.Status, r.Iterations)
	for _, sr := range r.Stages {
		fmt.Fprintf(&b, "  %-24s %s", sr.Stage, sr.Status)
		switch sr.Status {
		case StageStatusCompleted:
			fmt.Fprintf(&b, " (confidence %s, %d iterations, %d tool calls)",
				sr.Confidence, sr.Iterations, sr.ToolCalls)
		case StageStatusSkippedFailure:
			fmt.Fprintf(&b, " (%d attempts, last error: %s)", sr.Attempts, sr.LastError)
		case StageStatusPendingApproval:
			fmt.Fprintf(&b, " (confidence %s)", sr.Confidence)
		}
		b.WriteString("\n")
	}
	return b.String()
}
