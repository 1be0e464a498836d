package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/deepline-systems/sdlcengine/deepcore/agentcore"
	"github.com/deepline-systems/sdlcengine/deepcore/checkpoint"
	"github.com/deepline-systems/sdlcengine/deepcore/config"
	"github.com/deepline-systems/sdlcengine/deepcore/decision"
	"github.com/deepline-systems/sdlcengine/deepcore/observability"
	"github.com/deepline-systems/sdlcengine/deepcore/toolcall"
	"github.com/deepline-systems/sdlcengine/eventbus"
)

// ApprovalDecision is the operator's answer to a pending approval.
type ApprovalDecision string

const (
	// Approve accepts the pending output as the stage artifact.
	Approve ApprovalDecision = "approve"
	// Reject discards the output and marks the stage skipped.
	Reject ApprovalDecision = "reject"
	// Feedback discards the output and reruns the stage with guidance.
	Feedback ApprovalDecision = "feedback"
)

// ApprovalResponse carries the operator decision into Resume.
type ApprovalResponse struct {
	Decision ApprovalDecision `json:"decision"`
	Note     string           `json:"note,omitempty"`
}

// Orchestrator runs pipelines. It is safe to reuse across runs; all per-run
// state lives in State.
type Orchestrator struct {
	cfg     *config.PipelineConfig
	oracle  agentcore.Oracle
	invoker *toolcall.Invoker
	logger  agentcore.Logger
	bus     *eventbus.InMemoryBus
	store   checkpoint.Store
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithBus attaches an event bus for lifecycle notifications.
func WithBus(bus *eventbus.InMemoryBus) Option {
	return func(o *Orchestrator) { o.bus = bus }
}

// WithStore attaches a checkpoint store. State is saved after every stage
// attempt and at every terminal or suspension point.
func WithStore(store checkpoint.Store) Option {
	return func(o *Orchestrator) { o.store = store }
}

// New validates the pipeline config and builds an orchestrator.
func New(cfg *config.PipelineConfig, oracle agentcore.Oracle, invoker *toolcall.Invoker, logger agentcore.Logger, opts ...Option) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := &Orchestrator{
		cfg:     cfg,
		oracle:  oracle,
		invoker: invoker,
		logger:  logger.Bind("component", "orchestrator", "pipeline", cfg.Name),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Run starts a fresh pipeline run for the given input and drives it until a
// terminal status or a suspension point. The returned state is always usable;
// errors are reserved for broken preconditions, not stage failures.
func (o *Orchestrator) Run(ctx context.Context, input string) (*State, error) {
	state := NewState(o.cfg.Name, input)
	o.publish(ctx, &eventbus.PipelineStarted{RunID: state.RunID, Pipeline: state.Pipeline, Input: input})
	o.logger.Info("pipeline_started", "run_id", state.RunID)
	return o.loop(ctx, state)
}

// Resume continues a suspended run after an operator decision. The state is
// typically restored from a checkpoint first.
func (o *Orchestrator) Resume(ctx context.Context, state *State, response ApprovalResponse) (*State, error) {
	if state.Pending == nil {
		return state, fmt.Errorf("run %s has no pending approval", state.RunID)
	}
	pending := state.Pending
	stage := o.cfg.GetStage(pending.Stage)
	if stage == nil {
		return state, fmt.Errorf("pending stage '%s' not in pipeline '%s'", pending.Stage, o.cfg.Name)
	}

	o.logger.Info("resuming_run",
		"run_id", state.RunID,
		"stage", pending.Stage,
		"decision", string(response.Decision),
	)

	switch response.Decision {
	case Approve:
		state.Artifacts[stage.ArtifactKey] = &Artifact{
			Stage:       pending.Stage,
			Output:      pending.Output,
			Fields:      pending.Fields,
			Confidence:  pending.Confidence,
			Iterations:  pending.Iterations,
			ToolCalls:   pending.ToolCalls,
			Annotations: []string{"approved by operator"},
			CompletedAt: time.Now().UTC(),
		}
		delete(state.StageFailures, pending.Stage)
		delete(state.LastErrors, pending.Stage)
		state.recordDecision(pending.Stage, "approved", response.Note)

	case Reject:
		reason := "rejected by operator"
		if response.Note != "" {
			reason += ": " + response.Note
		}
		state.Skipped[pending.Stage] = &SkipRecord{
			Stage:     pending.Stage,
			Attempts:  state.StageFailures[pending.Stage] + 1,
			LastError: reason,
		}
		state.LastErrors[pending.Stage] = reason
		state.recordDecision(pending.Stage, "rejected", reason)
		o.publish(ctx, &eventbus.StageSkipped{RunID: state.RunID, Stage: pending.Stage, LastError: reason})
		if stage.Mandatory {
			state.Pending = nil
			return o.finish(ctx, state, StatusTerminated), nil
		}

	case Feedback:
		if response.Note != "" {
			state.Feedback[pending.Stage] = append(state.Feedback[pending.Stage], response.Note)
		}
		state.recordDecision(pending.Stage, "feedback", response.Note)
		// The stage has no artifact yet, so the loop reruns it.

	default:
		return state, fmt.Errorf("unknown approval decision '%s'", response.Decision)
	}

	state.Pending = nil
	state.Status = StatusRunning
	return o.loop(ctx, state)
}

// loop drives the run until completion, suspension, or termination.
func (o *Orchestrator) loop(ctx context.Context, state *State) (*State, error) {
	for {
		stage := o.nextStage(state)
		if stage == nil {
			return o.finish(ctx, state, StatusCompleted), nil
		}
		if state.Iterations >= o.cfg.MaxPipelineIterations {
			o.logger.Warn("pipeline_iteration_budget_exceeded",
				"run_id", state.RunID,
				"iterations", state.Iterations,
			)
			state.recordDecision("", "terminated", "pipeline iteration budget exceeded")
			return o.finish(ctx, state, StatusTerminated), nil
		}

		state.Iterations++
		attempt := state.StageFailures[stage.Name] + 1
		o.publish(ctx, &eventbus.StageStarted{RunID: state.RunID, Stage: stage.Name, Attempt: attempt})

		start := time.Now()
		core := agentcore.NewCore(o.buildTask(stage, state), o.oracle, o.invoker, o.logger)
		result := core.Execute(ctx)
		durationMS := int(time.Since(start).Milliseconds())

		switch {
		case result.Status == agentcore.StatusRequiresApproval:
			o.suspend(ctx, state, stage, result)
			return state, nil

		case o.isUsable(result):
			if stage.ApprovalRequired {
				o.suspend(ctx, state, stage, result)
				return state, nil
			}
			o.accept(ctx, state, stage, result, durationMS)

		default:
			if done := o.recordFailure(ctx, state, stage, result); done {
				return o.finish(ctx, state, StatusTerminated), nil
			}
		}

		o.saveCheckpoint(ctx, state)
	}
}

// isUsable reports whether a result yields an artifact. A run that produced
// no output at all is a failure regardless of its status.
func (o *Orchestrator) isUsable(result *agentcore.AgentResult) bool {
	if result.Status != agentcore.StatusSuccess && result.Status != agentcore.StatusMaxIterations {
		return false
	}
	if strings.TrimSpace(result.Output) == "" {
		return false
	}
	return true
}

func (o *Orchestrator) accept(ctx context.Context, state *State, stage *config.StageConfig, result *agentcore.AgentResult, durationMS int) {
	annotations := append([]string(nil), result.Annotations...)
	if result.Confidence == decision.ConfidenceVeryLow {
		annotations = append(annotations, "very low confidence artifact")
	}
	state.Artifacts[stage.ArtifactKey] = &Artifact{
		Stage:       stage.Name,
		Output:      result.Output,
		Fields:      result.Fields,
		Confidence:  result.Confidence,
		Iterations:  result.Iterations,
		ToolCalls:   len(result.ToolCalls),
		Annotations: annotations,
		CompletedAt: time.Now().UTC(),
	}
	delete(state.StageFailures, stage.Name)
	delete(state.LastErrors, stage.Name)
	state.recordDecision(stage.Name, "accepted", string(result.Confidence))
	state.UpdatedAt = time.Now().UTC()

	o.publish(ctx, &eventbus.StageCompleted{
		RunID:      state.RunID,
		Stage:      stage.Name,
		Confidence: string(result.Confidence),
		Iterations: result.Iterations,
		DurationMS: durationMS,
	})
	o.logger.Info("stage_completed",
		"run_id", state.RunID,
		"stage", stage.Name,
		"confidence", string(result.Confidence),
	)
}

// recordFailure counts a failed attempt and trips the breaker at the
// configured threshold. Returns true when the run must terminate because a
// mandatory stage was skipped.
func (o *Orchestrator) recordFailure(ctx context.Context, state *State, stage *config.StageConfig, result *agentcore.AgentResult) bool {
	detail := result.Error
	if detail == "" {
		detail = fmt.Sprintf("stage produced no usable output (status %s)", result.Status)
	}
	state.StageFailures[stage.Name]++
	state.LastErrors[stage.Name] = detail
	state.recordDecision(stage.Name, "failed", detail)
	state.UpdatedAt = time.Now().UTC()
	attempts := state.StageFailures[stage.Name]

	o.publish(ctx, &eventbus.StageFailed{
		RunID:   state.RunID,
		Stage:   stage.Name,
		Attempt: attempts,
		Error:   detail,
	})
	o.logger.Warn("stage_failed",
		"run_id", state.RunID,
		"stage", stage.Name,
		"attempt", attempts,
		"error", detail,
	)

	if attempts < o.cfg.FailureThreshold {
		return false
	}

	state.Skipped[stage.Name] = &SkipRecord{
		Stage:     stage.Name,
		Attempts:  attempts,
		LastError: detail,
	}
	delete(state.StageFailures, stage.Name)
	state.recordDecision(stage.Name, "skipped", detail)
	o.publish(ctx, &eventbus.StageSkipped{RunID: state.RunID, Stage: stage.Name, LastError: detail})
	o.logger.Warn("stage_skipped", "run_id", state.RunID, "stage", stage.Name, "attempts", attempts)

	return stage.Mandatory
}

func (o *Orchestrator) suspend(ctx context.Context, state *State, stage *config.StageConfig, result *agentcore.AgentResult) {
	state.Pending = &PendingApproval{
		Stage:       stage.Name,
		Output:      result.Output,
		Fields:      result.Fields,
		Confidence:  result.Confidence,
		Iterations:  result.Iterations,
		ToolCalls:   len(result.ToolCalls),
		RequestedAt: time.Now().UTC(),
	}
	state.Status = StatusPendingApproval
	state.recordDecision(stage.Name, "approval_requested", string(result.Confidence))
	state.UpdatedAt = time.Now().UTC()

	o.publish(ctx, &eventbus.ApprovalRequested{
		RunID:      state.RunID,
		Stage:      stage.Name,
		Output:     result.Output,
		Confidence: string(result.Confidence),
	})
	o.logger.Info("approval_requested", "run_id", state.RunID, "stage", stage.Name)
	o.saveCheckpoint(ctx, state)
}

func (o *Orchestrator) finish(ctx context.Context, state *State, status string) *State {
	state.Status = status
	state.UpdatedAt = time.Now().UTC()
	durationMS := int(time.Since(state.StartedAt).Milliseconds())

	observability.RecordPipelineExecution(state.Pipeline, status, durationMS)
	o.publish(ctx, &eventbus.PipelineCompleted{
		RunID:      state.RunID,
		Pipeline:   state.Pipeline,
		Status:     status,
		DurationMS: durationMS,
	})
	o.logger.Info("pipeline_finished",
		"run_id", state.RunID,
		"status", status,
		"iterations", state.Iterations,
	)
	o.saveCheckpoint(ctx, state)
	return state
}

// nextStage returns the first stage with no artifact that was not skipped,
// or nil when the pipeline is done.
func (o *Orchestrator) nextStage(state *State) *config.StageConfig {
	for _, stage := range o.cfg.Stages {
		if _, done := state.Artifacts[stage.ArtifactKey]; done {
			continue
		}
		if _, skipped := state.Skipped[stage.Name]; skipped {
			continue
		}
		return stage
	}
	return nil
}

func (o *Orchestrator) buildTask(stage *config.StageConfig, state *State) agentcore.Task {
	toolTimeout := stage.ToolTimeout()
	if toolTimeout <= 0 {
		toolTimeout = time.Duration(o.cfg.DefaultToolTimeoutSeconds) * time.Second
	}
	return agentcore.Task{
		Name:              stage.Name,
		Objective:         o.renderObjective(stage, state),
		System:            stage.SystemPrompt,
		Tools:             stage.Tools,
		Policy:            stage.Policy(),
		CompletionMarkers: stage.CompletionMarkers,
		MinAutonomy:       stage.MinConfidence,
		Feedback:          state.Feedback[stage.Name],
		MaxIterations:     stage.MaxIterations,
		ToolTimeout:       toolTimeout,
	}
}

// renderObjective resolves {input}, {stage} and {artifact:<key>} placeholders.
// Unresolved artifact references are left intact so the oracle sees the gap.
func (o *Orchestrator) renderObjective(stage *config.StageConfig, state *State) string {
	objective := strings.ReplaceAll(stage.Objective, "{input}", state.Input)
	objective = strings.ReplaceAll(objective, "{stage}", stage.Name)
	for key, artifact := range state.Artifacts {
		objective = strings.ReplaceAll(objective, "{artifact:"+key+"}", artifact.Output)
	}
	return objective
}

func (o *Orchestrator) publish(ctx context.Context, event eventbus.Event) {
	if o.bus == nil {
		return
	}
	if err := o.bus.Publish(ctx, event); err != nil {
		o.logger.Warn("event_publish_failed", "event", event.EventType(), "error", err.Error())
	}
}

// saveCheckpoint persists state. Checkpoint failures degrade to warnings;
// they never interrupt the run.
func (o *Orchestrator) saveCheckpoint(ctx context.Context, state *State) {
	if o.store == nil {
		return
	}
	err := agentcore.SafeExecute(o.logger, "checkpoint_save", func() error {
		return o.store.Save(ctx, state.RunID, state.ToStateDict())
	})
	if err != nil {
		o.logger.Warn("checkpoint_save_failed", "run_id", state.RunID, "error", err.Error())
	}
}
