package agentcore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/deepline-systems/sdlcengine/deepcore/decision"
	"github.com/deepline-systems/sdlcengine/deepcore/observability"
	"github.com/deepline-systems/sdlcengine/deepcore/toolcall"
	"github.com/deepline-systems/sdlcengine/deepcore/typeutil"
	"github.com/deepline-systems/sdlcengine/deepcore/validation"
)

var tracer = otel.Tracer("sdlcengine/agentcore")

// decisionPrompt asks the oracle to judge its own draft. The reply must be a
// JSON object; anything around it is ignored by the extractor.
const decisionPrompt = `Review your draft output above and decide the next step.
Respond with a single JSON object:
{
  "decision": "continue|complete|self_correct|spawn_child|request_approval",
  "confidence": "very_low|low|medium|high|very_high",
  "reasoning": "<one sentence>",
  "next_action": "<what to do next, if continuing or correcting>",
  "child_objective": "<sub-task objective, if spawning>"
}`

// Core runs one task to a terminal AgentResult.
type Core struct {
	task    Task
	oracle  Oracle
	invoker *toolcall.Invoker
	logger  Logger
}

// NewCore builds an agent for the given task. The oracle and invoker are
// shared with any children the agent spawns.
func NewCore(task Task, oracle Oracle, invoker *toolcall.Invoker, logger Logger) *Core {
	task = task.withDefaults()
	return &Core{
		task:    task,
		oracle:  oracle,
		invoker: invoker,
		logger:  logger.Bind("agent", task.Name, "depth", task.Depth),
	}
}

// Execute runs the reasoning loop and always returns a terminal result.
// Panics inside the loop are recovered into a StatusError result.
func (c *Core) Execute(ctx context.Context) *AgentResult {
	start := time.Now()

	ctx, span := tracer.Start(ctx, "agent.execute", trace.WithAttributes(
		attribute.String("agent.task", c.task.Name),
		attribute.Int("agent.depth", c.task.Depth),
	))
	defer span.End()

	result, err := SafeExecuteWithResult(c.logger, "agent_execute", func() (*AgentResult, error) {
		return c.run(ctx), nil
	})
	if err != nil {
		result = errorResult(ErrCodeInternal, err.Error())
	}

	durationMS := int(time.Since(start).Milliseconds())
	observability.RecordStageExecution(c.task.Name, result.Status, durationMS)
	span.SetAttributes(
		attribute.String("agent.status", result.Status),
		attribute.Int("agent.iterations", result.Iterations),
	)
	c.logger.Info("agent_finished",
		"status", result.Status,
		"iterations", result.Iterations,
		"confidence", string(result.Confidence),
		"duration_ms", durationMS,
	)
	return result
}

func (c *Core) run(ctx context.Context) *AgentResult {
	result := &AgentResult{Status: StatusSuccess, Confidence: decision.ConfidenceMedium}

	history := c.openingMessages()
	toolFailures := 0
	lastOutput := ""

	for iter := 0; iter < c.task.MaxIterations; iter++ {
		result.Iterations = iter + 1

		comp, err := c.reason(ctx, history)
		if err != nil {
			c.logger.Error("oracle_reason_failed", "iteration", iter, "error", err.Error())
			res := errorResult(ErrCodeOracle, err.Error())
			res.Iterations = result.Iterations
			res.ToolCalls = result.ToolCalls
			res.Decisions = append(result.Decisions, res.Decisions...)
			res.Decisions[len(res.Decisions)-1].Iteration = iter
			res.ChildResults = result.ChildResults
			return res
		}

		// ACT: execute requested tool calls, then reason again with results.
		if len(comp.ToolRequests) > 0 {
			for _, req := range comp.ToolRequests {
				toolRes := c.invoker.Invoke(ctx, req.Name, req.Args, c.task.ToolTimeout)
				result.ToolCalls = append(result.ToolCalls, ToolCallRecord{
					Iteration: iter,
					Name:      req.Name,
					Args:      req.Args,
					Result:    toolRes,
				})
				if !toolRes.Success {
					toolFailures++
				}
				history = append(history, Message{
					Role:    "tool",
					Content: fmt.Sprintf("%s: %s", req.Name, toolRes.Summary()),
				})
			}
			continue
		}

		output := strings.TrimSpace(comp.Text)
		lastOutput = output
		history = append(history, Message{Role: "assistant", Content: output})

		// Deterministic completion markers outrank the oracle entirely.
		if marker := c.matchMarker(output); marker != "" {
			rec := decision.NewRecord(iter, decision.TypeComplete, decision.ConfidenceVeryHigh,
				"completion marker detected: "+marker)
			result.Decisions = append(result.Decisions, rec)
			result.Output = output
			result.Fields = parseFields(output)
			result.Confidence = decision.ConfidenceVeryHigh
			c.logger.Info("completion_marker", "iteration", iter, "marker", marker)
			return result
		}

		// VALIDATE
		fields := parseFields(output)
		report := validation.Validate(validation.Output{Text: output, Fields: fields}, c.task.Policy)
		if !report.IsValid {
			c.logger.Debug("validation_failed",
				"iteration", iter,
				"errors", strings.Join(report.Errors, "; "),
			)
		}

		// DECIDE
		verdict := c.decide(ctx, output, report, iter)
		conf := decision.Assess(decision.Signals{
			ValidationRan:    c.task.Policy != nil,
			ValidationPassed: report.IsValid,
			ToolFailures:     toolFailures,
			SelfReported:     verdict.selfReported,
		})

		decType := verdict.decision
		reasoning := verdict.reasoning
		if decType == decision.TypeComplete && c.task.MinAutonomy != "" && !conf.AtLeast(c.task.MinAutonomy) {
			decType = decision.TypeRequestApproval
			reasoning = fmt.Sprintf("confidence %s below autonomy floor %s: %s",
				conf, c.task.MinAutonomy, reasoning)
		}

		rec := decision.NewRecord(iter, decType, conf, reasoning)
		rec.NextAction = verdict.nextAction
		result.Decisions = append(result.Decisions, rec)
		c.logger.Debug("decision",
			"iteration", iter,
			"type", string(decType),
			"confidence", string(conf),
		)

		switch decType {
		case decision.TypeComplete:
			result.Output = output
			result.Fields = fields
			result.Confidence = conf
			return result

		case decision.TypeRequestApproval:
			result.Status = StatusRequiresApproval
			result.Output = output
			result.Fields = fields
			result.Confidence = conf
			return result

		case decision.TypeSelfCorrect:
			correction := verdict.nextAction
			if len(report.Errors) > 0 {
				correction = "Fix these defects in your output:\n- " + strings.Join(report.Errors, "\n- ")
				if verdict.nextAction != "" {
					correction += "\nAlso: " + verdict.nextAction
				}
			}
			if correction == "" {
				correction = "Revise your output and address any gaps you noticed."
			}
			// The iteration counter keeps advancing; correction has no free retries.
			history = append(history, Message{Role: "user", Content: correction})

		case decision.TypeSpawnChild:
			if c.task.Depth >= MaxSpawnDepth {
				note := decision.NewRecord(iter, decision.TypeComplete, conf,
					"spawning disallowed at depth limit; completing with current output")
				note.Metadata = map[string]any{"error_code": string(ErrCodeSpawnDepth)}
				result.Decisions = append(result.Decisions, note)
				result.Output = output
				result.Fields = fields
				result.Confidence = conf
				result.Annotations = append(result.Annotations, "spawning disallowed: depth limit reached")
				c.logger.Warn("spawn_depth_exceeded", "iteration", iter, "depth", c.task.Depth)
				return result
			}
			childObjective := verdict.childObjective
			if childObjective == "" {
				childObjective = verdict.nextAction
			}
			childRes := c.spawnChild(ctx, childObjective)
			result.ChildResults = append(result.ChildResults, childRes)
			history = append(history, Message{
				Role: "user",
				Content: fmt.Sprintf("Sub-agent finished with status %s:\n%s",
					childRes.Status, truncate(childRes.Output, 2000)),
			})

		case decision.TypeContinue:
			if verdict.nextAction != "" {
				history = append(history, Message{Role: "user", Content: "Next: " + verdict.nextAction})
			}
		}
	}

	// Budget exhausted. The run still completes, but degraded.
	rec := decision.NewRecord(c.task.MaxIterations, decision.TypeComplete, decision.ConfidenceLow,
		"iteration budget exceeded; forcing completion with last draft")
	rec.Metadata = map[string]any{"error_code": string(ErrCodeIterationBudget)}
	result.Decisions = append(result.Decisions, rec)
	result.Status = StatusMaxIterations
	result.Output = lastOutput
	result.Fields = parseFields(lastOutput)
	result.Confidence = decision.ConfidenceLow
	result.Annotations = append(result.Annotations, "iteration budget exceeded")
	c.logger.Warn("iteration_budget_exceeded", "max_iterations", c.task.MaxIterations)
	return result
}

func (c *Core) openingMessages() []Message {
	msgs := make([]Message, 0, 2)
	if len(c.task.Feedback) > 0 {
		msgs = append(msgs, Message{
			Role:    "user",
			Content: "Prior feedback to incorporate:\n- " + strings.Join(c.task.Feedback, "\n- "),
		})
	}
	msgs = append(msgs, Message{Role: "user", Content: c.task.Objective})
	return msgs
}

// reason performs one REASON turn against the oracle.
func (c *Core) reason(ctx context.Context, history []Message) (*Completion, error) {
	start := time.Now()
	comp, err := c.oracle.Complete(ctx, CompletionRequest{
		System:   c.task.System,
		Messages: history,
		Tools:    c.invoker.Registry().Summaries(c.task.Tools),
	})
	status := "success"
	if err != nil {
		status = "error"
	}
	observability.RecordOracleCall("reason", status, int(time.Since(start).Milliseconds()))
	if err != nil {
		return nil, err
	}
	if comp == nil {
		return nil, fmt.Errorf("oracle returned nil completion")
	}
	return comp, nil
}

// verdict is the parsed outcome of a DECIDE turn.
type verdict struct {
	decision       decision.Type
	reasoning      string
	nextAction     string
	childObjective string
	selfReported   *decision.ConfidenceLevel
}

// decide asks the oracle to judge the draft. Oracle failure or an unparseable
// reply degrades to CONTINUE with a low self-report rather than aborting the
// run; the iteration budget still bounds the loop.
func (c *Core) decide(ctx context.Context, output string, report validation.Report, iter int) verdict {
	prompt := decisionPrompt
	if !report.IsValid {
		prompt = "Validation found defects:\n- " + strings.Join(report.Errors, "\n- ") + "\n\n" + prompt
	}

	start := time.Now()
	comp, err := c.oracle.Complete(ctx, CompletionRequest{
		System: c.task.System,
		Messages: []Message{
			{Role: "assistant", Content: output},
			{Role: "user", Content: prompt},
		},
	})
	status := "success"
	if err != nil || comp == nil {
		status = "error"
	}
	observability.RecordOracleCall("decide", status, int(time.Since(start).Milliseconds()))

	low := decision.ConfidenceLow
	if err != nil || comp == nil {
		c.logger.Warn("oracle_decide_failed", "iteration", iter, "error", fmt.Sprint(err))
		return verdict{
			decision:     decision.TypeContinue,
			reasoning:    "decision oracle unavailable; continuing",
			selfReported: &low,
		}
	}

	parsed, err := extractAndParseJSON(comp.Text)
	if err != nil {
		c.logger.Warn("decision_unparseable", "iteration", iter, "preview", truncate(comp.Text, 120))
		return verdict{
			decision:     decision.TypeContinue,
			reasoning:    "decision reply unparseable; continuing",
			selfReported: &low,
		}
	}

	self := decision.ParseConfidence(typeutil.SafeStringDefault(parsed["confidence"], ""))
	return verdict{
		decision:       decision.ParseType(typeutil.SafeStringDefault(parsed["decision"], "")),
		reasoning:      typeutil.SafeStringDefault(parsed["reasoning"], ""),
		nextAction:     typeutil.SafeStringDefault(parsed["next_action"], ""),
		childObjective: typeutil.SafeStringDefault(parsed["child_objective"], ""),
		selfReported:   &self,
	}
}

func (c *Core) spawnChild(ctx context.Context, objective string) *AgentResult {
	if strings.TrimSpace(objective) == "" {
		objective = "Complete the delegated portion of: " + c.task.Objective
	}
	childTask := Task{
		Name:          c.task.Name + ".child",
		Objective:     objective,
		System:        c.task.System,
		Tools:         c.task.Tools,
		MaxIterations: c.task.MaxIterations,
		ToolTimeout:   c.task.ToolTimeout,
		Depth:         c.task.Depth + 1,
	}
	c.logger.Info("spawning_child", "objective", truncate(objective, 200), "child_depth", childTask.Depth)
	child := NewCore(childTask, c.oracle, c.invoker, c.logger)
	return child.Execute(ctx)
}

func (c *Core) matchMarker(output string) string {
	for _, marker := range c.task.CompletionMarkers {
		if marker != "" && strings.Contains(output, marker) {
			return marker
		}
	}
	return ""
}

// parseFields extracts an embedded JSON object from the draft, when present.
func parseFields(output string) map[string]any {
	fields, err := extractAndParseJSON(output)
	if err != nil {
		return nil
	}
	return fields
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func extractAndParseJSON(text string) (map[string]any, error) {
	// Try direct parse first
	var result map[string]any
	if err := json.Unmarshal([]byte(text), &result); err == nil {
		return result, nil
	}

	// Try to find JSON object in text
	start := -1
	braceCount := 0
	for i, c := range text {
		if c == '{' {
			if start == -1 {
				start = i
			}
			braceCount++
		} else if c == '}' {
			braceCount--
			if braceCount == 0 && start != -1 {
				jsonStr := text[start : i+1]
				if err := json.Unmarshal([]byte(jsonStr), &result); err == nil {
					return result, nil
				}
			}
		}
	}

	return nil, fmt.Errorf("no valid JSON object found in response")
}
