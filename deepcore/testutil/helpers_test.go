package testutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepline-systems/sdlcengine/deepcore/agentcore"
	"github.com/deepline-systems/sdlcengine/deepcore/toolcall"
)

func TestMockOracleSubstringRouting(t *testing.T) {
	oracle := NewMockOracle().
		WithResponse("plan the release", "here is the plan")

	comp, err := oracle.Complete(context.Background(), agentcore.CompletionRequest{
		Messages: []agentcore.Message{{Role: "user", Content: "please plan the release for v2"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "here is the plan", comp.Text)

	comp, err = oracle.Complete(context.Background(), agentcore.CompletionRequest{
		Messages: []agentcore.Message{{Role: "user", Content: "something else"}},
	})
	require.NoError(t, err)
	assert.Contains(t, comp.Text, "complete")
	assert.Equal(t, 2, oracle.GetCallCount())
}

func TestMockOracleError(t *testing.T) {
	oracle := NewMockOracle().WithError(errors.New("endpoint down"))
	_, err := oracle.Complete(context.Background(), agentcore.CompletionRequest{})
	assert.ErrorContains(t, err, "endpoint down")
}

func TestMockLoggerRecords(t *testing.T) {
	logger := NewMockLogger()
	bound := logger.Bind("component", "test")
	bound.Info("thing_happened", "key", "value")
	bound.Warn("thing_wobbled")

	assert.True(t, logger.HasMessage("thing_happened"))
	assert.True(t, logger.HasMessage("thing_wobbled"))
	assert.False(t, logger.HasMessage("thing_exploded"))
}

// The mocks must be able to drive a full agent run together.
func TestMocksDriveAgentRun(t *testing.T) {
	reg, err := EchoRegistry()
	require.NoError(t, err)

	logger := NewMockLogger()
	oracle := NewMockOracle().
		WithResponse("write the summary", "the summary text").
		WithResponse("Respond with a single JSON object",
			`{"decision": "complete", "confidence": "high", "reasoning": "looks done"}`)

	core := agentcore.NewCore(agentcore.Task{
		Name:      "summary",
		Objective: "write the summary",
	}, oracle, toolcall.NewInvoker(reg, logger), logger)

	result := core.Execute(context.Background())

	require.Equal(t, agentcore.StatusSuccess, result.Status)
	assert.Equal(t, "the summary text", result.Output)
	assert.Equal(t, 2, oracle.GetCallCount())
	assert.True(t, logger.HasMessage("agent_finished"))
}

func TestMockOracleDelayHonorsContext(t *testing.T) {
	oracle := NewMockOracle().WithDelay(time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := oracle.Complete(ctx, agentcore.CompletionRequest{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
