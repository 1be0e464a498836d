// Package testutil provides shared test utilities and mocks for integration
// tests. All mocks here let deepcore components run in isolation without an
// LLM endpoint or external tool servers.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/deepline-systems/sdlcengine/deepcore/agentcore"
	"github.com/deepline-systems/sdlcengine/deepcore/toolcall"
)

// =============================================================================
// MOCK ORACLE
// =============================================================================

// MockOracle implements agentcore.Oracle for testing.
// Configure responses by message substring or use DefaultResponse.
type MockOracle struct {
	// Responses maps message substrings to completion text.
	// The first match against the last message wins.
	Responses map[string]string

	// DefaultResponse is returned when no substring matches.
	DefaultResponse string

	// Delay simulates oracle latency.
	Delay time.Duration

	// Error causes Complete to return this error.
	Error error

	// CompleteFunc allows custom logic. If set, it is called instead of
	// the substring lookup.
	CompleteFunc func(context.Context, agentcore.CompletionRequest) (*agentcore.Completion, error)

	// CallCount tracks the number of Complete calls.
	CallCount int

	// Calls records all requests for assertion.
	Calls []agentcore.CompletionRequest

	mu sync.Mutex
}

// NewMockOracle creates a MockOracle with sensible defaults.
func NewMockOracle() *MockOracle {
	return &MockOracle{
		Responses:       make(map[string]string),
		DefaultResponse: `{"decision": "complete", "confidence": "high", "reasoning": "mock response"}`,
	}
}

// Complete implements agentcore.Oracle.
func (m *MockOracle) Complete(ctx context.Context, req agentcore.CompletionRequest) (*agentcore.Completion, error) {
	m.mu.Lock()
	m.CallCount++
	m.Calls = append(m.Calls, req)
	customFunc := m.CompleteFunc
	m.mu.Unlock()

	if customFunc != nil {
		return customFunc(ctx, req)
	}

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.Error != nil {
		return nil, m.Error
	}

	var last string
	if len(req.Messages) > 0 {
		last = req.Messages[len(req.Messages)-1].Content
	}
	for substring, response := range m.Responses {
		if strings.Contains(last, substring) {
			return &agentcore.Completion{Text: response}, nil
		}
	}
	return &agentcore.Completion{Text: m.DefaultResponse}, nil
}

// WithResponse adds a substring-based response.
func (m *MockOracle) WithResponse(substring, response string) *MockOracle {
	m.Responses[substring] = response
	return m
}

// WithError configures the mock to return an error.
func (m *MockOracle) WithError(err error) *MockOracle {
	m.Error = err
	return m
}

// WithDelay adds latency simulation.
func (m *MockOracle) WithDelay(d time.Duration) *MockOracle {
	m.Delay = d
	return m
}

// GetCallCount returns the number of calls (thread-safe).
func (m *MockOracle) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

var _ agentcore.Oracle = (*MockOracle)(nil)

// =============================================================================
// MOCK LOGGER
// =============================================================================

// LogEntry records one logged message for assertion.
type LogEntry struct {
	Level   string
	Message string
	Fields  []any
}

// MockLogger implements the deepcore Logger interfaces and records entries.
type MockLogger struct {
	Entries []LogEntry
	mu      sync.Mutex
}

// NewMockLogger creates an empty MockLogger.
func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

func (l *MockLogger) record(level, msg string, fields []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Entries = append(l.Entries, LogEntry{Level: level, Message: msg, Fields: fields})
}

func (l *MockLogger) Info(msg string, fields ...any)  { l.record("info", msg, fields) }
func (l *MockLogger) Debug(msg string, fields ...any) { l.record("debug", msg, fields) }
func (l *MockLogger) Warn(msg string, fields ...any)  { l.record("warn", msg, fields) }
func (l *MockLogger) Error(msg string, fields ...any) { l.record("error", msg, fields) }

// Bind returns the same recorder so bound fields do not hide entries.
func (l *MockLogger) Bind(fields ...any) agentcore.Logger { return l }

// HasMessage reports whether any entry carries the given message.
func (l *MockLogger) HasMessage(msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.Entries {
		if e.Message == msg {
			return true
		}
	}
	return false
}

var _ agentcore.Logger = (*MockLogger)(nil)

// =============================================================================
// TOOL HELPERS
// =============================================================================

// EchoRegistry builds a registry with a single "echo" tool that returns its
// arguments.
func EchoRegistry() (*toolcall.Registry, error) {
	reg := toolcall.NewRegistry()
	err := reg.Register(&toolcall.Descriptor{
		Name:        "echo",
		Description: "returns its arguments",
		Primary: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			return args, nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build echo registry: %w", err)
	}
	return reg, nil
}
