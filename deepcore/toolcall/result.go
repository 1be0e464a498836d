// Package toolcall provides the tool invocation layer: descriptors with
// primary and fallback transports, a thread-safe registry, and an invoker
// that enforces timeouts, argument schemas, and per-tool rate limits.
package toolcall

import "fmt"

// ErrorKind classifies why a tool invocation failed.
type ErrorKind string

const (
	// KindNotFound indicates the tool name is not registered.
	KindNotFound ErrorKind = "not_found"
	// KindTimeout indicates the attempted transport exceeded its deadline.
	KindTimeout ErrorKind = "timeout"
	// KindTransportError indicates the attempted transport failed outright.
	KindTransportError ErrorKind = "transport_error"
	// KindNoFallback indicates the primary transport failed and no fallback is registered.
	KindNoFallback ErrorKind = "no_fallback"
	// KindInvalidArgs indicates the arguments violated the tool's schema; no transport was attempted.
	KindInvalidArgs ErrorKind = "invalid_args"
	// KindRateLimited indicates the per-tool rate limit was exceeded; no transport was attempted.
	KindRateLimited ErrorKind = "rate_limited"
)

// ToolError is the structured error carried by a failed Result.
type ToolError struct {
	Kind   ErrorKind `json:"kind"`
	Detail string    `json:"detail"`
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Result is the outcome of one tool invocation.
// Invariant: Success=false implies a non-nil Error; use Ok and Fail to construct.
type Result struct {
	Success   bool           `json:"success"`
	Payload   map[string]any `json:"payload,omitempty"`
	Text      string         `json:"text,omitempty"`
	Error     *ToolError     `json:"error,omitempty"`
	Transport string         `json:"transport,omitempty"` // "primary" or "fallback"
}

// Ok builds a successful result.
func Ok(payload map[string]any, transport string) *Result {
	return &Result{Success: true, Payload: payload, Transport: transport}
}

// Fail builds a failed result. An empty detail is replaced so the
// non-empty-error invariant always holds.
func Fail(kind ErrorKind, detail string) *Result {
	if detail == "" {
		detail = string(kind)
	}
	return &Result{Success: false, Error: &ToolError{Kind: kind, Detail: detail}}
}

// Summary renders a one-line description for reasoning context.
func (r *Result) Summary() string {
	if r.Success {
		if r.Text != "" {
			return r.Text
		}
		return fmt.Sprintf("succeeded via %s transport", r.Transport)
	}
	return "failed: " + r.Error.Error()
}
