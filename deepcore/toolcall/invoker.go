package toolcall

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/deepline-systems/sdlcengine/deepcore/observability"
)

// Logger is the interface for structured logging.
type Logger interface {
	Info(msg string, fields ...any)
	Debug(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)
	Bind(fields ...any) Logger
}

// DefaultTimeout bounds a transport attempt when the caller passes none.
const DefaultTimeout = 60 * time.Second

// secretKeys are argument names whose values are never logged.
var secretKeys = []string{"token", "secret", "password", "authorization", "api_key", "pat"}

// Invoker dispatches tool calls through the registry, enforcing timeout,
// schema, and rate-limit policy. Stateless per call apart from the limiter.
type Invoker struct {
	registry       *Registry
	logger         Logger
	limiter        *Limiter
	defaultTimeout time.Duration
}

// InvokerOption configures an Invoker.
type InvokerOption func(*Invoker)

// WithLimiter attaches a rate limiter.
func WithLimiter(l *Limiter) InvokerOption {
	return func(inv *Invoker) { inv.limiter = l }
}

// WithDefaultTimeout overrides the default transport timeout.
func WithDefaultTimeout(d time.Duration) InvokerOption {
	return func(inv *Invoker) { inv.defaultTimeout = d }
}

// NewInvoker creates an Invoker over the given registry.
func NewInvoker(registry *Registry, logger Logger, opts ...InvokerOption) *Invoker {
	inv := &Invoker{
		registry:       registry,
		logger:         logger.Bind("component", "tool_invoker"),
		defaultTimeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Registry returns the underlying registry.
func (inv *Invoker) Registry() *Registry {
	return inv.registry
}

// Invoke runs the named tool and never blocks past the timeout.
//
// The primary transport is attempted first. On timeout or transport failure
// the fallback transport, if registered, is attempted exactly once with
// translated arguments. A missing fallback fails immediately after the
// primary attempt.
func (inv *Invoker) Invoke(ctx context.Context, name string, args map[string]any, timeout time.Duration) *Result {
	start := time.Now()
	if timeout <= 0 {
		timeout = inv.defaultTimeout
	}

	desc := inv.registry.Get(name)
	if desc == nil {
		result := Fail(KindNotFound, fmt.Sprintf("tool not registered: %s", name))
		inv.logAttempt(name, "none", args, start, result)
		return result
	}

	if inv.limiter != nil && !inv.limiter.Allow(name) {
		result := Fail(KindRateLimited, fmt.Sprintf("rate limit exceeded for %s", name))
		inv.logAttempt(name, "none", args, start, result)
		return result
	}

	if err := desc.validateArgs(args); err != nil {
		result := Fail(KindInvalidArgs, err.Error())
		inv.logAttempt(name, "none", args, start, result)
		return result
	}

	payload, err := inv.attempt(ctx, desc.Primary, args, timeout)
	if err == nil {
		result := Ok(payload, "primary")
		inv.logAttempt(name, "primary", args, start, result)
		return result
	}

	primaryKind := classify(err)
	inv.logger.Warn("tool_primary_failed",
		"tool", name,
		"kind", string(primaryKind),
		"error", err.Error(),
	)

	if !desc.HasFallback() {
		result := Fail(KindNoFallback, fmt.Sprintf("primary %s: %v; no fallback registered", primaryKind, err))
		inv.logAttempt(name, "primary", args, start, result)
		return result
	}

	fbStart := time.Now()
	payload, fbErr := inv.attempt(ctx, desc.Fallback, desc.fallbackArgs(args), timeout)
	if fbErr == nil {
		result := Ok(payload, "fallback")
		inv.logAttempt(name, "fallback", args, fbStart, result)
		return result
	}

	result := Fail(classify(fbErr), fmt.Sprintf("primary %s: %v; fallback: %v", primaryKind, err, fbErr))
	inv.logAttempt(name, "fallback", args, fbStart, result)
	return result
}

// attempt runs one transport under a hard deadline.
func (inv *Invoker) attempt(ctx context.Context, transport TransportFunc, args map[string]any, timeout time.Duration) (map[string]any, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		payload map[string]any
		err     error
	}
	done := make(chan outcome, 1)

	go func() {
		payload, err := transport(attemptCtx, args)
		done <- outcome{payload: payload, err: err}
	}()

	select {
	case <-attemptCtx.Done():
		return nil, attemptCtx.Err()
	case out := <-done:
		return out.payload, out.err
	}
}

func classify(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindTransportError
}

func (inv *Invoker) logAttempt(name, transport string, args map[string]any, start time.Time, result *Result) {
	durationMS := int(time.Since(start).Milliseconds())
	status := "success"
	if !result.Success {
		status = string(result.Error.Kind)
	}
	observability.RecordToolInvocation(name, transport, status, durationMS)

	if result.Success {
		inv.logger.Info("tool_invoked",
			"tool", name,
			"transport", transport,
			"args", redactArgs(args),
			"duration_ms", durationMS,
		)
		return
	}
	inv.logger.Error("tool_invocation_failed",
		"tool", name,
		"transport", transport,
		"args", redactArgs(args),
		"kind", string(result.Error.Kind),
		"error", result.Error.Detail,
		"duration_ms", durationMS,
	)
}

// redactArgs summarizes arguments for logging, masking secret-looking keys.
func redactArgs(args map[string]any) map[string]string {
	summary := make(map[string]string, len(args))
	for key, value := range args {
		if isSecretKey(key) {
			summary[key] = "[redacted]"
			continue
		}
		summary[key] = truncate(fmt.Sprintf("%v", value), 80)
	}
	return summary
}

func isSecretKey(key string) bool {
	lower := strings.ToLower(key)
	for _, secret := range secretKeys {
		if strings.Contains(lower, secret) {
			return true
		}
	}
	return false
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
