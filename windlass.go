// Package windlass provides the foundational contracts for the Windlass
// agent runtime: the Tool interface that every dispatchable capability
// implements, the structured ToolError used to carry failures across the
// dispatch boundary, and the lifecycle State enum driven by the agent.
//
// The runtime itself lives in the subpackages:
//   - config: layered configuration resolution (file + env overrides)
//   - registry: named tool descriptors in registration order
//   - dispatch: request routing and result normalization
//   - agent: lifecycle state machine and signal-driven shutdown
//   - health: liveness/readiness/metrics HTTP surface
package windlass

import "context"

// Tool is the uniform capability contract for everything the agent can
// dispatch to. Implementations must be either stateless or internally
// self-synchronizing: the runtime does not provide cross-call locking
// per tool.
type Tool interface {
	// Name returns the tool's registered name.
	Name() string

	// Execute performs one operation. It returns the operation result,
	// or a *ToolError for expected failures (unsupported operation,
	// invalid input). Any other error is treated as unexpected by the
	// dispatcher and wrapped with a generic prefix.
	Execute(ctx context.Context, operation string, params map[string]any) (any, error)

	// IsReady reports whether the tool can currently serve requests.
	// Aggregated by the readiness probe.
	IsReady() bool

	// Cleanup releases resources held by the tool. The registry
	// guarantees it is invoked at most once per registration.
	Cleanup(ctx context.Context) error
}

// FuncTool is a function-backed tool for inline registration without a
// full implementation. It is always ready and has no cleanup.
type FuncTool struct {
	name string
	fn   func(ctx context.Context, operation string, params map[string]any) (any, error)
}

// NewFuncTool creates a function-backed tool.
func NewFuncTool(name string, fn func(ctx context.Context, operation string, params map[string]any) (any, error)) *FuncTool {
	return &FuncTool{name: name, fn: fn}
}

// Name returns the tool's name.
func (t *FuncTool) Name() string { return t.name }

// Execute invokes the backing function.
func (t *FuncTool) Execute(ctx context.Context, operation string, params map[string]any) (any, error) {
	if t.fn == nil {
		return map[string]any{}, nil
	}
	return t.fn(ctx, operation, params)
}

// IsReady always reports true for function-backed tools.
func (t *FuncTool) IsReady() bool { return true }

// Cleanup is a no-op for function-backed tools.
func (t *FuncTool) Cleanup(context.Context) error { return nil }

// Ensure interface compliance at compile time.
var _ Tool = (*FuncTool)(nil)
