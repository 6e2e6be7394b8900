// Package dispatch routes processing requests to registered tools and
// normalizes every outcome into a Result envelope. Errors raised by a
// tool never escape the dispatch boundary: expected tool errors carry
// the tool's own message, unexpected ones are wrapped with a generic
// prefix and logged with full context.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/windlass-dev/windlass"
	"github.com/windlass-dev/windlass/registry"
)

const (
	// StatusSuccess marks a dispatch that produced a result.
	StatusSuccess = "success"
	// StatusError marks a dispatch that produced an error message.
	StatusError = "error"
)

// Request is one processing request: a target tool, the operation to
// perform, and its parameters. Transient, one per call.
type Request struct {
	Tool       string         `json:"tool"`
	Operation  string         `json:"operation"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Result is the normalized outcome of a dispatch. Exactly one of
// Result/Error is set depending on Status. Metadata always carries the
// operation and a copy of the input parameters for traceability, plus
// the request ID and duration recorded by the dispatcher.
type Result struct {
	Status   string         `json:"status"`
	Result   any            `json:"result,omitempty"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// OK reports whether the dispatch succeeded.
func (r Result) OK() bool {
	return r.Status == StatusSuccess
}

// Observer receives dispatch lifecycle notifications. Implemented by the
// telemetry package; a nil observer disables observation.
type Observer interface {
	// DispatchStarted is invoked before the tool executes. The returned
	// context is passed to the tool (e.g. carrying a trace span).
	DispatchStarted(ctx context.Context, req Request) context.Context

	// DispatchFinished is invoked after normalization, successful or not.
	DispatchFinished(ctx context.Context, req Request, res Result, elapsed time.Duration)
}

// Config configures a Dispatcher.
type Config struct {
	Registry *registry.Registry

	// Timeout bounds each dispatch call. Zero means no per-call
	// deadline; the base contract does not enforce one.
	Timeout time.Duration

	Observer Observer
	Logger   *slog.Logger
}

// Dispatcher routes requests to tools via the registry.
type Dispatcher struct {
	reg      *registry.Registry
	timeout  time.Duration
	observer Observer
	logger   *slog.Logger
}

// New creates a Dispatcher.
func New(cfg Config) (*Dispatcher, error) {
	if cfg.Registry == nil {
		return nil, errors.New("dispatch: registry is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		reg:      cfg.Registry,
		timeout:  cfg.Timeout,
		observer: cfg.Observer,
		logger:   logger,
	}, nil
}

// Dispatch looks the tool up, executes the operation, and converts the
// outcome into a Result. It never returns an error and never panics:
// per-request failures are recoverable and reported in the envelope.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Result {
	started := time.Now()
	requestID := uuid.NewString()

	if d.observer != nil {
		ctx = d.observer.DispatchStarted(ctx, req)
	}

	res := d.dispatch(ctx, req)
	res.Metadata = buildMetadata(req, requestID, time.Since(started))

	if res.Status == StatusError {
		d.logger.Warn("dispatch failed",
			"request_id", requestID,
			"tool", req.Tool,
			"operation", req.Operation,
			"error", res.Error,
		)
	} else {
		d.logger.Debug("dispatch succeeded",
			"request_id", requestID,
			"tool", req.Tool,
			"operation", req.Operation,
		)
	}

	if d.observer != nil {
		d.observer.DispatchFinished(ctx, req, res, time.Since(started))
	}
	return res
}

func (d *Dispatcher) dispatch(ctx context.Context, req Request) Result {
	desc, err := d.reg.Get(req.Tool)
	if err != nil {
		return errorResult(fmt.Sprintf("tool not found: %s", req.Tool))
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	value, execErr := d.execute(ctx, desc.Tool(), req)
	if execErr == nil {
		return Result{Status: StatusSuccess, Result: value}
	}

	switch {
	case d.timeout > 0 && errors.Is(execErr, context.DeadlineExceeded):
		return errorResult(windlass.NewToolError(
			windlass.ErrorCodeTimeout,
			fmt.Sprintf("operation %s timed out after %s", req.Operation, d.timeout),
			execErr,
		).Error())
	default:
		if toolErr, ok := windlass.AsToolError(execErr); ok {
			return errorResult(toolErr.Error())
		}
		d.logger.Error("unexpected tool failure",
			"tool", req.Tool,
			"operation", req.Operation,
			"error", execErr,
		)
		return errorResult(fmt.Sprintf("unexpected tool failure: %s", execErr))
	}
}

// execute invokes the tool, converting panics into errors so a
// misbehaving tool cannot crash the process.
func (d *Dispatcher) execute(ctx context.Context, tool windlass.Tool, req Request) (value any, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			d.logger.Error("tool panicked",
				"tool", req.Tool,
				"operation", req.Operation,
				"panic", recovered,
				"stack", string(debug.Stack()),
			)
			value = nil
			err = fmt.Errorf("panic: %v", recovered)
		}
	}()
	return tool.Execute(ctx, req.Operation, req.Parameters)
}

func errorResult(message string) Result {
	return Result{Status: StatusError, Error: message}
}

func buildMetadata(req Request, requestID string, elapsed time.Duration) map[string]any {
	params := make(map[string]any, len(req.Parameters))
	for key, value := range req.Parameters {
		params[key] = value
	}
	return map[string]any{
		"operation":   req.Operation,
		"parameters":  params,
		"request_id":  requestID,
		"duration_ms": elapsed.Milliseconds(),
	}
}
