// Package tools holds the built-in tool implementations and the catalog
// that assembles them from configuration.
package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/windlass-dev/windlass"
)

// Greeter is a small demonstration tool with two operations: greet
// builds a greeting string and add sums two numbers.
type Greeter struct{}

// NewGreeter creates a greeter tool.
func NewGreeter() *Greeter {
	return &Greeter{}
}

func (g *Greeter) Name() string { return "greeter" }

func (g *Greeter) IsReady() bool { return true }

func (g *Greeter) Cleanup(ctx context.Context) error { return nil }

func (g *Greeter) Execute(ctx context.Context, operation string, params map[string]any) (any, error) {
	switch operation {
	case "greet":
		return g.greet(params)
	case "add":
		return g.add(params)
	default:
		return nil, windlass.ErrUnsupportedOperation(operation)
	}
}

func (g *Greeter) greet(params map[string]any) (any, error) {
	name := "World"
	if raw, ok := params["name"]; ok {
		s, ok := raw.(string)
		if !ok {
			return nil, windlass.ErrInvalidInput("name must be a string, got %T", raw)
		}
		if strings.TrimSpace(s) != "" {
			name = s
		}
	}
	return map[string]any{"message": fmt.Sprintf("Hello, %s!", name)}, nil
}

func (g *Greeter) add(params map[string]any) (any, error) {
	a, err := numberParam(params, "a")
	if err != nil {
		return nil, err
	}
	b, err := numberParam(params, "b")
	if err != nil {
		return nil, err
	}
	return map[string]any{"sum": a + b}, nil
}

func numberParam(params map[string]any, key string) (float64, error) {
	raw, ok := params[key]
	if !ok {
		return 0, windlass.ErrInvalidInput("parameter %q is required", key)
	}
	switch v := raw.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, windlass.ErrInvalidInput("parameter %q must be a number, got %T", key, raw)
	}
}

var _ windlass.Tool = (*Greeter)(nil)
