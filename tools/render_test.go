package tools

import (
	"context"
	"testing"

	"github.com/windlass-dev/windlass"
)

func TestRenderer_Render(t *testing.T) {
	r := NewRenderer()
	got, err := r.Execute(context.Background(), "render", map[string]any{
		"template": "Hello, {{.Name}}!",
		"values":   map[string]any{"Name": "Ada"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	result := got.(map[string]any)
	if result["rendered"] != "Hello, Ada!" {
		t.Errorf("rendered = %v, want %q", result["rendered"], "Hello, Ada!")
	}
}

func TestRenderer_TopLevelValues(t *testing.T) {
	r := NewRenderer()
	got, err := r.Execute(context.Background(), "render", map[string]any{
		"template": "{{.City}}",
		"City":     "Lisbon",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	result := got.(map[string]any)
	if result["rendered"] != "Lisbon" {
		t.Errorf("rendered = %v, want %q", result["rendered"], "Lisbon")
	}
}

func TestRenderer_RequiresTemplate(t *testing.T) {
	r := NewRenderer()
	_, err := r.Execute(context.Background(), "render", map[string]any{"template": "  "})
	toolErr, ok := windlass.AsToolError(err)
	if !ok || toolErr.Code != windlass.ErrorCodeInvalidInput {
		t.Errorf("error = %v, want INVALID_INPUT", err)
	}
}

func TestRenderer_ParseFailure(t *testing.T) {
	r := NewRenderer()
	_, err := r.Execute(context.Background(), "render", map[string]any{"template": "{{.Broken"})
	toolErr, ok := windlass.AsToolError(err)
	if !ok || toolErr.Code != windlass.ErrorCodeInvalidInput {
		t.Errorf("error = %v, want INVALID_INPUT for a parse failure", err)
	}
}

func TestRenderer_UnsupportedOperation(t *testing.T) {
	r := NewRenderer()
	_, err := r.Execute(context.Background(), "compile", nil)
	toolErr, ok := windlass.AsToolError(err)
	if !ok || toolErr.Code != windlass.ErrorCodeOperationNotSupported {
		t.Errorf("error = %v, want OPERATION_NOT_SUPPORTED", err)
	}
}
