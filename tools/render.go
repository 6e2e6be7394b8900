package tools

import (
	"bytes"
	"context"
	"strings"
	"text/template"

	"github.com/windlass-dev/windlass"
)

// Renderer renders a Go template string with caller-provided values.
type Renderer struct{}

// NewRenderer creates a template render tool.
func NewRenderer() *Renderer {
	return &Renderer{}
}

func (r *Renderer) Name() string { return "template_render" }

func (r *Renderer) IsReady() bool { return true }

func (r *Renderer) Cleanup(ctx context.Context) error { return nil }

func (r *Renderer) Execute(ctx context.Context, operation string, params map[string]any) (any, error) {
	if operation != "render" {
		return nil, windlass.ErrUnsupportedOperation(operation)
	}

	templateBody, _ := params["template"].(string)
	if strings.TrimSpace(templateBody) == "" {
		return nil, windlass.ErrInvalidInput("template parameter is required")
	}

	values := make(map[string]any)
	if explicitValues, ok := params["values"].(map[string]any); ok {
		for k, v := range explicitValues {
			values[k] = v
		}
	}
	for key, value := range params {
		if key == "template" || key == "values" {
			continue
		}
		values[key] = value
	}

	tpl, err := template.New("template_render").Option("missingkey=zero").Parse(templateBody)
	if err != nil {
		return nil, windlass.ErrInvalidInput("parse template: %v", err)
	}

	var out bytes.Buffer
	if err := tpl.Execute(&out, values); err != nil {
		return nil, windlass.NewToolError(windlass.ErrorCodeExecutionFailed, "execute template", err)
	}

	return map[string]any{"rendered": out.String()}, nil
}

var _ windlass.Tool = (*Renderer)(nil)
