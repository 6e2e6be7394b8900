package tools

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/windlass-dev/windlass"
)

// Fetcher fetches a URL over HTTP(S) and returns status, body, and
// headers. The request timeout comes from the tools configuration.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates an HTTP fetch tool. A non-positive timeout leaves
// the client without a deadline of its own; callers still bound each
// request through the dispatch context.
func NewFetcher(timeout time.Duration) *Fetcher {
	client := &http.Client{}
	if timeout > 0 {
		client.Timeout = timeout
	}
	return &Fetcher{client: client}
}

func (f *Fetcher) Name() string { return "http_fetch" }

func (f *Fetcher) IsReady() bool { return true }

func (f *Fetcher) Cleanup(ctx context.Context) error {
	f.client.CloseIdleConnections()
	return nil
}

func (f *Fetcher) Execute(ctx context.Context, operation string, params map[string]any) (any, error) {
	if operation != "fetch" {
		return nil, windlass.ErrUnsupportedOperation(operation)
	}

	urlValue, _ := params["url"].(string)
	if strings.TrimSpace(urlValue) == "" {
		return nil, windlass.ErrInvalidInput("url parameter is required")
	}

	method := http.MethodGet
	if rawMethod, ok := params["method"].(string); ok && strings.TrimSpace(rawMethod) != "" {
		method = strings.ToUpper(strings.TrimSpace(rawMethod))
	}

	var bodyReader io.Reader
	if body, ok := params["body"].(string); ok && body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, urlValue, bodyReader)
	if err != nil {
		return nil, windlass.ErrInvalidInput("build request: %v", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, windlass.NewToolError(windlass.ErrorCodeExecutionFailed, "request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, windlass.NewToolError(windlass.ErrorCodeExecutionFailed, "read response", err)
	}

	headers := make(map[string]any, len(resp.Header))
	for key, values := range resp.Header {
		headers[key] = strings.Join(values, ", ")
	}

	return map[string]any{
		"status_code": resp.StatusCode,
		"body":        string(respBody),
		"headers":     headers,
	}, nil
}

var _ windlass.Tool = (*Fetcher)(nil)
