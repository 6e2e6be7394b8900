package tools

import (
	"context"
	"strings"

	"github.com/windlass-dev/windlass"
	"github.com/windlass-dev/windlass/memory"
)

// Recall exposes the agent's memory store as a tool with put, get, and
// list operations. It is only registered when memory is enabled.
type Recall struct {
	store memory.Store
}

// NewRecall creates a memory recall tool backed by the given store.
func NewRecall(store memory.Store) *Recall {
	return &Recall{store: store}
}

func (r *Recall) Name() string { return "memory" }

func (r *Recall) IsReady() bool { return r.store != nil }

// Cleanup does not close the store; the agent owns its lifetime.
func (r *Recall) Cleanup(ctx context.Context) error { return nil }

func (r *Recall) Execute(ctx context.Context, operation string, params map[string]any) (any, error) {
	switch operation {
	case "put":
		return r.put(ctx, params)
	case "get":
		return r.get(ctx, params)
	case "list":
		return r.list(ctx)
	default:
		return nil, windlass.ErrUnsupportedOperation(operation)
	}
}

func (r *Recall) put(ctx context.Context, params map[string]any) (any, error) {
	key, err := keyParam(params)
	if err != nil {
		return nil, err
	}
	value, ok := params["value"].(map[string]any)
	if !ok {
		return nil, windlass.ErrInvalidInput("parameter %q must be an object", "value")
	}
	if err := r.store.Put(ctx, key, value); err != nil {
		return nil, windlass.NewToolError(windlass.ErrorCodeExecutionFailed, "store put", err)
	}
	return map[string]any{"stored": true, "key": key}, nil
}

func (r *Recall) get(ctx context.Context, params map[string]any) (any, error) {
	key, err := keyParam(params)
	if err != nil {
		return nil, err
	}
	entry, found, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, windlass.NewToolError(windlass.ErrorCodeExecutionFailed, "store get", err)
	}
	if !found {
		return map[string]any{"found": false, "key": key}, nil
	}
	return map[string]any{
		"found":      true,
		"key":        entry.Key,
		"value":      entry.Value,
		"created_at": entry.CreatedAt,
	}, nil
}

func (r *Recall) list(ctx context.Context) (any, error) {
	entries, err := r.store.List(ctx)
	if err != nil {
		return nil, windlass.NewToolError(windlass.ErrorCodeExecutionFailed, "store list", err)
	}
	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		keys = append(keys, entry.Key)
	}
	return map[string]any{"count": len(keys), "keys": keys}, nil
}

func keyParam(params map[string]any) (string, error) {
	raw, ok := params["key"]
	if !ok {
		return "", windlass.ErrInvalidInput("parameter %q is required", "key")
	}
	key, ok := raw.(string)
	if !ok || strings.TrimSpace(key) == "" {
		return "", windlass.ErrInvalidInput("parameter %q must be a non-empty string", "key")
	}
	return strings.TrimSpace(key), nil
}

var _ windlass.Tool = (*Recall)(nil)
