package tools

import (
	"context"
	"time"

	"github.com/windlass-dev/windlass"
	"github.com/windlass-dev/windlass/config"
	"github.com/windlass-dev/windlass/memory"
)

// NamedTool pairs a registration name with its implementation.
type NamedTool struct {
	Name string
	Tool windlass.Tool
}

// Catalog assembles the built-in tool set from configuration. It is the
// default tool source wired into the agent.
type Catalog struct {
	cfg   config.Snapshot
	store memory.Store
}

// NewCatalog creates a catalog for the given configuration. The store
// may be nil when memory is disabled.
func NewCatalog(cfg config.Snapshot, store memory.Store) *Catalog {
	return &Catalog{cfg: cfg, store: store}
}

// Tools returns the built-in registrations in a stable order. When
// auto-discovery is disabled the catalog yields nothing.
func (c *Catalog) Tools(ctx context.Context) ([]NamedTool, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !c.cfg.Tools.AutoDiscover {
		return nil, nil
	}

	timeout := time.Duration(c.cfg.Tools.TimeoutSeconds) * time.Second
	out := []NamedTool{
		{Name: "greeter", Tool: NewGreeter()},
		{Name: "http_fetch", Tool: NewFetcher(timeout)},
		{Name: "template_render", Tool: NewRenderer()},
	}
	if c.cfg.Memory.Enabled && c.store != nil {
		out = append(out, NamedTool{Name: "memory", Tool: NewRecall(c.store)})
	}
	return out, nil
}
