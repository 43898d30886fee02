package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Handler executes one tool call. The returned value is JSON-serialized into
// the result envelope; a returned error becomes an isError result, never a
// protocol error.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

// Registry is the static tool catalog. It is assembled once at startup and
// read-only afterwards, so concurrent reads need no locking.
type Registry struct {
	tools   map[string]registeredTool
	ordered []string
}

type registeredTool struct {
	manifest Tool
	handler  Handler
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]registeredTool)}
}

// Register adds a tool under its manifest name. Registering the same name
// twice is a startup error, not something to tolerate at runtime.
func (r *Registry) Register(manifest Tool, handler Handler) error {
	if manifest.Name == "" {
		return fmt.Errorf("tool manifest has no name")
	}
	if handler == nil {
		return fmt.Errorf("tool %q has no handler", manifest.Name)
	}
	if _, exists := r.tools[manifest.Name]; exists {
		return fmt.Errorf("tool %q is already registered", manifest.Name)
	}

	r.tools[manifest.Name] = registeredTool{manifest: manifest, handler: handler}
	r.ordered = append(r.ordered, manifest.Name)
	return nil
}

// MustRegister is Register for startup paths where a collision is fatal.
func (r *Registry) MustRegister(manifest Tool, handler Handler) {
	if err := r.Register(manifest, handler); err != nil {
		panic(err)
	}
}

// Tools returns all manifests in registration order.
func (r *Registry) Tools() []Tool {
	manifests := make([]Tool, 0, len(r.ordered))
	for _, name := range r.ordered {
		manifests = append(manifests, r.tools[name].manifest)
	}
	return manifests
}

// Lookup returns the handler for a tool name.
func (r *Registry) Lookup(name string) (Handler, bool) {
	tool, ok := r.tools[name]
	if !ok {
		return nil, false
	}
	return tool.handler, true
}

// Names returns all registered tool names in registration order, joined for
// use in error messages.
func (r *Registry) Names() string {
	return strings.Join(r.ordered, ", ")
}
