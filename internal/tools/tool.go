// Package tools provides the tool framework and implementations for the agent.
package tools

import (
	"context"
	"fmt"
	"sort"
)

// Kind classifies a tool invocation's effect on durable state.
type Kind int

const (
	// KindRead never mutates durable state and executes without approval.
	KindRead Kind = iota
	// KindWrite mutates durable state and must pass the approval gate.
	KindWrite
)

func (k Kind) String() string {
	if k == KindWrite {
		return "write"
	}
	return "read"
}

// Tool is the interface that all agent tools must implement.
type Tool interface {
	// Name returns the tool identifier used in function calls.
	Name() string
	// Description returns a human-readable description for the model.
	Description() string
	// Parameters returns the JSON Schema for tool parameters.
	Parameters() map[string]any
	// Kind returns the tool's fixed read/write classification.
	Kind() Kind
	// Execute runs the tool with the given parameters.
	// Returns result string and error. On error, return user-friendly message.
	Execute(ctx context.Context, params map[string]any) (string, error)
}

// InvocationClassifier is an optional interface for tools whose effect
// depends on the arguments of a specific call (query-shaped tools). The
// registry consults it per call; the fixed Kind() is the fallback.
type InvocationClassifier interface {
	ClassifyInvocation(params map[string]any) Kind
}

type entry struct {
	tool Tool
	kind Kind
}

// Registry manages tool registration, classification and execution. The
// read/write classification is resolved once at registration time; only
// query-shaped tools re-classify per call.
type Registry struct {
	entries map[string]entry
}

// NewRegistry creates a new tool registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]entry),
	}
}

// Register adds a tool to the registry.
func (r *Registry) Register(tool Tool) {
	r.entries[tool.Name()] = entry{tool: tool, kind: tool.Kind()}
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	e, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return e.tool, true
}

// KindFor classifies one proposed invocation. Unknown tools classify as
// writes so nothing unregistered can execute ungated.
func (r *Registry) KindFor(name string, params map[string]any) Kind {
	e, ok := r.entries[name]
	if !ok {
		return KindWrite
	}
	if ic, ok := e.tool.(InvocationClassifier); ok {
		return ic.ClassifyInvocation(params)
	}
	return e.kind
}

// List returns all registered tools sorted by name.
func (r *Registry) List() []Tool {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	result := make([]Tool, 0, len(names))
	for _, name := range names {
		result = append(result, r.entries[name].tool)
	}
	return result
}

// Execute runs a tool by name with the given parameters.
func (r *Registry) Execute(ctx context.Context, name string, params map[string]any) (string, error) {
	e, ok := r.entries[name]
	if !ok {
		return "", fmt.Errorf("tool not found: %s", name)
	}
	return e.tool.Execute(ctx, params)
}

// GetString extracts a string parameter with a default value.
func GetString(params map[string]any, key string, defaultVal string) string {
	if v, ok := params[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return defaultVal
}

// GetInt extracts an int parameter with a default value.
func GetInt(params map[string]any, key string, defaultVal int) int {
	if v, ok := params[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case float64:
			return int(n)
		}
	}
	return defaultVal
}
