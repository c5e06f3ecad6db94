package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrResourceNotFound is returned by ReadResource when no resource is
// registered under the requested URI.
var ErrResourceNotFound = errors.New("resource not found")

// Tool is a callable exposed via tools/call. MCPJsonSchema returns a JSON
// string with the tool's name, description, and input schema; Call receives
// JSON input and must return JSON output.
type Tool interface {
	MCPJsonSchema() string
	Call(ctx context.Context, input string) string
}

// ResourceFunc produces the current content of a resource. The returned
// string is served verbatim as the resource text.
type ResourceFunc func(ctx context.Context) (string, error)

type resourceEntry struct {
	definition ResourceDefinition
	read       ResourceFunc
}

// Registry holds the tools and resources exposed by an MCP server.
// It is safe for concurrent use; entries can be registered while the server
// is running.
type Registry struct {
	mu          sync.Mutex
	tools       map[string]Tool
	definitions map[string]ToolDefinition
	order       []string

	resources     map[string]resourceEntry
	resourceOrder []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:       make(map[string]Tool),
		definitions: make(map[string]ToolDefinition),
		order:       make([]string, 0),
		resources:   make(map[string]resourceEntry),
	}
}

// Register adds a tool to the registry. The tool's MCPJsonSchema method is
// called to extract its name and schema. If a tool with the same name already
// exists, it is replaced. Returns an error if the tool is nil or has an
// invalid schema.
func (r *Registry) Register(tool Tool) error {
	if tool == nil {
		return fmt.Errorf("register tool: nil tool")
	}

	definition, err := toolDefinition(tool)
	if err != nil {
		return fmt.Errorf("register tool: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[definition.Name]; !exists {
		r.order = append(r.order, definition.Name)
	}

	r.tools[definition.Name] = tool
	r.definitions[definition.Name] = definition
	return nil
}

// RegisterResource adds a readable resource identified by def.URI. An
// existing resource with the same URI is replaced.
func (r *Registry) RegisterResource(def ResourceDefinition, read ResourceFunc) error {
	if def.URI == "" {
		return fmt.Errorf("register resource: URI is required")
	}
	if read == nil {
		return fmt.Errorf("register resource: nil reader for %q", def.URI)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.resources[def.URI]; !exists {
		r.resourceOrder = append(r.resourceOrder, def.URI)
	}
	r.resources[def.URI] = resourceEntry{definition: def, read: read}
	return nil
}

// Get retrieves a tool by name. Returns the tool and true if found,
// or nil and false if no tool with that name is registered.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tool, ok := r.tools[name]
	return tool, ok
}

// Definitions returns the tool definitions for all registered tools
// in the order they were first registered. This is used by tools/list.
func (r *Registry) Definitions() []ToolDefinition {
	r.mu.Lock()
	defer r.mu.Unlock()

	defs := make([]ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		if def, ok := r.definitions[name]; ok {
			defs = append(defs, def)
		}
	}
	return defs
}

// ResourceDefinitions returns the registered resources in registration
// order. This is used by resources/list.
func (r *Registry) ResourceDefinitions() []ResourceDefinition {
	r.mu.Lock()
	defer r.mu.Unlock()

	defs := make([]ResourceDefinition, 0, len(r.resourceOrder))
	for _, uri := range r.resourceOrder {
		if entry, ok := r.resources[uri]; ok {
			defs = append(defs, entry.definition)
		}
	}
	return defs
}

// ReadResource resolves and reads the resource with the given URI.
func (r *Registry) ReadResource(ctx context.Context, uri string) (ResourceDefinition, string, error) {
	r.mu.Lock()
	entry, ok := r.resources[uri]
	r.mu.Unlock()

	if !ok {
		return ResourceDefinition{}, "", fmt.Errorf("resource %q: %w", uri, ErrResourceNotFound)
	}
	text, err := entry.read(ctx)
	if err != nil {
		return ResourceDefinition{}, "", fmt.Errorf("read resource %q: %w", uri, err)
	}
	return entry.definition, text, nil
}

func toolDefinition(tool Tool) (ToolDefinition, error) {
	var schema struct {
		Name         string          `json:"name"`
		Description  string          `json:"description"`
		InputSchema  json.RawMessage `json:"inputSchema"`
		OutputSchema json.RawMessage `json:"outputSchema"`
	}

	if err := json.Unmarshal([]byte(tool.MCPJsonSchema()), &schema); err != nil {
		return ToolDefinition{}, fmt.Errorf("parse MCPJsonSchema: %w", err)
	}
	if schema.Name == "" {
		return ToolDefinition{}, fmt.Errorf("missing tool name")
	}
	if len(schema.InputSchema) == 0 {
		return ToolDefinition{}, fmt.Errorf("missing input schema for %q", schema.Name)
	}

	return ToolDefinition{
		Name:         schema.Name,
		Description:  schema.Description,
		InputSchema:  schema.InputSchema,
		OutputSchema: schema.OutputSchema,
	}, nil
}
