// Package tools implements the tool registry and executor (C1): a
// uniform callable interface for built-in and user tools, backing the
// agent loop's tool-dispatch step.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/ivo-run/ivo/pkg/models"
)

// Registry holds named tool definitions and dispatches calls to them.
// It is safe for concurrent registration and execution.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]models.ToolDefinition
	schemas map[string]*jsonschema.Schema
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:   make(map[string]models.ToolDefinition),
		schemas: make(map[string]*jsonschema.Schema),
	}
}

// Register adds a tool definition. Registering a name that already
// exists returns an error; the registry does not silently overwrite.
// A non-empty ParameterSchema is compiled up front so a malformed
// schema fails at registration time rather than on the first call.
func (r *Registry) Register(def models.ToolDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[def.Name]; exists {
		return fmt.Errorf("tools: duplicate tool name %q", def.Name)
	}

	var schema *jsonschema.Schema
	if len(def.ParameterSchema) > 0 {
		resource := def.Name + ".schema.json"
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(resource, bytes.NewReader(def.ParameterSchema)); err != nil {
			return fmt.Errorf("tools: add schema resource for %q: %w", def.Name, err)
		}
		compiled, err := compiler.Compile(resource)
		if err != nil {
			return fmt.Errorf("tools: compile parameter schema for %q: %w", def.Name, err)
		}
		schema = compiled
	}

	r.tools[def.Name] = def
	r.schemas[def.Name] = schema
	return nil
}

// Unregister removes a tool by name; a no-op if it is not registered.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
	delete(r.schemas, name)
}

// Lookup returns a tool definition by name.
func (r *Registry) Lookup(name string) (models.ToolDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.tools[name]
	return def, ok
}

// Definitions returns all registered tool definitions, suitable for
// advertising to a provider as its tool list.
func (r *Registry) Definitions() []models.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.ToolDefinition, 0, len(r.tools))
	for _, def := range r.tools {
		out = append(out, def)
	}
	return out
}

// MaxParamsSize caps the size of a tool call's argument JSON to guard
// against a pathological or malicious provider response.
const MaxParamsSize = 10 << 20

// Execute parses args and runs the named tool's Execute hook. A missing
// tool, oversized params, or a panicking/erroring hook are all
// converted into an error ToolResult; Execute itself never returns a
// non-nil error for those cases, matching the executor contract that
// exceptions never propagate past the registry.
func (r *Registry) Execute(ctx context.Context, callID, name string, args json.RawMessage) (result *models.ToolResult, err error) {
	if len(args) > MaxParamsSize {
		return models.ErrorResult(fmt.Sprintf("tool parameters exceed maximum size of %d bytes", MaxParamsSize)), nil
	}

	def, ok := r.Lookup(name)
	if !ok {
		return models.ErrorResult(fmt.Sprintf("Tool %q not found", name)), nil
	}

	if len(args) == 0 || !json.Valid(args) {
		args = json.RawMessage("{}")
	}

	r.mu.RLock()
	schema := r.schemas[name]
	r.mu.RUnlock()
	if schema != nil {
		instance, decodeErr := jsonschema.UnmarshalJSON(bytes.NewReader(args))
		if decodeErr != nil {
			return models.ErrorResult(fmt.Sprintf("Error: invalid parameters for tool %q: %v", name, decodeErr)), nil
		}
		if valErr := schema.Validate(instance); valErr != nil {
			return models.ErrorResult(fmt.Sprintf("Error: parameters for tool %q failed validation: %v", name, valErr)), nil
		}
	}

	defer func() {
		if rec := recover(); rec != nil {
			result = models.ErrorResult(fmt.Sprintf("Error: tool %q panicked: %v", name, rec))
			err = nil
		}
	}()

	res, execErr := def.Execute(ctx, callID, args)
	if execErr != nil {
		return models.ErrorResult(fmt.Sprintf("Error: %v", execErr)), nil
	}
	if res == nil {
		res = models.TextResult("")
	}
	return res, nil
}
