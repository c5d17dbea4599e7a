// Package tools provides the function-call registry for a realtime session.
// The remote model invokes tools by name over the event channel; every
// invocation produces a well-formed result payload, never a panic, so the
// model's turn-taking is never left hanging on a failed call.
package tools

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Tool represents a function the model can invoke during the interview.
type Tool struct {
	// Name is the unique identifier for the tool (e.g., "ask_question").
	Name string `json:"name"`

	// Description explains what the tool does, helping the model decide
	// when to use it.
	Description string `json:"description"`

	// Parameters defines the JSON schema properties for the tool's
	// arguments.
	Parameters map[string]any `json:"parameters"`

	// Handler is called when the model invokes this tool. It receives the
	// parsed arguments and returns a serialized result or an error.
	Handler func(args map[string]any) (string, error) `json:"-"`
}

// Spec returns the function-tool shape advertised in the session
// configuration event.
func (t Tool) Spec() map[string]any {
	params := t.Parameters
	if params == nil {
		params = map[string]any{}
	}
	return map[string]any{
		"type":        "function",
		"name":        t.Name,
		"description": t.Description,
		"parameters": map[string]any{
			"type":       "object",
			"properties": params,
			"required":   []string{},
		},
	}
}

// Registry maps tool names to handlers for one session.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool, replacing any existing tool with the same name.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name]; !exists {
		r.order = append(r.order, tool.Name)
	}
	r.tools[tool.Name] = tool
}

// RegisterAll registers a set of tools.
func (r *Registry) RegisterAll(ts []Tool) {
	for _, t := range ts {
		r.Register(t)
	}
}

// Tools returns the registered tools in registration order.
func (r *Registry) Tools() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Specs returns the function-tool shapes for the session configuration.
func (r *Registry) Specs() []map[string]any {
	ts := r.Tools()
	specs := make([]map[string]any, len(ts))
	for i, t := range ts {
		specs[i] = t.Spec()
	}
	return specs
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// invokeResult is the payload returned for failed or missing handlers.
type invokeResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Invoke looks up and runs the named tool with raw JSON arguments.
// The returned string is always a well-formed payload for a
// function-call-output event: an unknown name or a failing handler is
// encoded as {"success":false,"error":...} rather than surfaced as an
// error, because an abandoned call would desynchronize the model's turn.
func (r *Registry) Invoke(name, rawArgs, callID string) string {
	r.mu.RLock()
	tool, ok := r.tools[name]
	r.mu.RUnlock()

	if !ok {
		return encodeFailure(fmt.Sprintf("function not found: %s", name))
	}

	var args map[string]any
	if rawArgs != "" {
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			args = make(map[string]any)
		}
	}
	if args == nil {
		args = make(map[string]any)
	}

	result, err := safeCall(tool, args)
	if err != nil {
		return encodeFailure(err.Error())
	}
	return result
}

// safeCall runs the handler, converting a panic into an error.
func safeCall(tool Tool, args map[string]any) (result string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("tool %s panicked: %v", tool.Name, rec)
		}
	}()
	return tool.Handler(args)
}

func encodeFailure(msg string) string {
	data, err := json.Marshal(invokeResult{Success: false, Error: msg})
	if err != nil {
		return `{"success":false,"error":"internal encoding failure"}`
	}
	return string(data)
}
