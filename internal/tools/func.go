// Package tools provides the tool registry, the optional tools.toml
// manifest, and the runner that executes invocations with timeouts and
// audit recording.
package tools

import (
	"context"

	"github.com/mktr-labs/tooldeck/internal/interfaces"
)

// Param describes a single JSON-schema parameter of a tool.
type Param struct {
	Type        string
	Description string
}

// FuncTool adapts a plain Go function into an interfaces.Tool. Toolsets use
// it to expose each callable operation under its own name.
type FuncTool struct {
	name     string
	desc     string
	params   map[string]Param
	required []string
	run      func(ctx context.Context, params map[string]interface{}) *interfaces.ToolResult
}

// NewFunc builds a FuncTool. run must convert every failure into an
// error-status result; it is never expected to panic or return nil.
func NewFunc(
	name, desc string,
	params map[string]Param,
	required []string,
	run func(ctx context.Context, params map[string]interface{}) *interfaces.ToolResult,
) *FuncTool {
	return &FuncTool{name: name, desc: desc, params: params, required: required, run: run}
}

func (f *FuncTool) Name() string        { return f.name }
func (f *FuncTool) Description() string { return f.desc }

func (f *FuncTool) Execute(ctx context.Context, params map[string]interface{}) (*interfaces.ToolResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.run(ctx, params), nil
}

// Schema converts the parameter table to JSON-schema form for LLM APIs.
func (f *FuncTool) Schema() interfaces.ToolSchema {
	properties := make(map[string]interface{}, len(f.params))
	for name, p := range f.params {
		properties[name] = map[string]interface{}{
			"type":        p.Type,
			"description": p.Description,
		}
	}

	parameters := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(f.required) > 0 {
		parameters["required"] = f.required
	}

	return interfaces.ToolSchema{
		Name:        f.name,
		Description: f.desc,
		Parameters:  parameters,
	}
}

// StringParam extracts a string parameter, tolerating missing keys.
func StringParam(params map[string]interface{}, key string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return ""
}
