package interfaces

import "context"

// Tool is a single callable operation exposed to the host's model.
type Tool interface {
	// Name returns the function name the model invokes.
	Name() string

	// Description returns a human-readable description.
	Description() string

	// Execute runs the tool with the given parameters. Failures are
	// reported inside the ToolResult; the error return is reserved for
	// infrastructure faults (cancelled context, broken channel).
	Execute(ctx context.Context, params map[string]interface{}) (*ToolResult, error)

	// Schema returns the tool's input schema for LLM function calling.
	Schema() ToolSchema
}

// ToolRegistry manages a collection of tools.
type ToolRegistry interface {
	// Register adds a tool to the registry.
	Register(tool Tool) error

	// Get returns the tool with the given name.
	Get(name string) (Tool, bool)

	// List returns all registered tools.
	List() []Tool
}

// Confirmer obtains an explicit user go-ahead before a side-effecting
// operation runs. A false return means the operation must not proceed;
// expiry and channel shutdown count as "not confirmed".
type Confirmer interface {
	Confirm(ctx context.Context, req ConfirmRequest) (bool, error)
}

// ConfirmerFunc adapts a function to the Confirmer interface.
type ConfirmerFunc func(ctx context.Context, req ConfirmRequest) (bool, error)

func (f ConfirmerFunc) Confirm(ctx context.Context, req ConfirmRequest) (bool, error) {
	return f(ctx, req)
}

// DenyAll is the fallback Confirmer used when no operator channel is
// connected: every request is refused.
var DenyAll = ConfirmerFunc(func(_ context.Context, _ ConfirmRequest) (bool, error) {
	return false, nil
})
