// Package interfaces defines the core contracts shared across tooldeck
// subsystems. Tools, confirmation capabilities, and transport channels all
// implement these interfaces, making them swappable via configuration.
package interfaces

import "time"

// ToolSchema describes a tool's callable signature for LLM function calling.
type ToolSchema struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// ToolResult is the uniform status report returned by every tool invocation.
// Status is "success" or "error"; Error carries the human-readable failure
// message, Output the payload rendered back into the conversation.
type ToolResult struct {
	Status    string `json:"status"`
	Output    string `json:"output,omitempty"`
	Error     string `json:"error,omitempty"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Success builds a success-status result with the given output.
func Success(output string) *ToolResult {
	return &ToolResult{Status: StatusSuccess, Output: output}
}

// Failure builds an error-status result with the given message.
func Failure(msg string) *ToolResult {
	return &ToolResult{Status: StatusError, Error: msg}
}

// OK reports whether the result carries a success status.
func (r *ToolResult) OK() bool {
	return r != nil && r.Status == StatusSuccess
}

// ConfirmRequest is a pending user-confirmation prompt. Summary is the
// one-line question shown to the operator, Detail the full draft being
// approved.
type ConfirmRequest struct {
	ID        string    `json:"id"`
	Tool      string    `json:"tool"`
	Summary   string    `json:"summary"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ConfirmDecision is an operator's answer to a ConfirmRequest.
type ConfirmDecision struct {
	ID       string `json:"id"`
	Approved bool   `json:"approved"`
	Reason   string `json:"reason,omitempty"`
}

// InvokeRequest is a tool invocation arriving over a transport channel.
type InvokeRequest struct {
	ID        string                 `json:"id"`
	Tool      string                 `json:"tool"`
	Params    map[string]interface{} `json:"params"`
	SessionID string                 `json:"session_id,omitempty"`
	ReplyTo   string                 `json:"reply_to,omitempty"`
}
