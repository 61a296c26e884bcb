package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mktr-labs/tooldeck/internal/interfaces"
)

// DefaultTimeout bounds a tool execution when the manifest sets none.
const DefaultTimeout = 30 * time.Second

// Invocation is the audit view of one completed tool call. Parameters and
// outputs are deliberately absent: drafts and translations are ephemeral.
type Invocation struct {
	ID        string
	Tool      string
	Status    string
	ElapsedMs int64
	When      time.Time
}

// Recorder persists completed invocations. Implementations must not block
// the caller on failure; recording is best effort.
type Recorder interface {
	Record(ctx context.Context, inv Invocation)
}

// Runner executes invocations against the registry: it resolves the tool,
// applies manifest policy and timeouts, and records the outcome.
type Runner struct {
	reg      *Registry
	manifest *Manifest
	recorder Recorder
	logger   *slog.Logger
}

// NewRunner creates a runner. recorder may be nil when auditing is off.
func NewRunner(reg *Registry, manifest *Manifest, recorder Recorder, logger *slog.Logger) *Runner {
	if manifest == nil {
		manifest = &Manifest{}
	}
	return &Runner{
		reg:      reg,
		manifest: manifest,
		recorder: recorder,
		logger:   logger.With("component", "runner"),
	}
}

// Execute runs one invocation synchronously and always returns a
// ToolResult; every failure mode is folded into an error status.
func (r *Runner) Execute(ctx context.Context, req interfaces.InvokeRequest) *interfaces.ToolResult {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	start := time.Now()
	result := r.execute(ctx, req)
	result.ElapsedMs = time.Since(start).Milliseconds()

	r.logger.Info("tool executed",
		"id", req.ID,
		"tool", req.Tool,
		"status", result.Status,
		"elapsed_ms", result.ElapsedMs,
	)

	if r.recorder != nil {
		r.recorder.Record(ctx, Invocation{
			ID:        req.ID,
			Tool:      req.Tool,
			Status:    result.Status,
			ElapsedMs: result.ElapsedMs,
			When:      start.UTC(),
		})
	}
	return result
}

func (r *Runner) execute(ctx context.Context, req interfaces.InvokeRequest) *interfaces.ToolResult {
	tool, ok := r.reg.Get(req.Tool)
	if !ok {
		return interfaces.Failure(fmt.Sprintf("unknown tool %q", req.Tool))
	}
	if !r.manifest.Allowed(req.Tool) {
		return interfaces.Failure(fmt.Sprintf("tool %q is disabled", req.Tool))
	}

	timeout := r.manifest.TimeoutFor(req.Tool, DefaultTimeout)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	params := make(map[string]interface{}, len(req.Params)+1)
	for k, v := range req.Params {
		params[k] = v
	}
	if req.SessionID != "" {
		params["session_id"] = req.SessionID
	}

	result, err := tool.Execute(ctx, params)
	if err != nil {
		return interfaces.Failure(fmt.Sprintf("tool %s failed: %v", req.Tool, err))
	}
	if result == nil {
		return interfaces.Failure(fmt.Sprintf("tool %s returned no result", req.Tool))
	}
	return result
}

// Schemas returns the schemas of all exposed tools, with manifest
// description overrides applied.
func (r *Runner) Schemas() []interfaces.ToolSchema {
	var out []interfaces.ToolSchema
	for _, t := range r.reg.List() {
		if !r.manifest.Allowed(t.Name()) {
			continue
		}
		s := t.Schema()
		s.Description = r.manifest.DescriptionFor(t.Name(), s.Description)
		out = append(out, s)
	}
	return out
}
