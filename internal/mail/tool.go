package mail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mktr-labs/tooldeck/internal/interfaces"
	"github.com/mktr-labs/tooldeck/internal/tools"
)

const timestampLayout = "2006-01-02 15:04:05 UTC"

// Toolset exposes the email operations. The one-shot prepare_and_send path
// and the conversational prepare/send/discard flow share the same invariant:
// nothing is transmitted without an explicit affirmative confirmation from
// the injected Confirmer.
type Toolset struct {
	sender         Sender
	confirmer      interfaces.Confirmer
	composer       *Composer
	confirmTimeout time.Duration
	logger         *slog.Logger

	mu     sync.Mutex
	drafts map[string]*Draft // keyed by session id
}

// NewToolset wires the email toolset. confirmTimeout bounds how long a
// confirmation prompt stays open; expiry counts as a decline.
func NewToolset(sender Sender, confirmer interfaces.Confirmer, composer *Composer, confirmTimeout time.Duration, logger *slog.Logger) *Toolset {
	if confirmTimeout <= 0 {
		confirmTimeout = 2 * time.Minute
	}
	return &Toolset{
		sender:         sender,
		confirmer:      confirmer,
		composer:       composer,
		confirmTimeout: confirmTimeout,
		logger:         logger.With("component", "mail"),
		drafts:         make(map[string]*Draft),
	}
}

// Tools returns the callable operations of this toolset.
func (t *Toolset) Tools() []interfaces.Tool {
	return []interfaces.Tool{
		tools.NewFunc(
			"prepare_and_send",
			"Compose an email and send it after the user explicitly confirms. The body may contain HTML.",
			map[string]tools.Param{
				"recipient": {Type: "string", Description: "Recipient address(es), comma-separated if multiple"},
				"subject":   {Type: "string", Description: "Subject line"},
				"body":      {Type: "string", Description: "Body content, HTML allowed"},
				"signature": {Type: "string", Description: "Optional signature overriding the configured one"},
			},
			[]string{"recipient", "subject", "body"},
			t.prepareAndSend,
		),
		tools.NewFunc(
			"prepare_email",
			"Prepare an email draft for later sending. Present the draft to the user for review before calling send_prepared_email.",
			map[string]tools.Param{
				"recipients": {Type: "string", Description: "Recipient address(es), comma-separated if multiple"},
				"subject":    {Type: "string", Description: "Subject line"},
				"body":       {Type: "string", Description: "Body content, HTML allowed"},
			},
			[]string{"recipients", "subject", "body"},
			t.prepareEmail,
		),
		tools.NewFunc(
			"send_prepared_email",
			"Send the previously prepared email. Sending still requires the user's explicit confirmation.",
			map[string]tools.Param{},
			nil,
			t.sendPreparedEmail,
		),
		tools.NewFunc(
			"discard_prepared_email",
			"Discard the previously prepared email draft.",
			map[string]tools.Param{},
			nil,
			t.discardPreparedEmail,
		),
	}
}

func (t *Toolset) prepareAndSend(ctx context.Context, params map[string]interface{}) *interfaces.ToolResult {
	draft, err := t.composer.Compose(
		tools.StringParam(params, "recipient"),
		tools.StringParam(params, "subject"),
		tools.StringParam(params, "body"),
		tools.StringParam(params, "signature"),
	)
	if err != nil {
		return interfaces.Failure(fmt.Sprintf("email not sent: %v", err))
	}
	return t.confirmAndSend(ctx, "prepare_and_send", draft)
}

func (t *Toolset) prepareEmail(_ context.Context, params map[string]interface{}) *interfaces.ToolResult {
	draft, err := t.composer.Compose(
		tools.StringParam(params, "recipients"),
		tools.StringParam(params, "subject"),
		tools.StringParam(params, "body"),
		"",
	)
	if err != nil {
		return interfaces.Failure(fmt.Sprintf("email not prepared: %v", err))
	}

	session := sessionKey(params)
	t.mu.Lock()
	t.drafts[session] = draft
	t.mu.Unlock()

	t.logger.Info("draft prepared", "draft", draft.ID, "recipients", len(draft.To))

	return interfaces.Success(fmt.Sprintf(
		"Email prepared for sending:\n%s\nPresent the draft to the user for review. "+
			"To send it, call send_prepared_email; to start over, call discard_prepared_email.",
		draft.Review(),
	))
}

func (t *Toolset) sendPreparedEmail(ctx context.Context, params map[string]interface{}) *interfaces.ToolResult {
	session := sessionKey(params)
	t.mu.Lock()
	draft, ok := t.drafts[session]
	t.mu.Unlock()

	if !ok {
		return interfaces.Failure("no email has been prepared; call prepare_email first")
	}

	result := t.confirmAndSend(ctx, "send_prepared_email", draft)
	if result.OK() {
		t.mu.Lock()
		delete(t.drafts, session)
		t.mu.Unlock()
	}
	return result
}

func (t *Toolset) discardPreparedEmail(_ context.Context, params map[string]interface{}) *interfaces.ToolResult {
	session := sessionKey(params)
	t.mu.Lock()
	_, had := t.drafts[session]
	delete(t.drafts, session)
	t.mu.Unlock()

	if !had {
		return interfaces.Success("no draft was pending; nothing to discard")
	}
	return interfaces.Success("the prepared email has been discarded; a new one can be prepared with prepare_email")
}

// confirmAndSend is the single gate through which every transmission
// passes: explicit approval first, then exactly one SMTP submission.
// The incoming ctx carries the per-tool execution deadline, which is far
// too short for a human decision; the confirmation wait and the submission
// that follows it are bounded by confirmTimeout and the sender's own
// timeout instead.
func (t *Toolset) confirmAndSend(ctx context.Context, toolName string, draft *Draft) *interfaces.ToolResult {
	confirmCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.confirmTimeout)
	defer cancel()

	approved, err := t.confirmer.Confirm(confirmCtx, interfaces.ConfirmRequest{
		ID:        uuid.NewString(),
		Tool:      toolName,
		Summary:   draft.Summary(),
		Detail:    draft.Review(),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return interfaces.Failure(fmt.Sprintf("email not sent: confirmation unavailable: %v", err))
	}
	if !approved {
		t.logger.Info("send declined", "draft", draft.ID)
		return interfaces.Failure("email not sent: the user declined confirmation")
	}

	msg := BuildMessage(t.composer.From(), draft)
	if err := t.sender.Send(context.WithoutCancel(ctx), t.composer.From(), draft.To, msg); err != nil {
		t.logger.Warn("smtp submission failed", "draft", draft.ID, "error", err)
		return interfaces.Failure(fmt.Sprintf("email not sent: %v", err))
	}

	sentAt := time.Now().UTC().Format(timestampLayout)
	return interfaces.Success(fmt.Sprintf(
		"Message sent to %s at %s.", strings.Join(draft.To, ", "), sentAt,
	))
}

func sessionKey(params map[string]interface{}) string {
	if s := tools.StringParam(params, "session_id"); s != "" {
		return s
	}
	return "default"
}
