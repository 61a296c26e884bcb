// Package mail implements the email toolset: draft composition with HTML
// sanitization, recipient validation, and SMTP submission gated on explicit
// user confirmation.
package mail

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

// Draft is a composed email awaiting confirmation. Drafts live in memory
// only; their lifecycle ends when sent or discarded.
type Draft struct {
	ID        string
	To        []string
	Subject   string
	Body      string // sanitized HTML, signature included
	CreatedAt time.Time
}

// Composer builds drafts from raw tool parameters. The body policy strips
// script and style content while keeping user-generated markup.
type Composer struct {
	from      string
	signature string
	policy    *bluemonday.Policy
}

// NewComposer creates a composer sending as from, appending signature to
// every body unless the call overrides it.
func NewComposer(from, signature string) *Composer {
	return &Composer{
		from:      from,
		signature: signature,
		policy:    bluemonday.UGCPolicy(),
	}
}

// From returns the configured sender address.
func (c *Composer) From() string { return c.from }

// Compose validates recipients, sanitizes the HTML body, and appends the
// signature. signatureOverride replaces the configured signature when
// non-empty.
func (c *Composer) Compose(recipients, subject, body, signatureOverride string) (*Draft, error) {
	to, err := ParseRecipients(recipients)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(subject) == "" {
		return nil, fmt.Errorf("subject must not be empty")
	}
	// CR/LF in the subject would splice extra headers into the message.
	if strings.ContainsAny(subject, "\r\n") {
		return nil, fmt.Errorf("subject must not contain line breaks")
	}

	sig := c.signature
	if signatureOverride != "" {
		sig = signatureOverride
	}
	if sig != "" {
		body = body + "<br><br>" + sig
	}

	return &Draft{
		ID:        uuid.NewString(),
		To:        to,
		Subject:   subject,
		Body:      c.policy.Sanitize(body),
		CreatedAt: time.Now().UTC(),
	}, nil
}

// ParseRecipients splits a comma-separated recipient string and validates
// each address. Bracket and quote characters are tolerated because models
// occasionally pass a serialized list instead of a plain string.
func ParseRecipients(raw string) ([]string, error) {
	cleaned := strings.NewReplacer("[", "", "]", "", "'", "", `"`, "").Replace(raw)
	parts := strings.Split(cleaned, ",")

	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		addr, err := mail.ParseAddress(p)
		if err != nil {
			return nil, fmt.Errorf("invalid recipient address %q: %w", p, err)
		}
		out = append(out, addr.Address)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no recipient address given")
	}
	return out, nil
}

// Summary renders the one-line confirmation prompt for a draft.
func (d *Draft) Summary() string {
	return fmt.Sprintf("Send email to %s: %q", strings.Join(d.To, ", "), d.Subject)
}

// Review renders the full draft for operator inspection.
func (d *Draft) Review() string {
	var b strings.Builder
	fmt.Fprintf(&b, "TO: %s\n", strings.Join(d.To, ", "))
	fmt.Fprintf(&b, "SUBJECT: %s\n", d.Subject)
	fmt.Fprintf(&b, "BODY:\n%s\n", htmlToText(d.Body))
	return b.String()
}
