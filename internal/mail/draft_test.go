package mail

import (
	"log/slog"
	"os"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func TestParseRecipients(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []string
		wantErr bool
	}{
		{"single", "alice@example.com", []string{"alice@example.com"}, false},
		{"multiple", "alice@example.com, bob@example.com", []string{"alice@example.com", "bob@example.com"}, false},
		{"serialized list", `['alice@example.com', "bob@example.com"]`, []string{"alice@example.com", "bob@example.com"}, false},
		{"display name", "Alice <alice@example.com>", []string{"alice@example.com"}, false},
		{"trailing comma", "alice@example.com,", []string{"alice@example.com"}, false},
		{"invalid", "not-an-address", nil, true},
		{"empty", "", nil, true},
		{"one bad among good", "alice@example.com, nope", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRecipients(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("recipient %d: got %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestComposeAppendsSignature(t *testing.T) {
	c := NewComposer("me@example.com", "Best regards,<br>Me")

	d, err := c.Compose("alice@example.com", "Hello", "Hi there", "")
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if !strings.Contains(d.Body, "Best regards,") {
		t.Errorf("signature missing from body: %q", d.Body)
	}
}

func TestComposeSignatureOverride(t *testing.T) {
	c := NewComposer("me@example.com", "Default sig")

	d, err := c.Compose("alice@example.com", "Hello", "Hi", "Override sig")
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if strings.Contains(d.Body, "Default sig") {
		t.Errorf("configured signature should be replaced: %q", d.Body)
	}
	if !strings.Contains(d.Body, "Override sig") {
		t.Errorf("override signature missing: %q", d.Body)
	}
}

func TestComposeSanitizesScript(t *testing.T) {
	c := NewComposer("me@example.com", "")

	d, err := c.Compose("alice@example.com", "Hi", `<p>ok</p><script>alert("x")</script>`, "")
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if strings.Contains(d.Body, "<script") {
		t.Errorf("script tag survived sanitization: %q", d.Body)
	}
	if !strings.Contains(d.Body, "<p>ok</p>") {
		t.Errorf("benign markup stripped: %q", d.Body)
	}
}

func TestComposeRejectsSubjectLineBreaks(t *testing.T) {
	c := NewComposer("me@example.com", "")

	for _, subject := range []string{
		"Hi\r\nBcc: evil@example.com",
		"Hi\nReply-To: evil@example.com",
		"Hi\rX-Spoof: 1",
	} {
		if _, err := c.Compose("alice@example.com", subject, "body", ""); err == nil {
			t.Errorf("subject %q must be rejected", subject)
		}
	}
}

func TestComposeRejectsEmptySubject(t *testing.T) {
	c := NewComposer("me@example.com", "")

	if _, err := c.Compose("alice@example.com", "   ", "body", ""); err == nil {
		t.Fatal("expected error for blank subject")
	}
}

func TestDraftReview(t *testing.T) {
	c := NewComposer("me@example.com", "")
	d, err := c.Compose("alice@example.com", "Subject line", "<p>First</p><p>Second</p>", "")
	if err != nil {
		t.Fatalf("compose: %v", err)
	}

	review := d.Review()
	for _, want := range []string{"TO: alice@example.com", "SUBJECT: Subject line", "First", "Second"} {
		if !strings.Contains(review, want) {
			t.Errorf("review missing %q:\n%s", want, review)
		}
	}
	if strings.Contains(review, "<p>") {
		t.Errorf("review should be plain text:\n%s", review)
	}
}
