package mail

import (
	"bytes"
	"fmt"
	"html"
	"mime"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BuildMessage renders a draft as a multipart/alternative RFC 5322 message
// with a plain-text part derived from the HTML body.
func BuildMessage(from string, d *Draft) []byte {
	boundary := "alt-" + uuid.NewString()
	domain := domainOf(from)

	var buf bytes.Buffer
	writeHeader(&buf, "Date", time.Now().Format(time.RFC1123Z))
	writeHeader(&buf, "From", from)
	writeHeader(&buf, "To", strings.Join(d.To, ", "))
	writeHeader(&buf, "Subject", mime.QEncoding.Encode("utf-8", d.Subject))
	writeHeader(&buf, "MIME-Version", "1.0")
	writeHeader(&buf, "Message-ID", fmt.Sprintf("<%s@%s>", d.ID, domain))
	writeHeader(&buf, "Content-Type", fmt.Sprintf("multipart/alternative; boundary=%q", boundary))
	buf.WriteString("\r\n")

	// Plain text part first so clients prefer the HTML alternative
	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	buf.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	buf.WriteString(htmlToText(d.Body))
	buf.WriteString("\r\n")

	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	buf.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n\r\n")
	buf.WriteString(d.Body)
	buf.WriteString("\r\n")

	fmt.Fprintf(&buf, "--%s--\r\n", boundary)
	return buf.Bytes()
}

func writeHeader(buf *bytes.Buffer, key, value string) {
	fmt.Fprintf(buf, "%s: %s\r\n", key, value)
}

func domainOf(addr string) string {
	if i := strings.LastIndex(addr, "@"); i >= 0 && i+1 < len(addr) {
		return addr[i+1:]
	}
	return "localhost"
}

// htmlToText produces the plain-text fallback: line breaks for the common
// block tags, all other markup stripped, entities unescaped.
func htmlToText(s string) string {
	breaks := strings.NewReplacer(
		"<br>", "\n", "<br/>", "\n", "<br />", "\n",
		"</p>", "\n", "</div>", "\n", "</li>", "\n",
	)
	s = breaks.Replace(s)

	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(html.UnescapeString(b.String()))
}
