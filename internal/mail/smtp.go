package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"time"
)

// Sender dispatches a rendered message to its recipients.
type Sender interface {
	Send(ctx context.Context, from string, to []string, msg []byte) error
}

// SMTPSender submits messages over SMTP, either via implicit TLS (the
// classic SMTPS port 465, matching SMTP_SSL behavior) or STARTTLS.
type SMTPSender struct {
	host       string
	port       int
	username   string
	password   string
	encryption string // "tls" or "starttls"
	timeout    time.Duration
	logger     *slog.Logger
}

// NewSMTPSender creates a sender for the given submission endpoint.
// username doubles as the envelope sender login; timeout bounds the whole
// dial-auth-send exchange.
func NewSMTPSender(host string, port int, username, password, encryption string, timeout time.Duration, logger *slog.Logger) *SMTPSender {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SMTPSender{
		host:       host,
		port:       port,
		username:   username,
		password:   password,
		encryption: encryption,
		timeout:    timeout,
		logger:     logger.With("component", "smtp"),
	}
}

// Send performs one complete SMTP transaction. No retries: a failed
// submission is reported to the caller and nothing is queued.
func (s *SMTPSender) Send(ctx context.Context, from string, to []string, msg []byte) error {
	deadline := time.Now().Add(s.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	conn, err := s.dial(ctx, addr)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", addr, err)
	}
	_ = conn.SetDeadline(deadline)

	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if s.encryption == "starttls" {
		if err := client.StartTLS(&tls.Config{ServerName: s.host}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}

	if s.password != "" {
		auth := smtp.PlainAuth("", s.username, s.password, s.host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("rcpt to %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close data: %w", err)
	}

	s.logger.Info("message submitted", "recipients", len(to), "bytes", len(msg))
	return client.Quit()
}

// dial opens the transport connection, wrapping it in TLS up front when
// implicit TLS is configured.
func (s *SMTPSender) dial(ctx context.Context, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: s.timeout}

	if s.encryption == "tls" {
		td := &tls.Dialer{
			NetDialer: dialer,
			Config:    &tls.Config{ServerName: s.host},
		}
		return td.DialContext(ctx, "tcp", addr)
	}
	return dialer.DialContext(ctx, "tcp", addr)
}
