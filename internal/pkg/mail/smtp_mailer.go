package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/PayButton/paybutton-server/internal/pkg/env"
)

// SendResult reports the per-recipient outcome of one SMTP submission. Only
// recipients in Accepted were taken by the relay; everyone else appears in
// Rejected with the relay's error text.
type SendResult struct {
	Accepted []string          `json:"accepted"`
	Rejected map[string]string `json:"rejected,omitempty"`
}

// Mailer submits a message and reports which recipients the relay accepted.
// A returned error means the submission itself failed (dial, auth, DATA);
// individual recipient rejections are not errors.
type Mailer interface {
	Send(ctx context.Context, to []string, subject, htmlBody string) (*SendResult, error)
}

// SMTPMailer talks to the configured SMTP relay.
type SMTPMailer struct {
	host     string
	port     string
	username string
	password string
	sender   string
	timeout  time.Duration
}

// NewSMTPMailer builds a mailer from SMTP_* environment variables.
func NewSMTPMailer() *SMTPMailer {
	sender := env.GetEnv("SMTP_SENDER", "")
	if sender == "" {
		sender = "no-reply@paybutton.org"
	}
	return &SMTPMailer{
		host:     env.GetEnv("SMTP_HOST", ""),
		port:     env.GetEnv("SMTP_PORT", "25"),
		username: env.GetEnv("SMTP_USERNAME", ""),
		password: env.GetEnv("SMTP_PASSWORD", ""),
		sender:   sender,
		timeout:  30 * time.Second,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, to []string, subject, htmlBody string) (*SendResult, error) {
	if len(to) == 0 {
		return nil, fmt.Errorf("no recipients given")
	}

	addr := fmt.Sprintf("%s:%s", m.host, m.port)
	dialer := net.Dialer{Timeout: m.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial SMTP relay %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(m.timeout))
	}

	client, err := smtp.NewClient(conn, m.host)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("SMTP handshake failed: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: m.host}); err != nil {
			return nil, fmt.Errorf("STARTTLS failed: %w", err)
		}
	}

	if m.username != "" && m.password != "" {
		auth := smtp.PlainAuth("", m.username, m.password, m.host)
		if err := client.Auth(auth); err != nil {
			return nil, fmt.Errorf("SMTP auth failed: %w", err)
		}
	}

	if err := client.Mail(m.sender); err != nil {
		return nil, fmt.Errorf("MAIL FROM rejected: %w", err)
	}

	result := &SendResult{Rejected: map[string]string{}}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			result.Rejected[rcpt] = err.Error()
			continue
		}
		result.Accepted = append(result.Accepted, rcpt)
	}

	// Relay turned down every recipient; nothing to submit, and not a
	// transport failure either.
	if len(result.Accepted) == 0 {
		_ = client.Quit()
		return result, nil
	}

	wc, err := client.Data()
	if err != nil {
		return nil, fmt.Errorf("DATA rejected: %w", err)
	}
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", m.sender, strings.Join(result.Accepted, ", "), subject) +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
		htmlBody
	if _, err := wc.Write([]byte(msg)); err != nil {
		return nil, fmt.Errorf("failed to write message body: %w", err)
	}
	if err := wc.Close(); err != nil {
		return nil, fmt.Errorf("message not accepted by relay: %w", err)
	}

	_ = client.Quit()
	return result, nil
}
