// Package email mails recalculation summaries via SMTP.
package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/bissquit/incident-metrics/internal/notifications"
	"github.com/bissquit/incident-metrics/internal/reliability"
)

const (
	defaultPort        = 587
	defaultDialTimeout = 10 * time.Second
)

// Config holds email sender configuration.
type Config struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	FromAddress  string
	Recipients   []string
	DialTimeout  time.Duration
}

// Sender mails run summaries to a fixed recipient list.
type Sender struct {
	config   Config
	auth     smtp.Auth
	renderer *notifications.Renderer
}

var _ notifications.Sender = (*Sender)(nil)

// NewSender creates a new email sender.
func NewSender(config Config, renderer *notifications.Renderer) (*Sender, error) {
	if config.SMTPHost == "" {
		return nil, errors.New("email sender: SMTP host is required")
	}
	if config.FromAddress == "" {
		return nil, errors.New("email sender: from address is required")
	}
	if len(config.Recipients) == 0 {
		return nil, errors.New("email sender: at least one recipient is required")
	}
	if renderer == nil {
		return nil, errors.New("email sender: renderer is required")
	}

	if config.SMTPPort == 0 {
		config.SMTPPort = defaultPort
	}
	if config.DialTimeout == 0 {
		config.DialTimeout = defaultDialTimeout
	}

	var auth smtp.Auth
	if config.SMTPUser != "" && config.SMTPPassword != "" {
		auth = smtp.PlainAuth("", config.SMTPUser, config.SMTPPassword, config.SMTPHost)
	}

	slog.Info("email sender configured",
		"smtp_host", config.SMTPHost,
		"smtp_port", config.SMTPPort,
		"from_address", config.FromAddress,
		"recipients", len(config.Recipients),
	)

	return &Sender{
		config:   config,
		auth:     auth,
		renderer: renderer,
	}, nil
}

// Channel returns the channel name used in logs and metrics.
func (s *Sender) Channel() string {
	return "email"
}

// NotifyRecalculation mails the run summary to all recipients in one message.
func (s *Sender) NotifyRecalculation(ctx context.Context, result *reliability.Result) error {
	subject, body, err := s.renderer.Render(result)
	if err != nil {
		return err
	}

	msg := s.buildMessage(subject, body)
	addr := net.JoinHostPort(s.config.SMTPHost, fmt.Sprintf("%d", s.config.SMTPPort))

	tlsConfig := &tls.Config{
		ServerName: s.config.SMTPHost,
		MinVersion: tls.VersionTLS12,
	}

	return s.sendWithSTARTTLS(ctx, addr, tlsConfig, msg)
}

// buildMessage constructs the email message with headers. Recipients go in the
// envelope only.
func (s *Sender) buildMessage(subject, body string) []byte {
	var msg strings.Builder

	msg.WriteString(fmt.Sprintf("From: %s\r\n", s.config.FromAddress))
	msg.WriteString("To: undisclosed-recipients:;\r\n")
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", sanitizeHeader(subject)))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))

	return []byte(msg.String())
}

func (s *Sender) sendWithSTARTTLS(ctx context.Context, addr string, tlsConfig *tls.Config, msg []byte) error {
	dialer := &net.Dialer{Timeout: s.config.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.config.SMTPHost)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	defer func() { _ = client.Close() }()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}

	if s.auth != nil {
		if err := client.Auth(s.auth); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}

	if err := client.Mail(extractEmail(s.config.FromAddress)); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}

	var added int
	for _, rcpt := range s.config.Recipients {
		if err := client.Rcpt(extractEmail(rcpt)); err != nil {
			slog.Warn("failed to add recipient", "error", err)
			continue
		}
		added++
	}
	if added == 0 {
		return errors.New("no valid recipients")
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

	return client.Quit()
}

// extractEmail extracts the address from formats like "Name <email@example.com>".
func extractEmail(address string) string {
	if idx := strings.Index(address, "<"); idx != -1 {
		end := strings.Index(address, ">")
		if end > idx {
			return address[idx+1 : end]
		}
	}
	return strings.TrimSpace(address)
}

func sanitizeHeader(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}
