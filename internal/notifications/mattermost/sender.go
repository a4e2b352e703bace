// Package mattermost posts recalculation summaries to a Mattermost incoming webhook.
package mattermost

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	defaultTimeout  = 10 * time.Second
	defaultUsername = "Incident Metrics"
	maxErrorBody    = 512
)

// ErrNoWebhook is returned when the sender has no webhook URL.
var ErrNoWebhook = errors.New("mattermost webhook URL is empty")

// Config holds Mattermost sender configuration.
type Config struct {
	WebhookURL string
	Username   string
	IconURL    string
	Timeout    time.Duration
}

// Sender posts messages to one incoming webhook.
type Sender struct {
	config     Config
	httpClient *http.Client
}

// NewSender creates a new Mattermost sender.
func NewSender(config Config) *Sender {
	if config.Username == "" {
		config.Username = defaultUsername
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}

	return &Sender{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

type webhookPayload struct {
	Text     string `json:"text"`
	Username string `json:"username,omitempty"`
	IconURL  string `json:"icon_url,omitempty"`
}

// Send posts a message. A non-empty title is rendered as a markdown heading.
func (s *Sender) Send(ctx context.Context, title, body string) error {
	if s.config.WebhookURL == "" {
		return ErrNoWebhook
	}

	text := body
	if title != "" {
		text = fmt.Sprintf("### %s\n\n%s", title, body)
	}

	payload, err := json.Marshal(webhookPayload{
		Text:     text,
		Username: s.config.Username,
		IconURL:  s.config.IconURL,
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &StatusError{Message: fmt.Sprintf("send request: %v", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusOK {
		slog.Debug("mattermost message sent", "webhook", maskWebhookURL(s.config.WebhookURL))
		return nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{Code: resp.StatusCode, Message: string(bytes.TrimSpace(respBody))}
}

// maskWebhookURL hides the webhook key for logging.
func maskWebhookURL(url string) string {
	if len(url) > 40 {
		return url[:20] + "..." + url[len(url)-10:]
	}
	return url
}

// StatusError is a failed webhook delivery. Code is zero for transport errors.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("mattermost error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("mattermost error: %s", e.Message)
}

// Temporary reports whether retrying the delivery may succeed.
func (e *StatusError) Temporary() bool {
	return e.Code == 0 || e.Code == http.StatusTooManyRequests || e.Code >= http.StatusInternalServerError
}

// Channel returns the channel name used in logs and metrics.
func (s *Sender) Channel() string {
	return "mattermost"
}
