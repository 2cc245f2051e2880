// Package email delivers rendered notification copy.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/louisbranch/hiring.space/internal/platform/logger"
	"github.com/louisbranch/hiring.space/internal/platform/timeouts"
	"github.com/louisbranch/hiring.space/internal/services/notifications/render"
	"go.uber.org/zap"
)

// DefaultResendURL is the Resend send endpoint.
const DefaultResendURL = "https://api.resend.com/emails"

const maxErrorBody = 512

// Sender delivers one rendered email.
type Sender interface {
	Send(ctx context.Context, msg render.Email) error
}

// SendError is a non-2xx reply from the email provider.
type SendError struct {
	StatusCode int
	Body       string
}

func (e *SendError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("email provider returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("email provider returned status %d: %s", e.StatusCode, e.Body)
}

// Permanent reports whether retrying the same request cannot succeed.
// Rate limiting and timeouts are retried; other client errors are not.
func (e *SendError) Permanent() bool {
	if e.StatusCode == http.StatusTooManyRequests || e.StatusCode == http.StatusRequestTimeout {
		return false
	}
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// ResendSender sends through the Resend HTTP API.
type ResendSender struct {
	apiKey   string
	from     string
	endpoint string
	client   *http.Client
	log      *zap.Logger
}

// ResendOption customizes a ResendSender.
type ResendOption func(*ResendSender)

// WithEndpoint overrides the send endpoint.
func WithEndpoint(endpoint string) ResendOption {
	return func(s *ResendSender) { s.endpoint = endpoint }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) ResendOption {
	return func(s *ResendSender) { s.client = client }
}

// NewResendSender builds a Resend sender; apiKey and from are required.
func NewResendSender(apiKey, from string, log *zap.Logger, opts ...ResendOption) (*ResendSender, error) {
	apiKey = strings.TrimSpace(apiKey)
	from = strings.TrimSpace(from)
	if apiKey == "" {
		return nil, fmt.Errorf("email api key is required")
	}
	if from == "" {
		return nil, fmt.Errorf("email from address is required")
	}
	s := &ResendSender{
		apiKey:   apiKey,
		from:     from,
		endpoint: DefaultResendURL,
		client:   &http.Client{Timeout: timeouts.HTTPClient},
		log:      logger.OrNop(log),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

type resendResponse struct {
	ID string `json:"id"`
}

// Send posts msg to Resend.
func (s *ResendSender) Send(ctx context.Context, msg render.Email) error {
	to := strings.TrimSpace(msg.To.Email)
	if to == "" {
		return &SendError{StatusCode: http.StatusUnprocessableEntity, Body: "recipient email is required"}
	}
	if name := strings.TrimSpace(msg.To.Name); name != "" {
		to = fmt.Sprintf("%s <%s>", name, to)
	}
	body, err := json.Marshal(resendRequest{From: s.from, To: []string{to}, Subject: msg.Subject, Text: msg.Text})
	if err != nil {
		return fmt.Errorf("encode email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &SendError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	var reply resendResponse
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		s.log.Debug("email reply not decoded", zap.Error(err))
	}
	s.log.Debug("email sent", zap.String("provider_id", reply.ID), zap.String("subject", msg.Subject))
	return nil
}

// LogSender writes emails to the log instead of sending them.
type LogSender struct {
	log *zap.Logger
}

// NewLogSender builds a log-only sender.
func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: logger.OrNop(log)}
}

// Send logs msg.
func (s *LogSender) Send(_ context.Context, msg render.Email) error {
	s.log.Info("email not sent; no provider configured",
		zap.String("to", msg.To.Email),
		zap.String("subject", msg.Subject),
		zap.String("text", logger.Truncate(msg.Text, 200)),
	)
	return nil
}
