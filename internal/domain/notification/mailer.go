package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"tourbooking/internal/logger"
)

// Email is a rendered message ready for a transport.
type Email struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

type Mailer interface {
	Send(ctx context.Context, e Email) error
}

// TransientError marks failures worth one retry: network errors, 429 and 5xx.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

type resendPayload struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
}

// HTTPMailer posts messages to a Resend-compatible JSON API.
type HTTPMailer struct {
	apiURL string
	apiKey string
	from   string
	client *http.Client
}

func NewHTTPMailer(apiURL, apiKey, from string, timeout time.Duration) *HTTPMailer {
	return &HTTPMailer{
		apiURL: apiURL,
		apiKey: apiKey,
		from:   from,
		client: &http.Client{Timeout: timeout},
	}
}

func (m *HTTPMailer) Send(ctx context.Context, e Email) error {
	body, err := json.Marshal(resendPayload{
		From:    m.from,
		To:      []string{e.To},
		Subject: e.Subject,
		HTML:    e.HTML,
		Text:    e.Text,
	})
	if err != nil {
		return fmt.Errorf("encode email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build mail request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
			return &TransientError{Err: fmt.Errorf("mail api: %w", err)}
		}
		return fmt.Errorf("mail api: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return &TransientError{Err: fmt.Errorf("mail api status %s", resp.Status)}
	default:
		return fmt.Errorf("mail api status %s", resp.Status)
	}
}

// LogMailer writes messages to the log instead of sending them. Used when no
// mail API key is configured.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, e Email) error {
	logger.WithContext(ctx).Info("mock email",
		"to", e.To,
		"subject", e.Subject,
		"body", e.Text,
	)
	return nil
}
