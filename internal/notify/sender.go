// Package notify delivers message notifications: an HTTP sender for the
// external notifications service and the per-recipient fan-out that
// feeds it.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/devaloi/chatrooms/internal/domain"
)

// Sender delivers one notification. Delivery is best-effort; callers
// never fail their own operation over a send error.
type Sender interface {
	Send(ctx context.Context, n domain.Notification) error
}

// HTTPSender posts notifications to the notifications service.
type HTTPSender struct {
	baseURL string
	secret  string
	client  *http.Client
}

// NewHTTPSender builds a sender for the service at baseURL. The secret
// is injected into outgoing notifications that carry none.
func NewHTTPSender(baseURL, secret string) *HTTPSender {
	return &HTTPSender{
		baseURL: baseURL,
		secret:  secret,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts the notification, returning an error on transport failure
// or a non-2xx response.
func (s *HTTPSender) Send(ctx context.Context, n domain.Notification) error {
	if n.Secret == "" {
		n.Secret = s.secret
	}
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("notification encode: %w", err)
	}

	url := s.baseURL + "/notifications/v1/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("notification send: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notification send: %s returned %s", url, resp.Status)
	}
	return nil
}

// NopSender drops every notification. Used when the notifications
// service is not configured.
type NopSender struct{}

// Send discards the notification.
func (NopSender) Send(ctx context.Context, n domain.Notification) error {
	return nil
}
