package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"time"

	"deskie/internal/presence"
)

// Sink receives away alerts. Implementations are best effort.
type Sink interface {
	Name() string
	Send(ctx context.Context, a presence.AwayAlert) error
}

const DefaultTimeout = 10 * time.Second

// NewHTTPClient returns a client with dial and overall timeouts set.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        2,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 5 * time.Second,
		},
	}
}

// Webhook posts IFTTT maker style payloads.
type Webhook struct {
	url    string
	client *http.Client
}

type webhookPayload struct {
	Value1 string `json:"value1"`
}

func NewWebhook(url string, client *http.Client) *Webhook {
	if client == nil {
		client = NewHTTPClient(DefaultTimeout)
	}
	return &Webhook{url: url, client: client}
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Send(ctx context.Context, a presence.AwayAlert) error {
	body, err := json.Marshal(webhookPayload{Value1: fmt.Sprintf("Mode: %s", a.Mode)})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook post failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
	return nil
}

// Fanout delivers an alert to every sink and logs failures.
type Fanout []Sink

// Notify never returns an error; a failing sink is logged and skipped.
func (f Fanout) Notify(ctx context.Context, a presence.AwayAlert) int {
	delivered := 0
	for _, s := range f {
		if err := s.Send(ctx, a); err != nil {
			log.Printf("Alert via %s failed: %v", s.Name(), err)
			continue
		}
		delivered++
	}
	return delivered
}
