package revalidate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ablaqll/pmpk-website-sub000/shared/events"
	"github.com/ablaqll/pmpk-website-sub000/shared/metrics"
	"github.com/google/uuid"
)

const SecretHeader = "X-Revalidate-Secret"

var ErrNoEndpoint = errors.New("revalidation endpoint not configured")

// Notification tells the public site which pages to rebuild
type Notification struct {
	EventID    string           `json:"eventId"`
	Type       events.EventType `json:"type"`
	Entity     string           `json:"entity"`
	ClientID   uuid.UUID        `json:"clientId"`
	ClientSlug string           `json:"clientSlug"`
	ItemID     uuid.UUID        `json:"itemId"`
	OccurredAt time.Time        `json:"occurredAt"`
}

func NewNotification(event events.ContentEvent, clientSlug string) Notification {
	return Notification{
		EventID:    event.ID,
		Type:       event.Type,
		Entity:     event.Entity,
		ClientID:   event.ClientID,
		ClientSlug: clientSlug,
		ItemID:     event.ItemID,
		OccurredAt: event.OccurredAt,
	}
}

// Client posts notifications to the presentation layer's revalidation hook
type Client struct {
	endpoint   string
	secret     string
	httpClient *http.Client

	mutex       sync.RWMutex
	connected   bool
	lastSuccess time.Time
	lastError   error
	delivered   int64
	failed      int64
}

func NewClient(endpoint, secret string) *Client {
	return &Client{
		endpoint: endpoint,
		secret:   secret,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Deliver posts an encoded notification; any non-2xx answer is a failure
func (c *Client) Deliver(ctx context.Context, payload []byte) error {
	err := c.post(ctx, payload)

	c.mutex.Lock()
	defer c.mutex.Unlock()
	if err != nil {
		c.failed++
		c.lastError = err
		metrics.WebhookDeliveriesTotal.WithLabelValues("failed").Inc()
		return err
	}
	c.delivered++
	c.connected = true
	c.lastSuccess = time.Now()
	c.lastError = nil
	metrics.WebhookDeliveriesTotal.WithLabelValues("delivered").Inc()
	return nil
}

func (c *Client) post(ctx context.Context, payload []byte) error {
	if c.endpoint == "" {
		return ErrNoEndpoint
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.secret != "" {
		req.Header.Set(SecretHeader, c.secret)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send revalidation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("revalidation endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// GetStatus returns the current delivery status
func (c *Client) GetStatus() map[string]interface{} {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	status := map[string]interface{}{
		"connected":    c.connected,
		"endpoint":     c.endpoint,
		"last_success": c.lastSuccess,
		"delivered":    c.delivered,
		"failed":       c.failed,
	}
	if c.lastError != nil {
		status["last_error"] = c.lastError.Error()
	}
	return status
}

// Encode serializes n for delivery and for storage in the retry table
func Encode(n Notification) ([]byte, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification: %w", err)
	}
	return payload, nil
}
