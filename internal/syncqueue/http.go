package syncqueue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPSender posts each item as JSON to an endpoint
type HTTPSender struct {
	endpoint string
	client   *http.Client
}

// NewHTTPSender creates a sender for endpoint
func NewHTTPSender(endpoint string, timeout time.Duration) *HTTPSender {
	return &HTTPSender{endpoint: endpoint, client: &http.Client{Timeout: timeout}}
}

// Send posts item and expects a 2xx response
func (s *HTTPSender) Send(ctx context.Context, item Item) error {
	body, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encoding item: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", item.ID)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}
