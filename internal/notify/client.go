package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/skyfleet/takeoff-tracker/pkg/logger"
)

// RateLimitError indicates the posting endpoint rejected the request for
// rate limiting; delivery may be retried after a backoff.
type RateLimitError struct {
	RetryAfter string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter != "" {
		return fmt.Sprintf("rate limited (retry after %s)", e.RetryAfter)
	}
	return "rate limited"
}

// StatusClient posts status updates to a social platform API endpoint.
type StatusClient struct {
	httpClient *http.Client
	postURL    string
	bearer     string
	logger     *logger.Logger
}

// NewStatusClient creates a new status-posting client.
func NewStatusClient(postURL, bearerToken string, timeout time.Duration, log *logger.Logger) *StatusClient {
	return &StatusClient{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		postURL: postURL,
		bearer:  bearerToken,
		logger:  log.Named("status-client"),
	}
}

// PostStatus delivers one status update. A 429 response is surfaced as a
// RateLimitError so the caller can apply its retry policy.
func (c *StatusClient) PostStatus(ctx context.Context, text string) error {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("failed to marshal status body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.postURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create status request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.bearer)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute status request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{RetryAfter: resp.Header.Get("Retry-After")}
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		c.logger.Debug("Status posted", logger.Int("status_code", resp.StatusCode))
		return nil
	default:
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status endpoint returned %d: %s", resp.StatusCode, string(respBody))
	}
}
