package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/skyfleet/takeoff-tracker/pkg/logger"
)

const defaultTokenURL = "https://auth.opensky-network.org/auth/realms/opensky-network/protocol/openid-connect/token"

// Client fetches state vectors for the tracked fleet from an OpenSky-style
// REST feed.
type Client struct {
	httpClient *http.Client
	baseURL    string
	credsPath  string
	fleet      []string
	logger     *logger.Logger

	// Cached OAuth2 token (to reduce repeated token requests)
	token       string
	tokenExpiry time.Time
	tokenMu     sync.Mutex
}

// NewClient creates a new feed client. fleet is the tracked-aircraft
// allow-list of icao24 codes; the feed query is restricted to it.
func NewClient(baseURL, credsPath string, fleet []string, timeout time.Duration, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:   baseURL,
		credsPath: credsPath,
		fleet:     fleet,
		logger:    log.Named("feed"),
	}
}

// FetchBatch fetches one polling cycle's worth of snapshots for the
// tracked fleet.
func (c *Client) FetchBatch(ctx context.Context) (*Batch, error) {
	token, err := c.bearerToken()
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	for _, icao := range c.fleet {
		query.Add("icao24", icao)
	}
	urlStr := fmt.Sprintf("%s/states/all?%s", c.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.logger.Debug("Fetching state vectors",
		logger.String("url", c.baseURL),
		logger.Int("fleet_size", len(c.fleet)),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute feed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error("Unexpected feed status code",
			logger.Int("status_code", resp.StatusCode),
			logger.String("body", preview(body)))
		return nil, fmt.Errorf("unexpected feed status code: %d", resp.StatusCode)
	}

	var raw struct {
		Time   int64           `json:"time"`
		States [][]interface{} `json:"states"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse feed JSON: %w", err)
	}

	batch := &Batch{
		Time:      time.Unix(raw.Time, 0).UTC(),
		Snapshots: make([]PositionSnapshot, 0, len(raw.States)),
	}
	for _, s := range raw.States {
		batch.Snapshots = append(batch.Snapshots, parseStateVector(s))
	}

	c.logger.Debug("Fetched state vectors",
		logger.Int("count", len(batch.Snapshots)))

	return batch, nil
}

// bearerToken returns a valid OAuth2 token, reusing the cached one while it
// has not expired. Without a credentials file the client proceeds
// anonymously (rate limits apply).
func (c *Client) bearerToken() (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	if c.credsPath == "" {
		return "", nil
	}
	if _, err := os.Stat(c.credsPath); err != nil {
		c.logger.Warn("Feed credentials file not found - proceeding as anonymous (rate limits may apply)",
			logger.String("path", c.credsPath))
		return "", nil
	}

	b, err := os.ReadFile(c.credsPath)
	if err != nil {
		return "", fmt.Errorf("failed to read feed credentials: %w", err)
	}

	var creds struct {
		AccessToken  string `json:"access_token"`
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
		TokenURL     string `json:"token_url"`
	}
	if err := json.Unmarshal(b, &creds); err != nil {
		return "", fmt.Errorf("invalid feed credentials JSON: %w", err)
	}

	// An explicit access token in the file takes precedence.
	if creds.AccessToken != "" {
		c.token = creds.AccessToken
		c.tokenExpiry = time.Now().Add(29 * time.Minute)
		return c.token, nil
	}

	if creds.ClientID == "" || creds.ClientSecret == "" {
		return "", fmt.Errorf("feed credentials must contain access_token or client_id+client_secret")
	}

	tokenURL := creds.TokenURL
	if tokenURL == "" {
		tokenURL = defaultTokenURL
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", creds.ClientID)
	form.Set("client_secret", creds.ClientSecret)

	c.logger.Debug("Requesting feed OAuth2 token", logger.String("token_url", tokenURL))
	resp, err := http.PostForm(tokenURL, form)
	if err != nil {
		return "", fmt.Errorf("failed to request feed token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error("Feed token endpoint returned non-200",
			logger.Int("status", resp.StatusCode),
			logger.String("body", preview(body)))
		return "", fmt.Errorf("feed token endpoint error: %d", resp.StatusCode)
	}

	var tokResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokResp); err != nil {
		return "", fmt.Errorf("failed to decode feed token response: %w", err)
	}
	if tokResp.AccessToken == "" {
		return "", fmt.Errorf("feed token response did not contain access_token")
	}

	c.token = tokResp.AccessToken
	if tokResp.ExpiresIn > 60 {
		c.tokenExpiry = time.Now().Add(time.Duration(tokResp.ExpiresIn-30) * time.Second)
	} else {
		c.tokenExpiry = time.Now().Add(29 * time.Minute)
	}

	return c.token, nil
}

func preview(body []byte) string {
	const max = 200
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
