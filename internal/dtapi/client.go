// Package dtapi is a minimal Dynatrace REST client, used to verify that
// an API token can reach the cluster before a backup run starts.
package dtapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to a single Dynatrace environment.
type Client struct {
	BaseURL string
	Token   string

	httpClient *http.Client
}

// New creates a Client for the given environment URL and API token.
func New(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// StatusError reports a non-success HTTP response from the cluster.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("dynatrace api: status %d: %s", e.Code, e.Body)
}

// ClusterVersion calls GET /api/v1/config/clusterversion and returns the
// reported version. A successful call proves both connectivity and token
// validity.
func (c *Client) ClusterVersion(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/v1/config/clusterversion", nil)
	if err != nil {
		return "", fmt.Errorf("cannot create request: %w", err)
	}
	req.Header.Set("Authorization", "Api-Token "+c.Token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("cluster request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 16*1024))
	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var payload struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("cannot parse cluster version response: %w", err)
	}
	if payload.Version == "" {
		return "", fmt.Errorf("cluster version response missing version field")
	}
	return payload.Version, nil
}
