// Package registry talks to the national business registry: a bounded-timeout
// existence check, a headless-browser enrichment scrape, and the VTA (de
// minimis aid) remnant check. All calls are best-effort network I/O against
// pages the registry may reshape at any time.
package registry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is the public company registry.
	DefaultBaseURL = "https://ariregister.rik.ee"

	// notFoundMarker appears on the company page when the code resolves to
	// nothing. The registry answers 200 either way.
	notFoundMarker = "ei leitud"

	requestTimeout = 15 * time.Second
)

type Client struct {
	baseURL string
	vtaURL  string
	httpc   *http.Client
	logger  *zap.Logger
}

func NewClient(baseURL, vtaURL string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		vtaURL:  vtaURL,
		httpc:   &http.Client{Timeout: requestTimeout},
		logger:  logger,
	}
}

func (c *Client) companyURL(code string) string {
	return fmt.Sprintf("%s/est/company/%s", c.baseURL, code)
}

// Exists confirms the registry code resolves to a real registry entry: an
// HTTP 200 whose body carries no not-found marker.
func (c *Client) Exists(ctx context.Context, code string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.companyURL(code), nil)
	if err != nil {
		return false, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return false, fmt.Errorf("registry lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("registry lookup returned non-200",
			zap.String("registry_code", code),
			zap.Int("status", resp.StatusCode))
		return false, nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return false, fmt.Errorf("registry lookup: read body: %w", err)
	}
	return !strings.Contains(strings.ToLower(string(body)), notFoundMarker), nil
}
