package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"jukebox/internal/config"
)

const userAgent = "Jukebox-Ingest/0.1.0"

// HTTPDoer describes the HTTP client used by the provider client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client resolves catalog references to stream formats and opens the streams.
type Client struct {
	baseURL string
	client  HTTPDoer
	limiter *rate.Limiter
}

// NewClient builds a provider client from configuration. When a proxy URL is
// configured (or supplied via JUKEBOX_PROXY_URL) all upstream requests are
// routed through it, credentials included.
func NewClient(cfg *config.Config) (*Client, error) {
	timeout := time.Duration(cfg.Provider.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxy := strings.TrimSpace(cfg.Provider.ProxyURL); proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	perMinute := cfg.Provider.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = 60
	}

	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.Provider.BaseURL), "/"),
		client:  &http.Client{Timeout: timeout, Transport: transport},
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), 1),
	}, nil
}

// NewClientWithDoer constructs a provider client around an explicit HTTP doer
// (used in tests).
func NewClientWithDoer(baseURL string, doer HTTPDoer) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  doer,
		limiter: rate.NewLimiter(rate.Inf, 1),
	}
}

// Resolve fetches the available stream formats for a catalog reference.
func (c *Client) Resolve(ctx context.Context, reference string) ([]Format, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/streams/%s", c.baseURL, url.PathEscape(reference))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build resolve request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", reference, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("resolve %s: provider returned %d: %s", reference, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		Formats []Format `json:"formats"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode formats: %w", err)
	}
	return payload.Formats, nil
}

// OpenStream opens the byte stream for a resolved format. The caller owns the
// returned reader and must close it.
func (c *Client) OpenStream(ctx context.Context, reference string, format Format) (io.ReadCloser, error) {
	if strings.TrimSpace(format.URL) == "" {
		return nil, fmt.Errorf("open stream %s: format has no url", reference)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, format.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open stream %s: %w", reference, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		resp.Body.Close()
		return nil, fmt.Errorf("open stream %s: provider returned %d: %s", reference, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return resp.Body, nil
}
