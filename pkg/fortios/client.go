// Package fortios is a small client for the FortiOS monitor REST API.
//
// It covers the two endpoints the conserve mode monitor needs and maps every
// failure onto a Kind (connection, auth, malformed) at the transport boundary.
package fortios

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// API endpoint paths.
const (
	PerformanceStatusPath = "/api/v2/monitor/system/performance/status"
	RunningProcessesPath  = "/api/v2/monitor/system/running-processes"
)

// DefaultTimeout bounds a single request when Options.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 16 << 20

// Options configures a Client.
type Options struct {
	// Timeout bounds each request. Must be shorter than the poll interval.
	Timeout time.Duration

	// InsecureSkipVerify disables TLS certificate checks. Appliances usually
	// serve self-signed certificates.
	InsecureSkipVerify bool

	// RequestsPerSecond limits calls to one appliance (0 = unlimited).
	RequestsPerSecond float64

	// Burst is the limiter burst size (minimum 1).
	Burst int

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// Client talks to a single appliance.
type Client struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a client for host, which may be "addr", "addr:port",
// or a full URL with scheme.
func NewClient(host, apiKey string, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				TLSClientConfig:     &tls.Config{InsecureSkipVerify: opts.InsecureSkipVerify}, //nolint:gosec // self-signed appliance certs
				TLSHandshakeTimeout: timeout,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}

	return &Client{
		baseURL: baseURL(host),
		apiKey:  apiKey,
		timeout: timeout,
		http:    httpClient,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// baseURL normalizes a configured host into a URL prefix.
func baseURL(host string) string {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if strings.Contains(host, "://") {
		return host
	}
	return "https://" + host
}

// BaseURL returns the URL prefix requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Close releases idle connections held by the client.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// PerformanceStatus fetches CPU and memory utilization.
// The raw body is returned alongside the decoded value for forensic logging.
func (c *Client) PerformanceStatus(ctx context.Context) (*PerformanceStatus, []byte, error) {
	body, err := c.get(ctx, PerformanceStatusPath)
	if err != nil {
		return nil, body, err
	}
	status, err := DecodePerformanceStatus(body)
	if err != nil {
		return nil, body, c.wrapDecode(PerformanceStatusPath, body, err)
	}
	return status, body, nil
}

// RunningProcesses fetches the process table.
func (c *Client) RunningProcesses(ctx context.Context) ([]Process, []byte, error) {
	body, err := c.get(ctx, RunningProcessesPath)
	if err != nil {
		return nil, body, err
	}
	procs, err := DecodeProcesses(body)
	if err != nil {
		return nil, body, c.wrapDecode(RunningProcessesPath, body, err)
	}
	return procs, body, nil
}

func (c *Client) wrapDecode(endpoint string, body []byte, err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		apiErr.Endpoint = endpoint
		apiErr.Body = body
		return apiErr
	}
	return &APIError{Kind: KindMalformed, Endpoint: endpoint, StatusCode: http.StatusOK, Body: body, Err: err}
}

// get performs one authenticated GET. A cancelled parent context is returned
// as-is so callers can tell shutdown apart from a device failure.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &APIError{Kind: KindConnection, Endpoint: path, Err: err}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, &APIError{Kind: KindConnection, Endpoint: path, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &APIError{Kind: KindConnection, Endpoint: path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &APIError{Kind: KindConnection, Endpoint: path, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return body, &APIError{
			Kind:       kindForStatus(resp.StatusCode),
			Endpoint:   path,
			StatusCode: resp.StatusCode,
			Body:       body,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	return body, nil
}
