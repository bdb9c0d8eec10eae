package mdall

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"devicelink/internal/platform/logger"
	"devicelink/internal/platform/metrics"
)

// Endpoint names used in errors, logs and metrics.
const (
	EndpointIdentifier = "deviceidentifier"
	EndpointDevice     = "device"
)

const maxBodyBytes = 8 << 20

// Client queries the MDALL identifier and device endpoints. It performs a
// single HTTP request per call; retry policy belongs to the caller.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	userAgent  string
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default client. Its Timeout is left as given.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a client rooted at baseURL (e.g.
// https://health-products.canada.ca/api/medical-devices). timeout bounds each
// individual call.
func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid lookup base URL %q: %w", baseURL, err)
	}
	if timeout <= 0 {
		return nil, errors.New("lookup timeout must be positive")
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		timeout:    timeout,
		userAgent:  "devicelink/1.0",
		logger:     logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FindByIdentifier queries the identifier endpoint. A non-2xx status or an
// empty body is reported as no matches, not as an error.
func (c *Client) FindByIdentifier(ctx context.Context, identifier string, state ListingState) ([]Match, error) {
	params := url.Values{}
	params.Set("device_identifier", identifier)
	if state == Archived {
		params.Set("state", string(Archived))
	}

	start := time.Now()
	status, body, err := c.get(ctx, EndpointIdentifier, "/deviceidentifier/", params)
	if err != nil {
		c.metrics.ObserveLookup(EndpointIdentifier, "error", time.Since(start))
		return nil, err
	}
	if !isSuccess(status) {
		c.logger.DebugContext(ctx, "identifier query returned non-success status",
			"device_identifier", identifier,
			"state", state,
			"status", status,
		)
		c.metrics.ObserveLookup(EndpointIdentifier, "status", time.Since(start))
		return nil, nil
	}

	matches, err := decodeMatches(body)
	if err != nil {
		c.metrics.ObserveLookup(EndpointIdentifier, "error", time.Since(start))
		return nil, NewLookupError(ErrorBadData, EndpointIdentifier, "decode identifier response", err)
	}

	result := "empty"
	if len(matches) > 0 {
		result = "match"
	}
	c.metrics.ObserveLookup(EndpointIdentifier, result, time.Since(start))
	return matches, nil
}

// Device fetches the device record for id. Unlike the identifier query, a
// non-2xx status is an error: the id came from the service itself.
func (c *Client) Device(ctx context.Context, id DeviceID, state ListingState) (*Device, error) {
	params := url.Values{}
	params.Set("id", id.String())
	if state == Archived {
		params.Set("state", string(Archived))
	}

	start := time.Now()
	status, body, err := c.get(ctx, EndpointDevice, "/device/", params)
	if err != nil {
		c.metrics.ObserveLookup(EndpointDevice, "error", time.Since(start))
		return nil, err
	}
	if status == http.StatusTooManyRequests {
		c.metrics.ObserveLookup(EndpointDevice, "status", time.Since(start))
		return nil, NewLookupError(ErrorRateLimited, EndpointDevice, "rate limited", nil)
	}
	if !isSuccess(status) {
		c.metrics.ObserveLookup(EndpointDevice, "status", time.Since(start))
		return nil, NewLookupError(ErrorServiceOutage, EndpointDevice,
			fmt.Sprintf("unexpected status code: %d", status), nil)
	}

	fields, err := decodeDevice(body)
	if err != nil {
		c.metrics.ObserveLookup(EndpointDevice, "error", time.Since(start))
		return nil, NewLookupError(ErrorBadData, EndpointDevice, "decode device response", err)
	}

	c.metrics.ObserveLookup(EndpointDevice, "match", time.Since(start))
	device := deviceFromFields(id, fields)
	return &device, nil
}

func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values) (int, []byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	fullURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())
	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, fullURL, nil)
	if err != nil {
		return 0, nil, NewLookupError(ErrorInternal, endpoint, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, classifyTransportError(ctx, endpoint, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, classifyTransportError(ctx, endpoint, "read response body", err)
	}
	return resp.StatusCode, body, nil
}

// classifyTransportError separates caller cancellation (not retryable) from
// per-call timeouts and connection failures (retryable).
func classifyTransportError(parent context.Context, endpoint, message string, err error) *LookupError {
	if parent.Err() != nil {
		return NewLookupError(ErrorCanceled, endpoint, message, parent.Err())
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return NewLookupError(ErrorTimeout, endpoint, message, err)
	}
	return NewLookupError(ErrorServiceOutage, endpoint, message, err)
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func isBlank(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("{}"))
}

func decodeMatches(body []byte) ([]Match, error) {
	if isBlank(body) {
		return nil, nil
	}
	var matches []Match
	if err := json.Unmarshal(body, &matches); err != nil {
		return nil, err
	}
	return matches, nil
}

// decodeDevice accepts either a device object or a list whose first element
// is the device object.
func decodeDevice(body []byte) (map[string]any, error) {
	trimmed := bytes.TrimSpace(body)
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []map[string]any
		if err := dec.Decode(&list); err != nil {
			return nil, err
		}
		if len(list) == 0 {
			return nil, errors.New("empty device list")
		}
		return list[0], nil
	}

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, errors.New("empty device record")
	}
	return fields, nil
}
