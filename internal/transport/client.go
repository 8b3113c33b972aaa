package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
)

const (
	defaultTimeout  = 10 * time.Second
	maxErrorBody    = 1 << 16
	maxResponseBody = 8 << 20

	meterName = "finitefield.org/retail-console/transport"

	connectivityMessage = "Connection error, please try again"
	decodeMessage       = "Unexpected response from server"
)

// HTTPClient is satisfied by *http.Client.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// Notifier receives user-facing messages for failed writes.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, message string)

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, message string) {
	f(ctx, message)
}

// Validator is implemented by response payloads that carry required fields.
type Validator interface {
	Validate() error
}

// Request describes one JSON call relative to the base path.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Header http.Header
}

// Client is the single egress point to the retail API.
type Client struct {
	base     *url.URL
	client   HTTPClient
	timeout  time.Duration
	notifier Notifier
	logger   *zap.Logger
	meter    metric.Meter
	requests metric.Int64Counter
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client. The default is instrumented with otelhttp.
func WithHTTPClient(client HTTPClient) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithNotifier sets the surface that receives messages for failed writes.
func WithNotifier(notifier Notifier) Option {
	return func(c *Client) {
		c.notifier = notifier
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMeterProvider sets where request counts are recorded. The default is the global provider.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(c *Client) {
		if provider != nil {
			c.meter = provider.Meter(meterName)
		}
	}
}

// New constructs a Client rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("transport: base URL is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("transport: parse base URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("transport: base URL %q must be absolute", baseURL)
	}
	if !strings.HasSuffix(parsed.Path, "/") {
		parsed.Path += "/"
	}

	c := &Client{
		base:    parsed,
		timeout: defaultTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = &http.Client{
			Timeout:   c.timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	c.logger = c.logger.Named("transport")

	if c.meter == nil {
		c.meter = otel.Meter(meterName)
	}
	requests, err := c.meter.Int64Counter("retail.api.requests",
		metric.WithDescription("Requests sent to the retail API, by method and outcome."),
	)
	if err != nil {
		c.logger.Warn("request counter unavailable", zap.Error(err))
		requests, _ = noop.Meter{}.Int64Counter("retail.api.requests")
	}
	c.requests = requests
	return c, nil
}

// Get performs a GET and decodes the body into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

// Fetch is the read helper: any failure is logged and reported as "no data".
func (c *Client) Fetch(ctx context.Context, path string, query url.Values, out any) bool {
	if err := c.Get(ctx, path, query, out); err != nil {
		c.logger.Debug("fetch failed",
			zap.String("path", path),
			zap.String("kind", string(KindOf(err))),
			zap.Error(err),
		)
		return false
	}
	return true
}

// Mutate is the write helper: failures are handed to the Notifier before being returned.
func (c *Client) Mutate(ctx context.Context, method, path string, body, out any) error {
	err := c.Do(ctx, Request{Method: method, Path: path, Body: body}, out)
	if err != nil {
		c.logger.Info("mutation failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		if c.notifier != nil {
			c.notifier.Notify(ctx, MessageOf(err))
		}
	}
	return err
}

// Do sends one JSON request and decodes a 2xx body into out (skipped when out is nil).
func (c *Client) Do(ctx context.Context, r Request, out any) error {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	err := c.do(ctx, method, r, out)
	outcome := "ok"
	if err != nil {
		outcome = string(KindOf(err))
	}
	c.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("outcome", outcome),
	))
	return err
}

func (c *Client) do(ctx context.Context, method string, r Request, out any) error {
	fail := func(kind Kind, status int, message string, cause error) error {
		return &Error{Kind: kind, Method: method, Path: r.Path, Status: status, Message: message, Err: cause}
	}

	req, err := c.newJSONRequest(ctx, method, r.Path, r.Query, r.Body)
	if err != nil {
		return fail(KindConnectivity, 0, connectivityMessage, err)
	}
	for key, values := range r.Header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	started := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return fail(KindConnectivity, 0, connectivityMessage, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("api request",
		zap.String("method", method),
		zap.String("path", r.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(started)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fail(KindServer, resp.StatusCode, serverMessage(resp.StatusCode, body), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fail(KindConnectivity, resp.StatusCode, connectivityMessage, err)
	}
	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return fail(KindDecode, resp.StatusCode, decodeMessage, errors.New("empty body"))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fail(KindDecode, resp.StatusCode, decodeMessage, err)
	}
	if v, ok := out.(Validator); ok {
		if err := v.Validate(); err != nil {
			return fail(KindDecode, resp.StatusCode, decodeMessage, err)
		}
	}
	return nil
}

func (c *Client) newJSONRequest(ctx context.Context, method, endpoint string, query url.Values, payload any) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(payload); err != nil {
			return nil, fmt.Errorf("transport: encode payload: %w", err)
		}
		body = &buf
	}
	req, err := http.NewRequestWithContext(ctx, method, c.resolve(endpoint, query), body)
	if err != nil {
		return nil, fmt.Errorf("transport: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) resolve(endpoint string, query url.Values) string {
	ref := &url.URL{Path: strings.TrimPrefix(endpoint, "/")}
	resolved := c.base.ResolveReference(ref)
	if len(query) > 0 {
		resolved.RawQuery = query.Encode()
	}
	return resolved.String()
}

// serverMessage prefers the API's detail field, then the raw body, then the status text.
func serverMessage(status int, body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 {
		var payload struct {
			Detail json.RawMessage `json:"detail"`
		}
		if err := json.Unmarshal(trimmed, &payload); err == nil && len(payload.Detail) > 0 && string(payload.Detail) != "null" {
			var detail string
			if err := json.Unmarshal(payload.Detail, &detail); err == nil {
				return detail
			}
			return string(payload.Detail)
		}
		return string(trimmed)
	}
	return http.StatusText(status)
}
