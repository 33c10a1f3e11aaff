package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	integration "github.com/CuracelDev/curacel-peoplev2-sub001/internal/integration/models"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/platform/tracing"
	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/platform/circuit"
)

// maxResponseBytes bounds how much of a provider response is read.
const maxResponseBytes = 4 << 20

// StatusError is a non-2xx provider response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, truncate(e.Body, 200))
}

func (e *StatusError) summary() string {
	switch CategoryForStatus(e.StatusCode) {
	case CategoryAuthentication:
		return "credentials rejected"
	case CategoryNotFound:
		return "resource not found"
	case CategoryTransient:
		if e.StatusCode == http.StatusTooManyRequests {
			return "rate limited"
		}
		return "provider unavailable"
	}
	return fmt.Sprintf("request rejected with HTTP %d", e.StatusCode)
}

// CategoryForStatus maps an HTTP status to a failure category.
func CategoryForStatus(code int) Category {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return CategoryAuthentication
	case code == http.StatusNotFound:
		return CategoryNotFound
	case code == http.StatusTooManyRequests || code == http.StatusRequestTimeout:
		return CategoryTransient
	case code >= 500:
		return CategoryTransient
	}
	return CategoryConfiguration
}

// HasStatus reports whether err is a StatusError with one of codes.
func HasStatus(err error, codes ...int) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return slices.Contains(codes, se.StatusCode)
}

// Request describes one provider call. Path is joined to the base URL unless
// it is absolute.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    any
	Form    url.Values
	Headers map[string]string
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the JSON body into v. An empty body leaves v untouched.
func (r *Response) Decode(v any) error {
	if v == nil || len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// HTTPClient performs JSON calls against one provider with a per-call
// timeout, an optional credential chain and an optional circuit breaker.
type HTTPClient struct {
	provider integration.Provider
	baseURL  string
	client   *http.Client
	timeout  time.Duration
	auth     *AuthChain
	headers  map[string]string
	breaker  *circuit.Breaker
	logger   *slog.Logger
}

type ClientOption func(*HTTPClient)

// WithAuth routes every call through chain.
func WithAuth(chain *AuthChain) ClientOption {
	return func(c *HTTPClient) {
		c.auth = chain
	}
}

// WithHeader sets a header on every call.
func WithHeader(key, value string) ClientOption {
	return func(c *HTTPClient) {
		c.headers[key] = value
	}
}

// WithBearer is WithAuth with a single bearer token.
func WithBearer(token string) ClientOption {
	return WithAuth(NewAuthChain(Credential{Name: "bearer", Header: "Bearer " + token}))
}

func newHTTPClient(provider integration.Provider, baseURL string, cfg Config, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		provider: provider,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   cfg.HTTPClient,
		timeout:  cfg.Timeout,
		headers:  map[string]string{"Accept": "application/json"},
		breaker:  cfg.Breaker,
		logger:   cfg.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the root URL calls are made against.
func (c *HTTPClient) BaseURL() string { return c.baseURL }

// Do executes req. Non-2xx responses are returned as *StatusError; when a
// credential chain is configured, 401 and 403 responses move on to the next
// credential before failing.
func (c *HTTPClient) Do(ctx context.Context, req Request) (*Response, error) {
	if c.breaker != nil && !c.breaker.Allow() {
		return nil, Errorf(c.provider, CategoryTransient, "%s is failing repeatedly; calls paused", strings.ToLower(string(c.provider)))
	}

	ctx, span := tracing.StartSpan(ctx, "connector.http",
		tracing.AttrProvider.String(string(c.provider)),
		attribute.String("http.method", req.Method),
		attribute.String("http.path", req.Path),
	)
	var (
		resp *Response
		err  error
	)
	if c.auth == nil {
		resp, err = c.send(ctx, req, "")
	} else {
		err = c.auth.Execute(func(header string) error {
			var sendErr error
			resp, sendErr = c.send(ctx, req, header)
			return sendErr
		})
	}
	tracing.EndSpan(span, err == nil, err)
	c.record(err)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *HTTPClient) record(err error) {
	if c.breaker == nil {
		return
	}
	if err != nil && AsError(c.provider, err).Category == CategoryTransient {
		if _, change := c.breaker.RecordFailure(); change.Opened {
			c.logger.Warn("provider circuit opened", "provider", c.provider, "breaker", c.breaker.Name())
		}
		return
	}
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.Info("provider circuit closed", "provider", c.provider, "breaker", c.breaker.Name())
	}
}

func (c *HTTPClient) send(ctx context.Context, req Request, authorization string) (*Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	target := req.Path
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	}
	if len(req.Query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + req.Query.Encode()
	}

	var body io.Reader
	contentType := ""
	switch {
	case req.Form != nil:
		body = strings.NewReader(req.Form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case req.Body != nil:
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return nil, WrapError(c.provider, CategoryConfiguration, err, "encode request body")
		}
		body = bytes.NewReader(encoded)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, WrapError(c.provider, CategoryConfiguration, err, "build request")
	}
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if authorization != "" {
		httpReq.Header.Set("Authorization", authorization)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		c.logger.DebugContext(ctx, "provider call failed",
			"provider", c.provider,
			"method", req.Method,
			"path", req.Path,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return nil, err
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	c.logger.DebugContext(ctx, "provider call",
		"provider", c.provider,
		"method", req.Method,
		"path", req.Path,
		"status", httpResp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, &StatusError{Method: req.Method, Path: req.Path, StatusCode: httpResp.StatusCode, Body: string(raw)}
	}
	return &Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: raw}, nil
}

// Get decodes the JSON response of a GET into out.
func (c *HTTPClient) Get(ctx context.Context, path string, query url.Values, out any) error {
	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query})
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

// Post sends body as JSON and decodes the response into out when non-nil.
func (c *HTTPClient) Post(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, http.MethodPost, path, body, out)
}

func (c *HTTPClient) Put(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, http.MethodPut, path, body, out)
}

func (c *HTTPClient) Patch(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, http.MethodPatch, path, body, out)
}

func (c *HTTPClient) Delete(ctx context.Context, path string) error {
	_, err := c.Do(ctx, Request{Method: http.MethodDelete, Path: path})
	return err
}

func (c *HTTPClient) call(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.Do(ctx, Request{Method: method, Path: path, Body: body})
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
