package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fivetwenty-io/im-client/internal/constants"
	"github.com/fivetwenty-io/im-client/pkg/im"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/net/http2"
)

// Authorizer supplies the Authorization header value for each request.
type Authorizer interface {
	Authorization(ctx context.Context) (string, error)
}

// Request is one HTTP exchange to perform. Path must already be escaped.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Headers map[string]string
	Body    []byte
}

// Response is the raw outcome of a request. Non-2xx responses are returned
// as-is; interpreting them is up to the caller.
type Response struct {
	StatusCode int
	Reason     string
	Headers    http.Header
	Body       []byte
}

// Client executes requests against one base URL. It holds no per-request
// state and is safe for concurrent use.
type Client struct {
	baseURL      string
	authorizer   Authorizer
	httpClient   *retryablehttp.Client
	logger       im.Logger
	debug        bool
	userAgent    string
	timeout      time.Duration
	enableHTTP2  bool
	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration
	interceptors *im.InterceptorChain
}

// Option configures the client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger im.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables request/response logging.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// WithTimeout sets the timeout of a single HTTP exchange.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithRetryConfig enables transport retries on connection errors and 5xx.
// Retries are off unless this option sets retryMax above zero.
func WithRetryConfig(retryMax int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.retryMax = retryMax
		c.retryWaitMin = waitMin
		c.retryWaitMax = waitMax
	}
}

// WithHTTP2 negotiates HTTP/2 over TLS.
func WithHTTP2(enabled bool) Option {
	return func(c *Client) {
		c.enableHTTP2 = enabled
	}
}

// WithInterceptors installs a request/response interceptor chain.
func WithInterceptors(chain *im.InterceptorChain) Option {
	return func(c *Client) {
		c.interceptors = chain
	}
}

// NewClient creates a client for baseURL. authorizer may be nil.
func NewClient(baseURL string, authorizer Authorizer, opts ...Option) *Client {
	client := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		authorizer:   authorizer,
		userAgent:    constants.DefaultUserAgent,
		timeout:      constants.DefaultHTTPTimeout,
		retryWaitMin: constants.DefaultRetryWaitMin,
		retryWaitMax: constants.DefaultRetryWaitMax,
	}

	for _, opt := range opts {
		opt(client)
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = client.retryMax
	retryClient.RetryWaitMin = client.retryWaitMin
	retryClient.RetryWaitMax = client.retryWaitMax
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.HTTPClient.Timeout = client.timeout

	if client.logger != nil && client.retryMax > 0 {
		retryClient.Logger = &leveledLogger{logger: client.logger}
	} else {
		retryClient.Logger = nil
	}

	if client.enableHTTP2 {
		if transport, ok := retryClient.HTTPClient.Transport.(*http.Transport); ok {
			if err := http2.ConfigureTransport(transport); err != nil && client.logger != nil {
				client.logger.Warn("HTTP/2 not enabled", map[string]interface{}{"error": err.Error()})
			}
		}
	}

	client.httpClient = retryClient

	return client
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do performs req. The error is non-nil only when no response was obtained
// or an interceptor rejected the exchange.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	fullURL := c.baseURL + req.Path
	if len(req.Query) > 0 {
		fullURL += "?" + req.Query.Encode()
	}

	headers, err := c.headers(ctx, req)
	if err != nil {
		return nil, err
	}

	intercepted := &im.Request{Method: req.Method, Path: req.Path, Headers: headers, Body: req.Body}

	err = c.interceptors.ExecuteRequestInterceptors(ctx, intercepted)
	if err != nil {
		return nil, err
	}

	var body interface{}
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header = intercepted.Headers

	if c.debug && c.logger != nil {
		c.logger.Debug("HTTP Request", map[string]interface{}{
			"method":  req.Method,
			"url":     fullURL,
			"headers": redactHeaders(httpReq.Header),
			"body":    len(req.Body),
		})
	}

	start := time.Now()

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		transportErr := &im.TransportError{Method: req.Method, URL: fullURL, Err: err}
		_ = c.interceptors.ExecuteResponseInterceptors(ctx, intercepted, &im.Response{Error: transportErr})

		return nil, transportErr
	}

	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &im.TransportError{Method: req.Method, URL: fullURL, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Reason:     reasonPhrase(httpResp),
		Headers:    httpResp.Header,
		Body:       respBody,
	}

	if c.debug && c.logger != nil {
		c.logger.Debug("HTTP Response", map[string]interface{}{
			"status":   resp.StatusCode,
			"duration": time.Since(start).String(),
			"body":     len(respBody),
		})
	}

	err = c.interceptors.ExecuteResponseInterceptors(ctx, intercepted, &im.Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       resp.Body,
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func (c *Client) headers(ctx context.Context, req *Request) (http.Header, error) {
	headers := make(http.Header)
	headers.Set(constants.HeaderUserAgent, c.userAgent)

	if c.authorizer != nil {
		value, err := c.authorizer.Authorization(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get authorization: %w", err)
		}

		headers.Set(constants.HeaderAuthorization, value)
	}

	for key, value := range req.Headers {
		headers.Set(key, value)
	}

	return headers, nil
}

func reasonPhrase(resp *http.Response) string {
	reason := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if reason == "" {
		reason = http.StatusText(resp.StatusCode)
	}

	return reason
}

func redactHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for key := range headers {
		if key == constants.HeaderAuthorization {
			out[key] = constants.MaskedSecret

			continue
		}

		out[key] = headers.Get(key)
	}

	return out
}

// leveledLogger adapts im.Logger to retryablehttp.LeveledLogger.
type leveledLogger struct {
	logger im.Logger
}

func (l *leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, fieldsOf(keysAndValues))
}

func (l *leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg, fieldsOf(keysAndValues))
}

func (l *leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, fieldsOf(keysAndValues))
}

func (l *leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, fieldsOf(keysAndValues))
}

func fieldsOf(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}

	return fields
}
