package client

import (
	"context"
	"net/url"
	"strings"

	"github.com/fivetwenty-io/im-client/internal/auth"
	"github.com/fivetwenty-io/im-client/internal/constants"
	"github.com/fivetwenty-io/im-client/internal/http"
	"github.com/fivetwenty-io/im-client/pkg/im"
)

// Transport performs one HTTP exchange. *http.Client implements it.
type Transport interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Client implements the im.Client interface. It keeps no state between
// calls and is safe for concurrent use.
type Client struct {
	transport Transport
	logger    im.Logger
	poll      *im.PollOptions
}

var _ im.Client = (*Client)(nil)

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *im.Config) []http.Option {
	var httpOpts []http.Option

	if config.Logger != nil {
		httpOpts = append(httpOpts, http.WithLogger(config.Logger))
	}

	if config.Debug {
		httpOpts = append(httpOpts, http.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, http.WithUserAgent(config.UserAgent))
	}

	if config.Timeout > 0 {
		httpOpts = append(httpOpts, http.WithTimeout(config.Timeout))
	}

	if config.EnableHTTP2 {
		httpOpts = append(httpOpts, http.WithHTTP2(true))
	}

	if config.Interceptors != nil {
		httpOpts = append(httpOpts, http.WithInterceptors(config.Interceptors))
	}

	if config.RetryMax > 0 {
		retryWaitMin := constants.DefaultRetryWaitMin
		retryWaitMax := constants.DefaultRetryWaitMax

		if config.RetryWaitMin > 0 {
			retryWaitMin = config.RetryWaitMin
		}

		if config.RetryWaitMax > 0 {
			retryWaitMax = config.RetryWaitMax
		}

		httpOpts = append(httpOpts, http.WithRetryConfig(config.RetryMax, retryWaitMin, retryWaitMax))
	}

	return httpOpts
}

// New creates a client for config.Endpoint that authenticates with credentials.
// The endpoint is used as given; see imclient.New for normalization.
func New(config *im.Config, credentials *auth.CredentialSet) (*Client, error) {
	if config == nil {
		return nil, im.ErrConfigRequired
	}

	if config.Endpoint == "" {
		return nil, im.ErrEndpointRequired
	}

	if credentials == nil {
		return nil, im.ErrAuthRequired
	}

	transport := http.NewClient(config.Endpoint, credentials, createHTTPClientOptions(config)...)

	return NewWithTransport(transport, config), nil
}

// NewWithTransport creates a client over an existing transport. Only the
// Logger and Poll fields of config are used; config may be nil.
func NewWithTransport(transport Transport, config *im.Config) *Client {
	client := &Client{transport: transport, logger: noopLogger{}}

	if config != nil {
		if config.Logger != nil {
			client.logger = config.Logger
		}

		client.poll = config.Poll
	}

	return client
}

// execute sends req and builds the ServiceResponse. Non-2xx responses are
// returned as data with a parsed ServiceError.
func execute[T any](ctx context.Context, c *Client, operation string, req *http.Request, decode decoder[T]) (*im.ServiceResponse[T], error) {
	resp, err := c.transport.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	if !im.IsSuccessStatus(resp.StatusCode) {
		var zero T

		serviceErr := decodeServiceError(resp.StatusCode, resp.Reason, resp.Body)
		c.logger.Debug("IM request rejected", map[string]interface{}{
			"operation": operation,
			"status":    resp.StatusCode,
			"message":   serviceErr.Message,
		})

		return im.NewServiceResponse(resp.StatusCode, resp.Reason, zero, resp.Body, serviceErr), nil
	}

	contentType := resp.Headers.Get(constants.HeaderContentType)

	if len(resp.Body) == 0 {
		c.logger.Debug(im.Message(im.WarnNullServiceResult), map[string]interface{}{
			"operation": operation,
			"status":    resp.StatusCode,
		})
	}

	result, err := decode(resp.Body, contentType)
	if err != nil {
		return nil, &im.DecodeError{Operation: operation, ContentType: contentType, Body: resp.Body, Err: err}
	}

	return im.NewServiceResponse(resp.StatusCode, resp.Reason, result, resp.Body, nil), nil
}

// infrastructurePath builds /infrastructures[/{infID}[/segments...]] with
// every segment escaped.
func infrastructurePath(infID string, segments ...string) string {
	var b strings.Builder

	b.WriteString(constants.PathInfrastructures)

	if infID != "" {
		b.WriteString("/" + url.PathEscape(infID))
	}

	for _, s := range segments {
		b.WriteString("/" + url.PathEscape(s))
	}

	return b.String()
}

// vmPath builds /infrastructures/{infID}/vms/{vmID}[/segments...].
func vmPath(infID, vmID string, segments ...string) string {
	return infrastructurePath(infID, append([]string{constants.PathVMs, vmID}, segments...)...)
}

func textRequest(method, path string) *http.Request {
	return &http.Request{
		Method:  method,
		Path:    path,
		Headers: map[string]string{constants.HeaderAccept: constants.MediaTypeText},
	}
}

func jsonRequest(method, path string) *http.Request {
	return &http.Request{
		Method:  method,
		Path:    path,
		Headers: map[string]string{constants.HeaderAccept: constants.MediaTypeJSON},
	}
}

func withDocument(req *http.Request, doc string, contentType im.ContentType) *http.Request {
	req.Headers[constants.HeaderContentType] = contentType.String()
	req.Body = []byte(doc)

	return req
}

func contextQuery(opts []im.ResourceOption) url.Values {
	options := im.NewResourceOptions(opts...)

	query := url.Values{}
	if options.Contextualize {
		query.Set(constants.QueryContext, "true")
	} else {
		query.Set(constants.QueryContext, "false")
	}

	return query
}

// validation

func requireID(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return im.InvalidArgumentError(name)
	}

	return nil
}

func requireDocument(doc string, contentType im.ContentType) error {
	if strings.TrimSpace(doc) == "" {
		return im.InvalidArgumentError("document")
	}

	if !contentType.Valid() {
		return im.InvalidArgumentError("content type " + contentType.String())
	}

	return nil
}

func requireIDList(name string, ids []string) error {
	if len(ids) == 0 {
		return im.InvalidArgumentError(name + ": " + im.Message(im.WarnNullOrEmptyParameterValues))
	}

	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return im.InvalidArgumentError(name + ": " + im.Message(im.WarnNullParameterName))
		}
	}

	return nil
}

type noopLogger struct{}

func (noopLogger) Debug(string, map[string]interface{}) {}
func (noopLogger) Info(string, map[string]interface{})  {}
func (noopLogger) Warn(string, map[string]interface{})  {}
func (noopLogger) Error(string, map[string]interface{}) {}
