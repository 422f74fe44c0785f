package im

import (
	"net/http"
	"strconv"
	"strings"
)

// ServiceResponse is the outcome of one facade call: the HTTP status, the
// decoded result and the raw body. It is immutable once built.
type ServiceResponse[T any] struct {
	statusCode int
	reason     string
	result     T
	body       []byte
	err        *ServiceError
}

// NewServiceResponse builds a response. serviceErr is ignored for 2xx codes.
// The body is copied.
func NewServiceResponse[T any](statusCode int, reason string, result T, body []byte, serviceErr *ServiceError) *ServiceResponse[T] {
	if reason == "" {
		reason = http.StatusText(statusCode)
	}

	resp := &ServiceResponse[T]{
		statusCode: statusCode,
		reason:     reason,
		result:     result,
		body:       append([]byte(nil), body...),
	}

	if !IsSuccessStatus(statusCode) {
		if serviceErr == nil {
			serviceErr = &ServiceError{StatusCode: statusCode, Reason: reason, Message: strings.TrimSpace(string(body))}
		}

		resp.err = serviceErr
	}

	return resp
}

// IsSuccessStatus reports whether code is in [200, 299].
func IsSuccessStatus(code int) bool {
	return code >= http.StatusOK && code < http.StatusMultipleChoices
}

// StatusCode returns the HTTP status code.
func (r *ServiceResponse[T]) StatusCode() int {
	return r.statusCode
}

// ReasonPhrase returns the HTTP reason phrase.
func (r *ServiceResponse[T]) ReasonPhrase() string {
	return r.reason
}

// Status returns "<code> <reason>".
func (r *ServiceResponse[T]) Status() string {
	return strconv.Itoa(r.statusCode) + " " + r.reason
}

// Successful reports whether the status code is 2xx.
func (r *ServiceResponse[T]) Successful() bool {
	return IsSuccessStatus(r.statusCode)
}

// Result returns the decoded payload. It is the zero value on failure.
func (r *ServiceResponse[T]) Result() T {
	return r.result
}

// Body returns a copy of the raw response body.
func (r *ServiceResponse[T]) Body() []byte {
	return append([]byte(nil), r.body...)
}

// Err returns the service rejection, or nil when Successful.
func (r *ServiceResponse[T]) Err() *ServiceError {
	return r.err
}
