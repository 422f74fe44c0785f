package im

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind names one class of the client's error taxonomy.
type ErrorKind string

// Error kinds.
const (
	KindUnknown          ErrorKind = ""
	KindInvalidArgument  ErrorKind = "InvalidArgument"
	KindAuthFileNotFound ErrorKind = "AuthFileNotFound"
	KindAuthFileParse    ErrorKind = "AuthFileParseError"
	KindTransport        ErrorKind = "TransportError"
	KindDecode           ErrorKind = "DecodeError"
	KindService          ErrorKind = "ServiceError"
	KindPollingTimeout   ErrorKind = "PollingTimeout"
)

// Message returns the catalog text of the kind.
func (k ErrorKind) Message() string {
	return Message(MessageKey(k))
}

// Sentinel errors, one per kind. Match them with errors.Is.
var (
	ErrInvalidArgument  = errors.New(KindInvalidArgument.Message())
	ErrAuthFileNotFound = errors.New(KindAuthFileNotFound.Message())
	ErrAuthFileParse    = errors.New(KindAuthFileParse.Message())
	ErrTransport        = errors.New(KindTransport.Message())
	ErrDecode           = errors.New(KindDecode.Message())
	ErrService          = errors.New(KindService.Message())
	ErrPollingTimeout   = errors.New(KindPollingTimeout.Message())
)

// Common static errors that can be wrapped with context.
var (
	ErrConfigRequired      = errors.New("config is required")
	ErrEndpointRequired    = errors.New("IM endpoint is required")
	ErrAuthRequired        = errors.New("an auth file or inline auth data is required")
	ErrUnknownContentType  = errors.New("unknown content type")
	ErrToscaNotSupported   = errors.New(Message(MsgToscaNotSupported))
	ErrOutputsNotRetrieved = errors.New(Message(MsgInfrastructureOutputs))
)

// InvalidArgumentError reports a missing or malformed argument.
func InvalidArgumentError(name string) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, name)
}

// KindOf returns the taxonomy kind of err, or KindUnknown.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalidArgument
	case errors.Is(err, ErrAuthFileNotFound):
		return KindAuthFileNotFound
	case errors.Is(err, ErrAuthFileParse):
		return KindAuthFileParse
	case errors.Is(err, ErrTransport):
		return KindTransport
	case errors.Is(err, ErrDecode):
		return KindDecode
	case errors.Is(err, ErrService):
		return KindService
	case errors.Is(err, ErrPollingTimeout):
		return KindPollingTimeout
	default:
		return KindUnknown
	}
}

// TransportError is returned when no HTTP response could be obtained.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", ErrTransport, e.Method, e.URL, e.Err)
}

// Unwrap returns the underlying network error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrTransport.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// DecodeError is returned when a response body does not have the shape the
// operation expects. Body holds the raw payload for diagnostics.
type DecodeError struct {
	Operation   string
	ContentType string
	Body        []byte
	Err         error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s for %s (content type %q): %v", ErrDecode, e.Operation, e.ContentType, e.Err)
}

// Unwrap returns the underlying parse error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrDecode.
func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

// ServiceError describes a well-formed non-2xx response. It travels inside a
// ServiceResponse; facade calls do not return it as an error.
type ServiceError struct {
	StatusCode int    `json:"status_code" yaml:"status_code"`
	Reason     string `json:"reason"      yaml:"reason"`
	Message    string `json:"message"     yaml:"message"`
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %d %s", ErrService, e.StatusCode, e.Reason)
	}

	return fmt.Sprintf("%s: %d %s: %s", ErrService, e.StatusCode, e.Reason, e.Message)
}

// Is reports whether target is ErrService.
func (e *ServiceError) Is(target error) bool {
	return target == ErrService
}

// PollingTimeoutError is returned when a poll loop runs out of attempts before
// the VM reaches one of the accepted states.
type PollingTimeoutError struct {
	InfrastructureID string
	VMID             string
	Attempts         int
	LastState        VMState
	States           []VMState
}

// Error implements the error interface.
func (e *PollingTimeoutError) Error() string {
	want := make([]string, 0, len(e.States))
	for _, s := range e.States {
		want = append(want, s.String())
	}

	return fmt.Sprintf("%s: infrastructure %s vm %s is %q after %d attempt(s), want one of [%s]",
		ErrPollingTimeout, e.InfrastructureID, e.VMID, e.LastState, e.Attempts, strings.Join(want, ", "))
}

// Is reports whether target is ErrPollingTimeout.
func (e *PollingTimeoutError) Is(target error) bool {
	return target == ErrPollingTimeout
}
