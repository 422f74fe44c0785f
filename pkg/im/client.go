package im

import (
	"context"
	"time"

	"github.com/fivetwenty-io/im-client/internal/constants"
	"github.com/jonboulle/clockwork"
)

// InfrastructureClient covers infrastructure level operations.
type InfrastructureClient interface {
	CreateInfrastructure(ctx context.Context, doc string, contentType ContentType) (*ServiceResponse[ResourceURI], error)
	GetInfrastructureList(ctx context.Context) (*ServiceResponse[[]ResourceURI], error)
	GetInfrastructureInfo(ctx context.Context, infID string) (*ServiceResponse[[]ResourceURI], error)
	GetInfrastructureContMsg(ctx context.Context, infID string) (*ServiceResponse[string], error)
	GetInfrastructureRADL(ctx context.Context, infID string) (*ServiceResponse[string], error)
	GetInfrastructureState(ctx context.Context, infID string) (*ServiceResponse[InfrastructureState], error)
	GetInfrastructureOutputs(ctx context.Context, infID string) (*ServiceResponse[map[string]string], error)
	AddResource(ctx context.Context, infID, doc string, contentType ContentType, opts ...ResourceOption) (*ServiceResponse[[]ResourceURI], error)
	RemoveResource(ctx context.Context, infID string, vmIDs []string, opts ...ResourceOption) (*ServiceResponse[string], error)
	StartInfrastructure(ctx context.Context, infID string) (*ServiceResponse[string], error)
	StopInfrastructure(ctx context.Context, infID string) (*ServiceResponse[string], error)
	Reconfigure(ctx context.Context, infID, doc string, contentType ContentType, vmIDs []string) (*ServiceResponse[string], error)
	DestroyInfrastructure(ctx context.Context, infID string) (*ServiceResponse[string], error)
}

// VMClient covers operations on single VMs.
type VMClient interface {
	GetVMInfo(ctx context.Context, infID, vmID string) (*ServiceResponse[string], error)
	GetVMProperty(ctx context.Context, infID, vmID, property string) (*ServiceResponse[string], error)
	GetVMContMsg(ctx context.Context, infID, vmID string) (*ServiceResponse[string], error)
	StartVM(ctx context.Context, infID, vmID string) (*ServiceResponse[string], error)
	StopVM(ctx context.Context, infID, vmID string) (*ServiceResponse[string], error)
	RebootVM(ctx context.Context, infID, vmID string) (*ServiceResponse[string], error)
	AlterVM(ctx context.Context, infID, vmID, doc string, contentType ContentType) (*ServiceResponse[string], error)
}

// PollingClient waits for VMs to reach a set of states.
type PollingClient interface {
	WaitForVMState(ctx context.Context, infID, vmID string, opts *PollOptions) (VMState, error)
	WaitForVMs(ctx context.Context, infID string, vmIDs []string, opts *PollOptions) (map[string]VMState, error)
}

// Client is the IM service client. Implementations are safe for concurrent use.
type Client interface {
	InfrastructureClient
	VMClient
	PollingClient

	GetVersion(ctx context.Context) (*ServiceResponse[string], error)
}

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Config represents client configuration for building an im.Client.
//
// # Authentication
//
// Exactly one of AuthFile or AuthData is used; AuthFile wins when both are
// set. The file is read once by imclient.New and every request carries its
// serialized content in the Authorization header.
//
// # Timeouts and retries
//
// Timeout bounds a single HTTP exchange; cancellation is otherwise driven by
// the context passed to each call. Transport retries are disabled unless
// RetryMax is set: infrastructure operations are not idempotent.
type Config struct {
	// Endpoint: base URL of the IM REST API (e.g., "https://im.example.com:8800").
	// imclient.New trims a trailing slash and adds "https://" if no scheme is present.
	Endpoint string

	// AuthFile: path to the auth file, one credential per line.
	AuthFile string
	// AuthData: inline auth file content, used when AuthFile is empty.
	AuthData string

	// Timeout: per-request timeout. Defaults to 30s.
	Timeout time.Duration
	// RetryMax: transport retries for connection errors and 5xx. Zero disables retries.
	RetryMax int
	// RetryWaitMin: minimum backoff between retries. Applied when RetryMax > 0.
	RetryWaitMin time.Duration
	// RetryWaitMax: maximum backoff between retries. Applied when RetryMax > 0.
	RetryWaitMax time.Duration
	// UserAgent: overrides the default User-Agent header.
	UserAgent string
	// Debug: enables request/response logging when a Logger is provided.
	Debug bool
	// Logger: optional structured logger.
	Logger Logger
	// EnableHTTP2: negotiate HTTP/2 over TLS.
	EnableHTTP2 bool
	// Interceptors: optional request/response hooks, e.g. PrometheusMetrics.
	Interceptors *InterceptorChain
	// Poll: defaults for WaitForVMState and WaitForVMs when the caller passes nil.
	Poll *PollOptions
}

// BackoffStrategy selects how the wait between poll attempts evolves.
type BackoffStrategy int

const (
	// BackoffConstant waits Interval between every attempt.
	BackoffConstant BackoffStrategy = iota
	// BackoffExponential starts at Interval and grows up to MaxInterval.
	BackoffExponential
)

// StateEvent is one VM state observation made while polling.
type StateEvent struct {
	InfrastructureID string    `json:"infrastructure_id"`
	VMID             string    `json:"vm_id"`
	State            VMState   `json:"state"`
	Attempt          int       `json:"attempt"`
	MaxAttempts      int       `json:"max_attempts"`
	Accepted         bool      `json:"accepted"`
	ObservedAt       time.Time `json:"observed_at"`
}

// StateObserver receives poll observations. Implementations must not block for long.
type StateObserver interface {
	ObserveState(ctx context.Context, event StateEvent)
}

// StateObserverFunc adapts a function to StateObserver.
type StateObserverFunc func(ctx context.Context, event StateEvent)

// ObserveState calls f.
func (f StateObserverFunc) ObserveState(ctx context.Context, event StateEvent) {
	f(ctx, event)
}

// MultiObserver notifies every non-nil observer in order.
func MultiObserver(observers ...StateObserver) StateObserver {
	live := make([]StateObserver, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			live = append(live, o)
		}
	}

	return StateObserverFunc(func(ctx context.Context, event StateEvent) {
		for _, o := range live {
			o.ObserveState(ctx, event)
		}
	})
}

// PollOptions configures VM state polling. Zero fields take defaults.
type PollOptions struct {
	// States accepted as terminal. Defaults to running and unconfigured.
	States []VMState
	// Interval between attempts. Defaults to 5s.
	Interval time.Duration
	// MaxInterval caps exponential backoff. Defaults to 1m.
	MaxInterval time.Duration
	// MaxAttempts is the number of state queries before giving up. Defaults to 20.
	MaxAttempts int
	// Strategy defaults to BackoffConstant.
	Strategy BackoffStrategy
	// Clock used for sleeping. Defaults to the real clock.
	Clock clockwork.Clock
	// Observer, if set, is notified of every observation.
	Observer StateObserver
}

// DefaultPollStates are the states WaitForVMState accepts by default.
func DefaultPollStates() []VMState {
	return []VMState{VMStateRunning, VMStateUnconfigured}
}

// DefaultPollOptions returns the default polling configuration.
func DefaultPollOptions() *PollOptions {
	return &PollOptions{
		States:      DefaultPollStates(),
		Interval:    constants.DefaultPollInterval,
		MaxInterval: constants.DefaultPollMaxInterval,
		MaxAttempts: constants.DefaultPollMaxAttempts,
		Strategy:    BackoffConstant,
		Clock:       clockwork.NewRealClock(),
	}
}

// WithDefaults returns a copy of o with zero fields filled from
// DefaultPollOptions. A nil receiver yields the defaults.
func (o *PollOptions) WithDefaults() *PollOptions {
	defaults := DefaultPollOptions()
	if o == nil {
		return defaults
	}

	out := *o
	if len(out.States) == 0 {
		out.States = defaults.States
	}

	if out.Interval <= 0 {
		out.Interval = defaults.Interval
	}

	if out.MaxInterval <= 0 {
		out.MaxInterval = defaults.MaxInterval
	}

	if out.MaxAttempts <= 0 {
		out.MaxAttempts = defaults.MaxAttempts
	}

	if out.Clock == nil {
		out.Clock = defaults.Clock
	}

	return &out
}

// ResourceOptions holds the optional parameters of AddResource and RemoveResource.
type ResourceOptions struct {
	// Contextualize runs the configuration step after the change. Defaults to true.
	Contextualize bool
}

// ResourceOption configures ResourceOptions.
type ResourceOption func(*ResourceOptions)

// WithContextualization sets whether contextualization runs after the change.
func WithContextualization(enabled bool) ResourceOption {
	return func(o *ResourceOptions) {
		o.Contextualize = enabled
	}
}

// NewResourceOptions applies opts over the defaults.
func NewResourceOptions(opts ...ResourceOption) ResourceOptions {
	options := ResourceOptions{Contextualize: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	return options
}
