// Package events publishes the VM state observations made while polling an
// Infrastructure Manager so that other processes can follow a deployment.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fivetwenty-io/im-client/internal/constants"
	"github.com/fivetwenty-io/im-client/pkg/im"
	"github.com/nats-io/nats.go"
)

// Static errors for err113 compliance.
var (
	ErrNATSConfigRequired = errors.New("NATS configuration required")
	ErrNATSURLRequired    = errors.New("NATS URL is required")
	ErrPublisherRequired  = errors.New("publisher is required")
)

// Publisher is the subset of *nats.Conn used to publish events.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSConfig configures a NATS connection for state events.
type NATSConfig struct {
	// URL of the NATS server, e.g. nats://localhost:4222.
	URL string
	// Name reported to the server. Defaults to the client user agent.
	Name string
	// SubjectPrefix defaults to "im.infrastructures".
	SubjectPrefix string
	// Timeout for the initial connection. Zero uses the nats default.
	Timeout time.Duration
}

// NATSObserver is an im.StateObserver that publishes every observation as
// JSON on <prefix>.<infID>.vms.<vmID>.state.
type NATSObserver struct {
	publisher Publisher
	prefix    string
	logger    im.Logger
	conn      *nats.Conn
}

// Option configures a NATSObserver.
type Option func(*NATSObserver)

// WithSubjectPrefix sets the subject prefix.
func WithSubjectPrefix(prefix string) Option {
	return func(o *NATSObserver) {
		if prefix = strings.Trim(prefix, "."); prefix != "" {
			o.prefix = prefix
		}
	}
}

// WithLogger logs publish failures.
func WithLogger(logger im.Logger) Option {
	return func(o *NATSObserver) {
		o.logger = logger
	}
}

// NewNATSObserver creates an observer publishing through publisher.
func NewNATSObserver(publisher Publisher, opts ...Option) (*NATSObserver, error) {
	if publisher == nil {
		return nil, ErrPublisherRequired
	}

	o := &NATSObserver{publisher: publisher, prefix: constants.DefaultEventSubjectPrefix}
	for _, opt := range opts {
		opt(o)
	}

	return o, nil
}

// Connect dials NATS and returns an observer that owns the connection.
// Close drains it.
func Connect(config *NATSConfig, opts ...Option) (*NATSObserver, error) {
	if config == nil {
		return nil, ErrNATSConfigRequired
	}

	if config.URL == "" {
		return nil, ErrNATSURLRequired
	}

	name := config.Name
	if name == "" {
		name = constants.DefaultUserAgent
	}

	natsOpts := []nats.Option{nats.Name(name)}
	if config.Timeout > 0 {
		natsOpts = append(natsOpts, nats.Timeout(config.Timeout))
	}

	conn, err := nats.Connect(config.URL, natsOpts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", config.URL, err)
	}

	if config.SubjectPrefix != "" {
		opts = append([]Option{WithSubjectPrefix(config.SubjectPrefix)}, opts...)
	}

	o, err := NewNATSObserver(conn, opts...)
	if err != nil {
		conn.Close()

		return nil, err
	}

	o.conn = conn

	return o, nil
}

// Subject returns the subject events for a VM are published on.
func (o *NATSObserver) Subject(infID, vmID string) string {
	return strings.Join([]string{o.prefix, subjectToken(infID), constants.PathVMs, subjectToken(vmID), constants.PropertyState}, ".")
}

// Publish encodes and publishes one event.
func (o *NATSObserver) Publish(event im.StateEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding state event: %w", err)
	}

	subject := o.Subject(event.InfrastructureID, event.VMID)
	if err := o.publisher.Publish(subject, data); err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}

	return nil
}

// ObserveState implements im.StateObserver. Publish failures are logged and
// never interrupt polling.
func (o *NATSObserver) ObserveState(_ context.Context, event im.StateEvent) {
	if err := o.Publish(event); err != nil && o.logger != nil {
		o.logger.Warn("Failed to publish VM state event", map[string]interface{}{
			"infrastructure_id": event.InfrastructureID,
			"vm_id":             event.VMID,
			"error":             err.Error(),
		})
	}
}

// Close drains the connection opened by Connect. It is a no-op for observers
// built with NewNATSObserver.
func (o *NATSObserver) Close() error {
	if o.conn == nil {
		return nil
	}

	if err := o.conn.Drain(); err != nil {
		return fmt.Errorf("draining NATS connection: %w", err)
	}

	return nil
}

// subjectToken replaces the characters NATS reserves in subject tokens.
func subjectToken(id string) string {
	if id == "" {
		return "_"
	}

	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		default:
			return r
		}
	}, id)
}
