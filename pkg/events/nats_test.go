package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fivetwenty-io/im-client/pkg/events"
	"github.com/fivetwenty-io/im-client/pkg/im"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var errPublish = errors.New("nats: connection closed")

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(subject string, data []byte) error {
	return m.Called(subject, data).Error(0)
}

type warnLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *warnLogger) Debug(string, map[string]interface{}) {}
func (l *warnLogger) Info(string, map[string]interface{})  {}
func (l *warnLogger) Error(string, map[string]interface{}) {}

func (l *warnLogger) Warn(msg string, _ map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.warns = append(l.warns, msg)
}

func TestNATSObserver_PublishesJSONEvents(t *testing.T) {
	t.Parallel()

	publisher := &mockPublisher{}
	observedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	publisher.On("Publish", "im.infrastructures.inf-1.vms.0.state", mock.MatchedBy(func(data []byte) bool {
		var event im.StateEvent
		if err := json.Unmarshal(data, &event); err != nil {
			return false
		}

		return event.State == im.VMStateRunning && event.Accepted && event.Attempt == 3 && event.ObservedAt.Equal(observedAt)
	})).Return(nil).Once()

	observer, err := events.NewNATSObserver(publisher)
	require.NoError(t, err)

	observer.ObserveState(context.Background(), im.StateEvent{
		InfrastructureID: "inf-1",
		VMID:             "0",
		State:            im.VMStateRunning,
		Attempt:          3,
		MaxAttempts:      5,
		Accepted:         true,
		ObservedAt:       observedAt,
	})

	publisher.AssertExpectations(t)
	require.NoError(t, observer.Close())
}

func TestNATSObserver_Subject(t *testing.T) {
	t.Parallel()

	observer, err := events.NewNATSObserver(&mockPublisher{}, events.WithSubjectPrefix("deploys.prod."))
	require.NoError(t, err)

	assert.Equal(t, "deploys.prod.abc.vms.1.state", observer.Subject("abc", "1"))
	assert.Equal(t, "deploys.prod.a_b_c.vms._.state", observer.Subject("a.b*c", ""))

	observer, err = events.NewNATSObserver(&mockPublisher{}, events.WithSubjectPrefix(""))
	require.NoError(t, err)
	assert.Equal(t, "im.infrastructures.abc.vms.1.state", observer.Subject("abc", "1"))
}

func TestNATSObserver_PublishFailureIsLogged(t *testing.T) {
	t.Parallel()

	publisher := &mockPublisher{}
	publisher.On("Publish", mock.Anything, mock.Anything).Return(errPublish)

	logger := &warnLogger{}

	observer, err := events.NewNATSObserver(publisher, events.WithLogger(logger))
	require.NoError(t, err)

	err = observer.Publish(im.StateEvent{InfrastructureID: "inf", VMID: "0", State: im.VMStatePending})
	require.ErrorIs(t, err, errPublish)

	observer.ObserveState(context.Background(), im.StateEvent{InfrastructureID: "inf", VMID: "0"})
	assert.Equal(t, []string{"Failed to publish VM state event"}, logger.warns)
}

func TestNATSObserver_Validation(t *testing.T) {
	t.Parallel()

	_, err := events.NewNATSObserver(nil)
	require.ErrorIs(t, err, events.ErrPublisherRequired)

	_, err = events.Connect(nil)
	require.ErrorIs(t, err, events.ErrNATSConfigRequired)

	_, err = events.Connect(&events.NATSConfig{})
	require.ErrorIs(t, err, events.ErrNATSURLRequired)
}

func TestConnect_Unreachable(t *testing.T) {
	t.Parallel()

	_, err := events.Connect(&events.NATSConfig{URL: "nats://127.0.0.1:1", Timeout: 200 * time.Millisecond})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connecting to NATS")
}

func TestMultiObserver(t *testing.T) {
	t.Parallel()

	publisher := &mockPublisher{}
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	observer, err := events.NewNATSObserver(publisher)
	require.NoError(t, err)

	var seen []im.VMState

	multi := im.MultiObserver(nil, observer, im.StateObserverFunc(func(_ context.Context, event im.StateEvent) {
		seen = append(seen, event.State)
	}))

	multi.ObserveState(context.Background(), im.StateEvent{InfrastructureID: "inf", VMID: "0", State: im.VMStateConfigured})

	assert.Equal(t, []im.VMState{im.VMStateConfigured}, seen)
	publisher.AssertNumberOfCalls(t, "Publish", 1)
}
