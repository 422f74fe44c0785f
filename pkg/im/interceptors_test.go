package im_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/fivetwenty-io/im-client/pkg/im"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	mu      sync.Mutex
	entries []string
}

func (l *recordingLogger) record(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, level+":"+msg)
}

func (l *recordingLogger) Debug(msg string, _ map[string]interface{}) { l.record("debug", msg) }
func (l *recordingLogger) Info(msg string, _ map[string]interface{})  { l.record("info", msg) }
func (l *recordingLogger) Warn(msg string, _ map[string]interface{})  { l.record("warn", msg) }
func (l *recordingLogger) Error(msg string, _ map[string]interface{}) { l.record("error", msg) }

func TestInterceptorChain_Order(t *testing.T) {
	t.Parallel()

	chain := im.NewInterceptorChain()
	ctx := context.Background()

	var order []string

	chain.AddRequestInterceptor(func(ctx context.Context, req *im.Request) error {
		order = append(order, "first")

		return nil
	})
	chain.AddRequestInterceptor(func(ctx context.Context, req *im.Request) error {
		order = append(order, "second")

		return nil
	})
	chain.AddResponseInterceptor(func(ctx context.Context, req *im.Request, resp *im.Response) error {
		order = append(order, "response")

		return nil
	})

	req := &im.Request{Method: http.MethodGet, Path: "/infrastructures"}
	require.NoError(t, chain.ExecuteRequestInterceptors(ctx, req))
	require.NoError(t, chain.ExecuteResponseInterceptors(ctx, req, &im.Response{StatusCode: http.StatusOK}))

	assert.Equal(t, []string{"first", "second", "response"}, order)
	assert.Equal(t, 3, chain.Len())
}

func TestInterceptorChain_StopsOnError(t *testing.T) {
	t.Parallel()

	chain := im.NewInterceptorChain()
	boom := errors.New("boom")
	called := false

	chain.AddRequestInterceptor(func(ctx context.Context, req *im.Request) error { return boom })
	chain.AddRequestInterceptor(func(ctx context.Context, req *im.Request) error {
		called = true

		return nil
	})

	err := chain.ExecuteRequestInterceptors(context.Background(), &im.Request{})
	require.ErrorIs(t, err, boom)
	assert.False(t, called)
}

func TestInterceptorChain_Nil(t *testing.T) {
	t.Parallel()

	var chain *im.InterceptorChain
	assert.NoError(t, chain.ExecuteRequestInterceptors(context.Background(), &im.Request{}))
	assert.NoError(t, chain.ExecuteResponseInterceptors(context.Background(), &im.Request{}, &im.Response{}))
	assert.Zero(t, chain.Len())
}

func TestHeaderAndRequestIDInterceptors(t *testing.T) {
	t.Parallel()

	req := &im.Request{Method: http.MethodGet, Path: "/version"}
	require.NoError(t, im.HeaderInterceptor(map[string]string{"X-Tenant": "ops"})(context.Background(), req))
	require.NoError(t, im.RequestIDInterceptor()(context.Background(), req))

	assert.Equal(t, "ops", req.Headers.Get("X-Tenant"))
	id := req.Headers.Get("X-Request-ID")
	assert.Len(t, id, 36)

	require.NoError(t, im.RequestIDInterceptor()(context.Background(), req))
	assert.Equal(t, id, req.Headers.Get("X-Request-ID"), "existing id is kept")
}

func TestLoggingResponseInterceptor_Levels(t *testing.T) {
	t.Parallel()

	logger := &recordingLogger{}
	interceptor := im.LoggingResponseInterceptor(logger)
	req := &im.Request{Method: http.MethodGet, Path: "/infrastructures/x"}
	ctx := context.Background()

	require.NoError(t, interceptor(ctx, req, &im.Response{StatusCode: http.StatusOK}))
	require.NoError(t, interceptor(ctx, req, &im.Response{StatusCode: http.StatusNotFound}))
	require.NoError(t, interceptor(ctx, req, &im.Response{StatusCode: http.StatusBadGateway}))
	require.NoError(t, interceptor(ctx, req, &im.Response{Error: errors.New("refused")}))

	assert.Equal(t, []string{
		"debug:IM Response",
		"warn:IM Response",
		"error:IM Response",
		"error:IM Response Error",
	}, logger.entries)
}

func TestRouteTemplate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/infrastructures", im.RouteTemplate("/infrastructures"))
	assert.Equal(t, "/infrastructures/{inf_id}", im.RouteTemplate("/infrastructures/abc"))
	assert.Equal(t, "/infrastructures/{inf_id}/state", im.RouteTemplate("/infrastructures/abc/state"))
	assert.Equal(t, "/infrastructures/{inf_id}/vms/{vm_id}/state", im.RouteTemplate("/infrastructures/abc/vms/3/state"))
	assert.Equal(t, "/version", im.RouteTemplate("/version"))
}

func TestPrometheusMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	metrics, err := im.NewPrometheusMetrics(reg)
	require.NoError(t, err)

	chain := im.NewInterceptorChain()
	metrics.Attach(chain)

	ctx := context.Background()
	req := &im.Request{Method: http.MethodGet, Path: "/infrastructures/abc/vms/0/state"}
	require.NoError(t, chain.ExecuteRequestInterceptors(ctx, req))
	require.NoError(t, chain.ExecuteResponseInterceptors(ctx, req, &im.Response{StatusCode: http.StatusOK}))
	require.NoError(t, chain.ExecuteResponseInterceptors(ctx, req, &im.Response{Error: errors.New("refused")}))

	metrics.ObserveState(ctx, im.StateEvent{State: im.VMStateRunning, Accepted: true})

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 3)

	_, err = im.NewPrometheusMetrics(reg)
	assert.Error(t, err, "duplicate registration fails")

	assert.Equal(t, 2, testutil.CollectAndCount(reg, "im_client_requests_total"))
	assert.Equal(t, 1, testutil.CollectAndCount(reg, "im_client_vm_state_observations_total"))
}
