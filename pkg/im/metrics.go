package im

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/fivetwenty-io/im-client/internal/constants"
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics records request counts, latencies and polled VM states.
// Install it on an InterceptorChain with Attach and, optionally, use it as
// the Observer of PollOptions.
type PrometheusMetrics struct {
	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	observations *prometheus.CounterVec
}

// NewPrometheusMetrics creates the collectors and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewPrometheusMetrics(reg prometheus.Registerer) (*PrometheusMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &PrometheusMetrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: constants.MetricsNamespace,
				Subsystem: constants.MetricsSubsystem,
				Name:      "requests_total",
				Help:      "Number of requests sent to the IM service, by method, route and status code.",
			},
			[]string{"method", "path", "code"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: constants.MetricsNamespace,
				Subsystem: constants.MetricsSubsystem,
				Name:      "request_duration_seconds",
				Help:      "Latency of requests sent to the IM service.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		observations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: constants.MetricsNamespace,
				Subsystem: constants.MetricsSubsystem,
				Name:      "vm_state_observations_total",
				Help:      "VM states observed while polling.",
			},
			[]string{"state", "accepted"},
		),
	}

	for _, c := range []prometheus.Collector{m.requests, m.duration, m.observations} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Attach adds the timing and recording interceptors to chain.
func (m *PrometheusMetrics) Attach(chain *InterceptorChain) {
	chain.AddRequestInterceptor(TimingInterceptor())
	chain.AddResponseInterceptor(m.ResponseInterceptor())
}

// ResponseInterceptor records one exchange. Transport failures use code "error".
func (m *PrometheusMetrics) ResponseInterceptor() ResponseInterceptor {
	return func(ctx context.Context, req *Request, resp *Response) error {
		route := RouteTemplate(req.Path)

		code := "error"
		if resp.Error == nil {
			code = strconv.Itoa(resp.StatusCode)
		}

		m.requests.WithLabelValues(req.Method, route, code).Inc()

		if start, ok := req.Metadata[metadataStartTime].(time.Time); ok {
			m.duration.WithLabelValues(req.Method, route).Observe(time.Since(start).Seconds())
		}

		return nil
	}
}

// ObserveState implements StateObserver.
func (m *PrometheusMetrics) ObserveState(_ context.Context, event StateEvent) {
	m.observations.WithLabelValues(event.State.String(), strconv.FormatBool(event.Accepted)).Inc()
}

// RouteTemplate replaces infrastructure and VM ids in an API path with
// placeholders to keep label cardinality bounded.
func RouteTemplate(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 || "/"+parts[0] != constants.PathInfrastructures {
		return path
	}

	parts[1] = "{inf_id}"
	if len(parts) >= 4 && parts[2] == constants.PathVMs {
		parts[3] = "{vm_id}"
	}

	return "/" + strings.Join(parts, "/")
}
