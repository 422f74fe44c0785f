//go:build integration

package integration

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/fivetwenty-io/im-client/internal/logging"
	"github.com/fivetwenty-io/im-client/pkg/im"
	"github.com/fivetwenty-io/im-client/pkg/imclient"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// defaultRADL deploys a single small VM. Set IM_RADL_FILE to use another
// document, for example one matching the providers in the auth file.
const defaultRADL = `network publica (outbound = 'yes')

system front (
cpu.count >= 1 and
memory.size >= 512m and
net_interface.0.connection = 'publica' and
disk.0.os.name = 'linux' and
disk.0.image.url = 'mock0://linux.for.ev.er/image'
)

deploy front 1
`

// TestConfig holds configuration for integration tests.
type TestConfig struct {
	Endpoint    string
	AuthFile    string
	RADLFile    string
	Verbose     bool
	PollTimeout time.Duration
}

// LoadTestConfig reads the test configuration from the environment.
func LoadTestConfig() *TestConfig {
	config := &TestConfig{
		Endpoint:    os.Getenv("IM_URL"),
		AuthFile:    os.Getenv("IM_AUTH_FILE"),
		RADLFile:    os.Getenv("IM_RADL_FILE"),
		Verbose:     os.Getenv("IM_VERBOSE") == "true",
		PollTimeout: 10 * time.Minute,
	}

	if raw := os.Getenv("IM_POLL_TIMEOUT"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			config.PollTimeout = d
		}
	}

	return config
}

// SkipIfMissingConfig skips the test unless an IM endpoint and auth file are set.
func (config *TestConfig) SkipIfMissingConfig(t *testing.T) {
	t.Helper()

	if config.Endpoint == "" {
		t.Skip("IM_URL not set, skipping integration test")
	}

	if config.AuthFile == "" {
		t.Skip("IM_AUTH_FILE not set, skipping integration test")
	}
}

// NewClient builds a client for the configured service.
func (config *TestConfig) NewClient(t *testing.T) im.Client {
	t.Helper()

	imConfig := &im.Config{
		Endpoint: config.Endpoint,
		AuthFile: config.AuthFile,
	}

	if config.Verbose {
		logger, err := logging.New(os.Stderr, "debug", logging.FormatText)
		require.NoError(t, err)

		imConfig.Logger = logging.NewIMLogger(logger)
	}

	client, err := imclient.New(context.Background(), imConfig)
	require.NoError(t, err)

	return client
}

// RADL returns the deployment document used by the workflow tests.
func (config *TestConfig) RADL(t *testing.T) string {
	t.Helper()

	if config.RADLFile == "" {
		return defaultRADL
	}

	data, err := os.ReadFile(config.RADLFile)
	require.NoError(t, err)

	return string(data)
}

// PollOptions waits on a constant interval for up to PollTimeout.
func (config *TestConfig) PollOptions(t *testing.T) *im.PollOptions {
	const interval = 10 * time.Second

	attempts := int(config.PollTimeout / interval)
	if attempts < 1 {
		attempts = 1
	}

	return &im.PollOptions{
		Interval:    interval,
		MaxAttempts: attempts,
		Observer: im.StateObserverFunc(func(_ context.Context, event im.StateEvent) {
			t.Logf("vm %s: %s (%d/%d)", event.VMID, event.State, event.Attempt, event.MaxAttempts)
		}),
	}
}

// GenerateTestName returns a unique name with the given prefix.
func GenerateTestName(prefix string) string {
	return prefix + "-" + strings.Split(uuid.NewString(), "-")[0]
}

// DestroyOnCleanup registers destruction of infID at the end of the test.
func DestroyOnCleanup(t *testing.T, client im.Client, infID string) {
	t.Helper()

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		resp, err := client.DestroyInfrastructure(ctx, infID)
		if err != nil {
			t.Logf("destroy %s: %v", infID, err)

			return
		}

		if !resp.Successful() {
			t.Logf("destroy %s: %v", infID, resp.Err())
		}
	})
}
