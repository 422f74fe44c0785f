package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/fivetwenty-io/im-client/internal/constants"
	"github.com/fivetwenty-io/im-client/internal/logging"
	"github.com/fivetwenty-io/im-client/pkg/im"
	"github.com/fivetwenty-io/im-client/pkg/imclient"
	"github.com/spf13/viper"
)

// Viper keys. Each can also be set through IMCLIENT_<KEY> in the environment.
const (
	KeyURL             = "url"
	KeyAuthFile        = "auth_file"
	KeyAuthData        = "auth_data"
	KeyOutput          = "output"
	KeyTimeout         = "timeout"
	KeyLogLevel        = "log_level"
	KeyLogFormat       = "log_format"
	KeyDebug           = "debug"
	KeyNATSURL         = "nats_url"
	KeyPollInterval    = "poll_interval"
	KeyPollMaxAttempts = "poll_max_attempts"
)

// ConfigDirName is the directory under $HOME holding config.yml.
const ConfigDirName = ".imclient"

// clientFactory builds the client used by commands.
var clientFactory = newClient

// newClient builds an IM client from the effective viper settings.
func newClient(ctx context.Context) (im.Client, error) {
	logger, err := newLogger()
	if err != nil {
		return nil, err
	}

	config := &im.Config{
		Endpoint: viper.GetString(KeyURL),
		AuthFile: viper.GetString(KeyAuthFile),
		AuthData: viper.GetString(KeyAuthData),
		Timeout:  viper.GetDuration(KeyTimeout),
		Debug:    viper.GetBool(KeyDebug),
		Logger:   logger,
		Poll:     pollDefaults(),

		Interceptors: newInterceptorChain(logger),
	}

	if config.Endpoint == "" {
		return nil, fmt.Errorf("%w: %w", im.ErrEndpointRequired, constants.ErrNoEndpointConfigured)
	}

	client, err := imclient.New(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}

	return client, nil
}

// newInterceptorChain tags every request with an X-Request-ID and logs each
// exchange; rejected calls show up at warn level without --debug.
func newInterceptorChain(logger im.Logger) *im.InterceptorChain {
	chain := im.NewInterceptorChain()
	chain.AddRequestInterceptor(im.RequestIDInterceptor())
	chain.AddRequestInterceptor(im.TimingInterceptor())
	chain.AddRequestInterceptor(im.LoggingInterceptor(logger))
	chain.AddResponseInterceptor(im.LoggingResponseInterceptor(logger))

	return chain
}

func newLogger() (im.Logger, error) {
	level := viper.GetString(KeyLogLevel)
	if viper.GetBool(KeyDebug) {
		level = "debug"
	}

	l, err := logging.New(os.Stderr, level, viper.GetString(KeyLogFormat))
	if err != nil {
		return nil, err
	}

	return logging.NewIMLogger(l), nil
}

func pollDefaults() *im.PollOptions {
	opts := &im.PollOptions{
		Interval:    viper.GetDuration(KeyPollInterval),
		MaxAttempts: viper.GetInt(KeyPollMaxAttempts),
	}

	return opts.WithDefaults()
}

// commandContext returns a context cancelled on interrupt. Request timeouts
// are enforced by the transport.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// checkResponse turns a service rejection into an error for the command.
func checkResponse[T any](resp *im.ServiceResponse[T]) (T, error) {
	if !resp.Successful() {
		var zero T

		return zero, resp.Err()
	}

	return resp.Result(), nil
}
