package imclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/fivetwenty-io/im-client/internal/auth"
	"github.com/fivetwenty-io/im-client/internal/client"
	"github.com/fivetwenty-io/im-client/pkg/im"
)

// New creates an IM client from config. The caller's config is not modified.
func New(ctx context.Context, config *im.Config) (im.Client, error) {
	if config == nil {
		return nil, im.ErrConfigRequired
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	endpoint := NormalizeEndpoint(config.Endpoint)
	if endpoint == "" {
		return nil, im.ErrEndpointRequired
	}

	credentials, err := loadCredentials(config)
	if err != nil {
		return nil, err
	}

	cfg := *config
	cfg.Endpoint = endpoint

	c, err := client.New(&cfg, credentials)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return c, nil
}

// NewWithAuthFile creates a client for endpoint authenticated with the
// credentials of authFile.
func NewWithAuthFile(ctx context.Context, endpoint, authFile string) (im.Client, error) {
	return New(ctx, &im.Config{Endpoint: endpoint, AuthFile: authFile})
}

// NormalizeEndpoint trims whitespace and trailing slashes and defaults the
// scheme to https.
func NormalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return ""
	}

	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	return endpoint
}

// loadCredentials returns the credential set configured in config: the auth
// file when AuthFile is set, otherwise the inline AuthData. With neither set
// it fails with im.ErrAuthFileNotFound.
func loadCredentials(config *im.Config) (*auth.CredentialSet, error) {
	switch {
	case config.AuthFile != "":
		return auth.Load(config.AuthFile)
	case strings.TrimSpace(config.AuthData) != "":
		creds, err := auth.Parse(config.AuthData)
		if err != nil {
			return nil, fmt.Errorf("inline auth data: %w", err)
		}

		return creds, nil
	default:
		return auth.Load("")
	}
}
