package constants

import "errors"

// Configuration errors.
var (
	ErrNoEndpointConfigured = errors.New("no IM endpoint configured, use --url or 'imclient config set url URL'")
	ErrConfigLocked         = errors.New("config file is locked by another process")
)

// Output errors.
var ErrUnknownOutputFormat = errors.New("unknown output format")
