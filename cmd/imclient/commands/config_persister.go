package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fivetwenty-io/im-client/internal/constants"
	"github.com/gofrs/flock"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const lockRetryDelay = 100 * time.Millisecond

// ConfigPersister reads and writes the CLI config file. Updates hold a
// flock on <path>.lock so concurrent imclient processes do not lose writes.
type ConfigPersister struct {
	path string
}

// NewConfigPersister creates a persister for the config file at path.
func NewConfigPersister(path string) *ConfigPersister {
	return &ConfigPersister{path: path}
}

// Path returns the config file path.
func (p *ConfigPersister) Path() string {
	return p.path
}

// Load reads the config file. A missing file yields an empty config.
func (p *ConfigPersister) Load() (*Config, error) {
	data, err := os.ReadFile(p.path) // #nosec G304 -- the config path is chosen by the user
	if errors.Is(err, fs.ErrNotExist) {
		return &Config{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", p.path, err)
	}

	return config, nil
}

// Update applies fn to the stored config under the file lock and saves the
// result. Nothing is written when fn fails.
func (p *ConfigPersister) Update(ctx context.Context, fn func(*Config) error) (*Config, error) {
	if err := os.MkdirAll(filepath.Dir(p.path), constants.ConfigDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	lock := flock.New(p.path + ".lock")

	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("acquire flock %s: %w", lock.Path(), err)
	}

	if !locked {
		return nil, fmt.Errorf("%w: %s", constants.ErrConfigLocked, lock.Path())
	}

	defer func() { _ = lock.Unlock() }()

	config, err := p.Load()
	if err != nil {
		return nil, err
	}

	if err := fn(config); err != nil {
		return nil, err
	}

	if err := p.save(config); err != nil {
		return nil, err
	}

	return config, nil
}

// save writes config through a temporary file renamed into place.
func (p *ConfigPersister) save(config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, data, constants.ConfigFilePerm); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	if err := os.Rename(tmp, p.path); err != nil {
		_ = os.Remove(tmp)

		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// configFilePath returns the config file in use, defaulting to
// $HOME/.imclient/config.yml.
func configFilePath() (string, error) {
	if used := viper.ConfigFileUsed(); used != "" {
		return used, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, ConfigDirName, "config.yml"), nil
}
