package commands

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fivetwenty-io/im-client/internal/constants"
	"github.com/fivetwenty-io/im-client/pkg/im"
	"github.com/spf13/cobra"
)

// Config is the persisted CLI configuration.
type Config struct {
	URL             string `json:"url,omitempty"               yaml:"url,omitempty"`
	AuthFile        string `json:"auth_file,omitempty"         yaml:"auth_file,omitempty"`
	Output          string `json:"output,omitempty"            yaml:"output,omitempty"`
	Timeout         string `json:"timeout,omitempty"           yaml:"timeout,omitempty"`
	LogLevel        string `json:"log_level,omitempty"         yaml:"log_level,omitempty"`
	LogFormat       string `json:"log_format,omitempty"        yaml:"log_format,omitempty"`
	NATSURL         string `json:"nats_url,omitempty"          yaml:"nats_url,omitempty"`
	PollInterval    string `json:"poll_interval,omitempty"     yaml:"poll_interval,omitempty"`
	PollMaxAttempts int    `json:"poll_max_attempts,omitempty" yaml:"poll_max_attempts,omitempty"`
}

// configField binds a config key to its storage and validation.
type configField struct {
	get   func(*Config) string
	set   func(*Config, string) error
	unset func(*Config)
}

func stringField(ptr func(*Config) *string, validate func(string) error) configField {
	return configField{
		get: func(c *Config) string { return *ptr(c) },
		set: func(c *Config, v string) error {
			if validate != nil {
				if err := validate(v); err != nil {
					return err
				}
			}

			*ptr(c) = v

			return nil
		},
		unset: func(c *Config) { *ptr(c) = "" },
	}
}

func validateDuration(v string) error {
	if _, err := time.ParseDuration(v); err != nil {
		return fmt.Errorf("%w: %s is not a duration", im.ErrInvalidArgument, v)
	}

	return nil
}

func validateOneOf(allowed ...string) func(string) error {
	return func(v string) error {
		for _, a := range allowed {
			if v == a {
				return nil
			}
		}

		return fmt.Errorf("%w: %q, want one of %s", im.ErrInvalidArgument, v, strings.Join(allowed, ", "))
	}
}

var configFields = map[string]configField{
	KeyURL:      stringField(func(c *Config) *string { return &c.URL }, nil),
	KeyAuthFile: stringField(func(c *Config) *string { return &c.AuthFile }, nil),
	KeyOutput: stringField(func(c *Config) *string { return &c.Output },
		validateOneOf(constants.FormatTable, constants.FormatJSON, constants.FormatYAML, constants.FormatPlain)),
	KeyTimeout:      stringField(func(c *Config) *string { return &c.Timeout }, validateDuration),
	KeyLogLevel:     stringField(func(c *Config) *string { return &c.LogLevel }, validateOneOf("debug", "info", "warn", "error")),
	KeyLogFormat:    stringField(func(c *Config) *string { return &c.LogFormat }, validateOneOf("text", "json")),
	KeyNATSURL:      stringField(func(c *Config) *string { return &c.NATSURL }, nil),
	KeyPollInterval: stringField(func(c *Config) *string { return &c.PollInterval }, validateDuration),
	KeyPollMaxAttempts: {
		get: func(c *Config) string {
			if c.PollMaxAttempts == 0 {
				return ""
			}

			return strconv.Itoa(c.PollMaxAttempts)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return fmt.Errorf("%w: %s is not a positive integer", im.ErrInvalidArgument, v)
			}

			c.PollMaxAttempts = n

			return nil
		},
		unset: func(c *Config) { c.PollMaxAttempts = 0 },
	},
}

// configKeys returns the settable keys in order.
func configKeys() []string {
	keys := make([]string, 0, len(configFields))
	for k := range configFields {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

func lookupConfigField(key string) (configField, error) {
	field, ok := configFields[strings.ReplaceAll(key, "-", "_")]
	if !ok {
		return configField{}, fmt.Errorf("%w: unknown config key %q (valid keys: %s)",
			im.ErrInvalidArgument, key, strings.Join(configKeys(), ", "))
	}

	return field, nil
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Show and change the settings stored in the imclient config file",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())
	cmd.AddCommand(newConfigUnsetCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the settings stored in the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			persister, err := defaultPersister()
			if err != nil {
				return err
			}

			config, err := persister.Load()
			if err != nil {
				return err
			}

			return renderConfig(cmd.OutOrStdout(), persister.Path(), config)
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Set a configuration value. Valid keys: " + strings.Join(configKeys(), ", "),
		Args:  cobra.ExactArgs(constants.MinimumArgumentCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			field, err := lookupConfigField(args[0])
			if err != nil {
				return err
			}

			persister, err := defaultPersister()
			if err != nil {
				return err
			}

			ctx, cancel := commandContext()
			defer cancel()

			if _, err := persister.Update(ctx, func(c *Config) error { return field.set(c, args[1]) }); err != nil {
				return err
			}

			return renderConfigUpdate(cmd.OutOrStdout(), "set", args[0], args[1])
		},
	}
}

func newConfigUnsetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unset KEY",
		Short: "Unset a configuration value",
		Long:  "Remove a configuration value from the config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			field, err := lookupConfigField(args[0])
			if err != nil {
				return err
			}

			persister, err := defaultPersister()
			if err != nil {
				return err
			}

			ctx, cancel := commandContext()
			defer cancel()

			_, err = persister.Update(ctx, func(c *Config) error {
				field.unset(c)

				return nil
			})
			if err != nil {
				return err
			}

			return renderConfigUpdate(cmd.OutOrStdout(), "unset", args[0], "")
		},
	}
}

func defaultPersister() (*ConfigPersister, error) {
	path, err := configFilePath()
	if err != nil {
		return nil, err
	}

	return NewConfigPersister(path), nil
}

func renderConfig(w io.Writer, path string, config *Config) error {
	rows := [][]string{{"config_file", path}}

	for _, key := range configKeys() {
		value := configFields[key].get(config)
		if value == "" {
			value = constants.NotAvailable
		}

		rows = append(rows, []string{key, value})
	}

	return render(w, renderer{data: config, header: []string{"Key", "Value"}, rows: rows})
}

func renderConfigUpdate(w io.Writer, action, key, value string) error {
	result := map[string]string{"action": action, "key": key}
	rows := [][]string{{"Action", action}, {"Key", key}}

	if value != "" {
		result["value"] = value
		rows = append(rows, []string{"Value", value})
	}

	return render(w, renderer{data: result, header: []string{"Property", "Value"}, rows: rows})
}
