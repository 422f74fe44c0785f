package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fivetwenty-io/im-client/cmd/imclient/commands"
	"github.com/fivetwenty-io/im-client/internal/constants"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "imclient",
	Short: "Infrastructure Manager CLI",
	Long: `A command-line interface for the Infrastructure Manager (IM) REST API.

It creates, inspects, reconfigures, scales and destroys virtual infrastructures
described by RADL or TOSCA documents.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "config file (default is $HOME/.imclient/config.yml)")
	flags.StringP("url", "u", "", "IM service URL")
	flags.StringP("auth-file", "a", "", "path to the auth file")
	flags.StringP("output", "o", "", "output format (table, json, yaml, plain)")
	flags.Duration("timeout", constants.DefaultHTTPTimeout, "HTTP request timeout")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	flags.Bool("debug", false, "log HTTP requests and responses")

	_ = viper.BindPFlag("config", flags.Lookup("config"))
	_ = viper.BindPFlag(commands.KeyURL, flags.Lookup("url"))
	_ = viper.BindPFlag(commands.KeyAuthFile, flags.Lookup("auth-file"))
	_ = viper.BindPFlag(commands.KeyOutput, flags.Lookup("output"))
	_ = viper.BindPFlag(commands.KeyTimeout, flags.Lookup("timeout"))
	_ = viper.BindPFlag(commands.KeyLogLevel, flags.Lookup("log-level"))
	_ = viper.BindPFlag(commands.KeyLogFormat, flags.Lookup("log-format"))
	_ = viper.BindPFlag(commands.KeyDebug, flags.Lookup("debug"))

	rootCmd.AddCommand(commands.NewVersionCommand(version, commit, date))
	rootCmd.AddCommand(commands.NewServerVersionCommand())
	rootCmd.AddCommand(commands.NewConfigCommand())
	rootCmd.AddCommand(commands.NewAuthCommand())
	rootCmd.AddCommand(commands.NewInfraCommand())
	rootCmd.AddCommand(commands.NewVMCommand())
}

func initConfig() {
	cfgFile := viper.GetString("config")

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		viper.AddConfigPath(filepath.Join(home, commands.ConfigDirName))
		viper.SetConfigType("yml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("IMCLIENT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && viper.GetBool(commands.KeyDebug) {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
