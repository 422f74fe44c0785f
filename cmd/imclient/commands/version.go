package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/fivetwenty-io/im-client/pkg/im"
	"github.com/spf13/cobra"
)

// VersionInfo describes the CLI build.
type VersionInfo struct {
	Version string `json:"version" yaml:"version"`
	Commit  string `json:"commit"  yaml:"commit"`
	Built   string `json:"built"   yaml:"built"`
}

// NewVersionCommand creates the version command.
func NewVersionCommand(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		Long:  "Display detailed version information about the imclient CLI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := VersionInfo{Version: version, Commit: commit, Built: date}

			return render(cmd.OutOrStdout(), renderer{
				data:   info,
				header: []string{"Property", "Value"},
				rows: [][]string{
					{"Version", version},
					{"Commit", commit},
					{"Built", date},
				},
				plain: func(w io.Writer) error {
					_, err := fmt.Fprintln(w, version)

					return err
				},
			})
		},
	}
}

// NewServerVersionCommand creates the server-version command.
func NewServerVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "server-version",
		Short: "Display the IM service version",
		Long:  "Query the version of the Infrastructure Manager service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(func(ctx context.Context, client im.Client) error {
				resp, err := client.GetVersion(ctx)
				if err != nil {
					return err
				}

				version, err := checkResponse(resp)
				if err != nil {
					return err
				}

				return renderText(cmd.OutOrStdout(), "version", version)
			})
		},
	}
}
