package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/fivetwenty-io/im-client/internal/auth"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewAuthCommand creates the auth command group.
func NewAuthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Inspect auth credentials",
		Long:  "Inspect and validate the auth file sent to the IM service",
	}

	cmd.AddCommand(newAuthShowCommand())
	cmd.AddCommand(newAuthValidateCommand())

	return cmd
}

func newAuthShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show credentials with secrets masked",
		Long:  "Display every credential of the auth file in order, masking passwords, tokens and keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			set, err := loadCredentialSet()
			if err != nil {
				return err
			}

			return renderCredentials(cmd.OutOrStdout(), set.Redacted())
		},
	}
}

func newAuthValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the auth file",
		Long:  "Parse the auth file and check it holds an InfrastructureManager credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			set, err := loadCredentialSet()
			if err != nil {
				return err
			}

			imCred := set.InfrastructureManager()
			result := map[string]interface{}{
				"valid":       true,
				"credentials": set.Len(),
				"im_id":       imCred.ID(),
			}

			return render(cmd.OutOrStdout(), renderer{
				data:   result,
				header: []string{"Property", "Value"},
				rows: [][]string{
					{"Valid", "true"},
					{"Credentials", fmt.Sprint(set.Len())},
					{"IM credential", imCred.ID()},
				},
				plain: func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "auth OK: %d credential(s)\n", set.Len())

					return err
				},
			})
		},
	}
}

// loadCredentialSet loads the configured auth file, or inline auth data when
// no file is configured.
func loadCredentialSet() (*auth.CredentialSet, error) {
	if path := viper.GetString(KeyAuthFile); path != "" {
		return auth.Load(path)
	}

	if data := viper.GetString(KeyAuthData); strings.TrimSpace(data) != "" {
		return auth.Parse(data)
	}

	return auth.Load("")
}

type credentialView struct {
	ID     string       `json:"id,omitempty" yaml:"id,omitempty"`
	Type   string       `json:"type"         yaml:"type"`
	Fields []auth.Field `json:"fields"       yaml:"fields"`
}

func renderCredentials(w io.Writer, creds []auth.Credential) error {
	views := make([]credentialView, 0, len(creds))
	rows := make([][]string, 0, len(creds))

	for _, c := range creds {
		views = append(views, credentialView{ID: c.ID(), Type: c.Type(), Fields: c.Fields()})

		var others []string

		for _, f := range c.Fields() {
			if f.Key == "id" || f.Key == "type" {
				continue
			}

			others = append(others, f.Key+"="+f.Value)
		}

		rows = append(rows, []string{c.ID(), c.Type(), strings.Join(others, ", ")})
	}

	return render(w, renderer{
		data:   views,
		header: []string{"ID", "Type", "Fields"},
		rows:   rows,
		plain: func(w io.Writer) error {
			for _, c := range creds {
				if _, err := fmt.Fprintln(w, c.String()); err != nil {
					return err
				}
			}

			return nil
		},
	})
}
