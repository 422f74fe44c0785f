package commands

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/fivetwenty-io/im-client/pkg/im"
	"github.com/spf13/cobra"
)

// NewInfraCommand creates the infra command group.
func NewInfraCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "infra",
		Aliases: []string{"infrastructure", "inf"},
		Short:   "Manage infrastructures",
		Long:    "Create, inspect, reconfigure and destroy virtual infrastructures",
	}

	cmd.AddCommand(newInfraCreateCommand())
	cmd.AddCommand(newInfraListCommand())
	cmd.AddCommand(newInfraInfoCommand())
	cmd.AddCommand(newInfraContMsgCommand())
	cmd.AddCommand(newInfraRADLCommand())
	cmd.AddCommand(newInfraStateCommand())
	cmd.AddCommand(newInfraOutputsCommand())
	cmd.AddCommand(newInfraStartCommand())
	cmd.AddCommand(newInfraStopCommand())
	cmd.AddCommand(newInfraReconfigureCommand())
	cmd.AddCommand(newInfraDestroyCommand())
	cmd.AddCommand(newInfraWaitCommand())

	return cmd
}

func newInfraCreateCommand() *cobra.Command {
	var file, contentType string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an infrastructure",
		Long:  "Deploy the infrastructure described by a RADL or TOSCA document and print its id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, ct, err := loadDocument(file, contentType)
			if err != nil {
				return err
			}

			return withClient(func(ctx context.Context, client im.Client) error {
				resp, err := client.CreateInfrastructure(ctx, doc, ct)
				if err != nil {
					return err
				}

				uri, err := checkResponse(resp)
				if err != nil {
					return err
				}

				return render(cmd.OutOrStdout(), renderer{
					data:   uri,
					header: []string{"ID", "URI"},
					rows:   [][]string{{uri.ID, uri.URI}},
					plain: func(w io.Writer) error {
						_, err := fmt.Fprintln(w, uri.ID)

						return err
					},
				})
			})
		},
	}

	addDocumentFlags(cmd, &file, &contentType, true)

	return cmd
}

func newInfraListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List infrastructures",
		Long:    "List the infrastructures visible with the current credentials",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(func(ctx context.Context, client im.Client) error {
				resp, err := client.GetInfrastructureList(ctx)
				if err != nil {
					return err
				}

				uris, err := checkResponse(resp)
				if err != nil {
					return err
				}

				return renderURIs(cmd.OutOrStdout(), uris)
			})
		},
	}
}

func newInfraInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info INF_ID",
		Short: "List the VMs of an infrastructure",
		Long:  "Display the URIs of every VM of an infrastructure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(ctx context.Context, client im.Client) error {
				resp, err := client.GetInfrastructureInfo(ctx, args[0])
				if err != nil {
					return err
				}

				uris, err := checkResponse(resp)
				if err != nil {
					return err
				}

				return renderURIs(cmd.OutOrStdout(), uris)
			})
		},
	}
}

// newInfraTextCommand builds a command printing a text property of an infrastructure.
func newInfraTextCommand(use, short, long, key string, get func(context.Context, im.Client, string) (*im.ServiceResponse[string], error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " INF_ID",
		Short: short,
		Long:  long,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(ctx context.Context, client im.Client) error {
				resp, err := get(ctx, client, args[0])
				if err != nil {
					return err
				}

				text, err := checkResponse(resp)
				if err != nil {
					return err
				}

				return renderText(cmd.OutOrStdout(), key, text)
			})
		},
	}
}

func newInfraContMsgCommand() *cobra.Command {
	return newInfraTextCommand("contmsg", "Show the contextualization log",
		"Display the contextualization log of an infrastructure", "contmsg",
		func(ctx context.Context, client im.Client, infID string) (*im.ServiceResponse[string], error) {
			return client.GetInfrastructureContMsg(ctx, infID)
		})
}

func newInfraRADLCommand() *cobra.Command {
	return newInfraTextCommand("radl", "Show the RADL",
		"Display the RADL description of an infrastructure", "radl",
		func(ctx context.Context, client im.Client, infID string) (*im.ServiceResponse[string], error) {
			return client.GetInfrastructureRADL(ctx, infID)
		})
}

func newInfraStateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "state INF_ID",
		Short: "Show infrastructure and VM states",
		Long:  "Display the aggregated state of an infrastructure and the state of each VM",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(ctx context.Context, client im.Client) error {
				resp, err := client.GetInfrastructureState(ctx, args[0])
				if err != nil {
					return err
				}

				state, err := checkResponse(resp)
				if err != nil {
					return err
				}

				return renderInfrastructureState(cmd.OutOrStdout(), state)
			})
		},
	}
}

func renderInfrastructureState(w io.Writer, state im.InfrastructureState) error {
	ids := make([]string, 0, len(state.VMStates))
	for id := range state.VMStates {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	rows := [][]string{{"infrastructure", stateLabel(state.State)}}
	for _, id := range ids {
		rows = append(rows, []string{"vm " + id, stateLabel(state.VMStates[id])})
	}

	return render(w, renderer{
		data:   state,
		header: []string{"Resource", "State"},
		rows:   rows,
		plain: func(w io.Writer) error {
			if _, err := fmt.Fprintln(w, state.State); err != nil {
				return err
			}

			for _, id := range ids {
				if _, err := fmt.Fprintf(w, "%s\t%s\n", id, state.VMStates[id]); err != nil {
					return err
				}
			}

			return nil
		},
	})
}

func newInfraOutputsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "outputs INF_ID",
		Short: "Show TOSCA outputs",
		Long:  "Display the outputs of an infrastructure deployed from a TOSCA document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(ctx context.Context, client im.Client) error {
				resp, err := client.GetInfrastructureOutputs(ctx, args[0])
				if err != nil {
					return err
				}

				outputs, err := checkResponse(resp)
				if err != nil {
					return err
				}

				keys := make([]string, 0, len(outputs))
				for k := range outputs {
					keys = append(keys, k)
				}

				sort.Strings(keys)

				rows := make([][]string, 0, len(keys))
				for _, k := range keys {
					rows = append(rows, []string{k, outputs[k]})
				}

				return render(cmd.OutOrStdout(), renderer{data: outputs, header: []string{"Output", "Value"}, rows: rows})
			})
		},
	}
}

// newInfraActionCommand builds a command running an action on an infrastructure.
func newInfraActionCommand(use, short, long, done string, act func(context.Context, im.Client, string) (*im.ServiceResponse[string], error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " INF_ID",
		Short: short,
		Long:  long,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(ctx context.Context, client im.Client) error {
				resp, err := act(ctx, client, args[0])
				if err != nil {
					return err
				}

				body, err := checkResponse(resp)
				if err != nil {
					return err
				}

				return renderAck(cmd.OutOrStdout(), fmt.Sprintf("Infrastructure %s %s", args[0], done), body)
			})
		},
	}
}

func newInfraStartCommand() *cobra.Command {
	return newInfraActionCommand("start", "Start an infrastructure", "Start every VM of an infrastructure", "started",
		func(ctx context.Context, client im.Client, infID string) (*im.ServiceResponse[string], error) {
			return client.StartInfrastructure(ctx, infID)
		})
}

func newInfraStopCommand() *cobra.Command {
	return newInfraActionCommand("stop", "Stop an infrastructure", "Stop every VM of an infrastructure", "stopped",
		func(ctx context.Context, client im.Client, infID string) (*im.ServiceResponse[string], error) {
			return client.StopInfrastructure(ctx, infID)
		})
}

func newInfraDestroyCommand() *cobra.Command {
	return newInfraActionCommand("destroy", "Destroy an infrastructure", "Delete an infrastructure and all its VMs", "destroyed",
		func(ctx context.Context, client im.Client, infID string) (*im.ServiceResponse[string], error) {
			return client.DestroyInfrastructure(ctx, infID)
		})
}

func newInfraReconfigureCommand() *cobra.Command {
	var (
		file, contentType string
		vmIDs             []string
	)

	cmd := &cobra.Command{
		Use:   "reconfigure INF_ID",
		Short: "Reconfigure an infrastructure",
		Long:  "Re-run contextualization, optionally with a new document and only on some VMs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				doc string
				ct  im.ContentType
			)

			if file != "" {
				var err error

				doc, ct, err = loadDocument(file, contentType)
				if err != nil {
					return err
				}
			}

			return withClient(func(ctx context.Context, client im.Client) error {
				resp, err := client.Reconfigure(ctx, args[0], doc, ct, vmIDs)
				if err != nil {
					return err
				}

				body, err := checkResponse(resp)
				if err != nil {
					return err
				}

				return renderAck(cmd.OutOrStdout(), fmt.Sprintf("Infrastructure %s reconfigured", args[0]), body)
			})
		},
	}

	addDocumentFlags(cmd, &file, &contentType, false)
	cmd.Flags().StringSliceVar(&vmIDs, "vm", nil, "reconfigure only these VMs (repeatable or comma separated)")

	return cmd
}
