package commands

import (
	"context"
	"fmt"

	"github.com/fivetwenty-io/im-client/pkg/im"
	"github.com/spf13/cobra"
)

// NewVMCommand creates the vm command group.
func NewVMCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "vm",
		Aliases: []string{"vms"},
		Short:   "Manage the VMs of an infrastructure",
		Long:    "Inspect, alter, start, stop, add and remove the VMs of an infrastructure",
	}

	cmd.AddCommand(newVMInfoCommand())
	cmd.AddCommand(newVMPropertyCommand())
	cmd.AddCommand(newVMContMsgCommand())
	cmd.AddCommand(newVMStartCommand())
	cmd.AddCommand(newVMStopCommand())
	cmd.AddCommand(newVMRebootCommand())
	cmd.AddCommand(newVMAlterCommand())
	cmd.AddCommand(newVMAddCommand())
	cmd.AddCommand(newVMRemoveCommand())

	return cmd
}

func newVMInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info INF_ID VM_ID",
		Short: "Show the RADL of a VM",
		Long:  "Display the RADL description of a VM",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(ctx context.Context, client im.Client) error {
				resp, err := client.GetVMInfo(ctx, args[0], args[1])
				if err != nil {
					return err
				}

				text, err := checkResponse(resp)
				if err != nil {
					return err
				}

				return renderText(cmd.OutOrStdout(), "radl", text)
			})
		},
	}
}

func newVMPropertyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "property INF_ID VM_ID PROPERTY",
		Short: "Show a VM property",
		Long:  "Display a single RADL property of a VM, e.g. state or net_interface.0.ip",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(ctx context.Context, client im.Client) error {
				resp, err := client.GetVMProperty(ctx, args[0], args[1], args[2])
				if err != nil {
					return err
				}

				text, err := checkResponse(resp)
				if err != nil {
					return err
				}

				return renderText(cmd.OutOrStdout(), args[2], text)
			})
		},
	}
}

func newVMContMsgCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "contmsg INF_ID VM_ID",
		Short: "Show the contextualization log of a VM",
		Long:  "Display the contextualization log of a single VM",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(ctx context.Context, client im.Client) error {
				resp, err := client.GetVMContMsg(ctx, args[0], args[1])
				if err != nil {
					return err
				}

				text, err := checkResponse(resp)
				if err != nil {
					return err
				}

				return renderText(cmd.OutOrStdout(), "contmsg", text)
			})
		},
	}
}

// newVMActionCommand builds a command running an action on one VM.
func newVMActionCommand(use, short, done string, act func(context.Context, im.Client, string, string) (*im.ServiceResponse[string], error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " INF_ID VM_ID",
		Short: short,
		Long:  short + " of an infrastructure",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(ctx context.Context, client im.Client) error {
				resp, err := act(ctx, client, args[0], args[1])
				if err != nil {
					return err
				}

				body, err := checkResponse(resp)
				if err != nil {
					return err
				}

				return renderAck(cmd.OutOrStdout(), fmt.Sprintf("VM %s %s", args[1], done), body)
			})
		},
	}
}

func newVMStartCommand() *cobra.Command {
	return newVMActionCommand("start", "Start a VM", "started",
		func(ctx context.Context, client im.Client, infID, vmID string) (*im.ServiceResponse[string], error) {
			return client.StartVM(ctx, infID, vmID)
		})
}

func newVMStopCommand() *cobra.Command {
	return newVMActionCommand("stop", "Stop a VM", "stopped",
		func(ctx context.Context, client im.Client, infID, vmID string) (*im.ServiceResponse[string], error) {
			return client.StopVM(ctx, infID, vmID)
		})
}

func newVMRebootCommand() *cobra.Command {
	return newVMActionCommand("reboot", "Reboot a VM", "rebooted",
		func(ctx context.Context, client im.Client, infID, vmID string) (*im.ServiceResponse[string], error) {
			return client.RebootVM(ctx, infID, vmID)
		})
}

func newVMAlterCommand() *cobra.Command {
	var file, contentType string

	cmd := &cobra.Command{
		Use:   "alter INF_ID VM_ID",
		Short: "Change the features of a VM",
		Long:  "Apply a RADL document (e.g. a new cpu.count) to a VM and print its new RADL",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, ct, err := loadDocument(file, contentType)
			if err != nil {
				return err
			}

			return withClient(func(ctx context.Context, client im.Client) error {
				resp, err := client.AlterVM(ctx, args[0], args[1], doc, ct)
				if err != nil {
					return err
				}

				text, err := checkResponse(resp)
				if err != nil {
					return err
				}

				return renderText(cmd.OutOrStdout(), "radl", text)
			})
		},
	}

	addDocumentFlags(cmd, &file, &contentType, true)

	return cmd
}

func newVMAddCommand() *cobra.Command {
	var (
		file, contentType string
		noContext         bool
	)

	cmd := &cobra.Command{
		Use:   "add INF_ID",
		Short: "Add VMs to an infrastructure",
		Long:  "Deploy the resources described by a document into an existing infrastructure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, ct, err := loadDocument(file, contentType)
			if err != nil {
				return err
			}

			return withClient(func(ctx context.Context, client im.Client) error {
				resp, err := client.AddResource(ctx, args[0], doc, ct, im.WithContextualization(!noContext))
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

	addDocumentFlags(cmd, &file, &contentType, true)
	cmd.Flags().BoolVar(&noContext, "no-context", false, "skip contextualization of the new VMs")

	return cmd
}

func newVMRemoveCommand() *cobra.Command {
	var noContext bool

	cmd := &cobra.Command{
		Use:     "remove INF_ID VM_ID...",
		Aliases: []string{"rm"},
		Short:   "Remove VMs from an infrastructure",
		Long:    "Delete one or more VMs from an infrastructure",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(ctx context.Context, client im.Client) error {
				resp, err := client.RemoveResource(ctx, args[0], args[1:], im.WithContextualization(!noContext))
				if err != nil {
					return err
				}

				body, err := checkResponse(resp)
				if err != nil {
					return err
				}

				return renderAck(cmd.OutOrStdout(), fmt.Sprintf("Removed %d VM(s) from infrastructure %s", len(args)-1, args[0]), body)
			})
		},
	}

	cmd.Flags().BoolVar(&noContext, "no-context", false, "skip contextualization after the removal")

	return cmd
}
