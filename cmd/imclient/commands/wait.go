package commands

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/docker/go-units"
	"github.com/fivetwenty-io/im-client/pkg/events"
	"github.com/fivetwenty-io/im-client/pkg/im"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type waitOptions struct {
	states        []string
	interval      time.Duration
	maxInterval   time.Duration
	maxAttempts   int
	exponential   bool
	natsURL       string
	subjectPrefix string
	quiet         bool
}

func newInfraWaitCommand() *cobra.Command {
	opts := &waitOptions{}

	cmd := &cobra.Command{
		Use:   "wait INF_ID [VM_ID...]",
		Short: "Wait for VMs to reach a state",
		Long: `Poll the state of the given VMs, or of every VM of the infrastructure,
until each reaches one of the accepted states (running or unconfigured by default).

Observations can be published to NATS with --nats-url.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pollOpts, err := opts.pollOptions()
			if err != nil {
				return err
			}

			observer, closeObserver, err := opts.observer(cmd.ErrOrStderr(), time.Now())
			if err != nil {
				return err
			}
			defer closeObserver()

			pollOpts.Observer = observer

			return withClient(func(ctx context.Context, client im.Client) error {
				states, err := client.WaitForVMs(ctx, args[0], args[1:], pollOpts)
				if len(states) > 0 {
					if renderErr := renderVMStates(cmd.OutOrStdout(), states); renderErr != nil && err == nil {
						err = renderErr
					}
				}

				return err
			})
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVar(&opts.states, "state", nil, "accepted states (default running,unconfigured)")
	flags.DurationVar(&opts.interval, "interval", 0, "wait between state queries (default from config or 5s)")
	flags.DurationVar(&opts.maxInterval, "max-interval", 0, "cap of the exponential interval (default 1m)")
	flags.IntVar(&opts.maxAttempts, "max-attempts", 0, "state queries per VM before giving up (default from config or 20)")
	flags.BoolVar(&opts.exponential, "exponential", false, "grow the interval exponentially")
	flags.StringVar(&opts.natsURL, "nats-url", "", "publish state observations to this NATS server")
	flags.StringVar(&opts.subjectPrefix, "nats-subject-prefix", "", "NATS subject prefix (default im.infrastructures)")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "do not report progress on stderr")

	return cmd
}

func (o *waitOptions) pollOptions() (*im.PollOptions, error) {
	opts := pollDefaults()

	if len(o.states) > 0 {
		opts.States = make([]im.VMState, 0, len(o.states))
		for _, s := range o.states {
			state := im.ParseVMState(s)
			if !state.Known() {
				return nil, fmt.Errorf("%w: unknown VM state %q", im.ErrInvalidArgument, s)
			}

			opts.States = append(opts.States, state)
		}
	}

	if o.interval > 0 {
		opts.Interval = o.interval
	}

	if o.maxInterval > 0 {
		opts.MaxInterval = o.maxInterval
	}

	if o.maxAttempts > 0 {
		opts.MaxAttempts = o.maxAttempts
	}

	if o.exponential {
		opts.Strategy = im.BackoffExponential
	}

	return opts, nil
}

// observer returns the progress reporter, plus the NATS publisher when one
// is configured. The returned func closes the NATS connection.
func (o *waitOptions) observer(progress io.Writer, started time.Time) (im.StateObserver, func(), error) {
	var observers []im.StateObserver

	if !o.quiet {
		observers = append(observers, newProgressObserver(progress, started))
	}

	natsURL := o.natsURL
	if natsURL == "" {
		natsURL = viper.GetString(KeyNATSURL)
	}

	if natsURL == "" {
		return im.MultiObserver(observers...), func() {}, nil
	}

	logger, err := newLogger()
	if err != nil {
		return nil, nil, err
	}

	publisher, err := events.Connect(&events.NATSConfig{URL: natsURL, SubjectPrefix: o.subjectPrefix}, events.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}

	observers = append(observers, publisher)

	return im.MultiObserver(observers...), func() { _ = publisher.Close() }, nil
}

// newProgressObserver writes one line per observation, e.g.
// "vm 0: pending (attempt 2/20, 10 seconds elapsed)".
func newProgressObserver(w io.Writer, started time.Time) im.StateObserver {
	var mu sync.Mutex

	return im.StateObserverFunc(func(_ context.Context, event im.StateEvent) {
		elapsed := event.ObservedAt.Sub(started)
		if elapsed < 0 {
			elapsed = 0
		}

		mu.Lock()
		defer mu.Unlock()

		_, _ = fmt.Fprintf(w, "vm %s: %s (attempt %d/%d, %s elapsed)\n",
			event.VMID, event.State, event.Attempt, event.MaxAttempts, units.HumanDuration(elapsed))
	})
}

func renderVMStates(w io.Writer, states map[string]im.VMState) error {
	ids := make([]string, 0, len(states))
	for id := range states {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, []string{id, stateLabel(states[id])})
	}

	return render(w, renderer{
		data:   states,
		header: []string{"VM", "State"},
		rows:   rows,
		plain: func(w io.Writer) error {
			for _, id := range ids {
				if _, err := fmt.Fprintf(w, "%s\t%s\n", id, states[id]); err != nil {
					return err
				}
			}

			return nil
		},
	})
}
