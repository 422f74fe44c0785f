package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"github.com/fivetwenty-io/im-client/internal/constants"
	"github.com/fivetwenty-io/im-client/pkg/im"
	"golang.org/x/sync/errgroup"
)

// WaitForVMState polls the state of a VM until it is one of opts.States or
// opts.MaxAttempts queries have been made. The first query is immediate and
// no wait follows the last one. Errors and non-2xx responses stop the loop.
func (c *Client) WaitForVMState(ctx context.Context, infID, vmID string, opts *im.PollOptions) (im.VMState, error) {
	if err := requireVM(infID, vmID); err != nil {
		return "", err
	}

	options := c.pollOptions(opts)
	policy := newBackOff(options)

	var last im.VMState

	for attempt := 1; attempt <= options.MaxAttempts; attempt++ {
		resp, err := c.GetVMProperty(ctx, infID, vmID, constants.PropertyState)
		if err != nil {
			return last, fmt.Errorf("polling state of vm %s: %w", vmID, err)
		}

		if !resp.Successful() {
			return last, resp.Err()
		}

		last = im.ParseVMState(resp.Result())
		accepted := last.In(options.States...)

		c.logger.Debug("VM state observed", map[string]interface{}{
			"infrastructure_id": infID,
			"vm_id":             vmID,
			"state":             last.String(),
			"attempt":           attempt,
			"max_attempts":      options.MaxAttempts,
		})

		if options.Observer != nil {
			options.Observer.ObserveState(ctx, im.StateEvent{
				InfrastructureID: infID,
				VMID:             vmID,
				State:            last,
				Attempt:          attempt,
				MaxAttempts:      options.MaxAttempts,
				Accepted:         accepted,
				ObservedAt:       options.Clock.Now(),
			})
		}

		if accepted {
			return last, nil
		}

		if attempt == options.MaxAttempts {
			break
		}

		wait := policy.NextBackOff()
		if wait == backoff.Stop {
			break
		}

		select {
		case <-ctx.Done():
			return last, fmt.Errorf("polling state of vm %s: %w", vmID, ctx.Err())
		case <-options.Clock.After(wait):
		}
	}

	return last, &im.PollingTimeoutError{
		InfrastructureID: infID,
		VMID:             vmID,
		Attempts:         options.MaxAttempts,
		LastState:        last,
		States:           options.States,
	}
}

// WaitForVMs waits for several VMs concurrently and returns the last state
// seen for each. Empty vmIDs means every VM of the infrastructure. The first
// failure cancels the remaining pollers.
func (c *Client) WaitForVMs(ctx context.Context, infID string, vmIDs []string, opts *im.PollOptions) (map[string]im.VMState, error) {
	if err := requireID("infrastructure id", infID); err != nil {
		return nil, err
	}

	if len(vmIDs) == 0 {
		resp, err := c.GetInfrastructureInfo(ctx, infID)
		if err != nil {
			return nil, err
		}

		if !resp.Successful() {
			return nil, resp.Err()
		}

		vmIDs = im.IDs(resp.Result())
	}

	var (
		mu     sync.Mutex
		states = make(map[string]im.VMState, len(vmIDs))
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(constants.DefaultWaitConcurrency)

	for _, vmID := range vmIDs {
		vmID := vmID
		group.Go(func() error {
			state, err := c.WaitForVMState(groupCtx, infID, vmID, opts)

			mu.Lock()
			states[vmID] = state
			mu.Unlock()

			return err
		})
	}

	if err := group.Wait(); err != nil {
		return states, err
	}

	return states, nil
}

func (c *Client) pollOptions(opts *im.PollOptions) *im.PollOptions {
	if opts == nil {
		opts = c.poll
	}

	return opts.WithDefaults()
}

func newBackOff(options *im.PollOptions) backoff.BackOff {
	if options.Strategy == im.BackoffExponential {
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = options.Interval
		exp.MaxInterval = options.MaxInterval
		exp.MaxElapsedTime = 0
		exp.Reset()

		return exp
	}

	return backoff.NewConstantBackOff(options.Interval)
}
