package client

import (
	"context"
	"fmt"
	nethttp "net/http"

	"github.com/fivetwenty-io/im-client/internal/constants"
	"github.com/fivetwenty-io/im-client/pkg/im"
)

// GetVMInfo returns the RADL description of a VM.
func (c *Client) GetVMInfo(ctx context.Context, infID, vmID string) (*im.ServiceResponse[string], error) {
	if err := requireVM(infID, vmID); err != nil {
		return nil, err
	}

	return execute(ctx, c, "vm info", textRequest(nethttp.MethodGet, vmPath(infID, vmID)), decodeValue)
}

// GetVMProperty returns a single RADL property of a VM, e.g. "state" or
// "net_interface.0.ip".
func (c *Client) GetVMProperty(ctx context.Context, infID, vmID, property string) (*im.ServiceResponse[string], error) {
	if err := requireVM(infID, vmID); err != nil {
		return nil, err
	}

	if err := requireID("property", property); err != nil {
		return nil, err
	}

	req := textRequest(nethttp.MethodGet, vmPath(infID, vmID, property))

	return execute(ctx, c, "vm property "+property, req, decodeValue)
}

// GetVMContMsg returns the contextualization log of a VM. It may be empty.
func (c *Client) GetVMContMsg(ctx context.Context, infID, vmID string) (*im.ServiceResponse[string], error) {
	if err := requireVM(infID, vmID); err != nil {
		return nil, err
	}

	req := textRequest(nethttp.MethodGet, vmPath(infID, vmID, constants.PropertyContMsg))

	return execute(ctx, c, "vm contmsg", req, decodeText)
}

// StartVM starts a VM.
func (c *Client) StartVM(ctx context.Context, infID, vmID string) (*im.ServiceResponse[string], error) {
	return c.vmAction(ctx, infID, vmID, im.OperationStart.String())
}

// StopVM stops a VM.
func (c *Client) StopVM(ctx context.Context, infID, vmID string) (*im.ServiceResponse[string], error) {
	return c.vmAction(ctx, infID, vmID, im.OperationStop.String())
}

// RebootVM reboots a VM.
func (c *Client) RebootVM(ctx context.Context, infID, vmID string) (*im.ServiceResponse[string], error) {
	return c.vmAction(ctx, infID, vmID, constants.ActionReboot)
}

func (c *Client) vmAction(ctx context.Context, infID, vmID, action string) (*im.ServiceResponse[string], error) {
	if err := requireVM(infID, vmID); err != nil {
		return nil, err
	}

	return execute(ctx, c, "vm "+action, textRequest(nethttp.MethodPut, vmPath(infID, vmID, action)), decodeText)
}

// AlterVM changes the features of a VM (e.g. cpu.count) and returns its new
// RADL. TOSCA is rejected whether it is declared as text/yaml or recognised
// in the document itself, including TOSCA sent as application/json.
func (c *Client) AlterVM(ctx context.Context, infID, vmID, doc string, contentType im.ContentType) (*im.ServiceResponse[string], error) {
	if err := requireVM(infID, vmID); err != nil {
		return nil, err
	}

	if err := requireDocument(doc, contentType); err != nil {
		return nil, err
	}

	if contentType == im.ContentTypeTOSCA || im.IsTOSCA(doc) {
		return nil, fmt.Errorf("%w: %w", im.ErrInvalidArgument, im.ErrToscaNotSupported)
	}

	req := withDocument(textRequest(nethttp.MethodPut, vmPath(infID, vmID)), doc, contentType)

	return execute(ctx, c, "alter vm", req, decodeText)
}

func requireVM(infID, vmID string) error {
	if err := requireID("infrastructure id", infID); err != nil {
		return err
	}

	return requireID("vm id", vmID)
}
