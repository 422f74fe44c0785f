package client

import (
	"context"
	nethttp "net/http"
	"net/url"
	"strings"

	"github.com/fivetwenty-io/im-client/internal/constants"
	"github.com/fivetwenty-io/im-client/pkg/im"
)

// CreateInfrastructure implements im.InfrastructureClient.CreateInfrastructure.
func (c *Client) CreateInfrastructure(ctx context.Context, doc string, contentType im.ContentType) (*im.ServiceResponse[im.ResourceURI], error) {
	if err := requireDocument(doc, contentType); err != nil {
		return nil, err
	}

	req := withDocument(jsonRequest(nethttp.MethodPost, infrastructurePath("")), doc, contentType)

	return execute(ctx, c, "create infrastructure", req, decodeSingleURI)
}

// GetInfrastructureList implements im.InfrastructureClient.GetInfrastructureList.
func (c *Client) GetInfrastructureList(ctx context.Context) (*im.ServiceResponse[[]im.ResourceURI], error) {
	return execute(ctx, c, "list infrastructures", jsonRequest(nethttp.MethodGet, infrastructurePath("")), decodeURIList)
}

// GetInfrastructureInfo returns the URIs of the VMs of an infrastructure.
func (c *Client) GetInfrastructureInfo(ctx context.Context, infID string) (*im.ServiceResponse[[]im.ResourceURI], error) {
	if err := requireID("infrastructure id", infID); err != nil {
		return nil, err
	}

	return execute(ctx, c, "infrastructure info", jsonRequest(nethttp.MethodGet, infrastructurePath(infID)), decodeURIList)
}

// GetInfrastructureContMsg returns the contextualization log. It may be empty.
func (c *Client) GetInfrastructureContMsg(ctx context.Context, infID string) (*im.ServiceResponse[string], error) {
	return c.infrastructureText(ctx, infID, im.OperationContMsg, decodeText)
}

// GetInfrastructureRADL returns the RADL of the infrastructure.
func (c *Client) GetInfrastructureRADL(ctx context.Context, infID string) (*im.ServiceResponse[string], error) {
	return c.infrastructureText(ctx, infID, im.OperationRADL, decodeValue)
}

func (c *Client) infrastructureText(ctx context.Context, infID string, op im.Operation, decode decoder[string]) (*im.ServiceResponse[string], error) {
	if err := requireID("infrastructure id", infID); err != nil {
		return nil, err
	}

	req := textRequest(nethttp.MethodGet, infrastructurePath(infID, op.String()))

	return execute(ctx, c, "infrastructure "+op.String(), req, decode)
}

// GetInfrastructureState returns the aggregated state and the state of each VM.
func (c *Client) GetInfrastructureState(ctx context.Context, infID string) (*im.ServiceResponse[im.InfrastructureState], error) {
	if err := requireID("infrastructure id", infID); err != nil {
		return nil, err
	}

	req := jsonRequest(nethttp.MethodGet, infrastructurePath(infID, im.OperationState.String()))

	return execute(ctx, c, "infrastructure state", req, decodeInfrastructureState)
}

// GetInfrastructureOutputs returns the TOSCA outputs of the infrastructure.
func (c *Client) GetInfrastructureOutputs(ctx context.Context, infID string) (*im.ServiceResponse[map[string]string], error) {
	if err := requireID("infrastructure id", infID); err != nil {
		return nil, err
	}

	req := jsonRequest(nethttp.MethodGet, infrastructurePath(infID, constants.PropertyOutputs))

	return execute(ctx, c, "infrastructure outputs", req, decodeOutputs)
}

// AddResource deploys the resources described by doc and returns the URIs of
// the new VMs. Contextualization runs unless disabled with
// im.WithContextualization(false).
func (c *Client) AddResource(ctx context.Context, infID, doc string, contentType im.ContentType, opts ...im.ResourceOption) (*im.ServiceResponse[[]im.ResourceURI], error) {
	if err := requireID("infrastructure id", infID); err != nil {
		return nil, err
	}

	if err := requireDocument(doc, contentType); err != nil {
		return nil, err
	}

	req := withDocument(jsonRequest(nethttp.MethodPost, infrastructurePath(infID)), doc, contentType)
	req.Query = contextQuery(opts)

	return execute(ctx, c, "add resource", req, decodeURIList)
}

// RemoveResource removes the given VMs from the infrastructure.
func (c *Client) RemoveResource(ctx context.Context, infID string, vmIDs []string, opts ...im.ResourceOption) (*im.ServiceResponse[string], error) {
	if err := requireID("infrastructure id", infID); err != nil {
		return nil, err
	}

	if err := requireIDList("vm ids", vmIDs); err != nil {
		return nil, err
	}

	escaped := make([]string, 0, len(vmIDs))
	for _, id := range vmIDs {
		escaped = append(escaped, url.PathEscape(id))
	}

	req := textRequest(nethttp.MethodDelete, infrastructurePath(infID, constants.PathVMs)+"/"+strings.Join(escaped, ","))
	req.Query = contextQuery(opts)

	return execute(ctx, c, "remove resource", req, decodeText)
}

// StartInfrastructure starts every VM of the infrastructure.
func (c *Client) StartInfrastructure(ctx context.Context, infID string) (*im.ServiceResponse[string], error) {
	return c.infrastructureAction(ctx, infID, im.OperationStart)
}

// StopInfrastructure stops every VM of the infrastructure.
func (c *Client) StopInfrastructure(ctx context.Context, infID string) (*im.ServiceResponse[string], error) {
	return c.infrastructureAction(ctx, infID, im.OperationStop)
}

func (c *Client) infrastructureAction(ctx context.Context, infID string, op im.Operation) (*im.ServiceResponse[string], error) {
	if err := requireID("infrastructure id", infID); err != nil {
		return nil, err
	}

	req := textRequest(nethttp.MethodPut, infrastructurePath(infID, op.String()))

	return execute(ctx, c, "infrastructure "+op.String(), req, decodeText)
}

// Reconfigure re-runs contextualization, optionally with a new document and
// limited to vmIDs. An empty doc sends an empty body; empty vmIDs means all VMs.
func (c *Client) Reconfigure(ctx context.Context, infID, doc string, contentType im.ContentType, vmIDs []string) (*im.ServiceResponse[string], error) {
	if err := requireID("infrastructure id", infID); err != nil {
		return nil, err
	}

	for _, id := range vmIDs {
		if err := requireID("vm id", id); err != nil {
			return nil, err
		}
	}

	req := textRequest(nethttp.MethodPut, infrastructurePath(infID, im.OperationReconfigure.String()))

	if strings.TrimSpace(doc) == "" {
		c.logger.Debug(im.Message(im.InfoEmptyPutContent), map[string]interface{}{
			"operation":         im.OperationReconfigure.String(),
			"infrastructure_id": infID,
		})

		req.Body = []byte{}
	} else {
		if !contentType.Valid() {
			return nil, im.InvalidArgumentError("content type " + contentType.String())
		}

		req = withDocument(req, doc, contentType)
	}

	if len(vmIDs) > 0 {
		req.Query = url.Values{constants.QueryVMList: []string{strings.Join(vmIDs, ",")}}
	}

	return execute(ctx, c, "reconfigure", req, decodeText)
}

// DestroyInfrastructure deletes the infrastructure and all its VMs.
func (c *Client) DestroyInfrastructure(ctx context.Context, infID string) (*im.ServiceResponse[string], error) {
	if err := requireID("infrastructure id", infID); err != nil {
		return nil, err
	}

	return execute(ctx, c, "destroy infrastructure", textRequest(nethttp.MethodDelete, infrastructurePath(infID)), decodeText)
}

// GetVersion returns the version of the IM service.
func (c *Client) GetVersion(ctx context.Context) (*im.ServiceResponse[string], error) {
	return execute(ctx, c, "version", textRequest(nethttp.MethodGet, constants.PathVersion), decodeValue)
}
