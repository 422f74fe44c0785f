package im

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/fivetwenty-io/im-client/internal/constants"
	"gopkg.in/yaml.v3"
)

// VMState is the lifecycle state of a VM as reported by the IM service.
// Values outside the known set are kept as-is.
type VMState string

// Known VM states.
const (
	VMStatePending      VMState = "pending"
	VMStateRunning      VMState = "running"
	VMStateUnconfigured VMState = "unconfigured"
	VMStateConfigured   VMState = "configured"
	VMStateStopped      VMState = "stopped"
	VMStateOff          VMState = "off"
	VMStateFailed       VMState = "failed"
	VMStateUnknown      VMState = "unknown"
)

var knownVMStates = map[VMState]struct{}{
	VMStatePending:      {},
	VMStateRunning:      {},
	VMStateUnconfigured: {},
	VMStateConfigured:   {},
	VMStateStopped:      {},
	VMStateOff:          {},
	VMStateFailed:       {},
	VMStateUnknown:      {},
}

// ParseVMState maps a wire value to a VMState. Surrounding whitespace is
// trimmed. Known states match case-insensitively; any other value is kept
// exactly as sent.
func ParseVMState(raw string) VMState {
	trimmed := strings.TrimSpace(raw)

	if known := VMState(strings.ToLower(trimmed)); known.Known() {
		return known
	}

	return VMState(trimmed)
}

// String returns the wire representation.
func (s VMState) String() string {
	return string(s)
}

// Known reports whether s belongs to the documented state set.
func (s VMState) Known() bool {
	_, ok := knownVMStates[s]

	return ok
}

// Is reports whether the raw wire value denotes s, ignoring case.
func (s VMState) Is(raw string) bool {
	return strings.EqualFold(strings.TrimSpace(raw), string(s))
}

// In reports whether s is one of states, ignoring case.
func (s VMState) In(states ...VMState) bool {
	for _, candidate := range states {
		if strings.EqualFold(string(s), string(candidate)) {
			return true
		}
	}

	return false
}

// Operation selects the URL suffix and decoding strategy of infrastructure
// and VM sub-resource calls.
type Operation string

// Operations.
const (
	OperationStart       Operation = "start"
	OperationStop        Operation = "stop"
	OperationContMsg     Operation = "contmsg"
	OperationRADL        Operation = "radl"
	OperationState       Operation = "state"
	OperationReconfigure Operation = "reconfigure"
)

var operations = map[string]Operation{
	string(OperationStart):       OperationStart,
	string(OperationStop):        OperationStop,
	string(OperationContMsg):     OperationContMsg,
	string(OperationRADL):        OperationRADL,
	string(OperationState):       OperationState,
	string(OperationReconfigure): OperationReconfigure,
}

// ParseOperation looks up an Operation by its wire value.
func ParseOperation(raw string) (Operation, bool) {
	op, ok := operations[raw]

	return op, ok
}

// String returns the URL segment of the operation.
func (o Operation) String() string {
	return string(o)
}

// ContentType is the media type of a document sent to the service.
type ContentType string

// Supported document content types.
const (
	ContentTypeRADL  ContentType = constants.MediaTypeText
	ContentTypeTOSCA ContentType = constants.MediaTypeYAML
	ContentTypeJSON  ContentType = constants.MediaTypeJSON
)

// ParseContentType accepts a media type or one of the short names radl, tosca
// and json.
func ParseContentType(raw string) (ContentType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "radl", string(ContentTypeRADL):
		return ContentTypeRADL, nil
	case "tosca", "yaml", string(ContentTypeTOSCA):
		return ContentTypeTOSCA, nil
	case "json", string(ContentTypeJSON):
		return ContentTypeJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownContentType, raw)
	}
}

// String returns the media type.
func (c ContentType) String() string {
	return string(c)
}

// Valid reports whether c is a supported content type.
func (c ContentType) Valid() bool {
	switch c {
	case ContentTypeRADL, ContentTypeTOSCA, ContentTypeJSON:
		return true
	default:
		return false
	}
}

const toscaVersionKey = "tosca_definitions_version"

// DetectContentType classifies a document. A JSON object is JSON, a YAML
// mapping with tosca_definitions_version is TOSCA, anything else is RADL.
func DetectContentType(doc string) ContentType {
	trimmed := bytes.TrimSpace([]byte(doc))
	if len(trimmed) > 0 && trimmed[0] == '{' && json.Valid(trimmed) {
		return ContentTypeJSON
	}

	if IsTOSCA(doc) {
		return ContentTypeTOSCA
	}

	return ContentTypeRADL
}

// IsTOSCA reports whether doc is a TOSCA template in YAML or JSON form, that
// is a mapping carrying tosca_definitions_version.
func IsTOSCA(doc string) bool {
	var probe map[string]interface{}
	if err := yaml.Unmarshal([]byte(strings.TrimSpace(doc)), &probe); err != nil {
		return false
	}

	_, ok := probe[toscaVersionKey]

	return ok
}

// ResourceURI is an infrastructure or VM URI returned by the service along
// with its id, the last path segment.
type ResourceURI struct {
	URI string `json:"uri" yaml:"uri"`
	ID  string `json:"id"  yaml:"id"`
}

// NewResourceURI builds a ResourceURI from a raw URI.
func NewResourceURI(raw string) ResourceURI {
	uri := strings.TrimSpace(raw)

	return ResourceURI{URI: uri, ID: path.Base(strings.TrimRight(uri, "/"))}
}

// String returns the URI.
func (r ResourceURI) String() string {
	return r.URI
}

// IDs returns the ids of uris in order.
func IDs(uris []ResourceURI) []string {
	ids := make([]string, 0, len(uris))
	for _, u := range uris {
		ids = append(ids, u.ID)
	}

	return ids
}

// InfrastructureState is the aggregated state of an infrastructure and the
// state of each of its VMs keyed by VM id.
type InfrastructureState struct {
	State    VMState            `json:"state"     yaml:"state"`
	VMStates map[string]VMState `json:"vm_states" yaml:"vm_states"`
}
