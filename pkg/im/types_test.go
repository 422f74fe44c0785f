package im_test

import (
	"testing"

	"github.com/fivetwenty-io/im-client/pkg/im"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVMState(t *testing.T) {
	t.Parallel()

	assert.Equal(t, im.VMStateRunning, im.ParseVMState("running"))
	assert.Equal(t, im.VMStateRunning, im.ParseVMState(" Running\n"))
	assert.True(t, im.ParseVMState("unconfigured").Known())

	opaque := im.ParseVMState("hibernating")
	assert.False(t, opaque.Known())
	assert.Equal(t, "hibernating", opaque.String())

	mixed := im.ParseVMState(" Deleting\n")
	assert.False(t, mixed.Known())
	assert.Equal(t, "Deleting", mixed.String())
}

func TestVMState_InAndIs(t *testing.T) {
	t.Parallel()

	assert.True(t, im.VMStateRunning.In(im.DefaultPollStates()...))
	assert.True(t, im.VMStateUnconfigured.In(im.DefaultPollStates()...))
	assert.False(t, im.VMStatePending.In(im.DefaultPollStates()...))
	assert.True(t, im.VMStateFailed.Is("failed\n"))
	assert.True(t, im.VMStateFailed.Is("FAILED"))
	assert.True(t, im.VMState("Deleting").Is("deleting"))
	assert.True(t, im.VMState("Deleting").In(im.VMState("deleting"), im.VMStateOff))
	assert.False(t, im.VMState("Deleting").In(im.DefaultPollStates()...))
}

func TestParseOperation(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"start", "stop", "contmsg", "radl", "state", "reconfigure"} {
		op, ok := im.ParseOperation(raw)
		require.True(t, ok, raw)
		assert.Equal(t, raw, op.String())
	}

	_, ok := im.ParseOperation("reboot")
	assert.False(t, ok)
}

func TestParseContentType(t *testing.T) {
	t.Parallel()

	tests := map[string]im.ContentType{
		"radl":             im.ContentTypeRADL,
		"text/plain":       im.ContentTypeRADL,
		"TOSCA":            im.ContentTypeTOSCA,
		"text/yaml":        im.ContentTypeTOSCA,
		"json":             im.ContentTypeJSON,
		"application/json": im.ContentTypeJSON,
	}

	for raw, want := range tests {
		got, err := im.ParseContentType(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got)
		assert.True(t, got.Valid())
	}

	_, err := im.ParseContentType("xml")
	require.ErrorIs(t, err, im.ErrUnknownContentType)
	assert.False(t, im.ContentType("text/xml").Valid())
}

func TestDetectContentType(t *testing.T) {
	t.Parallel()

	radl := `network publica (outbound = 'yes')
system front (
cpu.count>=1 and
memory.size>=512m
)
deploy front 1`

	tosca := `tosca_definitions_version: tosca_simple_yaml_1_0
topology_template:
  node_templates: {}
`

	assert.Equal(t, im.ContentTypeRADL, im.DetectContentType(radl))
	assert.Equal(t, im.ContentTypeTOSCA, im.DetectContentType(tosca))
	assert.Equal(t, im.ContentTypeJSON, im.DetectContentType(`{"class": "system", "id": "front"}`))
	assert.Equal(t, im.ContentTypeRADL, im.DetectContentType("key: value\n"))
	assert.Equal(t, im.ContentTypeRADL, im.DetectContentType(""))

	assert.True(t, im.IsTOSCA(tosca))
	assert.True(t, im.IsTOSCA(`{"tosca_definitions_version": "tosca_simple_yaml_1_0"}`))
	assert.False(t, im.IsTOSCA(radl))
	assert.False(t, im.IsTOSCA(`{"class": "system"}`))
}

func TestNewResourceURI(t *testing.T) {
	t.Parallel()

	uri := im.NewResourceURI(" http://im.example.com:8800/infrastructures/abc-123\n")
	assert.Equal(t, "http://im.example.com:8800/infrastructures/abc-123", uri.URI)
	assert.Equal(t, "abc-123", uri.ID)

	vm := im.NewResourceURI("http://im.example.com:8800/infrastructures/abc-123/vms/0/")
	assert.Equal(t, "0", vm.ID)

	assert.Equal(t, []string{"abc-123", "0"}, im.IDs([]im.ResourceURI{uri, vm}))
}

func TestNewResourceOptions(t *testing.T) {
	t.Parallel()

	assert.True(t, im.NewResourceOptions().Contextualize)
	assert.True(t, im.NewResourceOptions(im.WithContextualization(true)).Contextualize)
	assert.False(t, im.NewResourceOptions(im.WithContextualization(false)).Contextualize)
	assert.Equal(t, im.NewResourceOptions(), im.NewResourceOptions(im.WithContextualization(true)))
}

func TestPollOptions_WithDefaults(t *testing.T) {
	t.Parallel()

	var nilOpts *im.PollOptions
	defaults := nilOpts.WithDefaults()
	assert.Equal(t, im.DefaultPollStates(), defaults.States)
	assert.Equal(t, 20, defaults.MaxAttempts)
	assert.NotNil(t, defaults.Clock)

	custom := &im.PollOptions{MaxAttempts: 3, States: []im.VMState{im.VMStateConfigured}}
	filled := custom.WithDefaults()
	assert.Equal(t, 3, filled.MaxAttempts)
	assert.Equal(t, []im.VMState{im.VMStateConfigured}, filled.States)
	assert.Equal(t, defaults.Interval, filled.Interval)
	assert.Nil(t, custom.Clock, "receiver must not be modified")
}
