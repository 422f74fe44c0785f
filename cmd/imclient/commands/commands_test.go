package commands

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fivetwenty-io/im-client/pkg/im"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInfraCommand(t *testing.T) {
	cmd := NewInfraCommand()
	assert.Equal(t, "infra", cmd.Use)
	assert.Equal(t, []string{"infrastructure", "inf"}, cmd.Aliases)
	assert.ElementsMatch(t, []string{
		"create", "list", "info", "contmsg", "radl", "state", "outputs",
		"start", "stop", "reconfigure", "destroy", "wait",
	}, subcommandNames(cmd))

	create := findSubcommand(cmd, "create")
	require.NotNil(t, create)
	assert.NotNil(t, create.Flags().Lookup("file"))
	assert.Equal(t, "f", create.Flags().Lookup("file").Shorthand)
	assert.NotNil(t, create.Flags().Lookup("content-type"))

	reconfigure := findSubcommand(cmd, "reconfigure")
	require.NotNil(t, reconfigure)
	assert.NotNil(t, reconfigure.Flags().Lookup("vm"))

	wait := findSubcommand(cmd, "wait")
	require.NotNil(t, wait)

	for _, name := range []string{"state", "interval", "max-interval", "max-attempts", "exponential", "nats-url", "nats-subject-prefix", "quiet"} {
		assert.NotNil(t, wait.Flags().Lookup(name), "Flag %s should exist", name)
	}
}

func TestNewVMCommand(t *testing.T) {
	cmd := NewVMCommand()
	assert.Equal(t, "vm", cmd.Use)
	assert.ElementsMatch(t, []string{
		"info", "property", "contmsg", "start", "stop", "reboot", "alter", "add", "remove",
	}, subcommandNames(cmd))

	add := findSubcommand(cmd, "add")
	require.NotNil(t, add)
	assert.Equal(t, "false", add.Flags().Lookup("no-context").DefValue)

	remove := findSubcommand(cmd, "remove")
	require.NotNil(t, remove)
	assert.Equal(t, []string{"rm"}, remove.Aliases)
}

func TestNewConfigAndAuthCommands(t *testing.T) {
	assert.ElementsMatch(t, []string{"show", "set", "unset"}, subcommandNames(NewConfigCommand()))
	assert.ElementsMatch(t, []string{"show", "validate"}, subcommandNames(NewAuthCommand()))
	assert.Equal(t, "server-version", NewServerVersionCommand().Use)
}

func TestInfraList(t *testing.T) {
	setupIM(t, map[string]fakeRoute{
		"GET /infrastructures": {body: `{"uri-list": [{"uri": "http://im/infrastructures/a"}, {"uri": "http://im/infrastructures/b"}]}`},
	})

	out, err := execute(t, NewInfraCommand(), "list")
	require.NoError(t, err)

	var uris []im.ResourceURI
	require.NoError(t, json.Unmarshal([]byte(out), &uris))
	assert.Equal(t, []string{"a", "b"}, im.IDs(uris))
}

func TestInfraCreate(t *testing.T) {
	fake := setupIM(t, map[string]fakeRoute{
		"POST /infrastructures": {body: `{"uri": "http://im/infrastructures/new-id"}`},
	})
	viper.Set(KeyOutput, "plain")

	path := filepath.Join(t.TempDir(), "infra.radl")
	require.NoError(t, os.WriteFile(path, []byte("system front (cpu.count>=1)\ndeploy front 1\n"), 0o600))

	out, err := execute(t, NewInfraCommand(), "create", "-f", path)
	require.NoError(t, err)
	assert.Equal(t, "new-id\n", out)
	assert.Equal(t, []string{"POST /infrastructures?"}, fake.seen())
}

func TestInfraState(t *testing.T) {
	setupIM(t, map[string]fakeRoute{
		"GET /infrastructures/inf/state": {body: `{"state": {"state": "running", "vm_states": {"0": "running", "1": "unconfigured"}}}`},
	})
	viper.Set(KeyOutput, "plain")

	out, err := execute(t, NewInfraCommand(), "state", "inf")
	require.NoError(t, err)
	assert.Equal(t, "running\n0\trunning\n1\tunconfigured\n", out)
}

func TestInfraReconfigureSomeVMs(t *testing.T) {
	fake := setupIM(t, map[string]fakeRoute{
		"PUT /infrastructures/inf/reconfigure": {},
	})

	_, err := execute(t, NewInfraCommand(), "reconfigure", "inf", "--vm", "0,2")
	require.NoError(t, err)
	assert.Equal(t, []string{"PUT /infrastructures/inf/reconfigure?vm_list=0%2C2"}, fake.seen())
}

func TestInfraWait(t *testing.T) {
	setupIM(t, map[string]fakeRoute{
		"GET /infrastructures/inf/vms/0/state": {body: "configured\n"},
	})

	out, err := execute(t, NewInfraCommand(), "wait", "inf", "0", "--max-attempts", "1", "--state", "configured", "-q")
	require.NoError(t, err)

	var states map[string]im.VMState
	require.NoError(t, json.Unmarshal([]byte(out), &states))
	assert.Equal(t, map[string]im.VMState{"0": im.VMStateConfigured}, states)
}

func TestInfraWait_Timeout(t *testing.T) {
	setupIM(t, map[string]fakeRoute{
		"GET /infrastructures/inf/vms/0/state": {body: "pending"},
	})

	_, err := execute(t, NewInfraCommand(), "wait", "inf", "0", "--max-attempts", "1", "-q")
	require.ErrorIs(t, err, im.ErrPollingTimeout)
}

func TestInfraWait_UnknownState(t *testing.T) {
	fake := setupIM(t, nil)

	_, err := execute(t, NewInfraCommand(), "wait", "inf", "--state", "bogus")
	require.ErrorIs(t, err, im.ErrInvalidArgument)
	assert.Empty(t, fake.seen())
}

func TestVMProperty(t *testing.T) {
	setupIM(t, map[string]fakeRoute{
		"GET /infrastructures/inf/vms/0/net_interface.0.ip": {body: "10.0.0.1\n"},
	})

	out, err := execute(t, NewVMCommand(), "property", "inf", "0", "net_interface.0.ip")
	require.NoError(t, err)
	assert.JSONEq(t, `{"net_interface.0.ip": "10.0.0.1"}`, out)
}

func TestVMRemoveWithoutContext(t *testing.T) {
	fake := setupIM(t, map[string]fakeRoute{
		"DELETE /infrastructures/inf/vms/0,1": {},
	})

	_, err := execute(t, NewVMCommand(), "remove", "inf", "0", "1", "--no-context")
	require.NoError(t, err)
	assert.Equal(t, []string{"DELETE /infrastructures/inf/vms/0,1?context=false"}, fake.seen())
}

func TestVMAlterRejectsTOSCA(t *testing.T) {
	fake := setupIM(t, nil)

	path := filepath.Join(t.TempDir(), "alter.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tosca_definitions_version: tosca_simple_yaml_1_0\n"), 0o600))

	_, err := execute(t, NewVMCommand(), "alter", "inf", "0", "-f", path)
	require.ErrorIs(t, err, im.ErrToscaNotSupported)
	assert.Empty(t, fake.seen())
}

func TestServiceRejectionIsReported(t *testing.T) {
	setupIM(t, nil)

	_, err := execute(t, NewServerVersionCommand())
	require.ErrorIs(t, err, im.ErrService)
	assert.Contains(t, err.Error(), "Invalid infrastructure ID")
}

func TestMissingAuthFileMakesNoRequest(t *testing.T) {
	fake := setupIM(t, nil)
	viper.Set(KeyAuthFile, filepath.Join(t.TempDir(), "missing.dat"))

	_, err := execute(t, NewInfraCommand(), "list")
	require.ErrorIs(t, err, im.ErrAuthFileNotFound)
	assert.Empty(t, fake.seen())
}

func TestAuthShowMasksSecrets(t *testing.T) {
	setupIM(t, nil)

	out, err := execute(t, NewAuthCommand(), "show")
	require.NoError(t, err)
	assert.NotContains(t, out, "secret")
	assert.Contains(t, out, "***")
	assert.Contains(t, out, "InfrastructureManager")
}

func TestAuthValidate(t *testing.T) {
	setupIM(t, nil)
	viper.Set(KeyOutput, "plain")

	out, err := execute(t, NewAuthCommand(), "validate")
	require.NoError(t, err)
	assert.Equal(t, "auth OK: 2 credential(s)\n", out)

	viper.Set(KeyAuthData, "id = one; type = OpenNebula")

	_, err = execute(t, NewAuthCommand(), "validate")
	require.ErrorIs(t, err, im.ErrAuthFileParse)
}

func TestVersionCommand(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set(KeyOutput, "yaml")

	out, err := execute(t, NewVersionCommand("1.2.3", "abc", "today"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "version: 1.2.3"))
}

func TestDocumentContentType(t *testing.T) {
	ct, err := documentContentType("", `{"radl": []}`)
	require.NoError(t, err)
	assert.Equal(t, im.ContentTypeJSON, ct)

	ct, err = documentContentType("", "tosca_definitions_version: tosca_simple_yaml_1_0\n")
	require.NoError(t, err)
	assert.Equal(t, im.ContentTypeTOSCA, ct)

	ct, err = documentContentType("radl", "anything")
	require.NoError(t, err)
	assert.Equal(t, im.ContentTypeRADL, ct)

	_, err = documentContentType("xml", "anything")
	require.ErrorIs(t, err, im.ErrUnknownContentType)
}

func TestReadDocumentFromStdin(t *testing.T) {
	previous := stdinReader
	stdinReader = strings.NewReader("deploy front 1\n")

	t.Cleanup(func() { stdinReader = previous })

	doc, err := readDocument("-")
	require.NoError(t, err)
	assert.Equal(t, "deploy front 1\n", doc)

	_, err = readDocument(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestStatusCodesAreErrors(t *testing.T) {
	setupIM(t, map[string]fakeRoute{
		"PUT /infrastructures/inf/start": {status: http.StatusForbidden, body: "Access to this infrastructure not granted."},
	})

	_, err := execute(t, NewInfraCommand(), "start", "inf")
	require.ErrorIs(t, err, im.ErrService)

	var serviceErr *im.ServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, http.StatusForbidden, serviceErr.StatusCode)
}
