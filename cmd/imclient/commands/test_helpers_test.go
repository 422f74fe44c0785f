package commands

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const testAuthData = "id = im; type = InfrastructureManager; username = user; password = secret\n" +
	"id = one; type = OpenNebula; host = server.com:2633; username = user; password = pass"

// findSubcommand finds a subcommand by name within a cobra command.
func findSubcommand(cmd *cobra.Command, name string) *cobra.Command {
	for _, c := range cmd.Commands() {
		if c.Name() == name {
			return c
		}
	}

	return nil
}

func subcommandNames(cmd *cobra.Command) []string {
	names := make([]string, 0, len(cmd.Commands()))
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}

	return names
}

// fakeIM serves canned bodies keyed by "METHOD path" and records requests.
type fakeIM struct {
	mu       sync.Mutex
	routes   map[string]fakeRoute
	requests []string
}

type fakeRoute struct {
	status int
	body   string
}

func (f *fakeIM) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path

	f.mu.Lock()
	f.requests = append(f.requests, key+"?"+r.URL.RawQuery)
	route, ok := f.routes[key]
	f.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message": "Invalid infrastructure ID", "code": 404}`)

		return
	}

	if route.status != 0 {
		w.WriteHeader(route.status)
	}

	_, _ = io.WriteString(w, route.body)
}

func (f *fakeIM) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.requests...)
}

// setupIM starts a fake IM service and points viper at it. Tests using it
// share global viper state and must not run in parallel.
func setupIM(t *testing.T, routes map[string]fakeRoute) *fakeIM {
	t.Helper()

	fake := &fakeIM{routes: routes}
	server := httptest.NewServer(fake)

	viper.Reset()
	viper.Set(KeyURL, server.URL)
	viper.Set(KeyAuthData, testAuthData)
	viper.Set(KeyOutput, "json")
	viper.Set(KeyLogLevel, "error")

	t.Cleanup(func() {
		server.Close()
		viper.Reset()
	})

	return fake
}

// execute runs cmd with args and returns stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()

	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	if args == nil {
		args = []string{}
	}

	cmd.SetArgs(args)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	err := cmd.Execute()

	return out.String(), err
}
