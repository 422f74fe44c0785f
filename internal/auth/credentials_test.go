package auth_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fivetwenty-io/im-client/internal/auth"
	"github.com/fivetwenty-io/im-client/pkg/im"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleAuth = `# IM credentials
id = im; type = InfrastructureManager; username = user; password = pass

id = one; type = OpenNebula; host = server.com:2633; username = user; password = pass
id = ec2; type = EC2; username = AKIA; password = "se;cr=et "
`

func writeFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "auth.dat")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad_PreservesOrder(t *testing.T) {
	t.Parallel()

	set, err := auth.Load(writeFile(t, sampleAuth))
	require.NoError(t, err)
	require.Equal(t, 3, set.Len())

	creds := set.Credentials()
	assert.Equal(t, "im", creds[0].ID())
	assert.Equal(t, "one", creds[1].ID())
	assert.Equal(t, "ec2", creds[2].ID())
	assert.Equal(t, "InfrastructureManager", set.InfrastructureManager().Type())

	host, ok := creds[1].Get("host")
	require.True(t, ok)
	assert.Equal(t, "server.com:2633", host)

	password, _ := creds[2].Get("password")
	assert.Equal(t, "se;cr=et ", password)

	assert.Equal(t, []auth.Field{
		{Key: "id", Value: "im"},
		{Key: "type", Value: "InfrastructureManager"},
		{Key: "username", Value: "user"},
		{Key: "password", Value: "pass"},
	}, creds[0].Fields())
}

func TestLoad_NLinesNCredentials(t *testing.T) {
	t.Parallel()

	for _, n := range []int{1, 2, 5, 10} {
		lines := []string{"type = InfrastructureManager; username = u; password = p"}
		for i := 1; i < n; i++ {
			lines = append(lines, "id = c"+strings.Repeat("x", i)+"; type = Dummy")
		}

		set, err := auth.Load(writeFile(t, strings.Join(lines, "\n")))
		require.NoError(t, err)
		assert.Equal(t, n, set.Len())
	}
}

func TestLoad_NotFound(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"empty path":   "",
		"blank path":   "   ",
		"missing file": filepath.Join(t.TempDir(), "nope.dat"),
		"directory":    t.TempDir(),
	}

	for name, path := range tests {
		name := name
		path := path
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := auth.Load(path)
			require.ErrorIs(t, err, im.ErrAuthFileNotFound)
			assert.Equal(t, im.KindAuthFileNotFound, im.KindOf(err))
		})
	}
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"field without equals":  "type = InfrastructureManager; username",
		"missing type":          "type = InfrastructureManager\nid = x; username = u",
		"no IM credential":      "id = one; type = OpenNebula",
		"unterminated quote":    `type = InfrastructureManager; password = "abc`,
		"text after quote":      `type = InfrastructureManager; password = "abc" def`,
		"empty key":             "type = InfrastructureManager; = value",
		"empty data":            "",
		"only comments":         "# nothing here\n\n",
		"invalid utf8":          "type = InfrastructureManager; password = \xff",
		"newline inside quotes": "type = InfrastructureManager; password = \"ab\ncd\"",
	}

	for name, data := range tests {
		name := name
		data := data
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := auth.Parse(data)
			require.ErrorIs(t, err, im.ErrAuthFileParse)
		})
	}
}

func TestParse_Syntax(t *testing.T) {
	t.Parallel()

	data := "\r\n  type = InfrastructureManager ;username=u;;password =  p  \r\n" +
		"# comment = ignored\n" +
		`id = k; type = OpenStack; private_key = -----BEGIN-----\nABC\n-----END-----` + "\n" +
		`id = q; type = Dummy; note = "say \"hi\"\\ok"` + "\n"

	set, err := auth.Parse(data)
	require.NoError(t, err)
	require.Equal(t, 3, set.Len())

	creds := set.Credentials()
	username, _ := creds[0].Get("username")
	password, _ := creds[0].Get("password")
	assert.Equal(t, "u", username)
	assert.Equal(t, "p", password)

	key, _ := creds[1].Get("private_key")
	assert.Equal(t, "-----BEGIN-----\nABC\n-----END-----", key)

	note, _ := creds[2].Get("note")
	assert.Equal(t, `say "hi"\ok`, note)
}

func TestSerialize_Format(t *testing.T) {
	t.Parallel()

	set, err := auth.Parse("id = im; type = InfrastructureManager; username = user; password = pass\n" +
		"id = one; type = OpenNebula; host = server.com:2633")
	require.NoError(t, err)

	assert.Equal(t,
		`id = im; type = InfrastructureManager; username = user; password = pass\nid = one; type = OpenNebula; host = server.com:2633`,
		set.Serialize())
	assert.NotContains(t, set.Serialize(), "\n")

	header, err := set.Authorization(context.Background())
	require.NoError(t, err)
	assert.Equal(t, set.Serialize(), header)
}

func TestSerialize_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"plain":       sampleAuth,
		"private key": `id = k; type = OpenStack; private_key = -----BEGIN-----\nABC\n-----END-----` + "\ntype = InfrastructureManager; token = t",
		"quotes":      `type = InfrastructureManager; password = "a \"b\" c\\d"; username = "  padded  "`,
		"separators":  `type = InfrastructureManager; password = "x;y=z\\nliteral"`,
		"empty value": "type = InfrastructureManager; password = ; username = u",
	}

	for name, data := range tests {
		name := name
		data := data
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			original, err := auth.Parse(data)
			require.NoError(t, err)

			reparsed, err := auth.ParseAuthorization(original.Serialize())
			require.NoError(t, err)

			require.Equal(t, original.Len(), reparsed.Len())

			for i, c := range original.Credentials() {
				assert.Equal(t, c.Fields(), reparsed.Credentials()[i].Fields())
			}

			assert.Equal(t, original.Serialize(), reparsed.Serialize())
		})
	}
}

func TestCredential_Redacted(t *testing.T) {
	t.Parallel()

	set, err := auth.Parse("type = InfrastructureManager; username = user; password = pass; token = tok")
	require.NoError(t, err)

	redacted := set.Redacted()[0]
	username, _ := redacted.Get("username")
	password, _ := redacted.Get("password")
	token, _ := redacted.Get("token")

	assert.Equal(t, "user", username)
	assert.Equal(t, "***", password)
	assert.Equal(t, "***", token)

	original, _ := set.Credentials()[0].Get("password")
	assert.Equal(t, "pass", original, "redaction must not alter the set")
}

func TestNewCredential_InvalidKey(t *testing.T) {
	t.Parallel()

	_, err := auth.NewCredential(auth.Field{Key: "type", Value: "Dummy"}, auth.Field{Key: "a;b", Value: "x"})
	require.ErrorIs(t, err, im.ErrAuthFileParse)

	_, err = auth.NewCredential(auth.Field{Key: "username", Value: "x"})
	require.ErrorIs(t, err, im.ErrAuthFileParse)

	c, err := auth.NewCredential(auth.Field{Key: "type", Value: "InfrastructureManager"})
	require.NoError(t, err)

	set, err := auth.NewCredentialSet(c)
	require.NoError(t, err)
	assert.Equal(t, "type = InfrastructureManager", set.Serialize())
}
