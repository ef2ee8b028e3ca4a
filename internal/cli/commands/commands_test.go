package commands

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/conduit-lang/restifier/internal/cli/config"
	"github.com/conduit-lang/restifier/internal/web/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const testConfig = `
server:
  host: 127.0.0.1
  port: 0
  api_prefix: /api
log:
  level: error
metrics:
  enabled: false
resources:
  - name: User
    fields:
      - name: name
        unique: true
    submodels:
      - path: comments
        resource: Comment
        corresponds_to: author
  - name: Comment
    fields:
      - name: content
      - name: author
        type: ref
        ref: users
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "restifier.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--no-color"))
	err := cmd.Execute()
	return out.String(), err
}

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "restifier", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, expected := range []string{"version", "serve", "routes"} {
		assert.Contains(t, names, expected)
	}
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestVersionCommand(t *testing.T) {
	Version = "1.0.0-test"
	GitCommit = "abc123"
	t.Cleanup(func() {
		Version = "dev"
		GitCommit = "unknown"
	})

	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Restifier version: 1.0.0-test")
	assert.Contains(t, out, "Git commit: abc123")
	assert.Contains(t, out, "Go version: go")
}

func TestRoutesTable(t *testing.T) {
	path := writeConfig(t, testConfig)

	out, err := run(t, "routes", "--config", path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 14, out)
	assert.True(t, strings.HasPrefix(lines[0], "METHOD"))
	assert.Contains(t, out, "/api/users/{id}/comments/{sid}")
	assert.Contains(t, out, "Comment")
}

func TestRoutesYAML(t *testing.T) {
	path := writeConfig(t, testConfig)

	out, err := run(t, "routes", "--config", path, "--format", "yaml")
	require.NoError(t, err)

	var routes []router.RouteInfo
	require.NoError(t, yaml.Unmarshal([]byte(out), &routes))
	require.Len(t, routes, 12)
	assert.Equal(t, router.RouteInfo{Method: "GET", Pattern: "/api/users", Resource: "User", Operation: "query"}, routes[0])
}

func TestRoutesUnknownFormat(t *testing.T) {
	path := writeConfig(t, testConfig)

	_, err := run(t, "routes", "--config", path, "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestRoutesConfigErrors(t *testing.T) {
	path := writeConfig(t, "store:\n  driver: mongo\n")
	_, err := run(t, "routes", "--config", path)
	var cfgErr *configError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, err.Error(), "not supported")

	path = writeConfig(t, `
resources:
  - name: Comment
    fields:
      - name: author
        type: ref
        ref: ghosts
`)
	_, err = run(t, "routes", "--config", path)
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, err.Error(), "ghosts")
}

func TestServeStopsOnCancel(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, testConfig))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, serve(ctx, cfg))
}
