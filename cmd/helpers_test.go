// File: cmd/helpers_test.go
package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/neurodesk/internal/config"
	"github.com/xkilldash9x/neurodesk/internal/observability"
)

// resetForTest claims the global logger before any command can. The once
// guard inside observability means the first InitializeLogger call wins, so
// the commands under test run against a silent, file-free logger.
func resetForTest(t *testing.T) {
	t.Helper()
	observability.ResetForTest()
	observability.InitializeLogger(config.LoggerConfig{Level: "fatal", Format: "console", ServiceName: "test"})
	t.Cleanup(observability.ResetForTest)
}

// executeCommand runs a fresh root command with the given args and captures
// everything it writes to its output streams.
func executeCommand(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	return out.String(), err
}

// createTempConfig writes a yaml config file into a per-test temp dir and
// returns its path.
func createTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
