// File: cmd/root_test.go
package cmd

import (
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_VersionFlag(t *testing.T) {
	resetForTest(t)

	out, err := executeCommand(t, context.Background(), "--version")

	require.NoError(t, err)
	assert.Contains(t, out, Version)
}

func TestVersionCmd_PrintsBuildMetadata(t *testing.T) {
	resetForTest(t)

	out, err := executeCommand(t, context.Background(), "version")

	require.NoError(t, err)
	assert.Contains(t, out, "neurodesk "+Version)
	assert.Contains(t, out, runtime.Version())
}

func TestRootCmd_NoArgs(t *testing.T) {
	resetForTest(t)

	out, err := executeCommand(t, context.Background())

	require.NoError(t, err)
	assert.Contains(t, out, "NeuroDesk publishes desktop context")
	assert.Contains(t, out, "serve")
	assert.Contains(t, out, "snapshot")
	assert.Contains(t, out, "actions")
}

func TestRootCmd_ConfigFileOverride(t *testing.T) {
	resetForTest(t)

	cfgPath := createTempConfig(t, "platform:\n  screen_width: 800\n  screen_height: 600\n")

	out, err := executeCommand(t, context.Background(), "--config", cfgPath, "snapshot")

	require.NoError(t, err)
	assert.Contains(t, out, "Screen Resolution: 800x600")
}

func TestRootCmd_EnvOverride(t *testing.T) {
	resetForTest(t)
	t.Setenv("NEURODESK_PLATFORM_SCREEN_WIDTH", "1024")

	out, err := executeCommand(t, context.Background(), "snapshot")

	require.NoError(t, err)
	assert.Contains(t, out, "Screen Resolution: 1024x1080")
}

func TestRootCmd_RejectsInvalidConfigFile(t *testing.T) {
	resetForTest(t)

	cfgPath := createTempConfig(t, "engine:\n  poll_interval: -5s\n")

	_, err := executeCommand(t, context.Background(), "--config", cfgPath, "snapshot")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestRootCmd_RejectsInvalidFlagOverride(t *testing.T) {
	resetForTest(t)

	_, err := executeCommand(t, context.Background(), "snapshot", "--platform-mode", "holodeck")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid flag override")
	assert.Contains(t, err.Error(), "holodeck")
}
