// File: cmd/actions_test.go
package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionsCmd_ListsVocabulary(t *testing.T) {
	resetForTest(t)

	out, err := executeCommand(t, context.Background(), "actions")

	require.NoError(t, err)
	for _, name := range []string{
		"click", "move", "dragto", "dragrel", "press", "keydown", "keyup",
		"hotkey", "screenshot", "get_more_text", "get_more_windows", "refresh_context",
	} {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "desktop")
	assert.Contains(t, out, "engine")
}
