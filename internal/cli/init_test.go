package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/psqltmpl/internal/settings"
)

func TestInitWritesDefaultSettings(t *testing.T) {
	connPath := filepath.Join(t.TempDir(), "connection.json")

	rootOpts := &RootOptions{Format: "text", Connection: connPath}
	stdout, _, err := executeCommand(NewInitCommand(rootOpts))

	require.NoError(t, err)
	assert.Equal(t, settings.ConfigureMessage(connPath)+"\n", stdout)

	data, err := os.ReadFile(connPath)
	require.NoError(t, err)
	want, err := settings.Marshal(settings.Default())
	require.NoError(t, err)
	assert.Equal(t, string(want), string(data))
}

func TestInitKeepsExistingFile(t *testing.T) {
	dir := t.TempDir()
	connPath := writeFile(t, dir, "connection.json", `{"host": "db.internal"}`)

	rootOpts := &RootOptions{Format: "text", Connection: connPath}
	_, _, err := executeCommand(NewInitCommand(rootOpts))

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "already exists")

	data, err := os.ReadFile(connPath)
	require.NoError(t, err)
	assert.Equal(t, `{"host": "db.internal"}`, string(data))
}

func TestInitForceOverwrites(t *testing.T) {
	dir := t.TempDir()
	connPath := writeFile(t, dir, "connection.json", `{"host": "db.internal"}`)

	rootOpts := &RootOptions{Format: "json", Connection: connPath}
	stdout, _, err := executeCommand(NewInitCommand(rootOpts), "--force")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   InitReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, connPath, resp.Data.Connection)
	assert.Equal(t, settings.DefaultPort, resp.Data.Settings.Port)

	s, err := settings.Load(connPath)
	require.NoError(t, err)
	assert.Empty(t, s.Host)
	assert.Empty(t, s.Missing())
}
