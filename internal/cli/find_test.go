package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFind(t *testing.T) {
	dir := t.TempDir()
	dsn := filepath.Join(dir, "outliner.db")
	doc := initDocument(t, dsn, "Inbox")
	_, err := execute(t, "apply", doc.ID, writeFile(t, dir, "steps.yaml", groceries), "--store-dsn", dsn)
	require.NoError(t, err)

	out, err := execute(t, "find", doc.ID, "MILK", "--store-dsn", dsn)
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "Milk")
	assert.NotContains(t, out, "Eggs")

	out, err = execute(t, "find", doc.ID, "--store-dsn", dsn, "--format", "json", "--", "-milk")
	require.NoError(t, err)
	var resp struct {
		Status string `json:"status"`
		Data   []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "r", resp.Data[0].ID)
	assert.Equal(t, "e", resp.Data[1].ID)

	out, err = execute(t, "find", doc.ID, "is:starred", "--store-dsn", dsn)
	require.NoError(t, err)
	assert.Contains(t, out, "No matching nodes.")
}

func TestFind_Errors(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "outliner.db")

	_, err := execute(t, "find", "nope", "--store-dsn", dsn)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "not found")

	_, err = execute(t, "find", "nope", "color:red", "--store-dsn", dsn)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter")

	_, err = execute(t, "find", "nope", "--limit", "-1", "--store-dsn", dsn)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter")
}
