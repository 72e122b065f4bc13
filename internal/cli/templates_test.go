package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/outliner/internal/ir"
)

func TestTemplatesCommand(t *testing.T) {
	out, err := execute(t, "templates", "../template/testdata/basic")
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "note")
	assert.Contains(t, out, "t-title")
}

func TestTemplatesCommand_JSON(t *testing.T) {
	out, err := execute(t, "templates", "../template/testdata/basic", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Data []ir.Template `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 2)
	ids := []string{resp.Data[0].ID, resp.Data[1].ID}
	assert.ElementsMatch(t, []string{"note", "task"}, ids)
}

func TestTemplatesCommand_Errors(t *testing.T) {
	_, err := execute(t, "templates", "/nonexistent/templates")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	dir := t.TempDir()
	writeFile(t, dir, "bad.cue", "package templates\n\ntemplate: x: {fields: 3}\n")
	out, err := execute(t, "templates", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [")
}
