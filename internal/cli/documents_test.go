package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/outliner/internal/ir"
)

const groceries = `- op: add-root
  node: {id: r, name: Groceries}
- op: add-child
  target: r
  node: {id: m, name: Milk}
- op: add-child
  target: r
  node: {id: e, name: "  Eggs  "}
- op: expand
  instances: [r]
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func initDocument(t *testing.T, dsn, title string) ir.Document {
	t.Helper()
	out, err := execute(t, "init", title, "--store-dsn", dsn, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   ir.Document `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "ok", resp.Status)
	require.NotEmpty(t, resp.Data.ID)
	return resp.Data
}

func TestDocumentLifecycle(t *testing.T) {
	dir := t.TempDir()
	dsn := filepath.Join(dir, "outliner.db")

	doc := initDocument(t, dsn, "Inbox")
	assert.Equal(t, "Inbox", doc.Title)
	assert.Equal(t, "local", doc.OwnerID)

	steps := writeFile(t, dir, "steps.yaml", groceries)
	out, err := execute(t, "apply", doc.ID, steps, "--store-dsn", dsn)
	require.NoError(t, err)
	assert.Contains(t, out, `[1] add-root applied  Add "Groceries"`)
	assert.Contains(t, out, "3 applied, 0 rejected")

	out, err = execute(t, "show", doc.ID, "--all", "--store-dsn", dsn)
	require.NoError(t, err)
	assert.Equal(t, "Inbox ("+doc.ID+")\n  Groceries\n    Milk\n    Eggs\n", out)

	out, err = execute(t, "list", "--store-dsn", dsn, "--format", "json")
	require.NoError(t, err)
	var list struct {
		Data []ir.Document `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list.Data, 1)
	assert.Equal(t, doc.ID, list.Data[0].ID)

	out, err = execute(t, "list", "--store-dsn", dsn, "--owner", "someone-else")
	require.NoError(t, err)
	assert.Contains(t, out, "No documents.")
}

func TestShow_JSON(t *testing.T) {
	dir := t.TempDir()
	dsn := filepath.Join(dir, "outliner.db")
	doc := initDocument(t, dsn, "Inbox")

	steps := writeFile(t, dir, "steps.yaml", groceries)
	_, err := execute(t, "apply", doc.ID, steps, "--store-dsn", dsn)
	require.NoError(t, err)

	out, err := execute(t, "show", doc.ID, "--all", "--store-dsn", dsn, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Data ShowResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Rows, 3)
	assert.Equal(t, "Groceries", resp.Data.Rows[0].Name)
	assert.Equal(t, 0, resp.Data.Rows[0].Depth)
	assert.True(t, resp.Data.Rows[0].HasChildren)
	assert.Equal(t, ir.Instance{Node: "e", Parent: "r"}, resp.Data.Rows[2].Instance)
	assert.Equal(t, 1, resp.Data.Rows[2].Depth)
	assert.False(t, resp.Data.History.CanUndo)
}

func TestApply_Rejection(t *testing.T) {
	dir := t.TempDir()
	dsn := filepath.Join(dir, "outliner.db")
	doc := initDocument(t, dsn, "Inbox")

	steps := writeFile(t, dir, "steps.yaml", "- op: undo\n- op: add-root\n  node: {name: Later}\n")

	out, err := execute(t, "apply", doc.ID, steps, "--store-dsn", dsn)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "step 1 (undo) rejected: NOTHING_TO_UNDO")
	assert.Contains(t, out, "0 applied, 1 rejected")

	out, err = execute(t, "apply", doc.ID, steps, "--store-dsn", dsn, "--keep-going")
	require.Error(t, err)
	assert.Contains(t, out, "1 applied, 1 rejected")

	out, err = execute(t, "show", doc.ID, "--all", "--store-dsn", dsn)
	require.NoError(t, err)
	assert.Contains(t, out, "  Later\n")
}

func TestApply_CommandErrors(t *testing.T) {
	dir := t.TempDir()
	dsn := filepath.Join(dir, "outliner.db")

	_, err := execute(t, "apply", "doc", filepath.Join(dir, "missing.yaml"), "--store-dsn", dsn)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to read steps")

	bad := writeFile(t, dir, "bad.yaml", "- op: teleport\n")
	_, err = execute(t, "apply", "doc", bad, "--store-dsn", dsn)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown op "teleport"`)

	ok := writeFile(t, dir, "ok.yaml", "- op: undo\n")
	_, err = execute(t, "apply", "no-such-doc", ok, "--store-dsn", dsn)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "document no-such-doc not found")
}

func TestShow_MissingDocument(t *testing.T) {
	_, err := execute(t, "show", "nope", "--store-dsn", filepath.Join(t.TempDir(), "outliner.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
