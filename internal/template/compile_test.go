package template

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/outliner/internal/ir"
)

func TestCompileString_Valid(t *testing.T) {
	templates, err := CompileString(`
template: task: {
	name:  "Task"
	title: "t-title"
	fields: [
		{id: "t-done", name: "Done", type: "bool"},
		{id: "t-title", name: "Title"},
	]
}
template: "meeting-note": {
	fields: [{id: "m-body", name: "Body", type: "string"}]
}
`, "inline.cue")
	require.NoError(t, err)
	require.Len(t, templates, 2)

	assert.Equal(t, ir.Template{
		ID:     "meeting-note",
		Name:   "meeting-note",
		Fields: []ir.Field{{ID: "m-body", Name: "Body", Type: "string"}},
	}, templates[0])

	task := templates[1]
	assert.Equal(t, "task", task.ID)
	assert.Equal(t, "Task", task.Name)
	assert.Equal(t, "t-title", task.TitleField)
	assert.Equal(t, []ir.Field{
		{ID: "t-done", Name: "Done", Type: "bool"},
		{ID: "t-title", Name: "Title", Type: "string"},
	}, task.Fields)
}

func TestCompileString_NoTemplates(t *testing.T) {
	templates, err := CompileString(`other: 1`, "empty.cue")
	require.NoError(t, err)
	assert.Empty(t, templates)
}

func TestCompileString_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		message string
	}{
		{
			name:    "missing fields",
			src:     `template: a: {name: "A"}`,
			message: "fields is required",
		},
		{
			name:    "fields not a list",
			src:     `template: a: {fields: "x"}`,
			message: "fields must be a list",
		},
		{
			name:    "missing field id",
			src:     `template: a: {fields: [{name: "X"}]}`,
			message: "id is required",
		},
		{
			name:    "unknown type",
			src:     `template: a: {fields: [{id: "x", name: "X", type: "float"}]}`,
			message: `unknown type "float"`,
		},
		{
			name:    "duplicate id",
			src:     `template: a: {fields: [{id: "x", name: "X"}, {id: "x", name: "Y"}]}`,
			message: `duplicate field id "x"`,
		},
		{
			name:    "duplicate name",
			src:     `template: a: {fields: [{id: "x", name: "X"}, {id: "y", name: "X"}]}`,
			message: `duplicate field name "X"`,
		},
		{
			name:    "unknown title field",
			src:     `template: a: {title: "nope", fields: [{id: "x", name: "X"}]}`,
			message: `title names unknown field "nope"`,
		},
		{
			name:    "non-string title field",
			src:     `template: a: {title: "x", fields: [{id: "x", name: "X", type: "int"}]}`,
			message: "must be a string field",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileString(tt.src, "bad.cue")
			require.Error(t, err)
			assert.True(t, IsCompileError(err))
			assert.Contains(t, err.Error(), tt.message)
			assert.Contains(t, err.Error(), "template.a")
		})
	}
}

func TestCompileString_SkipsInvalidKeepsValid(t *testing.T) {
	templates, err := CompileString(`
template: good: {fields: [{id: "x", name: "X"}]}
template: bad: {name: "Bad"}
`, "mixed.cue")
	require.Error(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, "good", templates[0].ID)
}

func TestCompileString_SyntaxErrorHasPosition(t *testing.T) {
	_, err := CompileString("template: a: {\n\tfields: [\n", "broken.cue")
	require.Error(t, err)
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.True(t, ce.Pos.IsValid())
	assert.Contains(t, err.Error(), "broken.cue")
}

func TestCompileDir(t *testing.T) {
	templates, err := CompileDir("testdata/basic")
	require.NoError(t, err)
	require.Len(t, templates, 2)
	assert.Equal(t, "note", templates[0].ID)
	assert.Equal(t, "f-title", templates[0].TitleFieldID())
	assert.Equal(t, "task", templates[1].ID)
	assert.Equal(t, "t-title", templates[1].TitleFieldID())
}

func TestCompileDir_WithoutPackageClause(t *testing.T) {
	dir := t.TempDir()
	src := `template: a: {fields: [{id: "x", name: "X"}]}` + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.cue"), []byte(src), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.cue"),
		[]byte(`template: b: {fields: [{id: "y", name: "Y"}]}`+"\n"), 0o644))

	fromString, err := CompileString(src, "a.cue")
	require.NoError(t, err)
	require.Len(t, fromString, 1)

	templates, err := CompileDir(dir)
	require.NoError(t, err)
	require.Len(t, templates, 2)
	assert.Equal(t, fromString[0], templates[0])
	assert.Equal(t, "b", templates[1].ID)
}

func TestCompileDir_RelativePath(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	rel, err := filepath.Rel(wd, filepath.Join(wd, "testdata", "basic"))
	require.NoError(t, err)

	templates, err := CompileDir(rel)
	require.NoError(t, err)
	assert.Len(t, templates, 2)
}

func TestCompileDir_EmptyAndMissing(t *testing.T) {
	dir := t.TempDir()
	templates, err := CompileDir(dir)
	require.NoError(t, err)
	assert.Empty(t, templates)

	_, err = CompileDir(filepath.Join(dir, "nope"))
	assert.Error(t, err)

	file := filepath.Join(dir, "file.cue")
	require.NoError(t, os.WriteFile(file, []byte("x: 1\n"), 0o644))
	_, err = CompileDir(file)
	assert.Error(t, err)
}
