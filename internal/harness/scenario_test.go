package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadScenario_Valid(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/templates.yaml")
	require.NoError(t, err)

	assert.Equal(t, "template_change", s.Name)
	assert.Equal(t, []string{filepath.Join("testdata", "scenarios", "templates.cue")}, s.Templates)
	require.Len(t, s.Flow, 5)
	assert.Equal(t, "task", s.Flow[0].Node.Template)
	assert.Equal(t, "Ship it", s.Flow[0].Node.Data["t-title"])
	assert.Equal(t, "TEMPLATE_NOT_FOUND", s.Flow[2].Expect.Error)
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown field", "name: x\ndescription: y\nflwo: []\n", "failed to parse YAML"},
		{"missing name", "description: y\nflow: [{op: undo}]\nassertions: [{type: selected}]\n", "name is required"},
		{"empty flow", "name: x\ndescription: y\nflow: []\nassertions: [{type: selected}]\n", "flow list is required"},
		{"unknown op", "name: x\ndescription: y\nflow: [{op: explode}]\nassertions: [{type: selected}]\n", `unknown op "explode"`},
		{"bad outcome", "name: x\ndescription: y\nflow: [{op: undo, expect: {outcome: maybe}}]\nassertions: [{type: selected}]\n", `unknown outcome "maybe"`},
		{"unknown assertion", "name: x\ndescription: y\nflow: [{op: undo}]\nassertions: [{type: vibes}]\n", `unknown assertion type "vibes"`},
		{"count required", "name: x\ndescription: y\nflow: [{op: undo}]\nassertions: [{type: nodes}]\n", "count is required"},
		{"duplicate node", "name: x\ndescription: y\nnodes: [{id: A}, {id: A}]\nflow: [{op: undo}]\nassertions: [{type: selected}]\n", `duplicate id "A"`},
		{"order arity", "name: x\ndescription: y\nnodes: [{id: A, parents: [R], order: [1, 2]}]\nflow: [{op: undo}]\nassertions: [{type: selected}]\n", "order has 2 entries for 1 parents"},
		{"missing template", "name: x\ndescription: y\ntemplates: [nope.cue]\nflow: [{op: undo}]\nassertions: [{type: selected}]\n", "template file not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/nope.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadDir(t *testing.T) {
	scenarios, err := LoadDir("testdata/scenarios")
	require.NoError(t, err)

	var names []string
	for _, s := range scenarios {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"clone_then_delete", "cut_paste_reorder", "template_change"}, names)
}

func TestParseSteps(t *testing.T) {
	steps, err := ParseSteps([]byte("- op: add-root\n  node: {name: Inbox}\n- op: undo\n"))
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, "Inbox", steps[0].Node.Name)
	assert.Equal(t, "undo", steps[1].Op)

	_, err = ParseSteps([]byte("- op: launch\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown op "launch"`)

	_, err = ParseSteps([]byte("- op: undo\n  bogus: 1\n"))
	require.Error(t, err)
}
