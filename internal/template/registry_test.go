package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/outliner/internal/ir"
	"github.com/roach88/outliner/internal/ops"
)

var _ ops.TemplateResolver = (*Registry)(nil)

func TestRegistry(t *testing.T) {
	r := NewRegistry(ir.Template{ID: "b"}, ir.Template{ID: "a"})
	assert.Equal(t, 2, r.Len())

	_, ok := r.TemplateByID("a")
	assert.True(t, ok)
	_, ok = r.TemplateByID("c")
	assert.False(t, ok)

	r.Register(ir.Template{ID: "c", Name: "C"})
	c, ok := r.TemplateByID("c")
	require.True(t, ok)
	assert.Equal(t, "C", c.Name)

	var ids []string
	for _, tpl := range r.All() {
		ids = append(ids, tpl.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	r.Replace([]ir.Template{{ID: "z"}})
	assert.Equal(t, 1, r.Len())
	_, ok = r.TemplateByID("a")
	assert.False(t, ok)
}

func TestLoadDir(t *testing.T) {
	r, err := LoadDir("testdata/basic")
	require.NoError(t, err)
	task, ok := r.TemplateByID("task")
	require.True(t, ok)
	_, ok = task.FieldByName("Due")
	assert.True(t, ok)
}
