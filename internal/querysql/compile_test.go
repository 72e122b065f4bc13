package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/outliner/internal/ir"
	"github.com/roach88/outliner/internal/queryir"
)

func TestCompile(t *testing.T) {
	tests := []struct {
		name       string
		filter     string
		limit      int
		wantSQL    string
		wantParams []any
	}{
		{
			name:       "no filter",
			wantSQL:    "SELECT id, name FROM nodes WHERE document_id = ? ORDER BY position ASC, id ASC",
			wantParams: []any{"doc"},
		},
		{
			name:       "contains",
			filter:     "Milk",
			wantSQL:    `SELECT id, name FROM nodes WHERE document_id = ? AND (LOWER(name) LIKE ? ESCAPE '\') ORDER BY position ASC, id ASC`,
			wantParams: []any{"doc", "%milk%"},
		},
		{
			name:       "starred with limit",
			filter:     "is:starred",
			limit:      5,
			wantSQL:    "SELECT id, name FROM nodes WHERE document_id = ? AND (is_starred = ?) ORDER BY position ASC, id ASC LIMIT ?",
			wantParams: []any{"doc", 1, 5},
		},
		{
			name:       "and with not",
			filter:     "template:task -is:starred",
			wantSQL:    "SELECT id, name FROM nodes WHERE document_id = ? AND ((template_id = ?) AND (NOT (is_starred = ?))) ORDER BY position ASC, id ASC",
			wantParams: []any{"doc", "task", 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := queryir.ParseFilter(tt.filter)
			require.NoError(t, err)
			sql, params, err := Compile(queryir.Select{Document: "doc", Filter: p, Limit: tt.limit}, "id, name")
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantParams, params)
		})
	}
}

func TestCompile_Invalid(t *testing.T) {
	_, _, err := Compile(queryir.Select{}, "id")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid query")

	_, _, err = Compile(queryir.Select{Document: "d", Filter: queryir.Equals{Field: queryir.FieldStarred, Value: ir.IRString("x")}}, "id")
	assert.Error(t, err)
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, `%abc%`, likePattern("ABC"))
	assert.Equal(t, `%100\%\_x\\y%`, likePattern(`100%_x\y`))
	assert.Equal(t, "%\u00c9t\u00e9%", likePattern("\u00c9T\u00e9"))
}
