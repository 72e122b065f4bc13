package ops

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/outliner/internal/graph"
	"github.com/roach88/outliner/internal/ir"
	"github.com/roach88/outliner/internal/testutil"
)

func TestPasteAsClone_AddsParentEdge(t *testing.T) {
	g := tree()
	res, err := PasteAsClone(g, testEnv(), at("B", "R"), PositionChildBottom, ids("D"))
	res = requireOK(t, g, res, err)

	assert.Equal(t, ids("A", "B"), parentsOf(t, res.Graph, "D"))
	assert.Equal(t, 5, res.Graph.Len(), "no node copied")
	assert.Equal(t, []ir.Instance{at("D", "B")}, res.Added)
	assert.Empty(t, res.Removed)
	assert.Equal(t, [][]ir.NodeID{ids("R", "A", "D"), ids("R", "B", "D")}, res.Graph.InstancePaths("D"))
}

func TestPasteAsClone_SeveralFollowEachOther(t *testing.T) {
	g := tree()
	res, err := PasteAsClone(g, testEnv(), at("S", ""), PositionChild, ids("B", "D"))
	res = requireOK(t, g, res, err)
	assert.Equal(t, ids("B", "D"), res.Graph.Children("S"))
	assert.Equal(t, at("B", "S"), *res.Focus)
}

func TestPasteAsClone_Rejections(t *testing.T) {
	g := tree()
	tests := []struct {
		name   string
		target ir.Instance
		pos    Position
		nodes  []ir.NodeID
		code   ErrorCode
	}{
		{"under own descendant", at("D", "A"), PositionChild, ids("A"), ErrCodeCycleDetected},
		{"under itself", at("A", "R"), PositionChild, ids("A"), ErrCodeCycleDetected},
		{"already a child", at("A", "R"), PositionChild, ids("D"), ErrCodeDuplicateEdge},
		{"twice in one batch", at("S", ""), PositionChild, ids("D", "D"), ErrCodeDuplicateEdge},
		{"top level", at("R", ""), PositionSibling, ids("D"), ErrCodeInvalidPosition},
		{"missing node", at("S", ""), PositionChild, ids("ghost"), ErrCodeNodeNotFound},
		{"empty", at("S", ""), PositionChild, nil, ErrCodeEmptySelection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := PasteAsClone(g, testEnv(), tt.target, tt.pos, tt.nodes)
			requireRejected(t, tt.code, res, err)
		})
	}
	assert.True(t, graph.Equal(tree(), g))
}

func TestPaste_DeepCopiesWithRemappedRefs(t *testing.T) {
	d := testutil.Node("D", "A", 0)
	d.Data = ir.IRObject{
		"link": ir.IRString("see node://A"),
		"ext":  ir.IRString("node://B"),
	}
	g := graph.New([]ir.Node{
		testutil.Node("R"),
		testutil.Node("A", "R", 0),
		testutil.Node("B", "R", 1),
		d,
		testutil.Node("S"),
	})

	res, err := Paste(g, testEnv(), at("S", ""), PositionChildBottom, ids("A"))
	res = requireOK(t, g, res, err)

	assert.Equal(t, 7, res.Graph.Len())
	assert.Equal(t, ids("new1"), res.Graph.Children("S"))
	assert.Equal(t, ids("new2"), res.Graph.Children("new1"))

	cp, _ := res.Graph.Node("new2")
	assert.Equal(t, ir.IRString("see node://new1"), cp.Data["link"])
	assert.Equal(t, ir.IRString("node://B"), cp.Data["ext"], "refs outside the copy are kept")
	assert.Equal(t, "D", cp.Name)

	orig, _ := res.Graph.Node("D")
	assert.Equal(t, ir.IRString("see node://A"), orig.Data["link"])
	assert.Equal(t, ids("new1", "new2"), res.Changes.Created())
}

func TestPaste_InternalClonesStayCloned(t *testing.T) {
	// A has children D and X; X is also under D. An outside parent O holds X too.
	g := graph.New([]ir.Node{
		testutil.Node("R"),
		testutil.Node("O"),
		testutil.Node("A", "R", 0),
		testutil.Node("D", "A", 0),
		testutil.Node("X", "A", 1, "D", 0, "O", 0),
	})
	res, err := Paste(g, testEnv(), at("O", ""), PositionChildBottom, ids("A", "X"))
	res = requireOK(t, g, res, err)

	// X is inside A's subtree, so only A's subtree is copied (new1=A, new2=D, new3=X).
	assert.Equal(t, 8, res.Graph.Len())
	assert.Equal(t, ids("new1", "new2"), parentsOf(t, res.Graph, "new3"))
	assert.Equal(t, ids("X", "new1"), res.Graph.Children("O"))
}

func TestPaste_AtTopLevel(t *testing.T) {
	g := tree()
	res, err := Paste(g, testEnv(), at("R", ""), PositionSibling, ids("B", "S"))
	res = requireOK(t, g, res, err)
	assert.Equal(t, ids("R", "new1", "new2", "S"), res.Graph.Roots())
}

func TestPaste_Rejections(t *testing.T) {
	g := tree()
	_, err := Paste(g, testEnv(), at("S", ""), PositionChild, ids("ghost"))
	assert.True(t, HasCode(err, ErrCodeNodeNotFound))
	_, err = Paste(g, testEnv(), at("S", ""), PositionChild, nil)
	assert.True(t, HasCode(err, ErrCodeEmptySelection))
	_, err = Paste(g, testEnv(), at("A", "S"), PositionChild, ids("B"))
	assert.True(t, HasCode(err, ErrCodeNoSuchInstance))
}

func TestImport_AttachesForestWithFreshIDs(t *testing.T) {
	g := tree()
	child := testutil.Node("i2", "i1", 0)
	child.Data = ir.IRObject{"up": ir.IRString("node://i1")}
	forest := []ir.Node{testutil.Node("i1"), child, testutil.Node("i3", "elsewhere", 4)}

	res, err := Import(g, testEnv(), ir.Instance{}, PositionChildBottom, forest)
	res = requireOK(t, g, res, err)
	assert.Equal(t, ids("R", "S", "new1", "new3"), res.Graph.Roots())
	assert.Equal(t, ids("new2"), res.Graph.Children("new1"))
	cp, _ := res.Graph.Node("new2")
	assert.Equal(t, ir.IRString("node://new1"), cp.Data["up"])

	res, err = Import(g, testEnv(), at("B", "R"), PositionChild, forest)
	res = requireOK(t, g, res, err)
	assert.Equal(t, ids("new1", "new3"), res.Graph.Children("B"))
}

func TestImport_Rejections(t *testing.T) {
	g := tree()

	_, err := Import(g, testEnv(), ir.Instance{}, PositionChild, []ir.Node{testutil.Node("x"), testutil.Node("x")})
	assert.True(t, HasCode(err, ErrCodeDuplicateID))

	_, err = Import(g, testEnv(), ir.Instance{}, PositionChild, []ir.Node{
		testutil.Node("top"),
		testutil.Node("a", "top", 0, "b", 0),
		testutil.Node("b", "a", 0),
	})
	assert.True(t, HasCode(err, ErrCodeCycleDetected))

	bad := testutil.Node("x")
	bad.TemplateID = "ghost"
	_, err = Import(g, testEnv(), ir.Instance{}, PositionChild, []ir.Node{bad})
	assert.True(t, HasCode(err, ErrCodeTemplateNotFound))

	_, err = Import(g, testEnv(), ir.Instance{}, PositionChild, nil)
	require.Error(t, err)
}
