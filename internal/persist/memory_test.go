package persist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/outliner/internal/ir"
	"github.com/roach88/outliner/internal/queryir"
	"github.com/roach88/outliner/internal/testutil"
)

func TestMemoryService_NotFound(t *testing.T) {
	ctx := context.Background()
	svc := NewMemoryService()

	_, _, err := svc.LoadDocument(ctx, "missing")
	assert.True(t, IsNotFound(err))
	_, err = svc.DocumentUpdatedAt(ctx, "missing")
	assert.True(t, IsNotFound(err))
	assert.True(t, IsNotFound(svc.UpdateDocument(ctx, ir.Document{ID: "missing"})))
	assert.True(t, IsNotFound(svc.CreateNodes(ctx, "missing", nil)))
}

func TestMemoryService_Idempotent(t *testing.T) {
	ctx := context.Background()
	svc := NewMemoryService()
	require.NoError(t, svc.CreateDocument(ctx, ir.Document{ID: "d"}))

	n := testutil.Node("X")
	require.NoError(t, svc.CreateNodes(ctx, "d", []ir.Node{n}))
	require.NoError(t, svc.CreateNodes(ctx, "d", []ir.Node{n}))
	require.NoError(t, svc.DeleteNodes(ctx, "d", testutil.IDs("X")))
	require.NoError(t, svc.DeleteNodes(ctx, "d", testutil.IDs("X")))
	require.NoError(t, svc.UpdateNodes(ctx, "d", []NodePatch{{ID: "X", Fields: FieldName, Name: "ghost"}}))
	assert.Empty(t, svc.Nodes("d"))
}

func TestMemoryService_ListDocuments(t *testing.T) {
	ctx := context.Background()
	svc := NewMemoryService()
	require.NoError(t, svc.CreateDocument(ctx, ir.Document{ID: "a", OwnerID: "u1", UpdatedAt: testutil.Epoch}))
	require.NoError(t, svc.CreateDocument(ctx, ir.Document{ID: "b", OwnerID: "u1", UpdatedAt: testutil.Epoch.Add(time.Hour)}))
	require.NoError(t, svc.CreateDocument(ctx, ir.Document{ID: "c", OwnerID: "u2", UpdatedAt: testutil.Epoch}))

	docs, err := svc.ListDocuments(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "b", docs[0].ID, "most recently updated first")

	all, err := svc.ListDocuments(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMemoryService_FailureInjection(t *testing.T) {
	ctx := context.Background()
	svc := NewMemoryService()
	boom := errors.New("boom")

	svc.FailNext(boom)
	assert.ErrorIs(t, svc.CreateDocument(ctx, ir.Document{ID: "d"}), boom)
	require.NoError(t, svc.CreateDocument(ctx, ir.Document{ID: "d"}))

	svc.FailAlways(boom)
	assert.ErrorIs(t, svc.UpdateDocument(ctx, ir.Document{ID: "d"}), boom)
	assert.ErrorIs(t, svc.UpdateDocument(ctx, ir.Document{ID: "d"}), boom)
	svc.FailAlways(nil)
	require.NoError(t, svc.UpdateDocument(ctx, ir.Document{ID: "d"}))

	assert.Equal(t, []string{
		"CreateDocument", "CreateDocument",
		"UpdateDocument", "UpdateDocument", "UpdateDocument",
	}, svc.Calls())
}

func TestMemoryService_ReplaceDocument(t *testing.T) {
	ctx := context.Background()
	svc := NewMemoryService()
	require.NoError(t, svc.CreateDocument(ctx, ir.Document{ID: "d"}))
	require.NoError(t, svc.CreateNodes(ctx, "d", []ir.Node{testutil.Node("old")}))

	require.NoError(t, svc.ReplaceDocument(ctx, ir.Document{ID: "d", Title: "new"},
		[]ir.Node{testutil.Node("X"), testutil.Node("Y", "X", 0)}))

	doc, nodes, err := svc.LoadDocument(ctx, "d")
	require.NoError(t, err)
	assert.Equal(t, "new", doc.Title)
	require.Len(t, nodes, 2)
	for _, n := range nodes {
		assert.Equal(t, "d", n.DocumentID)
		assert.NotEqual(t, ir.NodeID("old"), n.ID)
	}
}

func TestMemoryService_FindNodes(t *testing.T) {
	ctx := context.Background()
	svc := NewMemoryService()
	require.NoError(t, svc.CreateDocument(ctx, ir.Document{ID: "d"}))

	milk := testutil.Node("m")
	milk.Name = "Milk"
	milk.Position = 1
	eggs := testutil.Node("e")
	eggs.Name = "Eggs"
	require.NoError(t, svc.CreateNodes(ctx, "d", []ir.Node{milk, eggs}))

	got, err := svc.FindNodes(ctx, queryir.Select{Document: "d"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ir.NodeID("e"), got[0].ID)

	got, err = svc.FindNodes(ctx, queryir.Select{Document: "d", Filter: queryir.Contains{Field: queryir.FieldName, Text: "MIL"}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Milk", got[0].Name)

	got, err = svc.FindNodes(ctx, queryir.Select{Document: "missing"})
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = svc.FindNodes(ctx, queryir.Select{Document: "d", Limit: -1})
	assert.Error(t, err)
}
