package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/furnimall/furnimall_backend/models"
)

func makeNode(id primitive.ObjectID, parent *models.ChannelNode) models.ChannelNode {
	n := models.ChannelNode{ID: id, Type: models.ChannelTypeAgent}
	n.Path, n.Level = ChildPath(parent)
	if parent != nil {
		parentID := parent.ID
		n.ParentID = &parentID
	}
	return n
}

func TestBuildChannelTree(t *testing.T) {
	a := makeNode(primitive.NewObjectID(), nil)
	b := makeNode(primitive.NewObjectID(), &a)
	c := makeNode(primitive.NewObjectID(), &b)
	d := makeNode(primitive.NewObjectID(), nil)

	views := []models.ChannelView{
		models.NewChannelView(a),
		models.NewChannelView(b),
		models.NewChannelView(c),
		models.NewChannelView(d),
	}
	forest := BuildChannelTree(views)

	require.Len(t, forest, 2)
	assert.Equal(t, a.ID, forest[0].ID)
	assert.Equal(t, d.ID, forest[1].ID)
	require.Len(t, forest[0].Children, 1)
	assert.Equal(t, b.ID, forest[0].Children[0].ID)
	require.Len(t, forest[0].Children[0].Children, 1)
	assert.Equal(t, c.ID, forest[0].Children[0].Children[0].ID)
	assert.Empty(t, forest[1].Children)
}

func TestBuildChannelTreeOrphanBecomesRoot(t *testing.T) {
	a := makeNode(primitive.NewObjectID(), nil)
	b := makeNode(primitive.NewObjectID(), &a)
	c := makeNode(primitive.NewObjectID(), &b)

	// a is hidden from this viewer; b must surface as a root with its
	// subtree intact
	forest := BuildChannelTree([]models.ChannelView{
		models.NewChannelView(b),
		models.NewChannelView(c),
	})

	require.Len(t, forest, 1)
	assert.Equal(t, b.ID, forest[0].ID)
	require.Len(t, forest[0].Children, 1)
	assert.Equal(t, c.ID, forest[0].Children[0].ID)
	// the persisted parent pointer is untouched
	require.NotNil(t, forest[0].ParentID)
	assert.Equal(t, a.ID, *forest[0].ParentID)
}

func TestChildPath(t *testing.T) {
	root := makeNode(primitive.NewObjectID(), nil)
	assert.Empty(t, root.Path)
	assert.Equal(t, 0, root.Level)

	child := makeNode(primitive.NewObjectID(), &root)
	assert.Equal(t, []primitive.ObjectID{root.ID}, child.Path)
	assert.Equal(t, 1, child.Level)

	grandchild := makeNode(primitive.NewObjectID(), &child)
	assert.Equal(t, []primitive.ObjectID{root.ID, child.ID}, grandchild.Path)
	assert.Equal(t, 2, grandchild.Level)

	// level always equals the path length
	for _, n := range []models.ChannelNode{root, child, grandchild} {
		assert.Equal(t, len(n.Path), n.Level)
	}
}

func TestIsDescendantOf(t *testing.T) {
	a := makeNode(primitive.NewObjectID(), nil)
	b := makeNode(primitive.NewObjectID(), &a)
	c := makeNode(primitive.NewObjectID(), &b)

	assert.True(t, IsDescendantOf(c, a.ID))
	assert.True(t, IsDescendantOf(c, b.ID))
	assert.True(t, IsDescendantOf(b, a.ID))
	assert.False(t, IsDescendantOf(a, b.ID))
	assert.False(t, IsDescendantOf(c, c.ID))
}

func TestIsAncestorOfAny(t *testing.T) {
	a := makeNode(primitive.NewObjectID(), nil)
	b := makeNode(primitive.NewObjectID(), &a)
	c := makeNode(primitive.NewObjectID(), &b)

	assert.True(t, IsAncestorOfAny(a.ID, []models.ChannelNode{c}))
	assert.True(t, IsAncestorOfAny(b.ID, []models.ChannelNode{c}))
	assert.False(t, IsAncestorOfAny(c.ID, []models.ChannelNode{a, b}))

	ids := AncestorIDs([]models.ChannelNode{c})
	assert.True(t, ids[a.ID])
	assert.True(t, ids[b.ID])
	assert.False(t, ids[c.ID])
}
