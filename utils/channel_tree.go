package utils

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/furnimall/furnimall_backend/models"
)

// BuildChannelTree assembles a forest from a flat slice of channel
// views. Nodes are grouped by parentId; a node whose parentId is nil,
// or whose parent is not present in the slice, becomes a root of the
// forest. The orphan rule is deliberate: a viewer who owns a mid-tree
// channel gets their subtree rendered even though the ancestors are
// hidden from them. It never touches the persisted parentId or path.
func BuildChannelTree(views []models.ChannelView) []*models.ChannelTree {
	byID := make(map[primitive.ObjectID]*models.ChannelTree, len(views))
	order := make([]*models.ChannelTree, 0, len(views))
	for _, v := range views {
		node := &models.ChannelTree{ChannelView: v, Children: []*models.ChannelTree{}}
		byID[v.ID] = node
		order = append(order, node)
	}

	var roots []*models.ChannelTree
	for _, node := range order {
		if node.ParentID != nil {
			if parent, ok := byID[*node.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}

// IsDescendantOf reports whether ancestorID appears on the node's
// materialized path.
func IsDescendantOf(node models.ChannelNode, ancestorID primitive.ObjectID) bool {
	for _, id := range node.Path {
		if id == ancestorID {
			return true
		}
	}
	return false
}

// AncestorIDs collects every id that appears on the path of any of the
// given nodes. Used to find the nodes that must stay visible, in
// redacted form, to show a viewer where their channels sit in the tree.
func AncestorIDs(nodes []models.ChannelNode) map[primitive.ObjectID]bool {
	ids := make(map[primitive.ObjectID]bool)
	for _, n := range nodes {
		for _, id := range n.Path {
			ids[id] = true
		}
	}
	return ids
}

// IsAncestorOfAny reports whether nodeID lies on the path of any node
// in the given set.
func IsAncestorOfAny(nodeID primitive.ObjectID, nodes []models.ChannelNode) bool {
	for _, n := range nodes {
		for _, id := range n.Path {
			if id == nodeID {
				return true
			}
		}
	}
	return false
}

// ChildPath derives the materialized path and level of a child created
// under parent. A nil parent means a direct child of the system root.
func ChildPath(parent *models.ChannelNode) ([]primitive.ObjectID, int) {
	if parent == nil {
		return []primitive.ObjectID{}, 0
	}
	path := make([]primitive.ObjectID, 0, len(parent.Path)+1)
	path = append(path, parent.Path...)
	path = append(path, parent.ID)
	return path, parent.Level + 1
}
