package utils

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/furnimall/furnimall_backend/models"
)

// Visibility is decided in one place for every read and mutation:
// admins and the system owner see the whole tree; a channel partner
// sees the channels they created, everything underneath those, and a
// redacted outline of the ancestors in between.

// CanSeeAll reports whether the viewer may see the system's full tree
// with budgets: administrators and the owning manufacturer.
func CanSeeAll(system *models.CommissionSystem, viewer models.Viewer) bool {
	if viewer.IsAdmin() {
		return true
	}
	return system.CreatedBy == viewer.UserID || system.ManufacturerID == viewer.UserID
}

// FilterChannelsForViewer prunes and redacts a flat node set for the
// viewer. With seeAll, every node is projected in full. Otherwise a
// node survives if the viewer created it, if it sits under a node the
// viewer created, or - redacted - if it lies on the path between the
// root and one of the viewer's nodes.
func FilterChannelsForViewer(nodes []models.ChannelNode, viewer models.Viewer, seeAll bool) []models.ChannelView {
	views := make([]models.ChannelView, 0, len(nodes))
	if seeAll {
		for _, n := range nodes {
			views = append(views, models.NewChannelView(n))
		}
		return views
	}

	owned := make([]models.ChannelNode, 0)
	ownedIDs := make(map[primitive.ObjectID]bool)
	for _, n := range nodes {
		if n.CreatedBy == viewer.UserID {
			owned = append(owned, n)
			ownedIDs[n.ID] = true
		}
	}
	if len(owned) == 0 {
		return views
	}

	ancestorIDs := AncestorIDs(owned)

	for _, n := range nodes {
		switch {
		case ownedIDs[n.ID]:
			views = append(views, models.NewChannelView(n))
		case isDescendantOfAny(n, ownedIDs):
			views = append(views, models.NewChannelView(n))
		case ancestorIDs[n.ID]:
			// Needed for tree shape only; budget and contact stay hidden
			views = append(views, models.NewRedactedChannelView(n))
		}
	}
	return views
}

// StatsForViewer aggregates the numbers shown next to the tree. For a
// full view they come from the whole node set and the root ledger; for
// a filtered view they cover only the viewer's own channels, so the
// totals cannot leak rates of hidden branches.
func StatsForViewer(system *models.CommissionSystem, nodes []models.ChannelNode, viewer models.Viewer, seeAll bool) models.ChannelStats {
	stats := models.ChannelStats{ByType: make(map[string]int)}

	if seeAll {
		for _, n := range nodes {
			stats.TotalChannels++
			stats.ByType[n.Type]++
			if n.IsActive {
				stats.ActiveCount++
			}
		}
		stats.AllocatedRate = system.AllocatedRate
		stats.AvailableRate = system.AvailableRate()
		return stats
	}

	ownedIDs := make(map[primitive.ObjectID]bool)
	for _, n := range nodes {
		if n.CreatedBy == viewer.UserID {
			ownedIDs[n.ID] = true
		}
	}
	for _, n := range nodes {
		if !ownedIDs[n.ID] && !isDescendantOfAny(n, ownedIDs) {
			continue
		}
		stats.TotalChannels++
		stats.ByType[n.Type]++
		if n.IsActive {
			stats.ActiveCount++
		}
		if ownedIDs[n.ID] {
			stats.AllocatedRate += n.AllocatedRate
			stats.AvailableRate += n.AvailableRate()
		}
	}
	return stats
}

func isDescendantOfAny(node models.ChannelNode, ids map[primitive.ObjectID]bool) bool {
	for _, id := range node.Path {
		if ids[id] {
			return true
		}
	}
	return false
}
