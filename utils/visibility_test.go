package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/furnimall/furnimall_backend/models"
)

// buildFixture returns a system with the tree
//
//	root1 (owner)          root2 (owner)
//	 └── mid (partner)
//	      └── leaf (subPartner)
func buildFixture() (*models.CommissionSystem, []models.ChannelNode, models.Viewer, models.Viewer, models.Viewer) {
	ownerID := primitive.NewObjectID()
	partnerID := primitive.NewObjectID()
	subPartnerID := primitive.NewObjectID()

	system := &models.CommissionSystem{
		ID:                primitive.NewObjectID(),
		ManufacturerID:    ownerID,
		TotalMarginRate:   40,
		FactoryRetainRate: 10,
		AllocatedRate:     30,
		Status:            models.SystemStatusActive,
		CreatedBy:         ownerID,
	}

	root1 := models.ChannelNode{
		ID: primitive.NewObjectID(), Name: "North Agent", Type: models.ChannelTypeAgent,
		CommissionSystemID: system.ID, Level: 0, Path: []primitive.ObjectID{},
		CommissionRate: 20, AllocatedRate: 12, IsActive: true, CreatedBy: ownerID,
		Contact: "north@furnimall.com",
	}
	mid := models.ChannelNode{
		ID: primitive.NewObjectID(), Name: "City Designer", Type: models.ChannelTypeDesigner,
		CommissionSystemID: system.ID, ParentID: &root1.ID, Level: 1,
		Path: []primitive.ObjectID{root1.ID},
		CommissionRate: 12, AllocatedRate: 5, IsActive: true, CreatedBy: partnerID,
	}
	leaf := models.ChannelNode{
		ID: primitive.NewObjectID(), Name: "Studio Sub", Type: models.ChannelTypeSubchannel,
		CommissionSystemID: system.ID, ParentID: &mid.ID, Level: 2,
		Path: []primitive.ObjectID{root1.ID, mid.ID},
		CommissionRate: 5, AllocatedRate: 0, IsActive: false, CreatedBy: subPartnerID,
	}
	root2 := models.ChannelNode{
		ID: primitive.NewObjectID(), Name: "South Agent", Type: models.ChannelTypeAgent,
		CommissionSystemID: system.ID, Level: 0, Path: []primitive.ObjectID{},
		CommissionRate: 10, AllocatedRate: 0, IsActive: true, CreatedBy: ownerID,
	}

	nodes := []models.ChannelNode{root1, mid, leaf, root2}
	owner := models.Viewer{UserID: ownerID, UserType: models.UserTypeManufacturer}
	partner := models.Viewer{UserID: partnerID, UserType: models.UserTypeChannelPartner}
	stranger := models.Viewer{UserID: primitive.NewObjectID(), UserType: models.UserTypeChannelPartner}
	return system, nodes, owner, partner, stranger
}

func TestCanSeeAll(t *testing.T) {
	system, _, owner, partner, _ := buildFixture()

	assert.True(t, CanSeeAll(system, owner))
	assert.True(t, CanSeeAll(system, models.Viewer{UserID: primitive.NewObjectID(), UserType: models.UserTypeAdmin}))
	assert.True(t, CanSeeAll(system, models.Viewer{UserID: primitive.NewObjectID(), UserType: models.UserTypeSuperAdmin}))
	assert.False(t, CanSeeAll(system, partner))
}

func TestFilterChannelsForViewerSeeAll(t *testing.T) {
	system, nodes, owner, _, _ := buildFixture()

	views := FilterChannelsForViewer(nodes, owner, CanSeeAll(system, owner))
	require.Len(t, views, len(nodes))
	for _, v := range views {
		assert.False(t, v.Redacted)
		require.NotNil(t, v.CommissionRate)
	}
}

func TestFilterChannelsForViewerPartner(t *testing.T) {
	system, nodes, _, partner, _ := buildFixture()

	views := FilterChannelsForViewer(nodes, partner, CanSeeAll(system, partner))

	// mid (owned), leaf (descendant), root1 (redacted ancestor);
	// root2 is invisible
	require.Len(t, views, 3)
	byName := make(map[string]models.ChannelView)
	for _, v := range views {
		byName[v.Name] = v
	}

	midView, ok := byName["City Designer"]
	require.True(t, ok)
	assert.False(t, midView.Redacted)
	require.NotNil(t, midView.CommissionRate)
	assert.Equal(t, 12.0, *midView.CommissionRate)

	leafView, ok := byName["Studio Sub"]
	require.True(t, ok)
	assert.False(t, leafView.Redacted)

	rootView, ok := byName["North Agent"]
	require.True(t, ok)
	assert.True(t, rootView.Redacted)
	assert.Nil(t, rootView.CommissionRate)
	assert.Nil(t, rootView.AllocatedRate)
	assert.Nil(t, rootView.AvailableRate)
	assert.Empty(t, rootView.Contact)
	assert.Empty(t, rootView.Notes)
	// tree shape survives redaction
	assert.Equal(t, "North Agent", rootView.Name)
	assert.NotEmpty(t, rootView.ID)

	_, ok = byName["South Agent"]
	assert.False(t, ok)
}

func TestFilterChannelsForViewerStranger(t *testing.T) {
	system, nodes, _, _, stranger := buildFixture()

	views := FilterChannelsForViewer(nodes, stranger, CanSeeAll(system, stranger))
	assert.Empty(t, views)
}

func TestVisibilityNeverLeaksRates(t *testing.T) {
	system, nodes, _, partner, _ := buildFixture()

	views := FilterChannelsForViewer(nodes, partner, CanSeeAll(system, partner))
	for _, v := range views {
		if v.CreatedBy == partner.UserID {
			continue
		}
		if v.Redacted {
			assert.Nil(t, v.CommissionRate, "redacted node %s must not carry a rate", v.Name)
		}
	}
}

func TestStatsForViewer(t *testing.T) {
	system, nodes, owner, partner, _ := buildFixture()

	full := StatsForViewer(system, nodes, owner, true)
	assert.Equal(t, 4, full.TotalChannels)
	assert.Equal(t, 3, full.ActiveCount)
	assert.Equal(t, 2, full.ByType[models.ChannelTypeAgent])
	assert.Equal(t, 1, full.ByType[models.ChannelTypeDesigner])
	assert.Equal(t, 30.0, full.AllocatedRate)
	assert.Equal(t, 0.0, full.AvailableRate)

	filtered := StatsForViewer(system, nodes, partner, false)
	// mid and its descendant leaf; the redacted ancestor is shape only
	assert.Equal(t, 2, filtered.TotalChannels)
	assert.Equal(t, 1, filtered.ActiveCount)
	assert.Equal(t, 5.0, filtered.AllocatedRate)
	assert.Equal(t, 7.0, filtered.AvailableRate)
	// nothing from the hidden branch leaks into the aggregates
	assert.Zero(t, filtered.ByType[models.ChannelTypeAgent])
}
