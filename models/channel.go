package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Channel types in the distribution tree
const (
	ChannelTypeAgent      = "agent"
	ChannelTypeDesigner   = "designer"
	ChannelTypeSubchannel = "subchannel"
)

// ChannelCodePrefix returns the code prefix for a channel type.
// Codes are sequential per (system, type): AG001, DS014, SC002.
func ChannelCodePrefix(channelType string) string {
	switch channelType {
	case ChannelTypeAgent:
		return "AG"
	case ChannelTypeDesigner:
		return "DS"
	case ChannelTypeSubchannel:
		return "SC"
	}
	return "CH"
}

// ChannelNode is one position in a manufacturer's distribution tree.
// Path holds the ancestor ids root-first, so Level == len(Path) and
// ancestor checks never need a recursive lookup. AllocatedRate is the
// sum of commissionRate over the node's direct children.
type ChannelNode struct {
	ID                 primitive.ObjectID   `json:"id,omitempty" bson:"_id,omitempty"`
	Code               string               `json:"code" bson:"code"`
	Name               string               `json:"name" bson:"name"`
	Type               string               `json:"type" bson:"type"` // "agent", "designer", "subchannel"
	Contact            string               `json:"contact,omitempty" bson:"contact,omitempty"`
	Notes              string               `json:"notes,omitempty" bson:"notes,omitempty"`
	CommissionSystemID primitive.ObjectID   `json:"commissionSystemId" bson:"commissionSystemId"`
	ParentID           *primitive.ObjectID  `json:"parentId,omitempty" bson:"parentId,omitempty"`
	Level              int                  `json:"level" bson:"level"`
	Path               []primitive.ObjectID `json:"path" bson:"path"`
	CommissionRate     float64              `json:"commissionRate" bson:"commissionRate"`
	AllocatedRate      float64              `json:"allocatedRate" bson:"allocatedRate"`
	IsActive           bool                 `json:"isActive" bson:"isActive"`
	CreatedBy          primitive.ObjectID   `json:"createdBy" bson:"createdBy"`
	Revision           int64                `json:"-" bson:"revision"`
	CreatedAt          time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt          time.Time            `json:"updatedAt" bson:"updatedAt"`
}

// AvailableRate is the budget this node may still delegate to children.
func (n *ChannelNode) AvailableRate() float64 {
	return n.CommissionRate - n.AllocatedRate
}

// ChannelView is the read projection of a ChannelNode. A redacted view
// keeps only what is needed to draw the tree shape: the rate and
// contact fields are nil/empty and Redacted is set.
type ChannelView struct {
	ID                 primitive.ObjectID   `json:"id"`
	Code               string               `json:"code"`
	Name               string               `json:"name"`
	Type               string               `json:"type"`
	Contact            string               `json:"contact,omitempty"`
	Notes              string               `json:"notes,omitempty"`
	CommissionSystemID primitive.ObjectID   `json:"commissionSystemId"`
	ParentID           *primitive.ObjectID  `json:"parentId,omitempty"`
	Level              int                  `json:"level"`
	Path               []primitive.ObjectID `json:"path"`
	CommissionRate     *float64             `json:"commissionRate,omitempty"`
	AllocatedRate      *float64             `json:"allocatedRate,omitempty"`
	AvailableRate      *float64             `json:"availableRate,omitempty"`
	IsActive           bool                 `json:"isActive"`
	CreatedBy          primitive.ObjectID   `json:"createdBy"`
	Redacted           bool                 `json:"redacted,omitempty"`
	CreatedAt          time.Time            `json:"createdAt"`
}

// NewChannelView builds the full projection of a node.
func NewChannelView(n ChannelNode) ChannelView {
	commissionRate := n.CommissionRate
	allocatedRate := n.AllocatedRate
	availableRate := n.AvailableRate()
	return ChannelView{
		ID:                 n.ID,
		Code:               n.Code,
		Name:               n.Name,
		Type:               n.Type,
		Contact:            n.Contact,
		Notes:              n.Notes,
		CommissionSystemID: n.CommissionSystemID,
		ParentID:           n.ParentID,
		Level:              n.Level,
		Path:               n.Path,
		CommissionRate:     &commissionRate,
		AllocatedRate:      &allocatedRate,
		AvailableRate:      &availableRate,
		IsActive:           n.IsActive,
		CreatedBy:          n.CreatedBy,
		CreatedAt:          n.CreatedAt,
	}
}

// NewRedactedChannelView builds the ancestor projection shown to
// viewers who may see the node's position but not its budget.
func NewRedactedChannelView(n ChannelNode) ChannelView {
	return ChannelView{
		ID:                 n.ID,
		Code:               n.Code,
		Name:               n.Name,
		Type:               n.Type,
		CommissionSystemID: n.CommissionSystemID,
		ParentID:           n.ParentID,
		Level:              n.Level,
		Path:               n.Path,
		IsActive:           n.IsActive,
		CreatedBy:          n.CreatedBy,
		Redacted:           true,
		CreatedAt:          n.CreatedAt,
	}
}

// ChannelTree is a ChannelView with its resolved children.
type ChannelTree struct {
	ChannelView
	Children []*ChannelTree `json:"children"`
}

// ChannelStats summarizes a set of channels for display. For admins
// and the system owner it covers the whole tree; for everyone else it
// is computed over the filtered set only, so aggregate numbers never
// leak hidden nodes' rates.
type ChannelStats struct {
	TotalChannels int            `json:"totalChannels"`
	ActiveCount   int            `json:"activeCount"`
	ByType        map[string]int `json:"byType"`
	AllocatedRate float64        `json:"allocatedRate"`
	AvailableRate float64        `json:"availableRate"`
}

// ChannelPermissions tells the caller what it may do with a channel.
type ChannelPermissions struct {
	CanEdit        bool `json:"canEdit"`
	CanDelete      bool `json:"canDelete"`
	CanCreateChild bool `json:"canCreateChild"`
}

// ChannelDetail is the payload of GET /channels/:cid
type ChannelDetail struct {
	Channel     ChannelView        `json:"channel"`
	Children    []ChannelView      `json:"children"`
	Stats       ChannelStats       `json:"stats"`
	Permissions ChannelPermissions `json:"permissions"`
}

// CreateChannelRequest is the body of POST /manufacturers/:mid/channels
type CreateChannelRequest struct {
	Name           string  `json:"name" validate:"required"`
	Type           string  `json:"type" validate:"required,oneof=agent designer subchannel"`
	ParentID       string  `json:"parentId,omitempty"`
	CommissionRate float64 `json:"commissionRate" validate:"required,gt=0"`
	Contact        string  `json:"contact,omitempty"`
	Notes          string  `json:"notes,omitempty"`
}

// UpdateChannelRequest carries the partial fields of PUT /channels/:cid.
// Only CommissionRate touches the budget invariants.
type UpdateChannelRequest struct {
	Name           *string  `json:"name,omitempty"`
	Contact        *string  `json:"contact,omitempty"`
	Notes          *string  `json:"notes,omitempty"`
	CommissionRate *float64 `json:"commissionRate,omitempty" validate:"omitempty,gt=0"`
	IsActive       *bool    `json:"isActive,omitempty"`
}

// CreateChannelResponse returns the new channel with its generated code.
type CreateChannelResponse struct {
	Channel ChannelView `json:"channel"`
	Code    string      `json:"code"`
}
