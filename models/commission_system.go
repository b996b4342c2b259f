package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Margin types supported by a commission system
const (
	MarginTypeFixed      = "fixed"
	MarginTypePercentage = "percentage"
)

// Commission system lifecycle status
const (
	SystemStatusActive   = "active"
	SystemStatusArchived = "archived"
)

// CommissionSystem is the root margin ledger for one manufacturer.
// AllocatedRate is the sum of commissionRate over the system's direct
// (root-level) channel nodes and is persisted alongside the totals so
// availability checks never re-scan the tree.
type CommissionSystem struct {
	ID                primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	ManufacturerID    primitive.ObjectID `json:"manufacturerId" bson:"manufacturerId"`
	TotalMarginRate   float64            `json:"totalMarginRate" bson:"totalMarginRate"`
	MarginType        string             `json:"marginType" bson:"marginType"` // "fixed", "percentage"
	FactoryRetainRate float64            `json:"factoryRetainRate" bson:"factoryRetainRate"`
	AllocatedRate     float64            `json:"allocatedRate" bson:"allocatedRate"`
	Status            string             `json:"status" bson:"status"` // "active", "archived"
	Version           string             `json:"version,omitempty" bson:"version,omitempty"`
	Revision          int64              `json:"-" bson:"revision"`
	CreatedBy         primitive.ObjectID `json:"createdBy" bson:"createdBy"`
	CreatedAt         time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// DistributableRate is the budget the manufacturer may hand to
// root-level channels: total margin minus what the factory keeps.
func (s *CommissionSystem) DistributableRate() float64 {
	return s.TotalMarginRate - s.FactoryRetainRate
}

// AvailableRate is the root budget not yet granted to any channel.
func (s *CommissionSystem) AvailableRate() float64 {
	return s.TotalMarginRate - s.FactoryRetainRate - s.AllocatedRate
}

// CreateCommissionSystemRequest is the body of POST /manufacturers/:mid/commission-system
type CreateCommissionSystemRequest struct {
	TotalMarginRate   float64 `json:"totalMarginRate" validate:"required,gt=0"`
	MarginType        string  `json:"marginType" validate:"required,oneof=fixed percentage"`
	FactoryRetainRate float64 `json:"factoryRetainRate" validate:"gte=0"`
	Version           string  `json:"version,omitempty"`
}

// UpdateCommissionSystemRequest carries the partial fields of
// PUT /manufacturers/:mid/commission-system. Nil means "leave as is".
type UpdateCommissionSystemRequest struct {
	TotalMarginRate   *float64 `json:"totalMarginRate,omitempty" validate:"omitempty,gt=0"`
	MarginType        *string  `json:"marginType,omitempty" validate:"omitempty,oneof=fixed percentage"`
	FactoryRetainRate *float64 `json:"factoryRetainRate,omitempty" validate:"omitempty,gte=0"`
	Version           *string  `json:"version,omitempty"`
}

// CommissionSystemOverview is the payload of GET /manufacturers/:mid/commission-system
type CommissionSystemOverview struct {
	System   *CommissionSystem `json:"system"`
	Channels []*ChannelTree    `json:"channels"`
	Stats    ChannelStats      `json:"stats"`
}
