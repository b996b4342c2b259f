package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User types known to this service. Identity is resolved upstream and
// arrives as JWT claims; these are the values the claims may carry.
const (
	UserTypeAdmin          = "admin"
	UserTypeSuperAdmin     = "super_admin"
	UserTypeManufacturer   = "manufacturer"
	UserTypeChannelPartner = "channel_partner"
)

// Viewer is the resolved identity of the caller of a request, as taken
// from the JWT claims. Every visibility and permission decision is made
// against a Viewer.
type Viewer struct {
	UserID   primitive.ObjectID `json:"userId"`
	Email    string             `json:"email"`
	UserType string             `json:"userType"`
}

// IsAdmin reports whether the viewer holds an administrative role.
func (v Viewer) IsAdmin() bool {
	return v.UserType == UserTypeAdmin || v.UserType == UserTypeSuperAdmin
}

// Response model
type Response struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
