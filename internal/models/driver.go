package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role represents user roles in the system
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleDriver Role = "driver"
)

// IsValidRole checks if a role is valid
func IsValidRole(role Role) bool {
	switch role {
	case RoleAdmin, RoleDriver:
		return true
	default:
		return false
	}
}

// Driver represents a fleet driver.
type Driver struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Phone     string             `bson:"phone,omitempty" json:"phone,omitempty"`
	HomeBase  Location           `bson:"home_base" json:"home_base"`
	Available bool               `bson:"available" json:"available"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// Claims carries the identity extracted from a validated bearer token.
type Claims struct {
	Subject  string `json:"sub"`
	Role     Role   `json:"role"`
	DriverID string `json:"driver_id,omitempty"`
	Exp      int64  `json:"exp"`
}

// CanAccessDriver reports whether the caller may read data scoped to the
// given driver. Admins see everything; drivers see only their own.
func (c *Claims) CanAccessDriver(driverID string) bool {
	if c.Role == RoleAdmin {
		return true
	}
	return c.Role == RoleDriver && c.DriverID != "" && c.DriverID == driverID
}
