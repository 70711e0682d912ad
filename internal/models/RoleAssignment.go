package models

import "gorm.io/gorm"

type Role string

const (
	RoleVehicleOwner Role = "vehicle_owner"
	RoleSaccoAdmin   Role = "sacco_admin"
	RoleSuperuser    Role = "superuser"
)

// RoleAssignment grants a role to a user. SaccoID scopes sacco_admin
// assignments and is nil for the other roles.
type RoleAssignment struct {
	gorm.Model
	UserID   uint  `json:"user_id" gorm:"index;not null"`
	Role     Role  `json:"role" gorm:"type:varchar(32);not null"`
	SaccoID  *uint `json:"sacco_id,omitempty" gorm:"index"`
	IsActive bool  `json:"is_active" gorm:"default:true"`
}
