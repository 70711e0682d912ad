// internal/models/sacco.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// DefaultCommissionRate is the percentage applied when a sacco has not set
// its own commission.
const DefaultCommissionRate = 12.0

// Sacco represents a transport cooperative that operates routes and admits
// member vehicles.
type Sacco struct {
	gorm.Model
	Name               string     `json:"name" binding:"required"`
	Location           string     `json:"location"`
	RegistrationNumber string     `json:"registration_number" gorm:"uniqueIndex"`
	DateEstablished    *time.Time `json:"date_established,omitempty"`
	ContactNumber      string     `json:"contact_number"`
	Email              string     `json:"email"`
	Website            string     `json:"website,omitempty"`

	// CommissionRate is a percentage of gross route revenue. Nil means the
	// sacco never configured one.
	CommissionRate *float64 `json:"commission_rate,omitempty"`

	// SaccoAdminID is the single administrator currently assigned to the sacco.
	SaccoAdminID *uint `json:"sacco_admin_id,omitempty" gorm:"index"`
	SaccoAdmin   *User `gorm:"foreignKey:SaccoAdminID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"sacco_admin,omitempty"`

	Routes   []Route   `gorm:"foreignKey:SaccoID" json:"routes,omitempty"`
	Vehicles []Vehicle `gorm:"foreignKey:SaccoID" json:"vehicles,omitempty"`
}

// CommissionFraction returns the commission as a fraction of revenue.
func (s Sacco) CommissionFraction() float64 {
	if s.CommissionRate == nil {
		return DefaultCommissionRate / 100
	}
	return *s.CommissionRate / 100
}

// AdministeredBy reports whether userID is the sacco's registered admin.
func (s Sacco) AdministeredBy(userID uint) bool {
	return s.SaccoAdminID != nil && *s.SaccoAdminID == userID
}
