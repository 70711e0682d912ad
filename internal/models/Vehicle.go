// internal/models/vehicle.go
package models

import (
	"time"

	"gorm.io/gorm"
)

type Vehicle struct {
	gorm.Model
	OwnerID uint  `json:"owner_id" gorm:"index;not null"`
	Owner   *User `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`

	// SaccoID stays nil until a join request is approved.
	SaccoID *uint  `json:"sacco_id" gorm:"index"`
	Sacco   *Sacco `gorm:"foreignKey:SaccoID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"sacco,omitempty"`

	RegistrationNumber string `json:"registration_number" gorm:"uniqueIndex;not null"`
	Make               string `json:"make"`
	VehicleModel       string `json:"model" gorm:"column:model"`
	Year               int    `json:"year"`
	VehicleType        string `json:"vehicle_type"`
	FuelType           string `json:"fuel_type"`
	SeatingCapacity    int    `json:"seating_capacity"`

	FuelConsumptionPerKm float64 `json:"fuel_consumption_per_km"` // litres per km
	MonthlyInsurance     float64 `json:"monthly_insurance" gorm:"default:0"`
	MonthlyMaintenance   float64 `json:"monthly_maintenance" gorm:"default:0"`

	IsActive          bool       `json:"is_active" gorm:"default:true"`
	IsApprovedBySacco bool       `json:"is_approved_by_sacco" gorm:"default:false"`
	DateJoinedSacco   *time.Time `json:"date_joined_sacco"`

	Documents []VehicleDocument `gorm:"foreignKey:VehicleID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"documents,omitempty"`
}
