package models

import (
	"time"

	"gorm.io/gorm"
)

type JoinRequestStatus string

const (
	StatusPending     JoinRequestStatus = "pending"
	StatusUnderReview JoinRequestStatus = "under_review"
	StatusApproved    JoinRequestStatus = "approved"
	StatusRejected    JoinRequestStatus = "rejected"
)

// LiveStatuses may still receive an admin decision.
var LiveStatuses = []JoinRequestStatus{StatusPending, StatusUnderReview}

func (s JoinRequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusUnderReview, StatusApproved, StatusRejected:
		return true
	}
	return false
}

func (s JoinRequestStatus) IsLive() bool {
	return s == StatusPending || s == StatusUnderReview
}

func (s JoinRequestStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// SaccoJoinRequest is a vehicle's application for membership of a sacco.
// At most one live request exists per (vehicle, sacco); the partial unique
// index ux_join_requests_live enforces it in storage.
type SaccoJoinRequest struct {
	gorm.Model
	VehicleID uint     `json:"vehicle_id" gorm:"index;not null"`
	Vehicle   *Vehicle `gorm:"foreignKey:VehicleID" json:"vehicle,omitempty"`
	SaccoID   uint     `json:"sacco_id" gorm:"index;not null"`
	Sacco     *Sacco   `gorm:"foreignKey:SaccoID" json:"sacco,omitempty"`
	OwnerID   uint     `json:"owner_id" gorm:"index;not null"`
	Owner     *User    `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`

	PreferredRoutes  []Route `gorm:"many2many:join_request_routes;" json:"preferred_routes,omitempty"`
	ExperienceYears  int     `json:"experience_years"`
	ReasonForJoining string  `json:"reason_for_joining" gorm:"type:text"`

	Status          JoinRequestStatus `json:"status" gorm:"type:varchar(20);not null;default:pending;index"`
	RequestedAt     time.Time         `json:"requested_at" gorm:"not null;index"`
	ProcessedAt     *time.Time        `json:"processed_at"`
	ProcessedByID   *uint             `json:"processed_by_id"`
	ProcessedBy     *User             `gorm:"foreignKey:ProcessedByID;constraint:OnDelete:SET NULL;" json:"processed_by,omitempty"`
	AdminNotes      string            `json:"admin_notes" gorm:"type:text"`
	RejectionReason string            `json:"rejection_reason" gorm:"type:text"`
}
