package services

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"matatu_hub/internal/models"
)

// RequestApproved is raised inside the approval transaction once the
// request row has moved to approved.
type RequestApproved struct {
	RequestID  uint
	VehicleID  uint
	SaccoID    uint
	ApprovedBy uint
	ApprovedAt time.Time
}

// ApprovalHandler applies the side effects of an approval. It runs on the
// approval transaction; returning an error rolls the approval back.
type ApprovalHandler interface {
	HandleRequestApproved(tx *gorm.DB, evt RequestApproved) error
}

// VehicleBinder attaches the approved vehicle to its new sacco.
type VehicleBinder struct{}

func (VehicleBinder) HandleRequestApproved(tx *gorm.DB, evt RequestApproved) error {
	res := tx.Model(&models.Vehicle{}).
		Where("id = ? AND sacco_id IS NULL", evt.VehicleID).
		Updates(map[string]interface{}{
			"sacco_id":             evt.SaccoID,
			"is_approved_by_sacco": true,
			"date_joined_sacco":    evt.ApprovedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("bind vehicle %d to sacco %d: %w", evt.VehicleID, evt.SaccoID, res.Error)
	}
	if res.RowsAffected == 0 {
		// Either the vehicle vanished or another approval already placed it.
		var v models.Vehicle
		if err := tx.Select("id", "sacco_id").First(&v, evt.VehicleID).Error; err != nil {
			return notFound("vehicle", err)
		}
		return ErrVehicleInSacco
	}
	return nil
}
