package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"matatu_hub/internal/models"
)

type RegisterVehicleInput struct {
	RegistrationNumber   string
	Make                 string
	Model                string
	Year                 int
	VehicleType          string
	FuelType             string
	SeatingCapacity      int
	FuelConsumptionPerKm float64
	MonthlyInsurance     float64
	MonthlyMaintenance   float64
}

type VehicleService struct {
	DB *gorm.DB
}

func NewVehicleService(db *gorm.DB) *VehicleService {
	return &VehicleService{DB: db}
}

func (s *VehicleService) ListForOwner(ctx context.Context, ownerID uint) ([]models.Vehicle, error) {
	var out []models.Vehicle
	err := s.DB.WithContext(ctx).
		Preload("Sacco").
		Where("owner_id = ?", ownerID).
		Order("id DESC").
		Find(&out).Error
	return out, err
}

// Register adds a vehicle for ownerID. New vehicles never start in a sacco;
// membership only comes from an approved join request.
func (s *VehicleService) Register(ctx context.Context, ownerID uint, in RegisterVehicleInput) (models.Vehicle, error) {
	reg := strings.ToUpper(strings.TrimSpace(in.RegistrationNumber))
	switch {
	case reg == "":
		return models.Vehicle{}, &ValidationError{Field: "registration_number", Msg: "is required"}
	case in.SeatingCapacity < 0:
		return models.Vehicle{}, &ValidationError{Field: "seating_capacity", Msg: "must not be negative"}
	case in.FuelConsumptionPerKm < 0 || in.MonthlyInsurance < 0 || in.MonthlyMaintenance < 0:
		return models.Vehicle{}, &ValidationError{Msg: "cost fields must not be negative"}
	}

	v := models.Vehicle{
		OwnerID:              ownerID,
		RegistrationNumber:   reg,
		Make:                 in.Make,
		VehicleModel:         in.Model,
		Year:                 in.Year,
		VehicleType:          in.VehicleType,
		FuelType:             in.FuelType,
		SeatingCapacity:      in.SeatingCapacity,
		FuelConsumptionPerKm: in.FuelConsumptionPerKm,
		MonthlyInsurance:     in.MonthlyInsurance,
		MonthlyMaintenance:   in.MonthlyMaintenance,
		IsActive:             true,
	}
	if err := s.DB.WithContext(ctx).Create(&v).Error; err != nil {
		if isUniqueViolation(err) {
			return models.Vehicle{}, &ValidationError{Field: "registration_number", Msg: "is already registered"}
		}
		return models.Vehicle{}, err
	}
	return v, nil
}
