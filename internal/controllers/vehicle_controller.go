package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"matatu_hub/internal/models"
	"matatu_hub/internal/services"
)

// GetMyVehicles lists the caller's vehicles.
func (h *Handler) GetMyVehicles(c *gin.Context) {
	vehicles, err := h.Vehicles.ListForOwner(c.Request.Context(), principal(c).UserID)
	if err != nil {
		writeServiceError(c, "GetMyVehicles", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": vehicles})
}

// CreateVehicle registers a vehicle for the caller.
func (h *Handler) CreateVehicle(c *gin.Context) {
	var input struct {
		RegistrationNumber   string  `json:"registration_number" binding:"required"`
		Make                 string  `json:"make"`
		Model                string  `json:"model"`
		Year                 int     `json:"year"`
		VehicleType          string  `json:"vehicle_type"`
		FuelType             string  `json:"fuel_type"`
		SeatingCapacity      int     `json:"seating_capacity"`
		FuelConsumptionPerKm float64 `json:"fuel_consumption_per_km"`
		MonthlyInsurance     float64 `json:"monthly_insurance"`
		MonthlyMaintenance   float64 `json:"monthly_maintenance"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		logrus.WithError(err).Warn("CreateVehicle: invalid input payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	v, err := h.Vehicles.Register(c.Request.Context(), principal(c).UserID, services.RegisterVehicleInput{
		RegistrationNumber:   input.RegistrationNumber,
		Make:                 input.Make,
		Model:                input.Model,
		Year:                 input.Year,
		VehicleType:          input.VehicleType,
		FuelType:             input.FuelType,
		SeatingCapacity:      input.SeatingCapacity,
		FuelConsumptionPerKm: input.FuelConsumptionPerKm,
		MonthlyInsurance:     input.MonthlyInsurance,
		MonthlyMaintenance:   input.MonthlyMaintenance,
	})
	if err != nil {
		writeServiceError(c, "CreateVehicle", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"vehicle": v})
}

func (h *Handler) ListVehicleDocuments(c *gin.Context) {
	vehicleID, ok := parseID(c, "id")
	if !ok {
		return
	}
	docs, err := h.Documents.List(c.Request.Context(), principal(c).UserID, vehicleID)
	if err != nil {
		writeServiceError(c, "ListVehicleDocuments", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": docs})
}

// UploadVehicleDocument stores or replaces one document of a vehicle.
func (h *Handler) UploadVehicleDocument(c *gin.Context) {
	vehicleID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input struct {
		DocumentType string     `json:"document_type" binding:"required"`
		DocumentName string     `json:"document_name"`
		FileRef      string     `json:"file_ref" binding:"required"`
		ExpiryDate   *time.Time `json:"expiry_date"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	doc, err := h.Documents.Upsert(c.Request.Context(), principal(c).UserID, vehicleID, services.UploadDocumentInput{
		DocumentType: models.DocumentType(input.DocumentType),
		DocumentName: input.DocumentName,
		FileRef:      input.FileRef,
		ExpiryDate:   input.ExpiryDate,
	})
	if err != nil {
		writeServiceError(c, "UploadVehicleDocument", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"document": doc})
}

// GetDocumentStatus reports which required documents are still missing.
func (h *Handler) GetDocumentStatus(c *gin.Context) {
	vehicleID, ok := parseID(c, "id")
	if !ok {
		return
	}
	st, err := h.Documents.StatusForOwner(c.Request.Context(), principal(c).UserID, vehicleID)
	if err != nil {
		writeServiceError(c, "GetDocumentStatus", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// GetVehicleEarnings estimates the vehicle's earnings on candidate routes.
func (h *Handler) GetVehicleEarnings(c *gin.Context) {
	vehicleID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var saccoID *uint
	if raw := c.Query("sacco_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sacco_id"})
			return
		}
		v := uint(id)
		saccoID = &v
	}
	out, err := h.Earnings.EstimateVehicleEarnings(c.Request.Context(), principal(c).UserID, vehicleID, saccoID)
	if err != nil {
		writeServiceError(c, "GetVehicleEarnings", err)
		return
	}
	c.JSON(http.StatusOK, out)
}
