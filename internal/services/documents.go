package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"matatu_hub/internal/models"
)

// DocumentStatus is the completeness report for one vehicle.
type DocumentStatus struct {
	VehicleID            uint                  `json:"vehicle_id"`
	Required             []models.DocumentType `json:"required"`
	Uploaded             []models.DocumentType `json:"uploaded"`
	Missing              []models.DocumentType `json:"missing"`
	IsComplete           bool                  `json:"is_complete"`
	CompletionPercentage float64               `json:"completion_percentage"`
}

type DocumentService struct {
	DB *gorm.DB
}

func NewDocumentService(db *gorm.DB) *DocumentService {
	return &DocumentService{DB: db}
}

// ListDocumentTypes returns the distinct document types uploaded for a
// vehicle, in storage order.
func (s *DocumentService) ListDocumentTypes(ctx context.Context, vehicleID uint) ([]models.DocumentType, error) {
	return listDocumentTypes(s.DB.WithContext(ctx), vehicleID)
}

func listDocumentTypes(db *gorm.DB, vehicleID uint) ([]models.DocumentType, error) {
	var types []models.DocumentType
	err := db.Model(&models.VehicleDocument{}).
		Where("vehicle_id = ?", vehicleID).
		Distinct().
		Order("document_type ASC").
		Pluck("document_type", &types).Error
	return types, err
}

// Check computes which required documents the vehicle still lacks. It is a
// pure read; verification state does not matter.
func (s *DocumentService) Check(ctx context.Context, vehicleID uint) (DocumentStatus, error) {
	return checkDocuments(s.DB.WithContext(ctx), vehicleID)
}

func checkDocuments(db *gorm.DB, vehicleID uint) (DocumentStatus, error) {
	uploaded, err := listDocumentTypes(db, vehicleID)
	if err != nil {
		return DocumentStatus{}, err
	}
	return completeness(vehicleID, uploaded), nil
}

func completeness(vehicleID uint, uploaded []models.DocumentType) DocumentStatus {
	have := make(map[models.DocumentType]bool, len(uploaded))
	seen := make([]models.DocumentType, 0, len(uploaded))
	for _, d := range uploaded {
		if have[d] {
			continue
		}
		have[d] = true
		seen = append(seen, d)
	}

	missing := []models.DocumentType{}
	present := 0
	for _, req := range models.RequiredDocumentTypes {
		if have[req] {
			present++
		} else {
			missing = append(missing, req)
		}
	}
	pct := float64(present) / float64(len(models.RequiredDocumentTypes)) * 100
	return DocumentStatus{
		VehicleID:            vehicleID,
		Required:             models.RequiredDocumentTypes,
		Uploaded:             seen,
		Missing:              missing,
		IsComplete:           len(missing) == 0,
		CompletionPercentage: math.Round(pct*100) / 100,
	}
}

// UploadDocumentInput is an owner's document upload. FileRef points at the
// stored file; storage itself happens outside this service.
type UploadDocumentInput struct {
	DocumentType models.DocumentType
	DocumentName string
	FileRef      string
	ExpiryDate   *time.Time
}

// Upsert stores a document for a vehicle owned by ownerID. Uploading a type
// that already exists replaces it in place and clears verification.
func (s *DocumentService) Upsert(ctx context.Context, ownerID, vehicleID uint, in UploadDocumentInput) (models.VehicleDocument, error) {
	if !in.DocumentType.Valid() {
		return models.VehicleDocument{}, &ValidationError{Field: "document_type", Msg: "unknown document type"}
	}
	if strings.TrimSpace(in.FileRef) == "" {
		return models.VehicleDocument{}, &ValidationError{Field: "file_ref", Msg: "is required"}
	}
	db := s.DB.WithContext(ctx)
	if _, err := ownedVehicle(db, ownerID, vehicleID); err != nil {
		return models.VehicleDocument{}, err
	}

	doc := models.VehicleDocument{
		VehicleID:    vehicleID,
		DocumentType: in.DocumentType,
		DocumentName: in.DocumentName,
		FileRef:      in.FileRef,
		ExpiryDate:   in.ExpiryDate,
		IsVerified:   false,
		UploadedAt:   time.Now().UTC(),
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "vehicle_id"}, {Name: "document_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"document_name", "file_ref", "expiry_date", "is_verified", "uploaded_at", "updated_at"}),
	}).Create(&doc).Error
	if err != nil {
		return models.VehicleDocument{}, err
	}

	var stored models.VehicleDocument
	if err := db.Where("vehicle_id = ? AND document_type = ?", vehicleID, in.DocumentType).First(&stored).Error; err != nil {
		return models.VehicleDocument{}, err
	}
	return stored, nil
}

// List returns a vehicle's documents for its owner.
func (s *DocumentService) List(ctx context.Context, ownerID, vehicleID uint) ([]models.VehicleDocument, error) {
	db := s.DB.WithContext(ctx)
	if _, err := ownedVehicle(db, ownerID, vehicleID); err != nil {
		return nil, err
	}
	var docs []models.VehicleDocument
	if err := db.Where("vehicle_id = ?", vehicleID).Order("document_type ASC").Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// StatusForOwner is Check restricted to the vehicle's owner.
func (s *DocumentService) StatusForOwner(ctx context.Context, ownerID, vehicleID uint) (DocumentStatus, error) {
	db := s.DB.WithContext(ctx)
	if _, err := ownedVehicle(db, ownerID, vehicleID); err != nil {
		return DocumentStatus{}, err
	}
	return checkDocuments(db, vehicleID)
}

func ownedVehicle(db *gorm.DB, ownerID, vehicleID uint) (models.Vehicle, error) {
	var v models.Vehicle
	err := db.Where("id = ? AND owner_id = ?", vehicleID, ownerID).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return v, notFound("vehicle", err)
	}
	return v, err
}
