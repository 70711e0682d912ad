package models

import (
	"time"

	"gorm.io/gorm"
)

type DocumentType string

const (
	DocLogbook    DocumentType = "logbook"
	DocInsurance  DocumentType = "insurance"
	DocInspection DocumentType = "inspection"
	DocLicense    DocumentType = "license"
	DocPermit     DocumentType = "permit"
	DocNTSA       DocumentType = "ntsa"
	DocOther      DocumentType = "other"
)

// RequiredDocumentTypes must all be uploaded before a join request is accepted.
var RequiredDocumentTypes = []DocumentType{DocLogbook, DocInsurance, DocInspection, DocLicense, DocPermit}

func (d DocumentType) Valid() bool {
	switch d {
	case DocLogbook, DocInsurance, DocInspection, DocLicense, DocPermit, DocNTSA, DocOther:
		return true
	}
	return false
}

// VehicleDocument is unique per (vehicle, document_type).
type VehicleDocument struct {
	gorm.Model
	VehicleID    uint         `json:"vehicle_id" gorm:"uniqueIndex:ux_vehicle_document_type;not null"`
	DocumentType DocumentType `json:"document_type" gorm:"type:varchar(20);uniqueIndex:ux_vehicle_document_type;not null"`
	DocumentName string       `json:"document_name"`
	FileRef      string       `json:"file_ref"`
	ExpiryDate   *time.Time   `json:"expiry_date"`
	IsVerified   bool         `json:"is_verified" gorm:"default:false"`
	UploadedAt   time.Time    `json:"uploaded_at"`
}
