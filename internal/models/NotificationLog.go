package models

import (
	"time"

	"gorm.io/datatypes"
)

// NotificationLog records every notification dispatch attempt.
type NotificationLog struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	EventID       string         `json:"event_id" gorm:"type:varchar(36);index"`
	Kind          string         `json:"kind" gorm:"type:varchar(32);index"`
	JoinRequestID uint           `json:"join_request_id" gorm:"index"`
	RecipientID   uint           `json:"recipient_id" gorm:"index"`
	Recipient     string         `json:"recipient"`
	Delivered     bool           `json:"delivered"`
	Error         string         `json:"error,omitempty"`
	Payload       datatypes.JSON `json:"payload"`
	CreatedAt     time.Time      `json:"created_at"`
}
