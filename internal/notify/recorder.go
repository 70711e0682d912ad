package notify

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"matatu_hub/internal/models"
)

// Recorder wraps a sink and persists every attempt with its outcome to
// notification_logs. The wrapped sink's error is returned unchanged.
type Recorder struct {
	db   *gorm.DB
	next Notifier
}

func NewRecorder(db *gorm.DB, next Notifier) *Recorder {
	return &Recorder{db: db, next: next}
}

func (r *Recorder) Notify(ctx context.Context, evt Event) error {
	var sendErr error
	if r.next != nil {
		sendErr = r.next.Notify(ctx, evt)
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return sendErr
	}
	entry := models.NotificationLog{
		EventID:       evt.ID,
		Kind:          string(evt.Kind),
		JoinRequestID: evt.JoinRequestID,
		RecipientID:   evt.RecipientID,
		Recipient:     evt.Recipient,
		Delivered:     sendErr == nil,
		Payload:       datatypes.JSON(payload),
		CreatedAt:     evt.OccurredAt,
	}
	if sendErr != nil {
		entry.Error = sendErr.Error()
	}
	if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
		logrus.WithError(err).WithField("event_id", evt.ID).Warn("notify: failed to record notification")
	}
	return sendErr
}
