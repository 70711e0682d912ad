package notify

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogNotifier writes events to the application log. It never fails.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, evt Event) error {
	logrus.WithFields(logrus.Fields{
		"event_id":        evt.ID,
		"kind":            evt.Kind,
		"join_request_id": evt.JoinRequestID,
		"recipient":       evt.Recipient,
	}).Info(evt.Subject)
	return nil
}
