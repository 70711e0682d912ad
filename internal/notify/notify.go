// Package notify delivers join request notifications. Delivery is best
// effort: callers dispatch after their transaction commits and treat any
// error as advisory.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"matatu_hub/internal/models"
)

type Kind string

const (
	KindOwnerConfirmation Kind = "owner_confirmation"
	KindAdminNewRequest   Kind = "admin_new_request"
	KindOwnerApproved     Kind = "owner_approved"
	KindOwnerRejected     Kind = "owner_rejected"
)

// ErrNoRecipient is returned when an event has nobody to deliver to, for
// example a sacco without an assigned admin.
var ErrNoRecipient = errors.New("notification has no recipient")

type Event struct {
	ID            string    `json:"id"`
	Kind          Kind      `json:"kind"`
	JoinRequestID uint      `json:"join_request_id"`
	SaccoID       uint      `json:"sacco_id"`
	SaccoName     string    `json:"sacco_name"`
	VehicleID     uint      `json:"vehicle_id"`
	Registration  string    `json:"registration_number"`
	Status        string    `json:"status"`
	RecipientID   uint      `json:"recipient_id"`
	Recipient     string    `json:"recipient"`
	Subject       string    `json:"subject"`
	Message       string    `json:"message"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Notifier is the outbound sink for events.
type Notifier interface {
	Notify(ctx context.Context, evt Event) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, evt Event) error

func (f NotifierFunc) Notify(ctx context.Context, evt Event) error { return f(ctx, evt) }

// NewEvent builds an event for req addressed to recipient. req should have
// its Vehicle and Sacco loaded; missing associations leave the matching
// fields empty. A nil recipient produces an event with RecipientID 0.
func NewEvent(kind Kind, req models.SaccoJoinRequest, recipient *models.User) Event {
	evt := Event{
		ID:            uuid.NewString(),
		Kind:          kind,
		JoinRequestID: req.ID,
		SaccoID:       req.SaccoID,
		VehicleID:     req.VehicleID,
		Status:        string(req.Status),
		OccurredAt:    time.Now().UTC(),
	}
	if req.Sacco != nil {
		evt.SaccoName = req.Sacco.Name
	}
	if req.Vehicle != nil {
		evt.Registration = req.Vehicle.RegistrationNumber
	}
	if recipient != nil {
		evt.RecipientID = recipient.ID
		evt.Recipient = recipient.Email
	}
	evt.Subject, evt.Message = render(kind, evt, req)
	return evt
}

func render(kind Kind, evt Event, req models.SaccoJoinRequest) (string, string) {
	switch kind {
	case KindOwnerConfirmation:
		return "Join request submitted",
			fmt.Sprintf("Your request for vehicle %s to join %s has been submitted and is pending review.", evt.Registration, evt.SaccoName)
	case KindAdminNewRequest:
		return "New join request",
			fmt.Sprintf("Vehicle %s has requested to join %s. Experience: %d years.", evt.Registration, evt.SaccoName, req.ExperienceYears)
	case KindOwnerApproved:
		return "Join request approved",
			fmt.Sprintf("Vehicle %s is now a member of %s.", evt.Registration, evt.SaccoName)
	case KindOwnerRejected:
		return "Join request rejected",
			fmt.Sprintf("Your request for vehicle %s to join %s was rejected: %s", evt.Registration, evt.SaccoName, req.RejectionReason)
	}
	return string(kind), ""
}

// Fanout delivers to every sink and joins their errors.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, evt Event) error {
	var errs []error
	for _, n := range f {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
