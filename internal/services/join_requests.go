package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"matatu_hub/internal/authz"
	"matatu_hub/internal/models"
	"matatu_hub/internal/notify"
)

// JoinRequestService owns the join request lifecycle:
// pending -> under_review -> approved | rejected.
type JoinRequestService struct {
	DB         *gorm.DB
	Notifier   notify.Notifier
	OnApproved ApprovalHandler
	Now        func() time.Time
}

func NewJoinRequestService(db *gorm.DB, n notify.Notifier) *JoinRequestService {
	return &JoinRequestService{
		DB:         db,
		Notifier:   n,
		OnApproved: VehicleBinder{},
		Now:        time.Now,
	}
}

type CreateCommand struct {
	OwnerID           uint
	VehicleID         uint
	SaccoID           uint
	ExperienceYears   int
	ReasonForJoining  string
	PreferredRouteIDs []uint
}

type ApproveCommand struct {
	RequestID  uint
	Actor      authz.Principal
	AdminNotes string
}

type RejectCommand struct {
	RequestID       uint
	Actor           authz.Principal
	RejectionReason string
	AdminNotes      string
}

type ReviewCommand struct {
	RequestID  uint
	Actor      authz.Principal
	AdminNotes string
}

// Result carries the stored request and any advisory notification
// failures. Warnings never indicate that the operation failed.
type Result struct {
	Request  models.SaccoJoinRequest `json:"request"`
	Warnings []string                `json:"warnings,omitempty"`
}

func liveStatuses() []string {
	out := make([]string, len(models.LiveStatuses))
	for i, s := range models.LiveStatuses {
		out[i] = string(s)
	}
	return out
}

// Create files a join request for a vehicle the caller owns.
func (s *JoinRequestService) Create(ctx context.Context, cmd CreateCommand) (Result, error) {
	if cmd.VehicleID == 0 {
		return Result{}, &ValidationError{Field: "vehicle_id", Msg: "is required"}
	}
	if cmd.SaccoID == 0 {
		return Result{}, &ValidationError{Field: "sacco_id", Msg: "is required"}
	}
	if cmd.ExperienceYears < 0 {
		return Result{}, &ValidationError{Field: "experience_years", Msg: "must not be negative"}
	}

	db := s.DB.WithContext(ctx)
	vehicle, err := ownedVehicle(db, cmd.OwnerID, cmd.VehicleID)
	if err != nil {
		return Result{}, err
	}
	var sacco models.Sacco
	if err := db.First(&sacco, cmd.SaccoID).Error; err != nil {
		return Result{}, notFound("sacco", err)
	}

	if vehicle.SaccoID != nil {
		return Result{}, ErrVehicleInSacco
	}
	var live int64
	if err := db.Model(&models.SaccoJoinRequest{}).
		Where("vehicle_id = ? AND sacco_id = ? AND status IN ?", cmd.VehicleID, cmd.SaccoID, liveStatuses()).
		Count(&live).Error; err != nil {
		return Result{}, err
	}
	if live > 0 {
		return Result{}, ErrDuplicateRequest
	}
	docs, err := checkDocuments(db, cmd.VehicleID)
	if err != nil {
		return Result{}, err
	}
	if !docs.IsComplete {
		return Result{}, &MissingDocumentsError{Missing: docs.Missing}
	}

	routes, err := s.preferredRoutes(db, cmd.SaccoID, cmd.PreferredRouteIDs)
	if err != nil {
		return Result{}, err
	}

	req := models.SaccoJoinRequest{
		VehicleID:        cmd.VehicleID,
		SaccoID:          cmd.SaccoID,
		OwnerID:          vehicle.OwnerID,
		ExperienceYears:  cmd.ExperienceYears,
		ReasonForJoining: strings.TrimSpace(cmd.ReasonForJoining),
		Status:           models.StatusPending,
		RequestedAt:      s.Now().UTC(),
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("PreferredRoutes").Create(&req).Error; err != nil {
			return err
		}
		if len(routes) > 0 {
			return tx.Model(&req).Association("PreferredRoutes").Append(routes)
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return Result{}, ErrDuplicateRequest
		}
		logrus.WithError(err).WithFields(logrus.Fields{
			"vehicle_id": cmd.VehicleID,
			"sacco_id":   cmd.SaccoID,
		}).Error("join request: create failed")
		return Result{}, err
	}

	stored, err := s.load(ctx, req.ID)
	if err != nil {
		return Result{}, err
	}
	logrus.WithFields(logrus.Fields{
		"join_request_id": stored.ID,
		"vehicle_id":      stored.VehicleID,
		"sacco_id":        stored.SaccoID,
	}).Info("join request created")

	res := Result{Request: stored}
	res.Warnings = s.dispatch(ctx, stored,
		notify.NewEvent(notify.KindOwnerConfirmation, stored, stored.Owner),
		notify.NewEvent(notify.KindAdminNewRequest, stored, adminOf(stored)),
	)
	return res, nil
}

func (s *JoinRequestService) preferredRoutes(db *gorm.DB, saccoID uint, ids []uint) ([]models.Route, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	uniq := make([]uint, 0, len(ids))
	seen := map[uint]bool{}
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			uniq = append(uniq, id)
		}
	}
	var routes []models.Route
	if err := db.Where("id IN ? AND sacco_id = ?", uniq, saccoID).Find(&routes).Error; err != nil {
		return nil, err
	}
	if len(routes) != len(uniq) {
		return nil, &ValidationError{Field: "preferred_route_ids", Msg: "every route must belong to the requested sacco"}
	}
	return routes, nil
}

// Approve moves a live request to approved and binds the vehicle to the
// sacco in the same transaction.
func (s *JoinRequestService) Approve(ctx context.Context, cmd ApproveCommand) (Result, error) {
	req, err := s.loadForDecision(ctx, cmd.RequestID, cmd.Actor)
	if err != nil {
		return Result{}, err
	}

	now := s.Now().UTC()
	updates := map[string]interface{}{
		"status":          models.StatusApproved,
		"processed_at":    now,
		"processed_by_id": cmd.Actor.UserID,
	}
	if notes := strings.TrimSpace(cmd.AdminNotes); notes != "" {
		updates["admin_notes"] = notes
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := guardedUpdate(tx, req.ID, updates); err != nil {
			return err
		}
		return s.OnApproved.HandleRequestApproved(tx, RequestApproved{
			RequestID:  req.ID,
			VehicleID:  req.VehicleID,
			SaccoID:    req.SaccoID,
			ApprovedBy: cmd.Actor.UserID,
			ApprovedAt: now,
		})
	})
	if err != nil {
		return Result{}, s.decisionFailed("approve", req, err)
	}

	return s.afterDecision(ctx, req.ID, cmd.Actor, notify.KindOwnerApproved)
}

// Reject closes a live request with a mandatory reason. The vehicle is not
// touched.
func (s *JoinRequestService) Reject(ctx context.Context, cmd RejectCommand) (Result, error) {
	reason := strings.TrimSpace(cmd.RejectionReason)
	if reason == "" {
		return Result{}, &ValidationError{Field: "rejection_reason", Msg: "is required"}
	}
	req, err := s.loadForDecision(ctx, cmd.RequestID, cmd.Actor)
	if err != nil {
		return Result{}, err
	}

	updates := map[string]interface{}{
		"status":           models.StatusRejected,
		"processed_at":     s.Now().UTC(),
		"processed_by_id":  cmd.Actor.UserID,
		"rejection_reason": reason,
	}
	if notes := strings.TrimSpace(cmd.AdminNotes); notes != "" {
		updates["admin_notes"] = notes
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return guardedUpdate(tx, req.ID, updates)
	})
	if err != nil {
		return Result{}, s.decisionFailed("reject", req, err)
	}

	return s.afterDecision(ctx, req.ID, cmd.Actor, notify.KindOwnerRejected)
}

// MarkUnderReview parks a live request as under_review and optionally
// updates the admin notes. It may be repeated; processed_at stays unset.
func (s *JoinRequestService) MarkUnderReview(ctx context.Context, cmd ReviewCommand) (Result, error) {
	req, err := s.loadForDecision(ctx, cmd.RequestID, cmd.Actor)
	if err != nil {
		return Result{}, err
	}
	updates := map[string]interface{}{"status": models.StatusUnderReview}
	if notes := strings.TrimSpace(cmd.AdminNotes); notes != "" {
		updates["admin_notes"] = notes
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return guardedUpdate(tx, req.ID, updates)
	})
	if err != nil {
		return Result{}, s.decisionFailed("review", req, err)
	}
	stored, err := s.load(ctx, req.ID)
	if err != nil {
		return Result{}, err
	}
	return Result{Request: stored}, nil
}

// guardedUpdate applies updates only while the request is still live. A
// concurrent decision that got there first surfaces as AlreadyProcessedError.
func guardedUpdate(tx *gorm.DB, id uint, updates map[string]interface{}) error {
	res := tx.Model(&models.SaccoJoinRequest{}).
		Where("id = ? AND status IN ?", id, liveStatuses()).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var current models.SaccoJoinRequest
		if err := tx.Select("id", "status").First(&current, id).Error; err != nil {
			return notFound("join request", err)
		}
		return &AlreadyProcessedError{Status: current.Status}
	}
	return nil
}

// Authorize checks that actor may administer saccoID.
func (s *JoinRequestService) Authorize(ctx context.Context, actor authz.Principal, saccoID uint) error {
	var sacco models.Sacco
	if err := s.DB.WithContext(ctx).First(&sacco, saccoID).Error; err != nil {
		return notFound("sacco", err)
	}
	if !actor.CanAdminister(sacco) {
		return ErrForbidden
	}
	return nil
}

func (s *JoinRequestService) loadForDecision(ctx context.Context, id uint, actor authz.Principal) (models.SaccoJoinRequest, error) {
	var req models.SaccoJoinRequest
	if err := s.DB.WithContext(ctx).Preload("Sacco").First(&req, id).Error; err != nil {
		return req, notFound("join request", err)
	}
	if req.Sacco == nil || !actor.CanAdminister(*req.Sacco) {
		return req, ErrForbidden
	}
	if req.Status.IsTerminal() {
		return req, &AlreadyProcessedError{Status: req.Status}
	}
	return req, nil
}

func (s *JoinRequestService) decisionFailed(action string, req models.SaccoJoinRequest, err error) error {
	var already *AlreadyProcessedError
	if errors.As(err, &already) || errors.Is(err, ErrVehicleInSacco) || errors.Is(err, ErrNotFound) {
		return err
	}
	logrus.WithError(err).WithFields(logrus.Fields{
		"join_request_id": req.ID,
		"vehicle_id":      req.VehicleID,
		"sacco_id":        req.SaccoID,
		"action":          action,
	}).Error("join request: decision rolled back")
	return err
}

func (s *JoinRequestService) afterDecision(ctx context.Context, id uint, actor authz.Principal, kind notify.Kind) (Result, error) {
	stored, err := s.load(ctx, id)
	if err != nil {
		return Result{}, err
	}
	logrus.WithFields(logrus.Fields{
		"join_request_id": stored.ID,
		"status":          stored.Status,
		"processed_by":    actor.UserID,
	}).Info("join request decided")

	res := Result{Request: stored}
	res.Warnings = s.dispatch(ctx, stored, notify.NewEvent(kind, stored, stored.Owner))
	return res, nil
}

// dispatch sends events after commit. Failures are logged and returned as
// warnings; they never fail the caller.
func (s *JoinRequestService) dispatch(ctx context.Context, req models.SaccoJoinRequest, events ...notify.Event) []string {
	if s.Notifier == nil {
		return nil
	}
	var warnings []string
	for _, evt := range events {
		err := s.Notifier.Notify(ctx, evt)
		if err == nil && evt.RecipientID == 0 {
			err = notify.ErrNoRecipient
		}
		if err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"join_request_id": req.ID,
				"kind":            evt.Kind,
				"event_id":        evt.ID,
			}).Warn("join request: notification failed")
			warnings = append(warnings, string(evt.Kind)+" notification failed: "+err.Error())
		}
	}
	return warnings
}

func (s *JoinRequestService) load(ctx context.Context, id uint) (models.SaccoJoinRequest, error) {
	var req models.SaccoJoinRequest
	err := s.DB.WithContext(ctx).
		Preload("Vehicle").
		Preload("Sacco").
		Preload("Sacco.SaccoAdmin").
		Preload("Owner").
		Preload("ProcessedBy").
		Preload("PreferredRoutes").
		First(&req, id).Error
	return req, notFound("join request", err)
}

func adminOf(req models.SaccoJoinRequest) *models.User {
	if req.Sacco == nil {
		return nil
	}
	return req.Sacco.SaccoAdmin
}
