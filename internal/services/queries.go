package services

import (
	"context"

	"gorm.io/gorm"

	"matatu_hub/internal/authz"
	"matatu_hub/internal/models"
)

// RequestDetail is the full view of one join request.
type RequestDetail struct {
	Request        models.SaccoJoinRequest  `json:"request"`
	Owner          models.Contact           `json:"owner"`
	Documents      []models.VehicleDocument `json:"documents"`
	DocumentStatus DocumentStatus           `json:"document_status"`
}

// JoinRequestQueries are read-only projections over join requests.
type JoinRequestQueries struct {
	DB *gorm.DB
}

func NewJoinRequestQueries(db *gorm.DB) *JoinRequestQueries {
	return &JoinRequestQueries{DB: db}
}

func (q *JoinRequestQueries) listing(ctx context.Context) *gorm.DB {
	return q.DB.WithContext(ctx).
		Preload("Vehicle").
		Preload("Vehicle.Documents").
		Preload("Owner").
		Preload("PreferredRoutes").
		Order("requested_at DESC, id DESC")
}

// ListPending returns a sacco's pending requests, newest first.
func (q *JoinRequestQueries) ListPending(ctx context.Context, saccoID uint) ([]models.SaccoJoinRequest, error) {
	var out []models.SaccoJoinRequest
	err := q.listing(ctx).
		Where("sacco_id = ? AND status = ?", saccoID, models.StatusPending).
		Find(&out).Error
	return out, err
}

// ListBySacco returns a sacco's requests, newest first, optionally
// filtered by status.
func (q *JoinRequestQueries) ListBySacco(ctx context.Context, saccoID uint, status string) ([]models.SaccoJoinRequest, error) {
	tx := q.listing(ctx).Where("sacco_id = ?", saccoID)
	if status != "" {
		st := models.JoinRequestStatus(status)
		if !st.Valid() {
			return nil, &ValidationError{Field: "status", Msg: "unknown status " + status}
		}
		tx = tx.Where("status = ?", st)
	}
	var out []models.SaccoJoinRequest
	err := tx.Find(&out).Error
	return out, err
}

// ListForOwner returns every request filed by ownerID, newest first.
func (q *JoinRequestQueries) ListForOwner(ctx context.Context, ownerID uint) ([]models.SaccoJoinRequest, error) {
	var out []models.SaccoJoinRequest
	err := q.DB.WithContext(ctx).
		Preload("Vehicle").
		Preload("Sacco").
		Preload("PreferredRoutes").
		Where("owner_id = ?", ownerID).
		Order("requested_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

// Detail loads one request with documents, owner contact and routes.
func (q *JoinRequestQueries) Detail(ctx context.Context, id uint) (RequestDetail, error) {
	var req models.SaccoJoinRequest
	err := q.DB.WithContext(ctx).
		Preload("Vehicle").
		Preload("Vehicle.Documents", func(db *gorm.DB) *gorm.DB {
			return db.Order("document_type ASC")
		}).
		Preload("Sacco").
		Preload("Owner").
		Preload("ProcessedBy").
		Preload("PreferredRoutes").
		Preload("PreferredRoutes.Stages", func(db *gorm.DB) *gorm.DB {
			return db.Order("seq ASC")
		}).
		First(&req, id).Error
	if err != nil {
		return RequestDetail{}, notFound("join request", err)
	}

	d := RequestDetail{Request: req, Documents: []models.VehicleDocument{}}
	if req.Owner != nil {
		d.Owner = req.Owner.Contact()
	}
	var uploaded []models.DocumentType
	if req.Vehicle != nil {
		d.Documents = req.Vehicle.Documents
		for _, doc := range req.Vehicle.Documents {
			uploaded = append(uploaded, doc.DocumentType)
		}
	}
	d.DocumentStatus = completeness(req.VehicleID, uploaded)
	return d, nil
}

// DetailForOwner is Detail restricted to the request's owner. Requests of
// other owners read as not found.
func (q *JoinRequestQueries) DetailForOwner(ctx context.Context, ownerID, id uint) (RequestDetail, error) {
	d, err := q.Detail(ctx, id)
	if err != nil {
		return d, err
	}
	if d.Request.OwnerID != ownerID {
		return RequestDetail{}, ErrNotFound
	}
	return d, nil
}

// DetailForAdmin is Detail restricted to the sacco's admin or a superuser.
func (q *JoinRequestQueries) DetailForAdmin(ctx context.Context, actor authz.Principal, id uint) (RequestDetail, error) {
	d, err := q.Detail(ctx, id)
	if err != nil {
		return d, err
	}
	if d.Request.Sacco == nil || !actor.CanAdminister(*d.Request.Sacco) {
		return RequestDetail{}, ErrForbidden
	}
	return d, nil
}
