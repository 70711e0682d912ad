package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"matatu_hub/internal/services"
)

type createJoinRequestInput struct {
	VehicleID         uint   `json:"vehicle_id" binding:"required"`
	SaccoID           uint   `json:"sacco_id" binding:"required"`
	ExperienceYears   int    `json:"experience_years"`
	ReasonForJoining  string `json:"reason_for_joining"`
	PreferredRouteIDs []uint `json:"preferred_routes"`
}

type decisionInput struct {
	AdminNotes      string `json:"admin_notes"`
	RejectionReason string `json:"rejection_reason"`
}

// CreateJoinRequest submits a vehicle to a sacco on behalf of its owner.
func (h *Handler) CreateJoinRequest(c *gin.Context) {
	var input createJoinRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		logrus.WithError(err).Warn("CreateJoinRequest: invalid input payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	res, err := h.JoinRequests.Create(c.Request.Context(), services.CreateCommand{
		OwnerID:           principal(c).UserID,
		VehicleID:         input.VehicleID,
		SaccoID:           input.SaccoID,
		ExperienceYears:   input.ExperienceYears,
		ReasonForJoining:  input.ReasonForJoining,
		PreferredRouteIDs: input.PreferredRouteIDs,
	})
	if err != nil {
		writeServiceError(c, "CreateJoinRequest", err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// ListMyJoinRequests lists every request the caller has submitted.
func (h *Handler) ListMyJoinRequests(c *gin.Context) {
	reqs, err := h.Queries.ListForOwner(c.Request.Context(), principal(c).UserID)
	if err != nil {
		writeServiceError(c, "ListMyJoinRequests", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": reqs})
}

func (h *Handler) GetMyJoinRequest(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	detail, err := h.Queries.DetailForOwner(c.Request.Context(), principal(c).UserID, id)
	if err != nil {
		writeServiceError(c, "GetMyJoinRequest", err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// ListPendingRequests is the sacco admin's review queue.
func (h *Handler) ListPendingRequests(c *gin.Context) {
	saccoID, ok := parseID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := h.JoinRequests.Authorize(ctx, principal(c), saccoID); err != nil {
		writeServiceError(c, "ListPendingRequests", err)
		return
	}
	reqs, err := h.Queries.ListPending(ctx, saccoID)
	if err != nil {
		writeServiceError(c, "ListPendingRequests", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": reqs})
}

// ListSaccoRequests lists a sacco's requests, optionally by ?status=.
func (h *Handler) ListSaccoRequests(c *gin.Context) {
	saccoID, ok := parseID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := h.JoinRequests.Authorize(ctx, principal(c), saccoID); err != nil {
		writeServiceError(c, "ListSaccoRequests", err)
		return
	}
	reqs, err := h.Queries.ListBySacco(ctx, saccoID, c.Query("status"))
	if err != nil {
		writeServiceError(c, "ListSaccoRequests", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": reqs})
}

func (h *Handler) GetJoinRequest(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	detail, err := h.Queries.DetailForAdmin(c.Request.Context(), principal(c), id)
	if err != nil {
		writeServiceError(c, "GetJoinRequest", err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// bindDecision accepts an empty body, including a chunked one.
func bindDecision(c *gin.Context) (decisionInput, bool) {
	var input decisionInput
	if c.Request.ContentLength == 0 {
		return input, true
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		if errors.Is(err, io.EOF) {
			return decisionInput{}, true
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return input, false
	}
	return input, true
}

func (h *Handler) ApproveJoinRequest(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	input, ok := bindDecision(c)
	if !ok {
		return
	}
	res, err := h.JoinRequests.Approve(c.Request.Context(), services.ApproveCommand{
		RequestID:  id,
		Actor:      principal(c),
		AdminNotes: input.AdminNotes,
	})
	if err != nil {
		writeServiceError(c, "ApproveJoinRequest", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) RejectJoinRequest(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	input, ok := bindDecision(c)
	if !ok {
		return
	}
	res, err := h.JoinRequests.Reject(c.Request.Context(), services.RejectCommand{
		RequestID:       id,
		Actor:           principal(c),
		RejectionReason: input.RejectionReason,
		AdminNotes:      input.AdminNotes,
	})
	if err != nil {
		writeServiceError(c, "RejectJoinRequest", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ReviewJoinRequest moves a pending request to under_review.
func (h *Handler) ReviewJoinRequest(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	input, ok := bindDecision(c)
	if !ok {
		return
	}
	res, err := h.JoinRequests.MarkUnderReview(c.Request.Context(), services.ReviewCommand{
		RequestID:  id,
		Actor:      principal(c),
		AdminNotes: input.AdminNotes,
	})
	if err != nil {
		writeServiceError(c, "ReviewJoinRequest", err)
		return
	}
	c.JSON(http.StatusOK, res)
}
