package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"restroom-status-backend/internal/occupancy"
	"restroom-status-backend/internal/store"
)

type entryRequest struct {
	FacilityID   string `json:"facility_id" binding:"required"`
	StudentName  string `json:"student_name" binding:"required"`
	StudentGroup string `json:"student_group" binding:"required"`
	Note         string `json:"note"`
}

// PostEntry handles POST /api/entries: the free-to-occupied transition.
func (h *Handler) PostEntry(c *gin.Context) {
	var req entryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	recordID, err := h.protocol.RegisterEntry(c.Request.Context(), occupancy.EntryRequest{
		FacilityID:   req.FacilityID,
		StudentName:  req.StudentName,
		StudentGroup: req.StudentGroup,
		Note:         req.Note,
	})
	if err != nil {
		status, body := transitionError(err)
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"record_id": recordID})
}

type exitRequest struct {
	FacilityID    string `json:"facility_id" binding:"required"`
	ExitCondition string `json:"exit_condition" binding:"required"`
	ExitNote      string `json:"exit_note"`
}

// PostExit handles POST /api/exits: the occupied-to-free transition.
func (h *Handler) PostExit(c *gin.Context) {
	var req exitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.protocol.RegisterExit(c.Request.Context(), occupancy.ExitRequest{
		FacilityID:    req.FacilityID,
		ExitCondition: req.ExitCondition,
		ExitNote:      req.ExitNote,
	})
	if err != nil {
		status, body := transitionError(err)
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// transitionError maps protocol errors onto status codes and stable error
// codes. Partial faults and consistency faults get their own codes so they
// are never mistaken for ordinary failures: they mean the store needs
// reconciling, not that the user should simply retry.
func transitionError(err error) (int, gin.H) {
	var fault *occupancy.PartialFault
	switch {
	case errors.As(err, &fault):
		return http.StatusInternalServerError, gin.H{
			"code":        "partial_" + string(fault.Stage),
			"facility_id": fault.FacilityID,
			"error":       fault.Error(),
		}
	case errors.Is(err, store.ErrOpenRecordConflict):
		return http.StatusInternalServerError, gin.H{"code": "consistency_fault", "error": err.Error()}
	case errors.Is(err, occupancy.ErrValidation):
		return http.StatusBadRequest, gin.H{"code": "validation", "error": err.Error()}
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict, gin.H{"code": "conflict", "error": "facility is already occupied"}
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, gin.H{"code": "not_found", "error": err.Error()}
	default:
		return http.StatusBadGateway, gin.H{"code": "transport", "error": err.Error()}
	}
}
