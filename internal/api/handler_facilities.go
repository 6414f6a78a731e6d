package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"restroom-status-backend/internal/model"
	"restroom-status-backend/internal/store"
)

// GetFacilities handles GET /api/facilities. The optional state query
// narrows the list to free or occupied facilities, which is how the entry
// and exit forms build their candidate lists.
func (h *Handler) GetFacilities(c *gin.Context) {
	var state model.FacilityState
	switch s := c.Query("state"); s {
	case "", "all":
		state = ""
	case string(model.StateFree), string(model.StateOccupied):
		state = model.FacilityState(s)
	default:
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid state filter"})
		return
	}

	facilities, err := h.store.ListFacilities(c.Request.Context(), state)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve facilities"})
		return
	}
	c.JSON(http.StatusOK, facilities)
}

// GetFacility handles GET /api/facilities/:id.
func (h *Handler) GetFacility(c *gin.Context) {
	facility, err := h.store.GetFacility(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "facility not found"})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve facility"})
		return
	}
	c.JSON(http.StatusOK, facility)
}
