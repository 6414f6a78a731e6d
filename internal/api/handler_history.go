package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"restroom-status-backend/internal/stats"
)

// GetHistory handles GET /api/history: today's completed cycles, filterable
// by facility and exit condition. Filtering happens over the fetched slice;
// both dimensions accept "all".
func (h *Handler) GetHistory(c *gin.Context) {
	records, err := h.store.CompletedSince(c.Request.Context(), h.todayStart())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve history"})
		return
	}

	filtered := stats.FilterRecords(records, c.Query("facility_id"), c.Query("condition"))
	c.JSON(http.StatusOK, filtered)
}

// GetCourses handles GET /api/courses: the group selector data.
func (h *Handler) GetCourses(c *gin.Context) {
	courses, err := h.store.ListCourses(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve courses"})
		return
	}
	c.JSON(http.StatusOK, courses)
}
