package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"restroom-status-backend/internal/stats"
)

type summaryResponse struct {
	UsageToday int64              `json:"usage_today"`
	Girls      stats.GroupSummary `json:"girls"`
	Boys       stats.GroupSummary `json:"boys"`
}

// GetSummary handles GET /api/summary: the dashboard numbers, served from
// the synchronizer's event-maintained snapshot rather than fresh queries.
func (h *Handler) GetSummary(c *gin.Context) {
	snap, err := h.sync.Snapshot(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "live view unavailable"})
		return
	}

	c.JSON(http.StatusOK, summaryResponse{
		UsageToday: snap.UsageToday,
		Girls:      stats.SummarizeGroup(snap.Facilities, h.groupLabels.Girls),
		Boys:       stats.SummarizeGroup(snap.Facilities, h.groupLabels.Boys),
	})
}
