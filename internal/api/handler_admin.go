package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"restroom-status-backend/internal/roster"
)

// ImportStudents handles POST /api/admin/students/import. The body is the
// raw roster text, one `name,course` per line; malformed lines and a header
// line are skipped, not rejected.
func (h *Handler) ImportStudents(c *gin.Context) {
	entries, err := roster.Parse(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read roster: " + err.Error()})
		return
	}
	if len(entries) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no valid rows in roster"})
		return
	}

	imported, err := h.store.ImportStudents(c.Request.Context(), entries)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "import failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"imported": imported})
}

// GetAdminStats handles GET /api/admin/stats.
func (h *Handler) GetAdminStats(c *gin.Context) {
	totals, err := h.store.Totals(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve totals"})
		return
	}
	c.JSON(http.StatusOK, totals)
}

// GetAudit handles GET /api/admin/audit: the reconciliation report for
// partial-state faults. A non-clean report means a transition committed
// only halfway and the listed rows need operator attention.
func (h *Handler) GetAudit(c *gin.Context) {
	report, err := h.protocol.Audit(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Audit failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"clean": report.Clean(), "report": report})
}
