package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"restroom-status-backend/internal/mw"
)

// RouterConfig carries the tunables the router needs from the config file.
type RouterConfig struct {
	RateLimitPerSec float64
	RateLimitBurst  int
	CacheTTL        time.Duration
}

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	r := gin.Default()

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	cacheStore := cache.New(cfg.CacheTTL, 10*time.Minute)
	caching := mw.Cache(cacheStore, cfg.CacheTTL)

	api := r.Group("/api")
	api.Use(rateLimiter, mw.FlushOnWrite(cacheStore))
	{
		// Occupancy view and transitions
		api.GET("/facilities", caching, h.GetFacilities)
		api.GET("/facilities/:id", h.GetFacility)
		api.POST("/entries", h.PostEntry)
		api.POST("/exits", h.PostExit)

		// Derived views
		api.GET("/history", h.GetHistory)
		api.GET("/summary", h.GetSummary)
		api.GET("/courses", caching, h.GetCourses)

		// Live updates
		api.GET("/events", h.GetEvents)

		// Administration
		api.POST("/admin/students/import", h.ImportStudents)
		api.GET("/admin/stats", h.GetAdminStats)
		api.GET("/admin/audit", h.GetAudit)

		// Web push
		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	return r
}
