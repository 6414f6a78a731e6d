package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"restroom-status-backend/internal/model"
)

type putSubscriptionRequest struct {
	Endpoint             string   `json:"endpoint" binding:"required"`
	P256DH               string   `json:"p256dh" binding:"required"`
	Auth                 string   `json:"auth" binding:"required"`
	SubscribedFacilities []string `json:"subscribed_facilities"`
}

// PutSubscription handles the creation or replacement of a push
// subscription and the set of facilities it watches.
func (h *Handler) PutSubscription(c *gin.Context) {
	var req putSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	subscription := model.PushSubscription{
		Endpoint: req.Endpoint,
		P256DH:   req.P256DH,
		Auth:     req.Auth,
	}

	err := h.store.DB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
		}).Create(&subscription).Error; err != nil {
			return err
		}

		var facilities []*model.Facility
		if len(req.SubscribedFacilities) > 0 {
			if err := tx.Find(&facilities, "id IN ?", req.SubscribedFacilities).Error; err != nil {
				return err
			}
		}

		return tx.Model(&subscription).Association("Facilities").Replace(facilities)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusCreated)
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// DeleteSubscription handles the deletion of a subscription.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	var req deleteSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.store.DB().Delete(&model.PushSubscription{Endpoint: req.Endpoint}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}

// GetSubscription handles the retrieval of a subscription's watched
// facilities by endpoint.
func (h *Handler) GetSubscription(c *gin.Context) {
	endpoint := c.Query("endpoint")
	if endpoint == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endpoint is required"})
		return
	}

	var subscription model.PushSubscription
	if err := h.store.DB().Preload("Facilities").First(&subscription, "endpoint = ?", endpoint).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	facilityIDs := make([]string, len(subscription.Facilities))
	for i, facility := range subscription.Facilities {
		facilityIDs[i] = facility.ID
	}

	c.JSON(http.StatusOK, gin.H{"subscribed_facilities": facilityIDs})
}
