package notification

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"restroom-status-backend/internal/model"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool delivers "facility is free again" pushes to the subscribers
// waiting on that facility. Jobs arrive from the exit transition.
type WorkerPool struct {
	size    int
	jobs    chan string
	db      *gorm.DB
	webpush *webpush.Options
	sender  NotificationSender
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan string, size),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Notification worker %d started", id)
	for {
		select {
		case facilityID := <-wp.jobs:
			wp.sendNotificationsForFacility(ctx, facilityID)
		case <-ctx.Done():
			log.Printf("Notification worker %d shutting down", id)
			return
		}
	}
}

// Dispatch sends a job to the worker pool. It never blocks the caller: if
// every worker is busy and the buffer is full, the job is dropped.
func (wp *WorkerPool) Dispatch(facilityID string) {
	select {
	case wp.jobs <- facilityID:
	default:
		log.Printf("Notification queue full, dropping job for facility %s", facilityID)
	}
}

// sendNotificationsForFacility fetches subscriptions and sends notifications for a freed facility.
func (wp *WorkerPool) sendNotificationsForFacility(ctx context.Context, facilityID string) {
	var subscriptions []model.PushSubscription
	err := wp.db.WithContext(ctx).
		Joins("JOIN subscription_facility_mapping sfm ON sfm.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("sfm.facility_id = ?", facilityID).
		Find(&subscriptions).Error
	if err != nil {
		log.Printf("Error fetching subscriptions for facility %s: %v", facilityID, err)
		return
	}

	if len(subscriptions) == 0 {
		return
	}

	log.Printf("Sending %d notifications for facility %s", len(subscriptions), facilityID)

	var facility model.Facility
	facilityLabel := facilityID
	if err := wp.db.WithContext(ctx).
		Select("name").
		First(&facility, "id = ?", facilityID).Error; err != nil {
		log.Printf("Error fetching facility %s: %v", facilityID, err)
	} else if facility.Name != "" {
		facilityLabel = facility.Name
	}

	message := fmt.Sprintf("El aseo %s ya está libre.", facilityLabel)
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, []byte(message))
	}
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
