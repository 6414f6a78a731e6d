package notification

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"restroom-status-backend/internal/model"
)

// mockSender is a mock implementation of the NotificationSender interface.
type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// Send calls the mock SendFunc.
func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Facility{}, &model.PushSubscription{}))
	return db
}

func seedSubscription(t *testing.T, db *gorm.DB, endpoint string) (model.Facility, model.PushSubscription) {
	t.Helper()
	facility := model.Facility{
		ID:         uuid.NewString(),
		Name:       "Aseo Chicas 1",
		State:      model.StateFree,
		LastChange: time.Now().UTC(),
	}
	require.NoError(t, db.Create(&facility).Error)

	subscription := model.PushSubscription{
		Endpoint:   endpoint,
		P256DH:     "test_p256dh",
		Auth:       "test_auth",
		Facilities: []*model.Facility{&facility},
	}
	require.NoError(t, db.Create(&subscription).Error)
	return facility, subscription
}

func TestWorkerPool_Dispatch(t *testing.T) {
	db := newTestDB(t)
	wp := NewWorkerPool(1, db, &webpush.Options{})

	wp.Dispatch("facility-123")

	select {
	case job := <-wp.jobs:
		assert.Equal(t, "facility-123", job)
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for job to be dispatched")
	}
}

func TestWorkerPool_WorkerLogic(t *testing.T) {
	t.Run("sends notification naming the freed facility", func(t *testing.T) {
		db := newTestDB(t)
		wp := NewWorkerPool(1, db, &webpush.Options{})
		facility, _ := seedSubscription(t, db, "https://example.com/push")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var wg sync.WaitGroup
		wg.Add(1)
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				assert.Equal(t, "https://example.com/push", sub.Endpoint)
				assert.Equal(t, "El aseo Aseo Chicas 1 ya está libre.", string(payload))
				wg.Done()
				return &http.Response{
					StatusCode: http.StatusCreated,
					Body:       io.NopCloser(bytes.NewBufferString("")),
				}, nil
			},
		}
		wp.Start(ctx)

		wp.Dispatch(facility.ID)
		wg.Wait()
	})

	t.Run("deletes expired subscription", func(t *testing.T) {
		db := newTestDB(t)
		wp := NewWorkerPool(1, db, &webpush.Options{})
		facility, subscription := seedSubscription(t, db, "https://example.com/expired")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var wg sync.WaitGroup
		wg.Add(1)
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				wg.Done()
				return &http.Response{
					StatusCode: http.StatusGone,
					Body:       io.NopCloser(bytes.NewBufferString("")),
				}, nil
			},
		}
		wp.Start(ctx)

		wp.Dispatch(facility.ID)
		wg.Wait()

		assert.Eventually(t, func() bool {
			var count int64
			db.Model(&model.PushSubscription{}).Where("endpoint = ?", subscription.Endpoint).Count(&count)
			return count == 0
		}, time.Second, 10*time.Millisecond, "expired subscription should be deleted")
	})
}
