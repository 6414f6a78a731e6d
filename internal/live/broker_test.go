package live

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restroom-status-backend/internal/model"
)

func TestBrokerDeliversToAllSubscribers(t *testing.T) {
	b := NewBroker()
	sub1 := b.SubscribeFacilities()
	defer sub1.Close()
	sub2 := b.SubscribeFacilities()
	defer sub2.Close()

	b.PublishFacilityUpdate(model.Facility{ID: "f1", Name: "Aseo Chicas 1"})

	for _, sub := range []*FacilitySubscription{sub1, sub2} {
		select {
		case ev := <-sub.C:
			assert.Equal(t, EventUpdate, ev.Type)
			assert.Equal(t, "f1", ev.Facility.ID)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for facility event")
		}
	}
}

func TestBrokerStreamsAreIndependent(t *testing.T) {
	b := NewBroker()
	facilitySub := b.SubscribeFacilities()
	defer facilitySub.Close()
	recordSub := b.SubscribeRecords()
	defer recordSub.Close()

	b.PublishRecordInsert(model.UsageRecord{ID: "r1"})

	select {
	case ev := <-recordSub.C:
		assert.Equal(t, "r1", ev.Record.ID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for record event")
	}

	select {
	case ev := <-facilitySub.C:
		t.Fatalf("unexpected facility event: %+v", ev)
	default:
	}
}

func TestBrokerCloseStopsDelivery(t *testing.T) {
	b := NewBroker()
	sub := b.SubscribeFacilities()
	sub.Close()
	sub.Close() // closing twice is safe

	// Publishing after close must not panic on the closed channel.
	b.PublishFacilityUpdate(model.Facility{ID: "f1"})

	_, ok := <-sub.C
	assert.False(t, ok, "channel should be closed")
}

func TestBrokerDropsWhenSubscriberIsSlow(t *testing.T) {
	b := NewBroker()
	sub := b.SubscribeFacilities()
	defer sub.Close()

	// Overfill the buffer without draining; the publisher must not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			b.PublishFacilityUpdate(model.Facility{ID: "f1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher blocked on a slow subscriber")
	}

	// Exactly the buffered prefix survives.
	received := 0
	for {
		select {
		case <-sub.C:
			received++
		default:
			require.Equal(t, subscriberBuffer, received)
			return
		}
	}
}
