package live

import (
	"sync"

	"restroom-status-backend/internal/model"
)

// EventType distinguishes row creation from row mutation.
type EventType string

const (
	EventInsert EventType = "insert"
	EventUpdate EventType = "update"
)

// FacilityEvent carries the full new row of a changed facility. Consumers
// replace their cached entity wholesale; the payload is never a partial
// patch.
type FacilityEvent struct {
	Type     EventType      `json:"type"`
	Facility model.Facility `json:"facility"`
}

// RecordEvent announces a newly opened usage record.
type RecordEvent struct {
	Record model.UsageRecord `json:"record"`
}

const subscriberBuffer = 16

// Broker fans change events out to subscribers over two independent
// streams: facility changes and usage-record inserts. Each stream preserves
// its own delivery order, but no ordering holds across the two. Delivery is
// best-effort: a subscriber that falls behind its buffer loses events, so
// consumers must reconcile from authoritative queries, not event tallies.
type Broker struct {
	mu           sync.Mutex
	nextID       int
	facilitySubs map[int]chan FacilityEvent
	recordSubs   map[int]chan RecordEvent
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{
		facilitySubs: make(map[int]chan FacilityEvent),
		recordSubs:   make(map[int]chan RecordEvent),
	}
}

// FacilitySubscription is a scoped handle on the facility-change stream.
// Close releases it; the channel is closed afterwards.
type FacilitySubscription struct {
	C     <-chan FacilityEvent
	close func()
}

// Close detaches the subscription from the broker.
func (s *FacilitySubscription) Close() { s.close() }

// RecordSubscription is a scoped handle on the record-insert stream.
type RecordSubscription struct {
	C     <-chan RecordEvent
	close func()
}

// Close detaches the subscription from the broker.
func (s *RecordSubscription) Close() { s.close() }

// SubscribeFacilities attaches a new subscriber to the facility stream.
func (b *Broker) SubscribeFacilities() *FacilitySubscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan FacilityEvent, subscriberBuffer)
	b.facilitySubs[id] = ch

	var once sync.Once
	return &FacilitySubscription{
		C: ch,
		close: func() {
			once.Do(func() {
				b.mu.Lock()
				delete(b.facilitySubs, id)
				b.mu.Unlock()
				close(ch)
			})
		},
	}
}

// SubscribeRecords attaches a new subscriber to the record-insert stream.
func (b *Broker) SubscribeRecords() *RecordSubscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan RecordEvent, subscriberBuffer)
	b.recordSubs[id] = ch

	var once sync.Once
	return &RecordSubscription{
		C: ch,
		close: func() {
			once.Do(func() {
				b.mu.Lock()
				delete(b.recordSubs, id)
				b.mu.Unlock()
				close(ch)
			})
		},
	}
}

// PublishFacilityUpdate notifies subscribers that a facility row changed.
func (b *Broker) PublishFacilityUpdate(f model.Facility) {
	b.publishFacility(FacilityEvent{Type: EventUpdate, Facility: f})
}

// PublishFacilityInsert notifies subscribers of a new facility row.
func (b *Broker) PublishFacilityInsert(f model.Facility) {
	b.publishFacility(FacilityEvent{Type: EventInsert, Facility: f})
}

func (b *Broker) publishFacility(ev FacilityEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.facilitySubs {
		select {
		case ch <- ev:
		default:
			// Subscriber is behind; drop rather than block the writer.
		}
	}
}

// PublishRecordInsert notifies subscribers that a usage record was opened.
func (b *Broker) PublishRecordInsert(r model.UsageRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ev := RecordEvent{Record: r}
	for _, ch := range b.recordSubs {
		select {
		case ch <- ev:
		default:
		}
	}
}
