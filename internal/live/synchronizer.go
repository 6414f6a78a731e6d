package live

import (
	"context"
	"log"
	"time"

	"restroom-status-backend/internal/model"
)

// Source is the slice of the store the synchronizer reads from.
type Source interface {
	ListFacilities(ctx context.Context, state model.FacilityState) ([]model.Facility, error)
	CountOpenedSince(ctx context.Context, since time.Time) (int64, error)
}

// Synchronizer keeps a local copy of the facility list and the day's usage
// count current from broker events, without polling. Facility events
// replace the cached row by id with the event's full payload; record
// inserts trigger a recount through the authoritative store query. The
// recount, not a running tally, is what keeps the counter correct across
// out-of-order delivery and day boundaries.
type Synchronizer struct {
	source Source
	broker *Broker
	loc    *time.Location

	snapshots chan snapshotReq
}

type snapshotReq struct {
	reply chan Snapshot
}

// Snapshot is a point-in-time copy of the synchronized view.
type Snapshot struct {
	Facilities []model.Facility
	UsageToday int64
}

// NewSynchronizer creates a synchronizer over the given source and broker.
// loc determines where "today" begins.
func NewSynchronizer(source Source, broker *Broker, loc *time.Location) *Synchronizer {
	return &Synchronizer{
		source:    source,
		broker:    broker,
		loc:       loc,
		snapshots: make(chan snapshotReq),
	}
}

// Run loads the initial state, subscribes to both streams, and serves
// snapshot requests until ctx is cancelled. Both subscriptions are released
// on return.
func (s *Synchronizer) Run(ctx context.Context) error {
	facilities, err := s.source.ListFacilities(ctx, "")
	if err != nil {
		return err
	}
	count, err := s.source.CountOpenedSince(ctx, s.todayStart())
	if err != nil {
		return err
	}

	facilitySub := s.broker.SubscribeFacilities()
	defer facilitySub.Close()
	recordSub := s.broker.SubscribeRecords()
	defer recordSub.Close()

	for {
		select {
		case ev := <-facilitySub.C:
			facilities = applyFacilityEvent(facilities, ev)

		case <-recordSub.C:
			// The event only signals that something was opened; the count
			// comes from the store so replays and reordering are harmless.
			fresh, err := s.source.CountOpenedSince(ctx, s.todayStart())
			if err != nil {
				log.Printf("usage recount failed, keeping stale value: %v", err)
				continue
			}
			count = fresh

		case req := <-s.snapshots:
			out := make([]model.Facility, len(facilities))
			copy(out, facilities)
			req.reply <- Snapshot{Facilities: out, UsageToday: count}

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Snapshot returns a copy of the current view. It blocks until the
// synchronizer loop serves the request or ctx ends.
func (s *Synchronizer) Snapshot(ctx context.Context) (Snapshot, error) {
	req := snapshotReq{reply: make(chan Snapshot, 1)}
	select {
	case s.snapshots <- req:
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	select {
	case snap := <-req.reply:
		return snap, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (s *Synchronizer) todayStart() time.Time {
	now := time.Now().In(s.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
}

// applyFacilityEvent folds one event into the cached list: updates replace
// the matching row wholesale, inserts append. An update for an unknown id
// is treated as an insert so a missed earlier event cannot wedge the cache.
func applyFacilityEvent(facilities []model.Facility, ev FacilityEvent) []model.Facility {
	if ev.Type == EventUpdate {
		for i := range facilities {
			if facilities[i].ID == ev.Facility.ID {
				facilities[i] = ev.Facility
				return facilities
			}
		}
	}
	return append(facilities, ev.Facility)
}
