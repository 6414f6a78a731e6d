package occupancy

import (
	"context"
	"fmt"
	"log"
	"time"

	"restroom-status-backend/internal/model"
)

// Store is the slice of the data layer the protocol drives: the facility
// registry, the usage log, and the reconciliation queries.
type Store interface {
	GetFacility(ctx context.Context, id string) (model.Facility, error)
	SetOccupied(ctx context.Context, id, occupantName, occupantGroup, note string, now time.Time) error
	SetFree(ctx context.Context, id string, now time.Time) error
	OpenRecord(ctx context.Context, facilityID, studentName, studentGroup string, now time.Time) (string, error)
	FindOpenRecord(ctx context.Context, facilityID string) (model.UsageRecord, error)
	CloseRecord(ctx context.Context, recordID string, condition model.ExitCondition, note string, now time.Time) error
	OccupiedWithoutOpenRecord(ctx context.Context) ([]model.Facility, error)
	OpenRecordsForFreeFacilities(ctx context.Context) ([]model.UsageRecord, error)
}

// EventPublisher receives change notifications after successful writes.
// Delivery is best-effort; the protocol does not wait on subscribers.
type EventPublisher interface {
	PublishFacilityUpdate(model.Facility)
	PublishRecordInsert(model.UsageRecord)
}

// Notifier is told when a facility becomes free so waiting subscribers can
// be pushed to.
type Notifier interface {
	Dispatch(facilityID string)
}

// EntryRequest carries the fields collected by the entry form.
type EntryRequest struct {
	FacilityID   string
	StudentName  string
	StudentGroup string
	Note         string
}

// ExitRequest carries the fields collected by the exit form.
type ExitRequest struct {
	FacilityID    string
	ExitCondition string
	ExitNote      string
}

// Protocol runs the paired-write entry/exit transitions. The two writes of
// each transition are separate store calls in a fixed order, with no
// multi-row transaction behind them: the write whose failure leaves no
// visible side effect always goes first, and a second-write failure is
// wrapped in a PartialFault instead of being rolled back.
type Protocol struct {
	store    Store
	events   EventPublisher
	notifier Notifier
	now      func() time.Time
}

// NewProtocol creates the transition protocol. events and notifier may be
// nil when no live view or push delivery is attached.
func NewProtocol(s Store, events EventPublisher, notifier Notifier) *Protocol {
	return &Protocol{
		store:    s,
		events:   events,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// RegisterEntry moves a facility from free to occupied and opens its usage
// record. The registry claim goes first: if it fails, nothing was written
// and the error passes through unchanged. If the log write then fails, the
// facility is left claimed with no backing record and a PartialFault with
// StageEntry is returned.
func (p *Protocol) RegisterEntry(ctx context.Context, req EntryRequest) (string, error) {
	if req.FacilityID == "" {
		return "", fmt.Errorf("%w: facility is required", ErrValidation)
	}
	if req.StudentName == "" {
		return "", fmt.Errorf("%w: student name is required", ErrValidation)
	}
	if req.StudentGroup == "" {
		return "", fmt.Errorf("%w: student group is required", ErrValidation)
	}

	now := p.now()

	// Write A: claim the facility. The caller picked from a list of free
	// facilities, but that list is advisory; this claim is the last line of
	// defense against two clients choosing the same one.
	if err := p.store.SetOccupied(ctx, req.FacilityID, req.StudentName, req.StudentGroup, req.Note, now); err != nil {
		return "", err
	}

	// Write B: open the usage record.
	recordID, err := p.store.OpenRecord(ctx, req.FacilityID, req.StudentName, req.StudentGroup, now)
	if err != nil {
		return "", &PartialFault{Stage: StageEntry, FacilityID: req.FacilityID, Err: err}
	}

	p.publishFacility(ctx, req.FacilityID)
	if p.events != nil {
		p.events.PublishRecordInsert(model.UsageRecord{
			ID:           recordID,
			StudentName:  req.StudentName,
			StudentGroup: req.StudentGroup,
			FacilityID:   req.FacilityID,
			EntryTime:    now,
		})
	}

	return recordID, nil
}

// RegisterExit closes the facility's open usage record and returns the
// facility to free. The log write goes first: if it fails the facility
// simply remains occupied. If freeing the registry row then fails, the
// cycle is closed on paper while the facility still shows occupied, and a
// PartialFault with StageExit is returned.
func (p *Protocol) RegisterExit(ctx context.Context, req ExitRequest) error {
	if req.FacilityID == "" {
		return fmt.Errorf("%w: facility is required", ErrValidation)
	}
	if !model.ValidExitCondition(req.ExitCondition) {
		return fmt.Errorf("%w: invalid exit condition %q", ErrValidation, req.ExitCondition)
	}

	// A missing open record is a normal outcome here: the facility list the
	// caller selected from may have been stale.
	record, err := p.store.FindOpenRecord(ctx, req.FacilityID)
	if err != nil {
		return err
	}

	now := p.now()

	// Write A: close the record.
	if err := p.store.CloseRecord(ctx, record.ID, model.ExitCondition(req.ExitCondition), req.ExitNote, now); err != nil {
		return err
	}

	// Write B: free the facility.
	if err := p.store.SetFree(ctx, req.FacilityID, now); err != nil {
		return &PartialFault{Stage: StageExit, FacilityID: req.FacilityID, RecordID: record.ID, Err: err}
	}

	p.publishFacility(ctx, req.FacilityID)
	if p.notifier != nil {
		p.notifier.Dispatch(req.FacilityID)
	}

	return nil
}

// publishFacility pushes the facility's full current row to subscribers.
// Failures here never affect the completed transition.
func (p *Protocol) publishFacility(ctx context.Context, facilityID string) {
	if p.events == nil {
		return
	}
	facility, err := p.store.GetFacility(ctx, facilityID)
	if err != nil {
		log.Printf("could not load facility %s for live update: %v", facilityID, err)
		return
	}
	p.events.PublishFacilityUpdate(facility)
}

// AuditReport lists the partial-state residue detectable in the store.
type AuditReport struct {
	OccupiedWithoutOpenRecord []model.Facility    `json:"occupied_without_open_record"`
	OpenRecordsOnFreeFacility []model.UsageRecord `json:"open_records_on_free_facility"`
}

// Clean reports whether the audit found nothing to reconcile.
func (r AuditReport) Clean() bool {
	return len(r.OccupiedWithoutOpenRecord) == 0 && len(r.OpenRecordsOnFreeFacility) == 0
}

// Audit runs the reconciliation queries that detect the residue of partial
// transitions.
func (p *Protocol) Audit(ctx context.Context) (AuditReport, error) {
	facilities, err := p.store.OccupiedWithoutOpenRecord(ctx)
	if err != nil {
		return AuditReport{}, err
	}
	records, err := p.store.OpenRecordsForFreeFacilities(ctx)
	if err != nil {
		return AuditReport{}, err
	}
	return AuditReport{
		OccupiedWithoutOpenRecord: facilities,
		OpenRecordsOnFreeFacility: records,
	}, nil
}
