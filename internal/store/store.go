package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"restroom-status-backend/internal/model"
	"restroom-status-backend/internal/roster"
)

// CompletedRecord is a closed usage record joined with its facility's name.
type CompletedRecord struct {
	model.UsageRecord
	FacilityName string `json:"facility_name"`
}

// Totals holds the aggregate counts shown on the admin page.
type Totals struct {
	Records  int64 `json:"records"`
	Students int64 `json:"students"`
	Courses  int64 `json:"courses"`
}

// Store defines the interface for all database operations. The facility
// registry and the usage log are mutated through separate single-row calls
// on purpose: the entry/exit workflow spans both without a multi-row
// transaction, and the protocol layer owns the write ordering.
type Store interface {
	DB() *gorm.DB

	// Facility registry
	ListFacilities(ctx context.Context, state model.FacilityState) ([]model.Facility, error)
	GetFacility(ctx context.Context, id string) (model.Facility, error)
	SetOccupied(ctx context.Context, id, occupantName, occupantGroup, note string, now time.Time) error
	SetFree(ctx context.Context, id string, now time.Time) error

	// Usage log
	OpenRecord(ctx context.Context, facilityID, studentName, studentGroup string, now time.Time) (string, error)
	FindOpenRecord(ctx context.Context, facilityID string) (model.UsageRecord, error)
	CloseRecord(ctx context.Context, recordID string, condition model.ExitCondition, note string, now time.Time) error
	CompletedSince(ctx context.Context, since time.Time) ([]CompletedRecord, error)
	CountOpenedSince(ctx context.Context, since time.Time) (int64, error)

	// Reconciliation audit
	OccupiedWithoutOpenRecord(ctx context.Context) ([]model.Facility, error)
	OpenRecordsForFreeFacilities(ctx context.Context) ([]model.UsageRecord, error)

	// Roster
	ImportStudents(ctx context.Context, entries []roster.Entry) (int, error)
	ListCourses(ctx context.Context) ([]model.Course, error)
	Totals(ctx context.Context) (Totals, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// ListFacilities returns facilities ordered by name. An empty state returns
// every facility.
func (s *gormStore) ListFacilities(ctx context.Context, state model.FacilityState) ([]model.Facility, error) {
	q := s.db.WithContext(ctx).Order("name")
	if state != "" {
		q = q.Where("state = ?", state)
	}
	var facilities []model.Facility
	if err := q.Find(&facilities).Error; err != nil {
		return nil, fmt.Errorf("failed to list facilities: %w", err)
	}
	return facilities, nil
}

func (s *gormStore) GetFacility(ctx context.Context, id string) (model.Facility, error) {
	var facility model.Facility
	err := s.db.WithContext(ctx).First(&facility, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return model.Facility{}, ErrNotFound
	}
	if err != nil {
		return model.Facility{}, fmt.Errorf("failed to get facility %s: %w", id, err)
	}
	return facility, nil
}

// SetOccupied claims a facility for an occupant. The claim is a single-row
// conditional update guarded on the current state being free; a lost race
// surfaces as ErrConflict via RowsAffected. This is the only concurrency
// control on the registry.
func (s *gormStore) SetOccupied(ctx context.Context, id, occupantName, occupantGroup, note string, now time.Time) error {
	patch := map[string]any{
		"state":          model.StateOccupied,
		"occupant_name":  occupantName,
		"occupant_group": occupantGroup,
		"entry_note":     nullable(note),
		"last_change":    now,
	}
	res := s.db.WithContext(ctx).Model(&model.Facility{}).
		Where("id = ? AND state = ?", id, model.StateFree).
		Updates(patch)
	if res.Error != nil {
		return fmt.Errorf("failed to occupy facility %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		// Either the row is missing or another client won the claim.
		var count int64
		if err := s.db.WithContext(ctx).Model(&model.Facility{}).
			Where("id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check facility %s after rejected claim: %w", id, err)
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrConflict
	}
	return nil
}

// SetFree releases a facility unconditionally and clears the occupant
// fields. Idempotent for an existing id; callers must have verified the
// open usage record first.
func (s *gormStore) SetFree(ctx context.Context, id string, now time.Time) error {
	patch := map[string]any{
		"state":          model.StateFree,
		"occupant_name":  nil,
		"occupant_group": nil,
		"entry_note":     nil,
		"last_change":    now,
	}
	res := s.db.WithContext(ctx).Model(&model.Facility{}).
		Where("id = ?", id).
		Updates(patch)
	if res.Error != nil {
		return fmt.Errorf("failed to free facility %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// OpenRecord appends a new open usage record for the facility.
func (s *gormStore) OpenRecord(ctx context.Context, facilityID, studentName, studentGroup string, now time.Time) (string, error) {
	record := model.UsageRecord{
		ID:           uuid.NewString(),
		StudentName:  studentName,
		StudentGroup: studentGroup,
		FacilityID:   facilityID,
		EntryTime:    now,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return "", fmt.Errorf("failed to open usage record for facility %s: %w", facilityID, err)
	}
	return record.ID, nil
}

// FindOpenRecord returns the single open usage record for a facility.
// Finding more than one is an internal consistency fault and is reported
// as ErrOpenRecordConflict rather than picking a winner.
func (s *gormStore) FindOpenRecord(ctx context.Context, facilityID string) (model.UsageRecord, error) {
	var records []model.UsageRecord
	err := s.db.WithContext(ctx).
		Where("facility_id = ? AND exit_time IS NULL", facilityID).
		Find(&records).Error
	if err != nil {
		return model.UsageRecord{}, fmt.Errorf("failed to find open record for facility %s: %w", facilityID, err)
	}
	switch len(records) {
	case 0:
		return model.UsageRecord{}, ErrNotFound
	case 1:
		return records[0], nil
	default:
		return model.UsageRecord{}, fmt.Errorf("facility %s has %d open records: %w", facilityID, len(records), ErrOpenRecordConflict)
	}
}

// CloseRecord stamps the exit fields on a usage record. Only open records
// can be closed; closing an already-closed record reports ErrNotFound.
func (s *gormStore) CloseRecord(ctx context.Context, recordID string, condition model.ExitCondition, note string, now time.Time) error {
	patch := map[string]any{
		"exit_time":      now,
		"exit_condition": condition,
		"exit_note":      nullable(note),
	}
	res := s.db.WithContext(ctx).Model(&model.UsageRecord{}).
		Where("id = ? AND exit_time IS NULL", recordID).
		Updates(patch)
	if res.Error != nil {
		return fmt.Errorf("failed to close usage record %s: %w", recordID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CompletedSince returns the closed records entered at or after since,
// joined with the facility name, most recent exit first.
func (s *gormStore) CompletedSince(ctx context.Context, since time.Time) ([]CompletedRecord, error) {
	var records []CompletedRecord
	err := s.db.WithContext(ctx).Model(&model.UsageRecord{}).
		Select("usage_records.*, facilities.name AS facility_name").
		Joins("JOIN facilities ON facilities.id = usage_records.facility_id").
		Where("usage_records.entry_time >= ? AND usage_records.exit_time IS NOT NULL", since).
		Order("usage_records.exit_time DESC").
		Scan(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query completed records: %w", err)
	}
	return records, nil
}

// CountOpenedSince counts the usage records entered at or after since. The
// live view recomputes its "today" counter from this query rather than
// tallying events.
func (s *gormStore) CountOpenedSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.UsageRecord{}).
		Where("entry_time >= ?", since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count usage records: %w", err)
	}
	return count, nil
}

// OccupiedWithoutOpenRecord finds facilities left occupied with no backing
// open record: the residue of an entry whose second write failed.
func (s *gormStore) OccupiedWithoutOpenRecord(ctx context.Context) ([]model.Facility, error) {
	var facilities []model.Facility
	err := s.db.WithContext(ctx).
		Where("state = ?", model.StateOccupied).
		Where("id NOT IN (?)", s.db.Model(&model.UsageRecord{}).
			Select("facility_id").Where("exit_time IS NULL")).
		Order("name").
		Find(&facilities).Error
	if err != nil {
		return nil, fmt.Errorf("failed to audit occupied facilities: %w", err)
	}
	return facilities, nil
}

// OpenRecordsForFreeFacilities finds open records whose facility already
// shows free: the residue of an exit whose second write failed, or of a
// duplicate-entry race.
func (s *gormStore) OpenRecordsForFreeFacilities(ctx context.Context) ([]model.UsageRecord, error) {
	var records []model.UsageRecord
	err := s.db.WithContext(ctx).
		Where("exit_time IS NULL").
		Where("facility_id IN (?)", s.db.Model(&model.Facility{}).
			Select("id").Where("state = ?", model.StateFree)).
		Order("entry_time").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to audit open records: %w", err)
	}
	return records, nil
}

// ImportStudents inserts the parsed roster rows and upserts the distinct
// course names so the group selector stays current. Duplicate students are
// permitted; the roster carries no uniqueness constraint.
func (s *gormStore) ImportStudents(ctx context.Context, entries []roster.Entry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	students := make([]model.Student, 0, len(entries))
	courseSet := make(map[string]struct{})
	for _, e := range entries {
		students = append(students, model.Student{
			ID:     uuid.NewString(),
			Name:   e.Name,
			Course: e.Course,
		})
		courseSet[e.Course] = struct{}{}
	}

	var courses []model.Course
	for name := range courseSet {
		courses = append(courses, model.Course{ID: uuid.NewString(), Name: name})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&students).Error; err != nil {
			return fmt.Errorf("failed to insert students: %w", err)
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&courses).Error; err != nil {
			return fmt.Errorf("failed to upsert courses: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(students), nil
}

func (s *gormStore) ListCourses(ctx context.Context) ([]model.Course, error) {
	var courses []model.Course
	if err := s.db.WithContext(ctx).Order("name").Find(&courses).Error; err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	return courses, nil
}

func (s *gormStore) Totals(ctx context.Context) (Totals, error) {
	var t Totals
	if err := s.db.WithContext(ctx).Model(&model.UsageRecord{}).Count(&t.Records).Error; err != nil {
		return Totals{}, fmt.Errorf("failed to count records: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&model.Student{}).Count(&t.Students).Error; err != nil {
		return Totals{}, fmt.Errorf("failed to count students: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&model.Course{}).Count(&t.Courses).Error; err != nil {
		return Totals{}, fmt.Errorf("failed to count courses: %w", err)
	}
	return t, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
