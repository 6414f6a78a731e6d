package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"restroom-status-backend/internal/model"
	"restroom-status-backend/internal/roster"
)

// newTestDB opens a private in-memory database with the schema migrated.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&model.Facility{},
		&model.UsageRecord{},
		&model.Course{},
		&model.Student{},
		&model.PushSubscription{},
	))
	return db
}

func seedFacility(t *testing.T, db *gorm.DB, name string) model.Facility {
	t.Helper()
	f := model.Facility{
		ID:         uuid.NewString(),
		Name:       name,
		State:      model.StateFree,
		LastChange: time.Now().UTC(),
	}
	require.NoError(t, db.Create(&f).Error)
	return f
}

func TestSetOccupied(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	s := NewGormStore(db)
	facility := seedFacility(t, db, "Aseo Chicas 1")
	now := time.Now().UTC().Truncate(time.Second)

	t.Run("claims a free facility and sets occupant fields", func(t *testing.T) {
		err := s.SetOccupied(ctx, facility.ID, "Ana López", "1ESO A", "me siento mal", now)
		require.NoError(t, err)

		got, err := s.GetFacility(ctx, facility.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StateOccupied, got.State)
		require.NotNil(t, got.OccupantName)
		assert.Equal(t, "Ana López", *got.OccupantName)
		require.NotNil(t, got.OccupantGroup)
		assert.Equal(t, "1ESO A", *got.OccupantGroup)
		require.NotNil(t, got.EntryNote)
		assert.Equal(t, "me siento mal", *got.EntryNote)
	})

	t.Run("rejects a second claim with conflict", func(t *testing.T) {
		err := s.SetOccupied(ctx, facility.ID, "Pedro", "2ESO B", "", now)
		assert.ErrorIs(t, err, ErrConflict)

		// The loser must not have overwritten the winner's fields.
		got, err := s.GetFacility(ctx, facility.ID)
		require.NoError(t, err)
		assert.Equal(t, "Ana López", *got.OccupantName)
	})

	t.Run("reports missing facility as not found", func(t *testing.T) {
		err := s.SetOccupied(ctx, uuid.NewString(), "Pedro", "2ESO B", "", now)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("empty note is stored as null", func(t *testing.T) {
		other := seedFacility(t, db, "Aseo Chicos 1")
		require.NoError(t, s.SetOccupied(ctx, other.ID, "Luis", "2ESO B", "", now))

		got, err := s.GetFacility(ctx, other.ID)
		require.NoError(t, err)
		assert.Nil(t, got.EntryNote)
	})
}

func TestSetFree(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	s := NewGormStore(db)
	facility := seedFacility(t, db, "Aseo Chicas 1")
	now := time.Now().UTC()

	require.NoError(t, s.SetOccupied(ctx, facility.ID, "Ana", "1ESO A", "nota", now))

	t.Run("clears occupant fields", func(t *testing.T) {
		require.NoError(t, s.SetFree(ctx, facility.ID, now.Add(time.Minute)))

		got, err := s.GetFacility(ctx, facility.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StateFree, got.State)
		assert.Nil(t, got.OccupantName)
		assert.Nil(t, got.OccupantGroup)
		assert.Nil(t, got.EntryNote)
	})

	t.Run("is idempotent for an existing facility", func(t *testing.T) {
		assert.NoError(t, s.SetFree(ctx, facility.ID, now.Add(2*time.Minute)))
	})

	t.Run("reports missing facility as not found", func(t *testing.T) {
		assert.ErrorIs(t, s.SetFree(ctx, uuid.NewString(), now), ErrNotFound)
	})
}

func TestFindOpenRecord(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	s := NewGormStore(db)
	facility := seedFacility(t, db, "Aseo Chicas 1")
	now := time.Now().UTC()

	t.Run("not found when no cycle is open", func(t *testing.T) {
		_, err := s.FindOpenRecord(ctx, facility.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("returns the single open record", func(t *testing.T) {
		recordID, err := s.OpenRecord(ctx, facility.ID, "Ana", "1ESO A", now)
		require.NoError(t, err)

		record, err := s.FindOpenRecord(ctx, facility.ID)
		require.NoError(t, err)
		assert.Equal(t, recordID, record.ID)
		assert.True(t, record.Open())
	})

	t.Run("more than one open record is a consistency fault", func(t *testing.T) {
		_, err := s.OpenRecord(ctx, facility.ID, "Pedro", "2ESO B", now)
		require.NoError(t, err)

		_, err = s.FindOpenRecord(ctx, facility.ID)
		assert.ErrorIs(t, err, ErrOpenRecordConflict)
	})
}

func TestCloseRecord(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	s := NewGormStore(db)
	facility := seedFacility(t, db, "Aseo Chicas 1")
	entry := time.Now().UTC().Add(-10 * time.Minute)
	exit := time.Now().UTC()

	recordID, err := s.OpenRecord(ctx, facility.ID, "Ana", "1ESO A", entry)
	require.NoError(t, err)

	t.Run("stamps the exit fields once", func(t *testing.T) {
		require.NoError(t, s.CloseRecord(ctx, recordID, model.ConditionFair, "falta papel", exit))

		var record model.UsageRecord
		require.NoError(t, db.First(&record, "id = ?", recordID).Error)
		require.NotNil(t, record.ExitTime)
		require.NotNil(t, record.ExitCondition)
		assert.Equal(t, model.ConditionFair, *record.ExitCondition)
		require.NotNil(t, record.ExitNote)
		assert.Equal(t, "falta papel", *record.ExitNote)
	})

	t.Run("closing an already closed record is not found", func(t *testing.T) {
		assert.ErrorIs(t, s.CloseRecord(ctx, recordID, model.ConditionGood, "", exit), ErrNotFound)
	})

	t.Run("unknown record id is not found", func(t *testing.T) {
		assert.ErrorIs(t, s.CloseRecord(ctx, uuid.NewString(), model.ConditionGood, "", exit), ErrNotFound)
	})
}

func TestCompletedSinceAndCount(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	s := NewGormStore(db)
	chicas := seedFacility(t, db, "Aseo Chicas 1")
	chicos := seedFacility(t, db, "Aseo Chicos 1")

	dayStart := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	// Yesterday's closed cycle must not appear.
	oldID, err := s.OpenRecord(ctx, chicas.ID, "Vieja", "1ESO A", dayStart.Add(-3*time.Hour))
	require.NoError(t, err)
	require.NoError(t, s.CloseRecord(ctx, oldID, model.ConditionGood, "", dayStart.Add(-2*time.Hour)))

	// Two cycles today, closed out of entry order.
	firstID, err := s.OpenRecord(ctx, chicas.ID, "Ana", "1ESO A", dayStart.Add(1*time.Hour))
	require.NoError(t, err)
	secondID, err := s.OpenRecord(ctx, chicos.ID, "Luis", "2ESO B", dayStart.Add(2*time.Hour))
	require.NoError(t, err)
	require.NoError(t, s.CloseRecord(ctx, secondID, model.ConditionPoor, "", dayStart.Add(3*time.Hour)))
	require.NoError(t, s.CloseRecord(ctx, firstID, model.ConditionGood, "", dayStart.Add(4*time.Hour)))

	// One still open today counts as opened but is not completed.
	_, err = s.OpenRecord(ctx, chicos.ID, "Pedro", "2ESO B", dayStart.Add(5*time.Hour))
	require.NoError(t, err)

	t.Run("completed records join the facility name, newest exit first", func(t *testing.T) {
		records, err := s.CompletedSince(ctx, dayStart)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, firstID, records[0].ID)
		assert.Equal(t, "Aseo Chicas 1", records[0].FacilityName)
		assert.Equal(t, secondID, records[1].ID)
		assert.Equal(t, "Aseo Chicos 1", records[1].FacilityName)
	})

	t.Run("count includes open cycles from today only", func(t *testing.T) {
		count, err := s.CountOpenedSince(ctx, dayStart)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})
}

func TestAuditQueries(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	s := NewGormStore(db)
	now := time.Now().UTC()

	healthy := seedFacility(t, db, "Aseo Chicas 1")
	partialEntry := seedFacility(t, db, "Aseo Chicas 2")
	partialExit := seedFacility(t, db, "Aseo Chicos 1")

	// Healthy open cycle: occupied with a matching open record.
	require.NoError(t, s.SetOccupied(ctx, healthy.ID, "Ana", "1ESO A", "", now))
	_, err := s.OpenRecord(ctx, healthy.ID, "Ana", "1ESO A", now)
	require.NoError(t, err)

	// Partial entry residue: occupied with no record.
	require.NoError(t, s.SetOccupied(ctx, partialEntry.ID, "Pedro", "2ESO B", "", now))

	// Partial exit residue: open record on a free facility.
	orphanID, err := s.OpenRecord(ctx, partialExit.ID, "Luis", "2ESO B", now)
	require.NoError(t, err)

	t.Run("finds occupied facilities without open records", func(t *testing.T) {
		facilities, err := s.OccupiedWithoutOpenRecord(ctx)
		require.NoError(t, err)
		require.Len(t, facilities, 1)
		assert.Equal(t, partialEntry.ID, facilities[0].ID)
	})

	t.Run("finds open records on free facilities", func(t *testing.T) {
		records, err := s.OpenRecordsForFreeFacilities(ctx)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, orphanID, records[0].ID)
	})
}

func TestImportStudents(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	s := NewGormStore(db)

	entries := []roster.Entry{
		{Name: "Ana López", Course: "1ESO A"},
		{Name: "Luis", Course: "2ESO B"},
		{Name: "Ana López", Course: "1ESO A"}, // duplicates are permitted
	}

	imported, err := s.ImportStudents(ctx, entries)
	require.NoError(t, err)
	assert.Equal(t, 3, imported)

	totals, err := s.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), totals.Students)
	assert.Equal(t, int64(2), totals.Courses)

	// A second import of the same courses must not duplicate them.
	_, err = s.ImportStudents(ctx, entries[:1])
	require.NoError(t, err)

	courses, err := s.ListCourses(ctx)
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, "1ESO A", courses[0].Name)
	assert.Equal(t, "2ESO B", courses[1].Name)
}

func TestListFacilities(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	s := NewGormStore(db)
	now := time.Now().UTC()

	b := seedFacility(t, db, "Aseo Chicos 1")
	a := seedFacility(t, db, "Aseo Chicas 1")
	require.NoError(t, s.SetOccupied(ctx, b.ID, "Luis", "2ESO B", "", now))

	t.Run("orders by name", func(t *testing.T) {
		facilities, err := s.ListFacilities(ctx, "")
		require.NoError(t, err)
		require.Len(t, facilities, 2)
		assert.Equal(t, a.ID, facilities[0].ID)
		assert.Equal(t, b.ID, facilities[1].ID)
	})

	t.Run("filters by state", func(t *testing.T) {
		free, err := s.ListFacilities(ctx, model.StateFree)
		require.NoError(t, err)
		require.Len(t, free, 1)
		assert.Equal(t, a.ID, free[0].ID)

		occupied, err := s.ListFacilities(ctx, model.StateOccupied)
		require.NoError(t, err)
		require.Len(t, occupied, 1)
		assert.Equal(t, b.ID, occupied[0].ID)
	})
}
