package model

import "time"

// FacilityState is the occupancy state stored on a facility row.
// The stored values keep the deployment's Spanish vocabulary.
type FacilityState string

const (
	StateFree     FacilityState = "libre"
	StateOccupied FacilityState = "ocupado"
)

// Facility represents a single trackable restroom unit.
// Rows are seeded at startup and never created or deleted by the workflow;
// only the state/occupant fields are mutated, twice per usage cycle.
type Facility struct {
	ID            string        `gorm:"primaryKey;size:36" json:"id"`
	Name          string        `gorm:"uniqueIndex;size:128;not null" json:"name"`
	State         FacilityState `gorm:"size:16;not null;default:'libre'" json:"state"`
	OccupantName  *string       `gorm:"size:256" json:"occupant_name"`
	OccupantGroup *string       `gorm:"size:64" json:"occupant_group"`
	EntryNote     *string       `gorm:"size:512" json:"entry_note"`
	LastChange    time.Time     `gorm:"not null" json:"last_change"`
}

// Occupied reports whether the facility currently holds an open cycle.
func (f *Facility) Occupied() bool {
	return f.State == StateOccupied
}
