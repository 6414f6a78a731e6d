package model

import "time"

// ExitCondition is the state of the facility reported when a cycle closes.
type ExitCondition string

const (
	ConditionGood ExitCondition = "Bueno"
	ConditionFair ExitCondition = "Regular"
	ConditionPoor ExitCondition = "Malo"
)

// ValidExitCondition reports whether s is one of the accepted exit conditions.
func ValidExitCondition(s string) bool {
	switch ExitCondition(s) {
	case ConditionGood, ConditionFair, ConditionPoor:
		return true
	}
	return false
}

// UsageRecord is one entry/exit cycle in the usage log. A record with a null
// ExitTime is an open cycle; at most one open record may exist per facility.
// Records are created on entry, closed once on exit, never deleted.
type UsageRecord struct {
	ID            string         `gorm:"primaryKey;size:36" json:"id"`
	StudentName   string         `gorm:"size:256;not null" json:"student_name"`
	StudentGroup  string         `gorm:"size:64;not null" json:"student_group"`
	FacilityID    string         `gorm:"size:36;index;not null" json:"facility_id"`
	EntryTime     time.Time      `gorm:"not null;index" json:"entry_time"`
	ExitTime      *time.Time     `gorm:"index" json:"exit_time"`
	ExitCondition *ExitCondition `gorm:"size:16" json:"exit_condition"`
	ExitNote      *string        `gorm:"size:512" json:"exit_note"`
}

// Open reports whether the record's cycle is still in progress.
func (r *UsageRecord) Open() bool {
	return r.ExitTime == nil
}
