package model

// Course is read-only reference data used to populate the group selector.
// Courses are upserted by name during roster import and never mutated by the
// occupancy workflow.
type Course struct {
	ID   string `gorm:"primaryKey;size:36" json:"id"`
	Name string `gorm:"uniqueIndex;size:64;not null" json:"name"`
}

// Student is a bulk-imported roster row. Duplicates are permitted; the
// import has no uniqueness constraint.
type Student struct {
	ID     string `gorm:"primaryKey;size:36" json:"id"`
	Name   string `gorm:"size:256;not null" json:"name"`
	Course string `gorm:"size:64;not null" json:"course"`
}
