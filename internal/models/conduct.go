package models

import "time"

// ConductEntryType distinguishes merit from demerit entries.
type ConductEntryType string

const (
	ConductMerit   ConductEntryType = "merit"
	ConductDemerit ConductEntryType = "demerit"
)

// Valid returns true for a supported entry type.
func (t ConductEntryType) Valid() bool {
	return t == ConductMerit || t == ConductDemerit
}

// ConductEntry is an append-only merit/demerit event for a cadet. Entries are
// never mutated after creation; totals are always recomputed by summation.
type ConductEntry struct {
	ID         string           `db:"id" json:"id"`
	CadetID    string           `db:"cadet_id" json:"cadet_id"`
	EntryType  ConductEntryType `db:"entry_type" json:"entry_type"`
	Points     int              `db:"points" json:"points"`
	Reason     string           `db:"reason" json:"reason"`
	RecordedAt time.Time        `db:"recorded_at" json:"recorded_at"`
	CreatedBy  string           `db:"created_by" json:"created_by"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
}

// ConductFilter allows listing conduct entries.
type ConductFilter struct {
	CadetID   string
	EntryType *ConductEntryType
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
}

// ConductSummary aggregates point totals for a cadet.
type ConductSummary struct {
	CadetID       string `json:"cadet_id"`
	MeritPoints   int    `json:"merit_points"`
	DemeritPoints int    `json:"demerit_points"`
	MeritCount    int    `json:"merit_count"`
	DemeritCount  int    `json:"demerit_count"`
}
