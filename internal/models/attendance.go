package models

import (
	"strings"
	"time"
)

// AttendanceStatus represents the status for attendance records. Legacy data
// stores the value with inconsistent casing and stray whitespace, so all
// comparisons must go through Normalize.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
	AttendanceStatusLate    AttendanceStatus = "late"
	AttendanceStatusExcused AttendanceStatus = "excused"
)

// Normalize lower-cases and trims a raw status value.
func (s AttendanceStatus) Normalize() AttendanceStatus {
	return AttendanceStatus(strings.ToLower(strings.TrimSpace(string(s))))
}

// Valid returns true when the normalized status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s.Normalize() {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusLate, AttendanceStatusExcused:
		return true
	default:
		return false
	}
}

// CountsAsPresent reports whether the status qualifies for the attendance
// numerator. Only present and excused count; a missing record counts as
// nothing at all.
func (s AttendanceStatus) CountsAsPresent() bool {
	switch s.Normalize() {
	case AttendanceStatusPresent, AttendanceStatusExcused:
		return true
	default:
		return false
	}
}

// BulkOperationMode controls how bulk writes behave on errors.
type BulkOperationMode string

const (
	BulkModeAtomic         BulkOperationMode = "atomic"
	BulkModePartialOnError BulkOperationMode = "partialOnError"
)

// AttendanceRecord represents a single cadet x training-day attendance row.
type AttendanceRecord struct {
	ID            string           `db:"id" json:"id"`
	CadetID       string           `db:"cadet_id" json:"cadet_id"`
	TrainingDayID string           `db:"training_day_id" json:"training_day_id"`
	Status        AttendanceStatus `db:"status" json:"status"`
	Remarks       *string          `db:"remarks" json:"remarks,omitempty"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceRecordDetail extends the record with cadet and session metadata.
type AttendanceRecordDetail struct {
	AttendanceRecord
	CadetName    string    `db:"cadet_name" json:"cadet_name"`
	TrainingDate time.Time `db:"training_date" json:"training_date"`
	TrainingName string    `db:"training_name" json:"training_name"`
}

// AttendanceFilter defines query filters.
type AttendanceFilter struct {
	CadetID       string
	TrainingDayID string
	Status        *AttendanceStatus
	DateFrom      *time.Time
	DateTo        *time.Time
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     string
}

// AttendanceMismatch reports a drifted grade summary row: the stored
// attendance_present differs from the count recomputed from raw records.
type AttendanceMismatch struct {
	CadetID     string `db:"cadet_id" json:"cadet_id"`
	CadetName   string `db:"cadet_name" json:"cadet_name"`
	StoredCount int    `db:"stored_count" json:"stored_count"`
	ActualCount int    `db:"actual_count" json:"actual_count"`
}

// AttendanceBulkConflict captures failed entries in a bulk marking call.
type AttendanceBulkConflict struct {
	CadetID string `json:"cadet_id"`
	Reason  string `json:"reason"`
}
