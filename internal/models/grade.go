package models

import "time"

// GradeSummary is the denormalized per-cadet aggregate row. It stores only
// raw inputs (attendance count, point totals, exam scores); derived scores
// are computed on read and never persisted.
type GradeSummary struct {
	ID                string    `db:"id" json:"id"`
	CadetID           string    `db:"cadet_id" json:"cadet_id"`
	AttendancePresent int       `db:"attendance_present" json:"attendance_present"`
	MeritPoints       int       `db:"merit_points" json:"merit_points"`
	DemeritPoints     int       `db:"demerit_points" json:"demerit_points"`
	PrelimScore       float64   `db:"prelim_score" json:"prelim_score"`
	MidtermScore      float64   `db:"midterm_score" json:"midterm_score"`
	FinalScore        float64   `db:"final_score" json:"final_score"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// GradeResult is the outbound contract for a cadet's computed grades. The
// field set is depended on by the frontend and must not shrink.
type GradeResult struct {
	CadetID           string  `json:"cadet_id"`
	AttendanceScore   float64 `json:"attendanceScore"`
	AttendancePresent int     `json:"attendance_present"`
	TotalTrainingDays int     `json:"totalTrainingDays"`
	AptitudeScore     float64 `json:"aptitudeScore"`
	MeritPoints       int     `json:"merit_points"`
	DemeritPoints     int     `json:"demerit_points"`
	SubjectScore      float64 `json:"subjectScore"`
	PrelimScore       float64 `json:"prelim_score"`
	MidtermScore      float64 `json:"midterm_score"`
	FinalScore        float64 `json:"final_score"`
	FinalGrade        float64 `json:"finalGrade"`
	TransmutedGrade   string  `json:"transmutedGrade"`
	Remarks           string  `json:"remarks"`
}

// GradeSheetRow pairs a cadet with the computed result for roster-wide sheets.
type GradeSheetRow struct {
	CadetID       string      `json:"cadet_id"`
	StudentNumber string      `json:"student_number"`
	CadetName     string      `json:"cadet_name"`
	Unit          string      `json:"unit"`
	Result        GradeResult `json:"result"`
}

// GradeSummaryDetail joins the summary row with cadet identity for listings.
type GradeSummaryDetail struct {
	GradeSummary
	StudentNumber string `db:"student_number" json:"student_number"`
	CadetName     string `db:"cadet_name" json:"cadet_name"`
	Unit          string `db:"unit" json:"unit"`
}
