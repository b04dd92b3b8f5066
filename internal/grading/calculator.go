package grading

import (
	"math"

	"github.com/rotc-portal/grading-api/internal/models"
)

// Compute derives the full grade result from a summary row and the policy.
// It is a total function: any summary, including an all-zero one, yields a
// fully populated result. Partial data degrades to floor sub-scores, never
// to an error.
func Compute(summary models.GradeSummary, policy Policy) models.GradeResult {
	attendanceScore := attendanceScore(summary.AttendancePresent, policy)
	aptitudeScore := clamp(policy.Aptitude.Score(summary.MeritPoints, summary.DemeritPoints, policy.AptitudeWeight), 0, policy.AptitudeWeight)
	subjectScore := subjectScore(summary, policy)

	finalGrade := round2(math.Min(attendanceScore+aptitudeScore+subjectScore, ScaleMax))
	transmuted, remark := policy.Transmute(finalGrade)

	return models.GradeResult{
		CadetID:           summary.CadetID,
		AttendanceScore:   round2(attendanceScore),
		AttendancePresent: summary.AttendancePresent,
		TotalTrainingDays: policy.TotalTrainingDays,
		AptitudeScore:     round2(aptitudeScore),
		MeritPoints:       summary.MeritPoints,
		DemeritPoints:     summary.DemeritPoints,
		SubjectScore:      round2(subjectScore),
		PrelimScore:       summary.PrelimScore,
		MidtermScore:      summary.MidtermScore,
		FinalScore:        summary.FinalScore,
		FinalGrade:        finalGrade,
		TransmutedGrade:   transmuted,
		Remarks:           remark,
	}
}

// attendanceScore scales the qualifying-day count by the attendance weight.
// The count is clamped because the database does not stop a cadet from
// holding more qualifying records than scheduled training days.
func attendanceScore(present int, policy Policy) float64 {
	if present < 0 {
		present = 0
	}
	raw := float64(present) / float64(policy.TotalTrainingDays) * policy.AttendanceWeight
	return clamp(raw, 0, policy.AttendanceWeight)
}

// subjectScore combines the three exam scores per the configured split and
// scales the 0-100 composite to the subject weight. Missing scores are
// already zero on the summary row.
func subjectScore(summary models.GradeSummary, policy Policy) float64 {
	composite := summary.PrelimScore*policy.Split.Prelim +
		summary.MidtermScore*policy.Split.Midterm +
		summary.FinalScore*policy.Split.Final
	raw := composite / 100 * policy.SubjectWeight
	return clamp(raw, 0, policy.SubjectWeight)
}

func round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}
