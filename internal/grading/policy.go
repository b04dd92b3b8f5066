package grading

import (
	"fmt"
	"math"
	"sort"

	"github.com/rotc-portal/grading-api/pkg/config"
	appErrors "github.com/rotc-portal/grading-api/pkg/errors"
)

// ScaleMax is the ceiling of the raw final-grade scale.
const ScaleMax = 100.0

// Band is a transmutation entry: a final grade >= Min maps to Grade/Remark.
type Band struct {
	Min    float64 `json:"min"`
	Grade  string  `json:"grade"`
	Remark string  `json:"remark"`
}

// SubjectSplit weighs the three exam scores within the subject component.
// Values are fractions that must sum to 1.
type SubjectSplit struct {
	Prelim  float64 `json:"prelim"`
	Midterm float64 `json:"midterm"`
	Final   float64 `json:"final"`
}

// AptitudeScorer maps merit/demerit point totals onto the aptitude component.
// The institutional formula is not settled, so it stays pluggable.
type AptitudeScorer interface {
	Score(meritPoints, demeritPoints int, weight float64) float64
}

// BaselineAptitude starts from the full weight, subtracts demerits and adds
// merits, clamped to [0, weight].
type BaselineAptitude struct{}

// Score implements AptitudeScorer.
func (BaselineAptitude) Score(meritPoints, demeritPoints int, weight float64) float64 {
	raw := weight - float64(demeritPoints) + float64(meritPoints)
	return clamp(raw, 0, weight)
}

// Policy is the institutional grading configuration, loaded once at startup
// and injected into every computation.
type Policy struct {
	TotalTrainingDays int
	AttendanceWeight  float64
	AptitudeWeight    float64
	SubjectWeight     float64
	Split             SubjectSplit
	Table             []Band
	Aptitude          AptitudeScorer
}

// PolicyFromConfig builds and validates a Policy from environment config.
// A zero subject split defaults to equal thirds.
func PolicyFromConfig(cfg config.GradingConfig) (Policy, error) {
	rawBands, err := cfg.Bands()
	if err != nil {
		return Policy{}, appErrors.Wrap(err, appErrors.ErrInvalidConfig.Code, appErrors.ErrInvalidConfig.Status, "invalid transmutation table")
	}
	bands := make([]Band, len(rawBands))
	for i, b := range rawBands {
		bands[i] = Band{Min: b.Min, Grade: b.Grade, Remark: b.Remark}
	}

	split := SubjectSplit{Prelim: cfg.PrelimShare, Midterm: cfg.MidtermShare, Final: cfg.FinalShare}
	if split.Prelim == 0 && split.Midterm == 0 && split.Final == 0 {
		split = SubjectSplit{Prelim: 1.0 / 3, Midterm: 1.0 / 3, Final: 1.0 / 3}
	}

	policy := Policy{
		TotalTrainingDays: cfg.TotalTrainingDays,
		AttendanceWeight:  cfg.AttendanceWeight,
		AptitudeWeight:    cfg.AptitudeWeight,
		SubjectWeight:     cfg.SubjectWeight,
		Split:             split,
		Table:             bands,
		Aptitude:          BaselineAptitude{},
	}
	if err := policy.Validate(); err != nil {
		return Policy{}, err
	}
	return policy, nil
}

// Validate checks the policy for internal consistency. It is meant to run at
// startup so a bad configuration never reaches request handling.
func (p Policy) Validate() error {
	if p.TotalTrainingDays <= 0 {
		return appErrors.Clone(appErrors.ErrInvalidConfig, "total training days must be positive")
	}
	if p.AttendanceWeight <= 0 || p.AptitudeWeight <= 0 || p.SubjectWeight <= 0 {
		return appErrors.Clone(appErrors.ErrInvalidConfig, "component weights must be positive")
	}
	if sum := p.AttendanceWeight + p.AptitudeWeight + p.SubjectWeight; math.Abs(sum-ScaleMax) > 0.001 {
		return appErrors.Clone(appErrors.ErrInvalidConfig, fmt.Sprintf("component weights sum to %.2f, want %.0f", sum, ScaleMax))
	}
	if p.Split.Prelim < 0 || p.Split.Midterm < 0 || p.Split.Final < 0 {
		return appErrors.Clone(appErrors.ErrInvalidConfig, "subject split shares must not be negative")
	}
	if sum := p.Split.Prelim + p.Split.Midterm + p.Split.Final; math.Abs(sum-1) > 0.001 {
		return appErrors.Clone(appErrors.ErrInvalidConfig, fmt.Sprintf("subject split sums to %.4f, want 1", sum))
	}
	if len(p.Table) == 0 {
		return appErrors.Clone(appErrors.ErrInvalidConfig, "transmutation table is empty")
	}
	floor := p.Table[0].Min
	for _, band := range p.Table {
		if band.Min < floor {
			floor = band.Min
		}
		if band.Grade == "" {
			return appErrors.Clone(appErrors.ErrInvalidConfig, "transmutation band missing grade label")
		}
	}
	if floor > 0 {
		return appErrors.Clone(appErrors.ErrInvalidConfig, "transmutation table does not cover the zero grade")
	}
	if p.Aptitude == nil {
		return appErrors.Clone(appErrors.ErrInvalidConfig, "aptitude scorer missing")
	}
	return nil
}

// Transmute maps a final numeric grade onto the institutional scale.
func (p Policy) Transmute(finalGrade float64) (grade string, remark string) {
	bands := make([]Band, len(p.Table))
	copy(bands, p.Table)
	sort.Slice(bands, func(i, j int) bool { return bands[i].Min > bands[j].Min })
	for _, band := range bands {
		if finalGrade >= band.Min {
			return band.Grade, band.Remark
		}
	}
	last := bands[len(bands)-1]
	return last.Grade, last.Remark
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
