package models

import "time"

// TrainingDay is a single scheduled attendance-taking session.
type TrainingDay struct {
	ID        string    `db:"id" json:"id"`
	Date      time.Time `db:"date" json:"date"`
	Title     string    `db:"title" json:"title"`
	Notes     *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TrainingDayFilter scopes listing queries.
type TrainingDayFilter struct {
	DateFrom *time.Time
	DateTo   *time.Time
	Page     int
	PageSize int
}
