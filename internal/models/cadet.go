package models

import "time"

// Cadet represents an enrolled ROTC cadet.
type Cadet struct {
	ID            string    `db:"id" json:"id"`
	StudentNumber string    `db:"student_number" json:"student_number"`
	FullName      string    `db:"full_name" json:"full_name"`
	Unit          string    `db:"unit" json:"unit"`
	Course        string    `db:"course" json:"course"`
	Phone         string    `db:"phone" json:"phone"`
	Active        bool      `db:"active" json:"active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// CadetFilter encapsulates allowed search parameters for listing cadets.
type CadetFilter struct {
	Search    string
	Unit      string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
