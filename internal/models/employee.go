package models

import "time"

// Employee represents a worker on the site roster.
type Employee struct {
	ID         string    `db:"id" json:"id"`
	EmployeeNo string    `db:"employee_no" json:"employee_no"`
	FullName   string    `db:"full_name" json:"full_name"`
	Department string    `db:"department" json:"department"`
	Position   string    `db:"position" json:"position"`
	Building   string    `db:"building" json:"building"`
	Line       string    `db:"line" json:"line"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// EmployeeFilter encapsulates allowed search parameters for listing employees.
type EmployeeFilter struct {
	Search     string
	Department string
	Position   string
	Building   string
	Line       string
	Active     *bool
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
