package models

import "time"

// GradeThresholds hold the ascending score cutoffs for grade bucketing.
// Invariant: AA >= A >= B; scores below B fall into grade C.
type GradeThresholds struct {
	AA int `db:"grade_aa" json:"grade_aa"`
	A  int `db:"grade_a" json:"grade_a"`
	B  int `db:"grade_b" json:"grade_b"`
}

// TrainingProgram describes a mandatory training course and its scoring rules.
type TrainingProgram struct {
	ID           string `db:"id" json:"id"`
	Code         string `db:"code" json:"code"`
	Name         string `db:"name" json:"name"`
	NameLocal    string `db:"name_local" json:"name_local"`
	Category     string `db:"category" json:"category"`
	PassingScore int    `db:"passing_score" json:"passing_score"`
	GradeThresholds
	// ValidityDays is nil when a passed training never expires.
	ValidityDays *int      `db:"validity_days" json:"validity_days,omitempty"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ProgramFilter captures filtering criteria for listing training programs.
type ProgramFilter struct {
	Search   string
	Category string
	Active   *bool
	Page     int
	PageSize int
}
