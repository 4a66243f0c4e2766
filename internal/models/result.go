package models

import "time"

// ResultOutcome is the closed set of training result states.
type ResultOutcome string

const (
	ResultPass   ResultOutcome = "PASS"
	ResultFail   ResultOutcome = "FAIL"
	ResultAbsent ResultOutcome = "ABSENT"
)

// Valid reports whether the outcome is one of the known states.
func (o ResultOutcome) Valid() bool {
	switch o {
	case ResultPass, ResultFail, ResultAbsent:
		return true
	}
	return false
}

// Grade is the discrete bucket derived from a score via program thresholds.
type Grade string

const (
	GradeAA Grade = "AA"
	GradeA  Grade = "A"
	GradeB  Grade = "B"
	GradeC  Grade = "C"
)

// Rank orders grades for monotonicity checks; higher is better.
func (g Grade) Rank() int {
	switch g {
	case GradeAA:
		return 3
	case GradeA:
		return 2
	case GradeB:
		return 1
	default:
		return 0
	}
}

// TrainingResult is one row of the append-only result ledger. Identity,
// employee, program and training date are immutable once recorded; score,
// result and remarks may be amended with a logged reason.
type TrainingResult struct {
	ID           string        `db:"id" json:"id"`
	EmployeeID   string        `db:"employee_id" json:"employee_id"`
	ProgramCode  string        `db:"program_code" json:"program_code"`
	TrainingDate time.Time     `db:"training_date" json:"training_date"`
	Score        *int          `db:"score" json:"score,omitempty"`
	Result       ResultOutcome `db:"result" json:"result"`
	Grade        *Grade        `db:"grade" json:"grade,omitempty"`
	EvaluatedBy  string        `db:"evaluated_by" json:"evaluated_by"`
	Remarks      string        `db:"remarks" json:"remarks"`
	// LedgerSeq preserves original insertion order; amendments never move a row.
	LedgerSeq int64     `db:"ledger_seq" json:"-"`
	Version   int       `db:"version" json:"version"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ResultEditLog is one append-only audit entry for a result amendment.
type ResultEditLog struct {
	ID        string    `db:"id" json:"id"`
	ResultID  string    `db:"result_id" json:"result_id"`
	OldValues []byte    `db:"old_values" json:"old_values"`
	NewValues []byte    `db:"new_values" json:"new_values"`
	Reason    string    `db:"reason" json:"reason"`
	EditedBy  string    `db:"edited_by" json:"edited_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ResultSnapshot captures the amendable fields of a result for edit logging.
type ResultSnapshot struct {
	Score   *int          `json:"score"`
	Result  ResultOutcome `json:"result"`
	Grade   *Grade        `json:"grade"`
	Remarks string        `json:"remarks"`
}

// Snapshot extracts the amendable fields of the result.
func (r TrainingResult) Snapshot() ResultSnapshot {
	return ResultSnapshot{Score: r.Score, Result: r.Result, Grade: r.Grade, Remarks: r.Remarks}
}

// ResultFilter scopes ledger queries.
type ResultFilter struct {
	EmployeeID  string
	ProgramCode string
	From        *time.Time
	To          *time.Time
	Page        int
	PageSize    int
}
