package models

import "time"

// MatrixKey addresses one employee/program pair in the compliance matrix.
type MatrixKey struct {
	EmployeeID  string
	ProgramCode string
}

// ExpiryStatus is the result of the expiry calculation for a passing result.
type ExpiryStatus struct {
	// ExpirationDate is nil when the program never expires.
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
	IsExpired      bool       `json:"is_expired"`
	IsExpiring     bool       `json:"is_expiring"`
}

// ComplianceCell is the derived status of one employee against one program.
// It is a pure projection of the result ledger and the program's validity
// rule; pairs with no results are never materialized.
type ComplianceCell struct {
	EmployeeID       string        `json:"employee_id"`
	ProgramCode      string        `json:"program_code"`
	LastResult       ResultOutcome `json:"last_result"`
	LastScore        *int          `json:"last_score,omitempty"`
	LastGrade        *Grade        `json:"last_grade,omitempty"`
	LastTrainingDate time.Time     `json:"last_training_date"`
	ExpirationDate   *time.Time    `json:"expiration_date,omitempty"`
	IsExpired        bool          `json:"is_expired"`
	IsExpiring       bool          `json:"is_expiring"`
	CompletionCount  int           `json:"completion_count"`
}

// ComplianceMatrix maps employee/program pairs to their derived cell.
type ComplianceMatrix map[MatrixKey]ComplianceCell

// RetrainingTarget identifies an employee whose latest attempt at a program
// was a FAIL.
type RetrainingTarget struct {
	EmployeeID       string    `json:"employee_id"`
	EmployeeNo       string    `json:"employee_no"`
	EmployeeName     string    `json:"employee_name"`
	Department       string    `json:"department"`
	ProgramCode      string    `json:"program_code"`
	ProgramName      string    `json:"program_name"`
	LastScore        *int      `json:"last_score,omitempty"`
	LastGrade        *Grade    `json:"last_grade,omitempty"`
	LastTrainingDate time.Time `json:"last_training_date"`
}

// ExpiringTraining identifies a passed, time-limited qualification nearing
// (or, policy permitting, past) its expiration date.
type ExpiringTraining struct {
	EmployeeID      string    `json:"employee_id"`
	EmployeeNo      string    `json:"employee_no"`
	EmployeeName    string    `json:"employee_name"`
	Department      string    `json:"department"`
	ProgramCode     string    `json:"program_code"`
	ProgramName     string    `json:"program_name"`
	LastPassDate    time.Time `json:"last_pass_date"`
	ExpirationDate  time.Time `json:"expiration_date"`
	DaysUntilExpiry int       `json:"days_until_expiry"`
	IsExpired       bool      `json:"is_expired"`
}
