package dto

import (
	"time"

	"github.com/seiwa-mfg/training-compliance-api/internal/models"
)

// MatrixResponse is the compliance matrix payload consumed by the dashboard
// grid. Cells are ordered by employee number then program code; pairs with no
// recorded results carry no cell.
type MatrixResponse struct {
	FromCache      bool                    `json:"-"`
	GeneratedAt    time.Time               `json:"generated_at"`
	WarnWindowDays int                     `json:"warn_window_days"`
	EmployeeCount  int                     `json:"employee_count"`
	ProgramCount   int                     `json:"program_count"`
	Cells          []models.ComplianceCell `json:"cells"`
}

// RetrainingResponse is the retraining worklist payload.
type RetrainingResponse struct {
	FromCache   bool                      `json:"-"`
	GeneratedAt time.Time                 `json:"generated_at"`
	Targets     []models.RetrainingTarget `json:"targets"`
}

// ExpiringResponse is the expiry worklist payload.
type ExpiringResponse struct {
	FromCache       bool                      `json:"-"`
	GeneratedAt     time.Time                 `json:"generated_at"`
	HorizonDays     int                       `json:"horizon_days"`
	IncludesExpired bool                      `json:"includes_expired"`
	Trainings       []models.ExpiringTraining `json:"trainings"`
}

// SummaryCounts buckets employee/program pairs by compliance state.
type SummaryCounts struct {
	Compliant  int `json:"compliant"`
	Retraining int `json:"retraining"`
	Expiring   int `json:"expiring"`
	Expired    int `json:"expired"`
	NotTaken   int `json:"not_taken"`
}

// DepartmentSummary aggregates compliance per department.
type DepartmentSummary struct {
	Department     string        `json:"department"`
	EmployeeCount  int           `json:"employee_count"`
	Counts         SummaryCounts `json:"counts"`
	ComplianceRate float64       `json:"compliance_rate"`
}

// ComplianceSummary is the landing-page dashboard payload.
type ComplianceSummary struct {
	FromCache      bool                `json:"-"`
	GeneratedAt    time.Time           `json:"generated_at"`
	Departments    []DepartmentSummary `json:"departments"`
	Overall        SummaryCounts       `json:"overall"`
	ComplianceRate float64             `json:"compliance_rate"`
}
