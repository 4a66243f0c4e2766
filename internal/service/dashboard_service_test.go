package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seiwa-mfg/training-compliance-api/internal/models"
)

type stubMatrixProvider struct {
	matrix    models.ComplianceMatrix
	employees []models.Employee
	programs  []models.TrainingProgram
	err       error
}

func (s *stubMatrixProvider) FullMatrix(ctx context.Context) (models.ComplianceMatrix, []models.Employee, []models.TrainingProgram, error) {
	return s.matrix, s.employees, s.programs, s.err
}

func TestDashboardSummaryCounts(t *testing.T) {
	employees := []models.Employee{
		{ID: "emp-1", EmployeeNo: "EMP-001", Department: "Assembly", Active: true},
		{ID: "emp-2", EmployeeNo: "EMP-002", Department: "Assembly", Active: true},
		{ID: "emp-3", EmployeeNo: "EMP-003", Department: "Welding", Active: true},
		{ID: "emp-4", EmployeeNo: "EMP-004", Department: "Welding", Active: false},
	}
	programs := []models.TrainingProgram{
		{ID: "prog-1", Code: "QIP-001", Name: "Quality Inspection", Active: true},
		{ID: "prog-2", Code: "OLD-001", Name: "Legacy Course", Active: false},
	}
	expiration := date(2025, 1, 9)
	matrix := models.ComplianceMatrix{
		{EmployeeID: "emp-1", ProgramCode: "QIP-001"}: {
			EmployeeID: "emp-1", ProgramCode: "QIP-001",
			LastResult: models.ResultPass, ExpirationDate: &expiration, IsExpiring: true,
		},
		{EmployeeID: "emp-2", ProgramCode: "QIP-001"}: {
			EmployeeID: "emp-2", ProgramCode: "QIP-001",
			LastResult: models.ResultFail,
		},
		// Inactive employee and inactive program cells are ignored.
		{EmployeeID: "emp-4", ProgramCode: "QIP-001"}: {
			EmployeeID: "emp-4", ProgramCode: "QIP-001",
			LastResult: models.ResultPass,
		},
		{EmployeeID: "emp-1", ProgramCode: "OLD-001"}: {
			EmployeeID: "emp-1", ProgramCode: "OLD-001",
			LastResult: models.ResultPass,
		},
	}
	provider := &stubMatrixProvider{matrix: matrix, employees: employees, programs: programs}
	svc := NewDashboardService(provider, nil, nil, DashboardServiceConfig{Enabled: true})
	svc.now = func() time.Time { return date(2024, 12, 20) }

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Departments, 2)

	assembly := summary.Departments[0]
	assert.Equal(t, "Assembly", assembly.Department)
	assert.Equal(t, 2, assembly.EmployeeCount)
	assert.Equal(t, 0, assembly.Counts.Compliant)
	assert.Equal(t, 1, assembly.Counts.Expiring)
	assert.Equal(t, 1, assembly.Counts.Retraining)
	assert.Equal(t, 0, assembly.Counts.NotTaken)
	assert.InDelta(t, 0.5, assembly.ComplianceRate, 0.0001)

	welding := summary.Departments[1]
	assert.Equal(t, "Welding", welding.Department)
	assert.Equal(t, 1, welding.EmployeeCount)
	assert.Equal(t, 1, welding.Counts.NotTaken)
	assert.Zero(t, welding.ComplianceRate)

	assert.Equal(t, 1, summary.Overall.Expiring)
	assert.Equal(t, 1, summary.Overall.Retraining)
	assert.Equal(t, 1, summary.Overall.NotTaken)
	assert.InDelta(t, 1.0/3.0, summary.ComplianceRate, 0.0001)
}

func TestDashboardSummaryEmptyRoster(t *testing.T) {
	provider := &stubMatrixProvider{matrix: models.ComplianceMatrix{}}
	svc := NewDashboardService(provider, nil, nil, DashboardServiceConfig{Enabled: true})

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Empty(t, summary.Departments)
	assert.Zero(t, summary.ComplianceRate)
}

func TestDashboardDisabled(t *testing.T) {
	svc := NewDashboardService(&stubMatrixProvider{}, nil, nil, DashboardServiceConfig{})
	assert.False(t, svc.Enabled())

	var nilSvc *DashboardService
	assert.False(t, nilSvc.Enabled())
}
