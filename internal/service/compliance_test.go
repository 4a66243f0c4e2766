package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seiwa-mfg/training-compliance-api/internal/models"
	appErrors "github.com/seiwa-mfg/training-compliance-api/pkg/errors"
)

func gradePtr(g models.Grade) *models.Grade { return &g }

func testEmployees() []models.Employee {
	return []models.Employee{
		{ID: "emp-1", EmployeeNo: "EMP-001", FullName: "Tanaka Hiro", Department: "Assembly", Active: true},
		{ID: "emp-2", EmployeeNo: "EMP-002", FullName: "Sato Yuki", Department: "Welding", Active: true},
	}
}

func testPrograms() []models.TrainingProgram {
	return []models.TrainingProgram{
		{
			ID: "prog-1", Code: "QIP-001", Name: "Quality Inspection", Category: "Quality",
			PassingScore:    70,
			GradeThresholds: models.GradeThresholds{AA: 95, A: 85, B: 70},
			ValidityDays:    intPtr(365),
			Active:          true,
		},
		{
			ID: "prog-2", Code: "SAF-001", Name: "Safety Basics", Category: "Safety",
			PassingScore:    60,
			GradeThresholds: models.GradeThresholds{AA: 90, A: 80, B: 60},
			Active:          true,
		},
	}
}

func TestBuildMatrixLatestByTrainingDate(t *testing.T) {
	employees := testEmployees()
	programs := testPrograms()
	results := []models.TrainingResult{
		{ID: "res-1", EmployeeID: "emp-1", ProgramCode: "QIP-001", TrainingDate: date(2024, 1, 10), Score: intPtr(96), Result: models.ResultPass, Grade: gradePtr(models.GradeAA), LedgerSeq: 1},
		{ID: "res-2", EmployeeID: "emp-1", ProgramCode: "QIP-001", TrainingDate: date(2024, 6, 1), Score: intPtr(60), Result: models.ResultFail, Grade: gradePtr(models.GradeC), LedgerSeq: 2},
	}

	matrix, err := BuildMatrix(employees, programs, results, date(2024, 12, 20), 30)
	require.NoError(t, err)

	cell, ok := matrix[models.MatrixKey{EmployeeID: "emp-1", ProgramCode: "QIP-001"}]
	require.True(t, ok)
	assert.Equal(t, models.ResultFail, cell.LastResult)
	assert.Equal(t, date(2024, 6, 1), cell.LastTrainingDate)
	assert.Equal(t, 2, cell.CompletionCount)
	// Failed latest attempt carries no expiry fields.
	assert.Nil(t, cell.ExpirationDate)
	assert.False(t, cell.IsExpired)
	assert.False(t, cell.IsExpiring)
}

func TestBuildMatrixSameDateTieLastInsertedWins(t *testing.T) {
	employees := testEmployees()
	programs := testPrograms()
	results := []models.TrainingResult{
		{ID: "res-1", EmployeeID: "emp-1", ProgramCode: "SAF-001", TrainingDate: date(2024, 3, 1), Score: intPtr(50), Result: models.ResultFail, LedgerSeq: 10},
		{ID: "res-2", EmployeeID: "emp-1", ProgramCode: "SAF-001", TrainingDate: date(2024, 3, 1), Score: intPtr(75), Result: models.ResultPass, LedgerSeq: 11},
	}

	matrix, err := BuildMatrix(employees, programs, results, date(2024, 3, 2), 30)
	require.NoError(t, err)

	cell := matrix[models.MatrixKey{EmployeeID: "emp-1", ProgramCode: "SAF-001"}]
	assert.Equal(t, models.ResultPass, cell.LastResult)
	assert.Equal(t, intPtr(75), cell.LastScore)
	assert.Equal(t, 2, cell.CompletionCount)
}

func TestBuildMatrixPassComputesExpiry(t *testing.T) {
	employees := testEmployees()
	programs := testPrograms()
	results := []models.TrainingResult{
		{ID: "res-1", EmployeeID: "emp-1", ProgramCode: "QIP-001", TrainingDate: date(2024, 1, 10), Score: intPtr(96), Result: models.ResultPass, Grade: gradePtr(models.GradeAA), LedgerSeq: 1},
	}

	matrix, err := BuildMatrix(employees, programs, results, date(2024, 12, 20), 30)
	require.NoError(t, err)

	cell := matrix[models.MatrixKey{EmployeeID: "emp-1", ProgramCode: "QIP-001"}]
	require.NotNil(t, cell.ExpirationDate)
	assert.Equal(t, date(2024, 1, 10).AddDate(0, 0, 365), *cell.ExpirationDate)
	assert.False(t, cell.IsExpired)
	assert.True(t, cell.IsExpiring)
	require.NotNil(t, cell.LastGrade)
	assert.Equal(t, models.GradeAA, *cell.LastGrade)
}

func TestBuildMatrixProgramWithoutValidityNeverExpires(t *testing.T) {
	employees := testEmployees()
	programs := testPrograms()
	results := []models.TrainingResult{
		{ID: "res-1", EmployeeID: "emp-2", ProgramCode: "SAF-001", TrainingDate: date(2015, 1, 1), Score: intPtr(80), Result: models.ResultPass, LedgerSeq: 1},
	}

	matrix, err := BuildMatrix(employees, programs, results, date(2024, 12, 20), 30)
	require.NoError(t, err)

	cell := matrix[models.MatrixKey{EmployeeID: "emp-2", ProgramCode: "SAF-001"}]
	assert.Nil(t, cell.ExpirationDate)
	assert.False(t, cell.IsExpired)
	assert.False(t, cell.IsExpiring)
}

func TestBuildMatrixCompletionCountIncludesAbsences(t *testing.T) {
	employees := testEmployees()
	programs := testPrograms()
	results := []models.TrainingResult{
		{ID: "res-1", EmployeeID: "emp-1", ProgramCode: "SAF-001", TrainingDate: date(2024, 1, 1), Result: models.ResultAbsent, LedgerSeq: 1},
		{ID: "res-2", EmployeeID: "emp-1", ProgramCode: "SAF-001", TrainingDate: date(2024, 2, 1), Score: intPtr(40), Result: models.ResultFail, LedgerSeq: 2},
		{ID: "res-3", EmployeeID: "emp-1", ProgramCode: "SAF-001", TrainingDate: date(2024, 3, 1), Score: intPtr(70), Result: models.ResultPass, LedgerSeq: 3},
	}

	matrix, err := BuildMatrix(employees, programs, results, date(2024, 3, 2), 30)
	require.NoError(t, err)

	cell := matrix[models.MatrixKey{EmployeeID: "emp-1", ProgramCode: "SAF-001"}]
	assert.Equal(t, 3, cell.CompletionCount)
	assert.Equal(t, models.ResultPass, cell.LastResult)
}

func TestBuildMatrixNoResultsNoCell(t *testing.T) {
	matrix, err := BuildMatrix(testEmployees(), testPrograms(), nil, date(2024, 1, 1), 30)
	require.NoError(t, err)
	assert.Empty(t, matrix)
}

func TestBuildMatrixUnknownEmployeeFails(t *testing.T) {
	results := []models.TrainingResult{
		{ID: "res-1", EmployeeID: "ghost", ProgramCode: "QIP-001", TrainingDate: date(2024, 1, 1), Result: models.ResultPass, LedgerSeq: 1},
	}
	_, err := BuildMatrix(testEmployees(), testPrograms(), results, date(2024, 1, 2), 30)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConsistency))
}

func TestBuildMatrixUnknownProgramFails(t *testing.T) {
	results := []models.TrainingResult{
		{ID: "res-1", EmployeeID: "emp-1", ProgramCode: "GONE-999", TrainingDate: date(2024, 1, 1), Result: models.ResultPass, LedgerSeq: 1},
	}
	_, err := BuildMatrix(testEmployees(), testPrograms(), results, date(2024, 1, 2), 30)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConsistency))
}

func TestBuildMatrixIdempotent(t *testing.T) {
	employees := testEmployees()
	programs := testPrograms()
	results := []models.TrainingResult{
		{ID: "res-1", EmployeeID: "emp-1", ProgramCode: "QIP-001", TrainingDate: date(2024, 1, 10), Score: intPtr(96), Result: models.ResultPass, LedgerSeq: 1},
		{ID: "res-2", EmployeeID: "emp-2", ProgramCode: "SAF-001", TrainingDate: date(2024, 2, 1), Score: intPtr(55), Result: models.ResultFail, LedgerSeq: 2},
	}
	now := date(2024, 12, 20)

	first, err := BuildMatrix(employees, programs, results, now, 30)
	require.NoError(t, err)
	second, err := BuildMatrix(employees, programs, results, now, 30)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRetrainingTargetsFailedLatestAttempt(t *testing.T) {
	employees := testEmployees()
	programs := testPrograms()
	results := []models.TrainingResult{
		{ID: "res-1", EmployeeID: "emp-1", ProgramCode: "QIP-001", TrainingDate: date(2024, 1, 10), Score: intPtr(96), Result: models.ResultPass, Grade: gradePtr(models.GradeAA), LedgerSeq: 1},
		{ID: "res-2", EmployeeID: "emp-1", ProgramCode: "QIP-001", TrainingDate: date(2024, 6, 1), Score: intPtr(60), Result: models.ResultFail, Grade: gradePtr(models.GradeC), LedgerSeq: 2},
		{ID: "res-3", EmployeeID: "emp-2", ProgramCode: "SAF-001", TrainingDate: date(2024, 5, 1), Score: intPtr(90), Result: models.ResultPass, LedgerSeq: 3},
	}

	matrix, err := BuildMatrix(employees, programs, results, date(2024, 6, 2), 30)
	require.NoError(t, err)

	targets := RetrainingTargets(matrix, employees, programs)
	require.Len(t, targets, 1)
	assert.Equal(t, "EMP-001", targets[0].EmployeeNo)
	assert.Equal(t, "QIP-001", targets[0].ProgramCode)
	assert.Equal(t, "Quality Inspection", targets[0].ProgramName)
	require.NotNil(t, targets[0].LastGrade)
	assert.Equal(t, models.GradeC, *targets[0].LastGrade)
}

func TestExpiringTrainingsHorizon(t *testing.T) {
	employees := testEmployees()
	programs := testPrograms()
	results := []models.TrainingResult{
		// Expires 21 days after now.
		{ID: "res-1", EmployeeID: "emp-1", ProgramCode: "QIP-001", TrainingDate: date(2024, 1, 10), Score: intPtr(96), Result: models.ResultPass, LedgerSeq: 1},
		// Never expires.
		{ID: "res-2", EmployeeID: "emp-2", ProgramCode: "SAF-001", TrainingDate: date(2024, 5, 1), Score: intPtr(90), Result: models.ResultPass, LedgerSeq: 2},
	}
	now := date(2024, 12, 19)

	matrix, err := BuildMatrix(employees, programs, results, now, 30)
	require.NoError(t, err)

	expiring := ExpiringTrainings(matrix, employees, programs, now, 30, false)
	require.Len(t, expiring, 1)
	assert.Equal(t, "EMP-001", expiring[0].EmployeeNo)
	assert.Equal(t, DaysBetween(now, date(2024, 1, 10).AddDate(0, 0, 365)), expiring[0].DaysUntilExpiry)
	assert.False(t, expiring[0].IsExpired)

	// Narrow horizon excludes it.
	assert.Empty(t, ExpiringTrainings(matrix, employees, programs, now, 10, false))
}

func TestExpiringTrainingsExpiredPolicy(t *testing.T) {
	employees := testEmployees()
	programs := testPrograms()
	results := []models.TrainingResult{
		{ID: "res-1", EmployeeID: "emp-1", ProgramCode: "QIP-001", TrainingDate: date(2022, 1, 10), Score: intPtr(88), Result: models.ResultPass, LedgerSeq: 1},
	}
	now := date(2024, 12, 20)

	matrix, err := BuildMatrix(employees, programs, results, now, 30)
	require.NoError(t, err)

	assert.Empty(t, ExpiringTrainings(matrix, employees, programs, now, 30, false))

	included := ExpiringTrainings(matrix, employees, programs, now, 30, true)
	require.Len(t, included, 1)
	assert.True(t, included[0].IsExpired)
	assert.Negative(t, included[0].DaysUntilExpiry)
}
