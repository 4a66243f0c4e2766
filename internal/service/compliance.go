package service

import (
	"fmt"
	"time"

	"github.com/seiwa-mfg/training-compliance-api/internal/models"
	appErrors "github.com/seiwa-mfg/training-compliance-api/pkg/errors"
)

// BuildMatrix reduces a snapshot of the result ledger into one compliance
// cell per (employee, program) pair. Pairs without results are not
// materialized. The latest result per pair is the one with the maximum
// training date; ties resolve to the latest ledger position, so an amended
// row never changes its standing. Results referencing an employee or program
// missing from the supplied axes surface a consistency error instead of
// being dropped, since dropping them would corrupt compliance counts.
func BuildMatrix(employees []models.Employee, programs []models.TrainingProgram, results []models.TrainingResult, now time.Time, warnWindowDays int) (models.ComplianceMatrix, error) {
	employeeSet := make(map[string]struct{}, len(employees))
	for _, employee := range employees {
		employeeSet[employee.ID] = struct{}{}
	}
	programByCode := make(map[string]models.TrainingProgram, len(programs))
	for _, program := range programs {
		programByCode[program.Code] = program
	}

	latest := make(map[models.MatrixKey]models.TrainingResult)
	counts := make(map[models.MatrixKey]int)
	for _, result := range results {
		if _, ok := employeeSet[result.EmployeeID]; !ok {
			return nil, appErrors.Clone(appErrors.ErrConsistency, fmt.Sprintf("result %s references unknown employee %s", result.ID, result.EmployeeID))
		}
		if _, ok := programByCode[result.ProgramCode]; !ok {
			return nil, appErrors.Clone(appErrors.ErrConsistency, fmt.Sprintf("result %s references unknown program %s", result.ID, result.ProgramCode))
		}

		key := models.MatrixKey{EmployeeID: result.EmployeeID, ProgramCode: result.ProgramCode}
		counts[key]++
		current, ok := latest[key]
		if !ok || supersedes(current, result) {
			latest[key] = result
		}
	}

	matrix := make(models.ComplianceMatrix, len(latest))
	for key, last := range latest {
		cell := models.ComplianceCell{
			EmployeeID:       key.EmployeeID,
			ProgramCode:      key.ProgramCode,
			LastResult:       last.Result,
			LastScore:        last.Score,
			LastGrade:        last.Grade,
			LastTrainingDate: last.TrainingDate,
			CompletionCount:  counts[key],
		}
		if last.Result == models.ResultPass {
			status := ComputeExpiry(last.TrainingDate, programByCode[key.ProgramCode].ValidityDays, now, warnWindowDays)
			cell.ExpirationDate = status.ExpirationDate
			cell.IsExpired = status.IsExpired
			cell.IsExpiring = status.IsExpiring
		}
		matrix[key] = cell
	}
	return matrix, nil
}

// supersedes reports whether candidate replaces current as the pair's latest
// entry: a strictly later training date, or the same date and a ledger
// position no earlier than current (last inserted wins).
func supersedes(current, candidate models.TrainingResult) bool {
	currentDate := DateOnly(current.TrainingDate)
	candidateDate := DateOnly(candidate.TrainingDate)
	if candidateDate.After(currentDate) {
		return true
	}
	if candidateDate.Before(currentDate) {
		return false
	}
	return candidate.LedgerSeq >= current.LedgerSeq
}

// RetrainingTargets lists every cell whose latest attempt was a FAIL,
// enriched with roster and catalog attributes. Duplicate-free by
// construction; ordering is left to the caller.
func RetrainingTargets(matrix models.ComplianceMatrix, employees []models.Employee, programs []models.TrainingProgram) []models.RetrainingTarget {
	employeeByID := indexEmployees(employees)
	programByCode := indexPrograms(programs)

	targets := make([]models.RetrainingTarget, 0)
	for key, cell := range matrix {
		if cell.LastResult != models.ResultFail {
			continue
		}
		employee := employeeByID[key.EmployeeID]
		program := programByCode[key.ProgramCode]
		targets = append(targets, models.RetrainingTarget{
			EmployeeID:       key.EmployeeID,
			EmployeeNo:       employee.EmployeeNo,
			EmployeeName:     employee.FullName,
			Department:       employee.Department,
			ProgramCode:      key.ProgramCode,
			ProgramName:      program.Name,
			LastScore:        cell.LastScore,
			LastGrade:        cell.LastGrade,
			LastTrainingDate: cell.LastTrainingDate,
		})
	}
	return targets
}

// ExpiringTrainings lists passed, time-limited cells whose expiration falls
// within horizonDays of now. Already-expired rows are surfaced only when
// includeExpired is set; their days-until-expiry go negative.
func ExpiringTrainings(matrix models.ComplianceMatrix, employees []models.Employee, programs []models.TrainingProgram, now time.Time, horizonDays int, includeExpired bool) []models.ExpiringTraining {
	employeeByID := indexEmployees(employees)
	programByCode := indexPrograms(programs)
	today := DateOnly(now)

	expiring := make([]models.ExpiringTraining, 0)
	for key, cell := range matrix {
		if cell.LastResult != models.ResultPass || cell.ExpirationDate == nil {
			continue
		}
		expiration := DateOnly(*cell.ExpirationDate)
		days := DaysBetween(today, expiration)
		expired := expiration.Before(today)
		if expired && !includeExpired {
			continue
		}
		if !expired && days > horizonDays {
			continue
		}

		employee := employeeByID[key.EmployeeID]
		program := programByCode[key.ProgramCode]
		expiring = append(expiring, models.ExpiringTraining{
			EmployeeID:      key.EmployeeID,
			EmployeeNo:      employee.EmployeeNo,
			EmployeeName:    employee.FullName,
			Department:      employee.Department,
			ProgramCode:     key.ProgramCode,
			ProgramName:     program.Name,
			LastPassDate:    cell.LastTrainingDate,
			ExpirationDate:  expiration,
			DaysUntilExpiry: days,
			IsExpired:       expired,
		})
	}
	return expiring
}

func indexEmployees(employees []models.Employee) map[string]models.Employee {
	byID := make(map[string]models.Employee, len(employees))
	for _, employee := range employees {
		byID[employee.ID] = employee
	}
	return byID
}

func indexPrograms(programs []models.TrainingProgram) map[string]models.TrainingProgram {
	byCode := make(map[string]models.TrainingProgram, len(programs))
	for _, program := range programs {
		byCode[program.Code] = program
	}
	return byCode
}
