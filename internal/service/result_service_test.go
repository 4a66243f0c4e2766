package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seiwa-mfg/training-compliance-api/internal/models"
	appErrors "github.com/seiwa-mfg/training-compliance-api/pkg/errors"
)

type mockResultLedger struct {
	rows     map[string]models.TrainingResult
	editLogs map[string][]models.ResultEditLog
	nextSeq  int64
	amends   int
}

func newMockResultLedger() *mockResultLedger {
	return &mockResultLedger{
		rows:     make(map[string]models.TrainingResult),
		editLogs: make(map[string][]models.ResultEditLog),
	}
}

func (m *mockResultLedger) List(ctx context.Context, filter models.ResultFilter) ([]models.TrainingResult, int, error) {
	var results []models.TrainingResult
	for _, row := range m.rows {
		results = append(results, row)
	}
	return results, len(results), nil
}

func (m *mockResultLedger) FindByID(ctx context.Context, id string) (*models.TrainingResult, error) {
	row, ok := m.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &row, nil
}

func (m *mockResultLedger) InsertBatch(ctx context.Context, results []models.TrainingResult) ([]models.TrainingResult, error) {
	for i := range results {
		m.nextSeq++
		if results[i].ID == "" {
			results[i].ID = time.Now().Format("20060102150405.000000000")
		}
		results[i].LedgerSeq = m.nextSeq
		results[i].Version = 1
		m.rows[results[i].ID] = results[i]
	}
	return results, nil
}

func (m *mockResultLedger) AmendWithLog(ctx context.Context, result *models.TrainingResult, entry *models.ResultEditLog, expectedVersion int) error {
	current, ok := m.rows[result.ID]
	if !ok {
		return sql.ErrNoRows
	}
	if current.Version != expectedVersion {
		return appErrors.Clone(appErrors.ErrConflict, "result was amended concurrently")
	}
	m.amends++
	result.Version = expectedVersion + 1
	m.rows[result.ID] = *result
	entry.ResultID = result.ID
	entry.CreatedAt = time.Now().UTC()
	m.editLogs[result.ID] = append(m.editLogs[result.ID], *entry)
	return nil
}

func (m *mockResultLedger) ListEditLogs(ctx context.Context, resultID string) ([]models.ResultEditLog, error) {
	return m.editLogs[resultID], nil
}

type mockEmployeeReader struct {
	employees map[string]models.Employee
}

func (m *mockEmployeeReader) FindByID(ctx context.Context, id string) (*models.Employee, error) {
	employee, ok := m.employees[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &employee, nil
}

type mockProgramReader struct {
	programs map[string]models.TrainingProgram
}

func (m *mockProgramReader) FindByCode(ctx context.Context, code string) (*models.TrainingProgram, error) {
	program, ok := m.programs[code]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &program, nil
}

type mockInvalidator struct {
	calls int
}

func (m *mockInvalidator) InvalidateCompliance(ctx context.Context) { m.calls++ }

func newResultServiceForTest() (*ResultService, *mockResultLedger, *mockInvalidator) {
	ledger := newMockResultLedger()
	employees := &mockEmployeeReader{employees: map[string]models.Employee{
		"emp-1": {ID: "emp-1", EmployeeNo: "EMP-001", FullName: "Tanaka Hiro", Department: "Assembly", Active: true},
	}}
	programs := &mockProgramReader{programs: map[string]models.TrainingProgram{
		"QIP-001": {
			ID: "prog-1", Code: "QIP-001", Name: "Quality Inspection",
			PassingScore:    70,
			GradeThresholds: models.GradeThresholds{AA: 95, A: 85, B: 70},
			ValidityDays:    intPtr(365),
			Active:          true,
		},
	}}
	invalidator := &mockInvalidator{}
	svc := NewResultService(ledger, employees, programs, invalidator, nil, nil)
	return svc, ledger, invalidator
}

func TestRecordResultsDerivesGrade(t *testing.T) {
	svc, ledger, invalidator := newResultServiceForTest()

	inserted, err := svc.RecordResults(context.Background(), RecordResultsRequest{
		EvaluatedBy: "trainer-1",
		Items: []RecordResultItem{
			{EmployeeID: "emp-1", ProgramCode: "QIP-001", TrainingDate: "2024-01-10", Score: intPtr(96), Result: models.ResultPass},
		},
	})
	require.NoError(t, err)
	require.Len(t, inserted, 1)
	require.NotNil(t, inserted[0].Grade)
	assert.Equal(t, models.GradeAA, *inserted[0].Grade)
	assert.Equal(t, date(2024, 1, 10), inserted[0].TrainingDate)
	assert.Equal(t, 1, inserted[0].Version)
	assert.Len(t, ledger.rows, 1)
	assert.Equal(t, 1, invalidator.calls)
}

func TestRecordResultsUnknownEmployeeBlocksBatch(t *testing.T) {
	svc, ledger, _ := newResultServiceForTest()

	_, err := svc.RecordResults(context.Background(), RecordResultsRequest{
		EvaluatedBy: "trainer-1",
		Items: []RecordResultItem{
			{EmployeeID: "emp-1", ProgramCode: "QIP-001", TrainingDate: "2024-01-10", Score: intPtr(80), Result: models.ResultPass},
			{EmployeeID: "ghost", ProgramCode: "QIP-001", TrainingDate: "2024-01-10", Score: intPtr(70), Result: models.ResultPass},
		},
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
	assert.Empty(t, ledger.rows, "invalid batch must not be partially written")
}

func TestRecordResultsAbsentCannotCarryScore(t *testing.T) {
	svc, ledger, _ := newResultServiceForTest()

	_, err := svc.RecordResults(context.Background(), RecordResultsRequest{
		EvaluatedBy: "trainer-1",
		Items: []RecordResultItem{
			{EmployeeID: "emp-1", ProgramCode: "QIP-001", TrainingDate: "2024-01-10", Score: intPtr(50), Result: models.ResultAbsent},
		},
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	assert.Empty(t, ledger.rows)
}

func TestRecordResultsScoreOutOfRange(t *testing.T) {
	svc, _, _ := newResultServiceForTest()

	_, err := svc.RecordResults(context.Background(), RecordResultsRequest{
		EvaluatedBy: "trainer-1",
		Items: []RecordResultItem{
			{EmployeeID: "emp-1", ProgramCode: "QIP-001", TrainingDate: "2024-01-10", Score: intPtr(101), Result: models.ResultPass},
		},
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func seedResult(t *testing.T, svc *ResultService) models.TrainingResult {
	t.Helper()
	inserted, err := svc.RecordResults(context.Background(), RecordResultsRequest{
		EvaluatedBy: "trainer-1",
		Items: []RecordResultItem{
			{EmployeeID: "emp-1", ProgramCode: "QIP-001", TrainingDate: "2024-01-10", Score: intPtr(96), Result: models.ResultPass, Remarks: "initial"},
		},
	})
	require.NoError(t, err)
	require.Len(t, inserted, 1)
	return inserted[0]
}

func TestAmendResultEmptyReasonRejected(t *testing.T) {
	svc, ledger, _ := newResultServiceForTest()
	seeded := seedResult(t, svc)

	_, err := svc.AmendResult(context.Background(), seeded.ID, AmendResultRequest{
		Score:  intPtr(90),
		Reason: "   ",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	unchanged := ledger.rows[seeded.ID]
	assert.Equal(t, intPtr(96), unchanged.Score)
	assert.Empty(t, ledger.editLogs[seeded.ID])
	assert.Zero(t, ledger.amends)
}

func TestAmendResultImmutableFieldsRejected(t *testing.T) {
	svc, ledger, _ := newResultServiceForTest()
	seeded := seedResult(t, svc)

	other := "emp-2"
	_, err := svc.AmendResult(context.Background(), seeded.ID, AmendResultRequest{
		EmployeeID: &other,
		Reason:     "moving record",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrImmutableField))
	assert.Empty(t, ledger.editLogs[seeded.ID])
}

func TestAmendResultNotFound(t *testing.T) {
	svc, _, _ := newResultServiceForTest()

	_, err := svc.AmendResult(context.Background(), "missing", AmendResultRequest{
		Score:  intPtr(10),
		Reason: "typo",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestAmendResultRecomputesGradeAndLogs(t *testing.T) {
	svc, ledger, invalidator := newResultServiceForTest()
	seeded := seedResult(t, svc)
	failed := models.ResultFail

	amended, err := svc.AmendResult(context.Background(), seeded.ID, AmendResultRequest{
		Score:    intPtr(60),
		Result:   &failed,
		Reason:   "scoring error at session",
		EditedBy: "admin-1",
	})
	require.NoError(t, err)
	require.NotNil(t, amended.Grade)
	assert.Equal(t, models.GradeC, *amended.Grade)
	assert.Equal(t, 2, amended.Version)
	assert.Equal(t, seeded.LedgerSeq, amended.LedgerSeq, "amendment must not move the row")

	logs := ledger.editLogs[seeded.ID]
	require.Len(t, logs, 1)
	assert.Equal(t, "scoring error at session", logs[0].Reason)
	assert.Equal(t, "admin-1", logs[0].EditedBy)

	var before models.ResultSnapshot
	require.NoError(t, json.Unmarshal(logs[0].OldValues, &before))
	assert.Equal(t, intPtr(96), before.Score)
	assert.Equal(t, models.ResultPass, before.Result)

	assert.Equal(t, 2, invalidator.calls)
}

func TestAmendResultRoundTripRestoresState(t *testing.T) {
	svc, ledger, _ := newResultServiceForTest()
	seeded := seedResult(t, svc)
	failed := models.ResultFail
	passed := models.ResultPass

	_, err := svc.AmendResult(context.Background(), seeded.ID, AmendResultRequest{
		Score:  intPtr(60),
		Result: &failed,
		Reason: "first correction",
	})
	require.NoError(t, err)

	restored, err := svc.AmendResult(context.Background(), seeded.ID, AmendResultRequest{
		Score:  intPtr(96),
		Result: &passed,
		Reason: "revert to verified score",
	})
	require.NoError(t, err)

	assert.Equal(t, seeded.Snapshot(), restored.Snapshot())
	assert.Len(t, ledger.editLogs[seeded.ID], 2)
	assert.Len(t, ledger.rows, 1, "amendments never change the ledger row count")
}
