package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seiwa-mfg/training-compliance-api/internal/models"
	appErrors "github.com/seiwa-mfg/training-compliance-api/pkg/errors"
)

func newResultRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func intPtr(v int) *int { return &v }

func resultRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "employee_id", "program_code", "training_date", "score", "result", "grade", "evaluated_by", "remarks", "ledger_seq", "version", "created_at", "updated_at"})
}

func TestResultRepositoryListFiltersAndOrder(t *testing.T) {
	db, mock, cleanup := newResultRepoMock(t)
	defer cleanup()

	repo := NewResultRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM training_results")).
		WithArgs("emp-1", "QIP-001").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	rows := resultRows().
		AddRow("res-1", "emp-1", "QIP-001", now, 96, "PASS", "AA", "trainer-1", "", 1, 1, now, now).
		AddRow("res-2", "emp-1", "QIP-001", now, 60, "FAIL", "C", "trainer-1", "", 2, 1, now, now)
	mock.ExpectQuery("SELECT id, employee_id, program_code, .+ FROM training_results WHERE .+ ORDER BY ledger_seq ASC").
		WithArgs("emp-1", "QIP-001").
		WillReturnRows(rows)

	results, total, err := repo.List(context.Background(), models.ResultFilter{EmployeeID: "emp-1", ProgramCode: "QIP-001"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, results, 2)
	assert.Equal(t, int64(1), results[0].LedgerSeq)
	assert.Equal(t, int64(2), results[1].LedgerSeq)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryListPaginated(t *testing.T) {
	db, mock, cleanup := newResultRepoMock(t)
	defer cleanup()

	repo := NewResultRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM training_results")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(25))
	mock.ExpectQuery("SELECT id, employee_id, .+ ORDER BY ledger_seq ASC LIMIT").
		WithArgs(10, 10).
		WillReturnRows(resultRows().AddRow("res-11", "emp-1", "QIP-001", now, 80, "PASS", "B", "trainer-1", "", 11, 1, now, now))

	results, total, err := repo.List(context.Background(), models.ResultFilter{Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 25, total)
	assert.Len(t, results, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryInsertBatchTransactional(t *testing.T) {
	db, mock, cleanup := newResultRepoMock(t)
	defer cleanup()

	repo := NewResultRepository(db)
	trainingDate := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO training_results")).
		WillReturnRows(sqlmock.NewRows([]string{"ledger_seq"}).AddRow(7))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO training_results")).
		WillReturnRows(sqlmock.NewRows([]string{"ledger_seq"}).AddRow(8))
	mock.ExpectCommit()

	batch := []models.TrainingResult{
		{EmployeeID: "emp-1", ProgramCode: "QIP-001", TrainingDate: trainingDate, Score: intPtr(96), Result: models.ResultPass, EvaluatedBy: "trainer-1"},
		{EmployeeID: "emp-2", ProgramCode: "QIP-001", TrainingDate: trainingDate, Score: intPtr(72), Result: models.ResultPass, EvaluatedBy: "trainer-1"},
	}
	inserted, err := repo.InsertBatch(context.Background(), batch)
	require.NoError(t, err)
	require.Len(t, inserted, 2)
	assert.Equal(t, int64(7), inserted[0].LedgerSeq)
	assert.Equal(t, int64(8), inserted[1].LedgerSeq)
	assert.Equal(t, 1, inserted[0].Version)
	assert.NotEmpty(t, inserted[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryInsertBatchRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newResultRepoMock(t)
	defer cleanup()

	repo := NewResultRepository(db)
	trainingDate := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO training_results")).
		WillReturnRows(sqlmock.NewRows([]string{"ledger_seq"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO training_results")).
		WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	batch := []models.TrainingResult{
		{EmployeeID: "emp-1", ProgramCode: "QIP-001", TrainingDate: trainingDate, Result: models.ResultPass},
		{EmployeeID: "ghost", ProgramCode: "QIP-001", TrainingDate: trainingDate, Result: models.ResultPass},
	}
	_, err := repo.InsertBatch(context.Background(), batch)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryAmendWithLog(t *testing.T) {
	db, mock, cleanup := newResultRepoMock(t)
	defer cleanup()

	repo := NewResultRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE training_results SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO result_edit_logs")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	result := &models.TrainingResult{ID: "res-1", Score: intPtr(60), Result: models.ResultFail, Remarks: "corrected"}
	entry := &models.ResultEditLog{OldValues: []byte(`{}`), NewValues: []byte(`{}`), Reason: "scoring error", EditedBy: "admin-1"}

	require.NoError(t, repo.AmendWithLog(context.Background(), result, entry, 1))
	assert.Equal(t, 2, result.Version)
	assert.Equal(t, "res-1", entry.ResultID)
	assert.NotEmpty(t, entry.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryAmendVersionConflict(t *testing.T) {
	db, mock, cleanup := newResultRepoMock(t)
	defer cleanup()

	repo := NewResultRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE training_results SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("res-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	result := &models.TrainingResult{ID: "res-1", Score: intPtr(60), Result: models.ResultFail}
	err := repo.AmendWithLog(context.Background(), result, &models.ResultEditLog{Reason: "late fix"}, 1)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryAmendMissingRow(t *testing.T) {
	db, mock, cleanup := newResultRepoMock(t)
	defer cleanup()

	repo := NewResultRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE training_results SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("gone").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	result := &models.TrainingResult{ID: "gone", Result: models.ResultFail}
	err := repo.AmendWithLog(context.Background(), result, &models.ResultEditLog{Reason: "late fix"}, 1)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryListEditLogs(t *testing.T) {
	db, mock, cleanup := newResultRepoMock(t)
	defer cleanup()

	repo := NewResultRepository(db)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "result_id", "old_values", "new_values", "reason", "edited_by", "created_at"}).
		AddRow("log-1", "res-1", []byte(`{"score":96}`), []byte(`{"score":60}`), "scoring error", "admin-1", now)
	mock.ExpectQuery("SELECT id, result_id, .+ FROM result_edit_logs WHERE result_id = .+ ORDER BY created_at ASC").
		WithArgs("res-1").
		WillReturnRows(rows)

	logs, err := repo.ListEditLogs(context.Background(), "res-1")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "scoring error", logs[0].Reason)
	require.NoError(t, mock.ExpectationsWereMet())
}
