package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seiwa-mfg/training-compliance-api/internal/models"
)

func newEmployeeRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func employeeRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "employee_no", "full_name", "department", "position", "building", "line", "active", "created_at", "updated_at"})
}

func TestEmployeeRepositoryListWithFilters(t *testing.T) {
	db, mock, cleanup := newEmployeeRepoMock(t)
	defer cleanup()

	repo := NewEmployeeRepository(db)
	now := time.Now().UTC()
	active := true

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM employees e")).
		WithArgs("Assembly", true, "%tanaka%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT e.id, e.employee_no, .+ FROM employees e WHERE .+ ORDER BY e.employee_no ASC LIMIT").
		WithArgs("Assembly", true, "%tanaka%", 20, 0).
		WillReturnRows(employeeRows().AddRow("emp-1", "EMP-001", "Tanaka Hiro", "Assembly", "Operator", "B1", "L3", true, now, now))

	employees, total, err := repo.List(context.Background(), models.EmployeeFilter{
		Department: "Assembly",
		Active:     &active,
		Search:     "Tanaka",
		Page:       1,
		PageSize:   20,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, employees, 1)
	assert.Equal(t, "EMP-001", employees[0].EmployeeNo)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEmployeeRepositoryListRejectsUnknownSortColumn(t *testing.T) {
	db, mock, cleanup := newEmployeeRepoMock(t)
	defer cleanup()

	repo := NewEmployeeRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM employees e")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	// Unknown sort columns fall back to employee_no instead of reaching SQL.
	mock.ExpectQuery("ORDER BY e.employee_no ASC").
		WillReturnRows(employeeRows())

	_, _, err := repo.List(context.Background(), models.EmployeeFilter{SortBy: "active; DROP TABLE employees"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEmployeeRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newEmployeeRepoMock(t)
	defer cleanup()

	repo := NewEmployeeRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO employees")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	employee := &models.Employee{EmployeeNo: "EMP-010", FullName: "Mori Aya", Department: "Quality", Active: true}
	require.NoError(t, repo.Create(context.Background(), employee))
	assert.NotEmpty(t, employee.ID)
	assert.False(t, employee.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEmployeeRepositoryDeactivate(t *testing.T) {
	db, mock, cleanup := newEmployeeRepoMock(t)
	defer cleanup()

	repo := NewEmployeeRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE employees SET active = FALSE")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Deactivate(context.Background(), "emp-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEmployeeRepositoryDeactivateMissing(t *testing.T) {
	db, mock, cleanup := newEmployeeRepoMock(t)
	defer cleanup()

	repo := NewEmployeeRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE employees SET active = FALSE")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Deactivate(context.Background(), "gone")
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
