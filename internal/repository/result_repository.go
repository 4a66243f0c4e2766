package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/seiwa-mfg/training-compliance-api/internal/models"
	appErrors "github.com/seiwa-mfg/training-compliance-api/pkg/errors"
)

// ResultRepository persists the append-only training result ledger and its
// edit log. There is deliberately no delete operation on either table.
type ResultRepository struct {
	db *sqlx.DB
}

// NewResultRepository constructs a ResultRepository.
func NewResultRepository(db *sqlx.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

const resultColumns = "id, employee_id, program_code, training_date, score, result, grade, evaluated_by, remarks, ledger_seq, version, created_at, updated_at"

// List returns ledger rows matching the filter in original insertion order.
// A zero PageSize returns the full matching slice, which is what the matrix
// builder consumes as its snapshot.
func (r *ResultRepository) List(ctx context.Context, filter models.ResultFilter) ([]models.TrainingResult, int, error) {
	base := "FROM training_results"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.EmployeeID != "" {
		conditions = append(conditions, fmt.Sprintf("employee_id = $%d", len(args)+1))
		args = append(args, filter.EmployeeID)
	}
	if filter.ProgramCode != "" {
		conditions = append(conditions, fmt.Sprintf("program_code = $%d", len(args)+1))
		args = append(args, filter.ProgramCode)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("training_date >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("training_date <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count results: %w", err)
	}

	query := fmt.Sprintf("SELECT %s %s ORDER BY ledger_seq ASC", resultColumns, base)
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, filter.PageSize, (page-1)*filter.PageSize)
	}

	var results []models.TrainingResult
	if err := r.db.SelectContext(ctx, &results, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list results: %w", err)
	}
	return results, total, nil
}

// FindByID returns a single ledger row.
func (r *ResultRepository) FindByID(ctx context.Context, id string) (*models.TrainingResult, error) {
	query := fmt.Sprintf("SELECT %s FROM training_results WHERE id = $1 LIMIT 1", resultColumns)
	var result models.TrainingResult
	if err := r.db.GetContext(ctx, &result, query, id); err != nil {
		return nil, err
	}
	return &result, nil
}

// InsertBatch appends a session's results to the ledger in one transaction;
// either every row lands or none does.
func (r *ResultRepository) InsertBatch(ctx context.Context, results []models.TrainingResult) ([]models.TrainingResult, error) {
	if len(results) == 0 {
		return results, nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	const query = `INSERT INTO training_results (id, employee_id, program_code, training_date, score, result, grade, evaluated_by, remarks, version, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        RETURNING ledger_seq`
	now := time.Now().UTC()
	for i := range results {
		if results[i].ID == "" {
			results[i].ID = uuid.NewString()
		}
		results[i].Version = 1
		results[i].CreatedAt = now
		results[i].UpdatedAt = now
		row := tx.QueryRowxContext(ctx, query,
			results[i].ID, results[i].EmployeeID, results[i].ProgramCode, results[i].TrainingDate,
			results[i].Score, results[i].Result, results[i].Grade, results[i].EvaluatedBy,
			results[i].Remarks, results[i].Version, results[i].CreatedAt, results[i].UpdatedAt,
		)
		if err := row.Scan(&results[i].LedgerSeq); err != nil {
			tx.Rollback() //nolint:errcheck
			return nil, fmt.Errorf("insert result %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit results: %w", err)
	}
	return results, nil
}

// AmendWithLog updates the amendable fields of a ledger row and appends the
// edit log entry in the same transaction. The version predicate serializes
// concurrent amendments of the same row; a stale version surfaces as a
// conflict rather than a lost update.
func (r *ResultRepository) AmendWithLog(ctx context.Context, result *models.TrainingResult, entry *models.ResultEditLog, expectedVersion int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	result.Version = expectedVersion + 1
	result.UpdatedAt = time.Now().UTC()
	const update = `UPDATE training_results SET score = $1, result = $2, grade = $3, remarks = $4, version = $5, updated_at = $6
        WHERE id = $7 AND version = $8`
	res, err := tx.ExecContext(ctx, update,
		result.Score, result.Result, result.Grade, result.Remarks,
		result.Version, result.UpdatedAt, result.ID, expectedVersion,
	)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("amend result: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("amend result: %w", err)
	}
	if rows == 0 {
		tx.Rollback() //nolint:errcheck
		var exists bool
		if err := r.db.GetContext(ctx, &exists, "SELECT EXISTS (SELECT 1 FROM training_results WHERE id = $1)", result.ID); err != nil {
			return fmt.Errorf("amend result: %w", err)
		}
		if !exists {
			return sql.ErrNoRows
		}
		return appErrors.Clone(appErrors.ErrConflict, "result was amended concurrently")
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.ResultID = result.ID
	entry.CreatedAt = result.UpdatedAt
	const insertLog = `INSERT INTO result_edit_logs (id, result_id, old_values, new_values, reason, edited_by, created_at)
        VALUES (:id, :result_id, :old_values, :new_values, :reason, :edited_by, :created_at)`
	if _, err := tx.NamedExecContext(ctx, insertLog, entry); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("append edit log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit amendment: %w", err)
	}
	return nil
}

// ListEditLogs returns the append-only edit trail for a result, oldest first.
func (r *ResultRepository) ListEditLogs(ctx context.Context, resultID string) ([]models.ResultEditLog, error) {
	const query = `SELECT id, result_id, old_values, new_values, reason, edited_by, created_at
        FROM result_edit_logs WHERE result_id = $1 ORDER BY created_at ASC`
	var entries []models.ResultEditLog
	if err := r.db.SelectContext(ctx, &entries, query, resultID); err != nil {
		return nil, fmt.Errorf("list edit logs: %w", err)
	}
	return entries, nil
}
