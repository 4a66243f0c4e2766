package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/seiwa-mfg/training-compliance-api/internal/models"
)

// ProgramRepository manages persistence for the training program catalog.
type ProgramRepository struct {
	db *sqlx.DB
}

// NewProgramRepository constructs a ProgramRepository.
func NewProgramRepository(db *sqlx.DB) *ProgramRepository {
	return &ProgramRepository{db: db}
}

const programColumns = "id, code, name, name_local, category, passing_score, grade_aa, grade_a, grade_b, validity_days, active, created_at, updated_at"

// List returns training programs matching the provided filters with total count.
func (r *ProgramRepository) List(ctx context.Context, filter models.ProgramFilter) ([]models.TrainingProgram, int, error) {
	base := "FROM training_programs"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)+1))
		args = append(args, filter.Category)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(code) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count programs: %w", err)
	}

	query := fmt.Sprintf("SELECT %s %s ORDER BY code ASC", programColumns, base)
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, filter.PageSize, (page-1)*filter.PageSize)
	}

	var programs []models.TrainingProgram
	if err := r.db.SelectContext(ctx, &programs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list programs: %w", err)
	}
	return programs, total, nil
}

// FindByCode returns a program by its unique code.
func (r *ProgramRepository) FindByCode(ctx context.Context, code string) (*models.TrainingProgram, error) {
	query := fmt.Sprintf("SELECT %s FROM training_programs WHERE code = $1 LIMIT 1", programColumns)
	var program models.TrainingProgram
	if err := r.db.GetContext(ctx, &program, query, code); err != nil {
		return nil, err
	}
	return &program, nil
}

// FindByID returns a program by identifier.
func (r *ProgramRepository) FindByID(ctx context.Context, id string) (*models.TrainingProgram, error) {
	query := fmt.Sprintf("SELECT %s FROM training_programs WHERE id = $1 LIMIT 1", programColumns)
	var program models.TrainingProgram
	if err := r.db.GetContext(ctx, &program, query, id); err != nil {
		return nil, err
	}
	return &program, nil
}

// Create inserts a new training program.
func (r *ProgramRepository) Create(ctx context.Context, program *models.TrainingProgram) error {
	if program.ID == "" {
		program.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	program.CreatedAt = now
	program.UpdatedAt = now
	const query = `INSERT INTO training_programs (id, code, name, name_local, category, passing_score, grade_aa, grade_a, grade_b, validity_days, active, created_at, updated_at)
        VALUES (:id, :code, :name, :name_local, :category, :passing_score, :grade_aa, :grade_a, :grade_b, :validity_days, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, program); err != nil {
		return fmt.Errorf("create program: %w", err)
	}
	return nil
}

// Update mutates catalog attributes and thresholds. Historical results keep
// the grade they were assigned at training time; threshold edits are never
// reapplied retroactively.
func (r *ProgramRepository) Update(ctx context.Context, program *models.TrainingProgram) error {
	program.UpdatedAt = time.Now().UTC()
	const query = `UPDATE training_programs SET name = :name, name_local = :name_local, category = :category,
        passing_score = :passing_score, grade_aa = :grade_aa, grade_a = :grade_a, grade_b = :grade_b,
        validity_days = :validity_days, active = :active, updated_at = :updated_at WHERE code = :code`
	res, err := r.db.NamedExecContext(ctx, query, program)
	if err != nil {
		return fmt.Errorf("update program: %w", err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return fmt.Errorf("update program %s: no rows", program.Code)
	}
	return nil
}
