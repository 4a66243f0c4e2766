package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/seiwa-mfg/training-compliance-api/internal/models"
	appErrors "github.com/seiwa-mfg/training-compliance-api/pkg/errors"
)

type programRepo interface {
	List(ctx context.Context, filter models.ProgramFilter) ([]models.TrainingProgram, int, error)
	FindByCode(ctx context.Context, code string) (*models.TrainingProgram, error)
	Create(ctx context.Context, program *models.TrainingProgram) error
	Update(ctx context.Context, program *models.TrainingProgram) error
}

// CreateProgramRequest registers a training program in the catalog.
type CreateProgramRequest struct {
	Code         string `json:"code" validate:"required"`
	Name         string `json:"name" validate:"required"`
	NameLocal    string `json:"name_local"`
	Category     string `json:"category" validate:"required"`
	PassingScore int    `json:"passing_score" validate:"min=0,max=100"`
	GradeAA      int    `json:"grade_aa" validate:"min=0"`
	GradeA       int    `json:"grade_a" validate:"min=0"`
	GradeB       int    `json:"grade_b" validate:"min=0"`
	ValidityDays *int   `json:"validity_days"`
}

// UpdateProgramRequest mutates catalog attributes of a program. Threshold
// edits apply to future classifications only.
type UpdateProgramRequest struct {
	Name         string `json:"name" validate:"required"`
	NameLocal    string `json:"name_local"`
	Category     string `json:"category" validate:"required"`
	PassingScore int    `json:"passing_score" validate:"min=0,max=100"`
	GradeAA      int    `json:"grade_aa" validate:"min=0"`
	GradeA       int    `json:"grade_a" validate:"min=0"`
	GradeB       int    `json:"grade_b" validate:"min=0"`
	ValidityDays *int   `json:"validity_days"`
	Active       *bool  `json:"active"`
}

// ProgramService manages the training program catalog.
type ProgramService struct {
	repo      programRepo
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProgramService constructs a ProgramService.
func NewProgramService(repo programRepo, validate *validator.Validate, logger *zap.Logger) *ProgramService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgramService{repo: repo, validator: validate, logger: logger}
}

// List returns training programs with pagination metadata.
func (s *ProgramService) List(ctx context.Context, filter models.ProgramFilter) ([]models.TrainingProgram, *models.Pagination, error) {
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	programs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list programs")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return programs, pagination, nil
}

// Get returns a program by code.
func (s *ProgramService) Get(ctx context.Context, code string) (*models.TrainingProgram, error) {
	program, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
	}
	return program, nil
}

// Create registers a program after checking threshold ordering.
func (s *ProgramService) Create(ctx context.Context, req CreateProgramRequest) (*models.TrainingProgram, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid program payload")
	}
	thresholds := models.GradeThresholds{AA: req.GradeAA, A: req.GradeA, B: req.GradeB}
	if err := validateThresholds(thresholds, req.ValidityDays); err != nil {
		return nil, err
	}
	program := &models.TrainingProgram{
		Code:            req.Code,
		Name:            req.Name,
		NameLocal:       req.NameLocal,
		Category:        req.Category,
		PassingScore:    req.PassingScore,
		GradeThresholds: thresholds,
		ValidityDays:    req.ValidityDays,
		Active:          true,
	}
	if err := s.repo.Create(ctx, program); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create program")
	}
	return program, nil
}

// Update mutates a program. Existing grades are never reclassified; the new
// thresholds take effect for subsequent ingestions and amendments.
func (s *ProgramService) Update(ctx context.Context, code string, req UpdateProgramRequest) (*models.TrainingProgram, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid program payload")
	}
	thresholds := models.GradeThresholds{AA: req.GradeAA, A: req.GradeA, B: req.GradeB}
	if err := validateThresholds(thresholds, req.ValidityDays); err != nil {
		return nil, err
	}
	program, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	program.Name = req.Name
	program.NameLocal = req.NameLocal
	program.Category = req.Category
	program.PassingScore = req.PassingScore
	program.GradeThresholds = thresholds
	program.ValidityDays = req.ValidityDays
	if req.Active != nil {
		program.Active = *req.Active
	}
	if err := s.repo.Update(ctx, program); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update program")
	}
	return program, nil
}

func validateThresholds(t models.GradeThresholds, validityDays *int) error {
	if t.AA < t.A || t.A < t.B {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("grade thresholds must descend: aa=%d a=%d b=%d", t.AA, t.A, t.B))
	}
	if validityDays != nil && *validityDays < 0 {
		return appErrors.Clone(appErrors.ErrValidation, "validity period cannot be negative")
	}
	return nil
}
