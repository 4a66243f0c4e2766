package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/seiwa-mfg/training-compliance-api/internal/models"
	appErrors "github.com/seiwa-mfg/training-compliance-api/pkg/errors"
)

type resultLedger interface {
	List(ctx context.Context, filter models.ResultFilter) ([]models.TrainingResult, int, error)
	FindByID(ctx context.Context, id string) (*models.TrainingResult, error)
	InsertBatch(ctx context.Context, results []models.TrainingResult) ([]models.TrainingResult, error)
	AmendWithLog(ctx context.Context, result *models.TrainingResult, entry *models.ResultEditLog, expectedVersion int) error
	ListEditLogs(ctx context.Context, resultID string) ([]models.ResultEditLog, error)
}

type ledgerEmployeeReader interface {
	FindByID(ctx context.Context, id string) (*models.Employee, error)
}

type ledgerProgramReader interface {
	FindByCode(ctx context.Context, code string) (*models.TrainingProgram, error)
}

type complianceInvalidator interface {
	InvalidateCompliance(ctx context.Context)
}

// RecordResultItem is one result within a training session batch.
type RecordResultItem struct {
	EmployeeID   string               `json:"employee_id" validate:"required"`
	ProgramCode  string               `json:"program_code" validate:"required"`
	TrainingDate string               `json:"training_date" validate:"required,datetime=2006-01-02"`
	Score        *int                 `json:"score"`
	Result       models.ResultOutcome `json:"result" validate:"required"`
	Remarks      string               `json:"remarks"`
}

// RecordResultsRequest records a batch of results for a single session.
type RecordResultsRequest struct {
	EvaluatedBy string             `json:"evaluated_by" validate:"required"`
	Items       []RecordResultItem `json:"items" validate:"required,min=1,dive"`
}

// AmendResultRequest patches the amendable fields of a ledger row. Identity
// fields are present only so that attempts to change them can be rejected
// explicitly instead of silently ignored.
type AmendResultRequest struct {
	Score   *int                  `json:"score"`
	Result  *models.ResultOutcome `json:"result"`
	Remarks *string               `json:"remarks"`

	EmployeeID   *string `json:"employee_id"`
	ProgramCode  *string `json:"program_code"`
	TrainingDate *string `json:"training_date"`

	Reason   string `json:"reason"`
	EditedBy string `json:"-"`
}

// ResultService owns the append-only result ledger: batch ingestion and
// amend-with-audit. Nothing here deletes.
type ResultService struct {
	results   resultLedger
	employees ledgerEmployeeReader
	programs  ledgerProgramReader
	cache     complianceInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewResultService constructs a ResultService.
func NewResultService(results resultLedger, employees ledgerEmployeeReader, programs ledgerProgramReader, cache complianceInvalidator, validate *validator.Validate, logger *zap.Logger) *ResultService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultService{results: results, employees: employees, programs: programs, cache: cache, validator: validate, logger: logger}
}

// List returns ledger rows for reporting surfaces.
func (s *ResultService) List(ctx context.Context, filter models.ResultFilter) ([]models.TrainingResult, int, error) {
	results, total, err := s.results.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list results")
	}
	return results, total, nil
}

// Get returns a single ledger row.
func (s *ResultService) Get(ctx context.Context, id string) (*models.TrainingResult, error) {
	result, err := s.results.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "result not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load result")
	}
	return result, nil
}

// EditTrail returns the append-only edit log for a result.
func (s *ResultService) EditTrail(ctx context.Context, resultID string) ([]models.ResultEditLog, error) {
	if _, err := s.Get(ctx, resultID); err != nil {
		return nil, err
	}
	entries, err := s.results.ListEditLogs(ctx, resultID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load edit trail")
	}
	return entries, nil
}

// RecordResults validates and appends a session batch to the ledger. The
// batch is all-or-nothing: the first invalid item blocks the entire write and
// names the offending record.
func (s *ResultService) RecordResults(ctx context.Context, req RecordResultsRequest) ([]models.TrainingResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid results payload")
	}

	results := make([]models.TrainingResult, 0, len(req.Items))
	for i, item := range req.Items {
		if !item.Result.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("item %d: unknown result %q", i, item.Result))
		}
		if err := validateScore(item.Score, item.Result); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("item %d: %s", i, err.Error()))
		}
		if _, err := s.employees.FindByID(ctx, item.EmployeeID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("item %d: employee %s not found", i, item.EmployeeID))
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load employee")
		}
		program, err := s.programs.FindByCode(ctx, item.ProgramCode)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("item %d: program %s not found", i, item.ProgramCode))
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
		}
		trainingDate, err := time.ParseInLocation("2006-01-02", item.TrainingDate, time.UTC)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("item %d: malformed training date", i))
		}

		results = append(results, models.TrainingResult{
			EmployeeID:   item.EmployeeID,
			ProgramCode:  item.ProgramCode,
			TrainingDate: trainingDate,
			Score:        item.Score,
			Result:       item.Result,
			Grade:        deriveGrade(item.Score, item.Result, program.GradeThresholds),
			EvaluatedBy:  req.EvaluatedBy,
			Remarks:      item.Remarks,
		})
	}

	inserted, err := s.results.InsertBatch(ctx, results)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record results")
	}
	if s.cache != nil {
		s.cache.InvalidateCompliance(ctx)
	}
	s.logger.Info("results recorded", zap.Int("count", len(inserted)), zap.String("evaluated_by", req.EvaluatedBy))
	return inserted, nil
}

// AmendResult updates score, result or remarks of a ledger row. Every
// amendment requires a human-readable reason and appends an edit log entry;
// the row itself never moves in the ledger. The grade is recomputed with the
// program's current thresholds.
func (s *ResultService) AmendResult(ctx context.Context, resultID string, req AmendResultRequest) (*models.TrainingResult, error) {
	if strings.TrimSpace(req.Reason) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "amendment reason is required")
	}
	if req.EmployeeID != nil || req.ProgramCode != nil || req.TrainingDate != nil {
		return nil, appErrors.Clone(appErrors.ErrImmutableField, "employee, program and training date cannot be amended")
	}
	if req.Result != nil && !req.Result.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown result %q", *req.Result))
	}

	result, err := s.results.FindByID(ctx, resultID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "result not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load result")
	}

	before := result.Snapshot()
	amended := *result
	if req.Score != nil {
		amended.Score = req.Score
	}
	if req.Result != nil {
		amended.Result = *req.Result
	}
	if req.Remarks != nil {
		amended.Remarks = *req.Remarks
	}
	if err := validateScore(amended.Score, amended.Result); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	program, err := s.programs.FindByCode(ctx, amended.ProgramCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConsistency, fmt.Sprintf("result references unknown program %s", amended.ProgramCode))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
	}
	amended.Grade = deriveGrade(amended.Score, amended.Result, program.GradeThresholds)

	oldValues, err := json.Marshal(before)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to snapshot result")
	}
	newValues, err := json.Marshal(amended.Snapshot())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to snapshot result")
	}
	entry := &models.ResultEditLog{
		ResultID:  resultID,
		OldValues: oldValues,
		NewValues: newValues,
		Reason:    strings.TrimSpace(req.Reason),
		EditedBy:  req.EditedBy,
	}

	if err := s.results.AmendWithLog(ctx, &amended, entry, result.Version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "result not found")
		}
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to amend result")
	}
	if s.cache != nil {
		s.cache.InvalidateCompliance(ctx)
	}
	s.logger.Info("result amended",
		zap.String("result_id", resultID),
		zap.String("edited_by", req.EditedBy),
		zap.String("reason", entry.Reason),
	)
	return &amended, nil
}

// validateScore enforces the ingestion contract: ABSENT rows carry no score,
// scored rows stay within [0, 100].
func validateScore(score *int, result models.ResultOutcome) error {
	if result == models.ResultAbsent {
		if score != nil {
			return fmt.Errorf("absent result cannot carry a score")
		}
		return nil
	}
	if score == nil {
		return nil
	}
	if *score < 0 || *score > 100 {
		return fmt.Errorf("score %d out of range [0, 100]", *score)
	}
	return nil
}
