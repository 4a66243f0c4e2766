package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/seiwa-mfg/training-compliance-api/internal/dto"
	"github.com/seiwa-mfg/training-compliance-api/internal/models"
	appErrors "github.com/seiwa-mfg/training-compliance-api/pkg/errors"
)

type complianceEmployeeLister interface {
	List(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, int, error)
}

type complianceProgramLister interface {
	List(ctx context.Context, filter models.ProgramFilter) ([]models.TrainingProgram, int, error)
}

type complianceResultLister interface {
	List(ctx context.Context, filter models.ResultFilter) ([]models.TrainingResult, int, error)
}

// ComplianceServiceConfig tunes matrix and worklist behaviour.
type ComplianceServiceConfig struct {
	WarnWindowDays           int
	IncludeExpiredInWorklist bool
	CacheTTL                 time.Duration
}

// MatrixRequest scopes the compliance matrix to a roster/catalog subset.
type MatrixRequest struct {
	Department      string
	Building        string
	Line            string
	Category        string
	IncludeInactive bool
}

// RetrainingRequest scopes the retraining worklist.
type RetrainingRequest struct {
	Department string
}

// ExpiringRequest scopes the expiry worklist. Nil fields fall back to the
// configured defaults.
type ExpiringRequest struct {
	Department     string
	HorizonDays    *int
	IncludeExpired *bool
}

// ComplianceService is the single canonical source of "current status" for
// every reporting surface. It fetches one consistent snapshot of roster,
// catalog and ledger, reduces it through the matrix builder, and projects
// the result into the requested view.
type ComplianceService struct {
	employees complianceEmployeeLister
	programs  complianceProgramLister
	results   complianceResultLister
	cache     *CacheService
	metrics   *MetricsService
	logger    *zap.Logger
	config    ComplianceServiceConfig
	now       func() time.Time
}

// NewComplianceService constructs a ComplianceService.
func NewComplianceService(employees complianceEmployeeLister, programs complianceProgramLister, results complianceResultLister, cache *CacheService, metrics *MetricsService, logger *zap.Logger, config ComplianceServiceConfig) *ComplianceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.WarnWindowDays <= 0 {
		config.WarnWindowDays = 30
	}
	return &ComplianceService{
		employees: employees,
		programs:  programs,
		results:   results,
		cache:     cache,
		metrics:   metrics,
		logger:    logger,
		config:    config,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// snapshot fetches roster, catalog and ledger concurrently and joins them so
// the matrix builder always sees inputs belonging to the same logical "now".
func (s *ComplianceService) snapshot(ctx context.Context) ([]models.Employee, []models.TrainingProgram, []models.TrainingResult, error) {
	var (
		employees []models.Employee
		programs  []models.TrainingProgram
		results   []models.TrainingResult
	)

	var wg sync.WaitGroup
	errs := make(chan error, 3)
	wg.Add(3)
	go func() {
		defer wg.Done()
		var err error
		employees, _, err = s.employees.List(ctx, models.EmployeeFilter{})
		errs <- err
	}()
	go func() {
		defer wg.Done()
		var err error
		programs, _, err = s.programs.List(ctx, models.ProgramFilter{})
		errs <- err
	}()
	go func() {
		defer wg.Done()
		var err error
		results, _, err = s.results.List(ctx, models.ResultFilter{})
		errs <- err
	}()
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load compliance snapshot")
		}
	}
	return employees, programs, results, nil
}

// FullMatrix builds the matrix over the complete roster and catalog axes.
// Dangling ledger references surface here as consistency errors.
func (s *ComplianceService) FullMatrix(ctx context.Context) (models.ComplianceMatrix, []models.Employee, []models.TrainingProgram, error) {
	employees, programs, results, err := s.snapshot(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	matrix, err := BuildMatrix(employees, programs, results, s.now(), s.config.WarnWindowDays)
	if err != nil {
		return nil, nil, nil, err
	}
	return matrix, employees, programs, nil
}

// Matrix returns the compliance matrix projected onto the requested roster
// and catalog subset.
func (s *ComplianceService) Matrix(ctx context.Context, req MatrixRequest) (*dto.MatrixResponse, error) {
	cacheKey := fmt.Sprintf("compliance:matrix:%s:%s:%s:%s:%t", req.Department, req.Building, req.Line, req.Category, req.IncludeInactive)
	var cached dto.MatrixResponse
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		cached.FromCache = true
		return &cached, nil
	}

	matrix, employees, programs, err := s.FullMatrix(ctx)
	if err != nil {
		return nil, err
	}

	axisEmployees := filterEmployees(employees, req.Department, req.Building, req.Line, req.IncludeInactive)
	axisPrograms := filterPrograms(programs, req.Category, req.IncludeInactive)
	projected := projectMatrix(matrix, axisEmployees, axisPrograms)

	cells := make([]models.ComplianceCell, 0, len(projected))
	for _, cell := range projected {
		cells = append(cells, cell)
	}
	employeeNo := make(map[string]string, len(axisEmployees))
	for _, employee := range axisEmployees {
		employeeNo[employee.ID] = employee.EmployeeNo
	}
	sort.Slice(cells, func(i, j int) bool {
		if employeeNo[cells[i].EmployeeID] != employeeNo[cells[j].EmployeeID] {
			return employeeNo[cells[i].EmployeeID] < employeeNo[cells[j].EmployeeID]
		}
		return cells[i].ProgramCode < cells[j].ProgramCode
	})

	resp := &dto.MatrixResponse{
		GeneratedAt:    s.now(),
		WarnWindowDays: s.config.WarnWindowDays,
		EmployeeCount:  len(axisEmployees),
		ProgramCount:   len(axisPrograms),
		Cells:          cells,
	}
	_ = s.cache.Set(ctx, cacheKey, resp, s.config.CacheTTL)
	return resp, nil
}

// Retraining returns the worklist of employees whose latest attempt at an
// active program was a FAIL.
func (s *ComplianceService) Retraining(ctx context.Context, req RetrainingRequest) (*dto.RetrainingResponse, error) {
	cacheKey := fmt.Sprintf("compliance:retraining:%s", req.Department)
	var cached dto.RetrainingResponse
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		cached.FromCache = true
		return &cached, nil
	}

	matrix, employees, programs, err := s.FullMatrix(ctx)
	if err != nil {
		return nil, err
	}
	axisEmployees := filterEmployees(employees, req.Department, "", "", false)
	axisPrograms := filterPrograms(programs, "", false)
	projected := projectMatrix(matrix, axisEmployees, axisPrograms)

	targets := RetrainingTargets(projected, axisEmployees, axisPrograms)
	sort.Slice(targets, func(i, j int) bool {
		if targets[i].EmployeeNo != targets[j].EmployeeNo {
			return targets[i].EmployeeNo < targets[j].EmployeeNo
		}
		return targets[i].ProgramCode < targets[j].ProgramCode
	})

	if s.metrics != nil && req.Department == "" {
		s.metrics.SetRetrainingBacklog(len(targets))
	}

	resp := &dto.RetrainingResponse{GeneratedAt: s.now(), Targets: targets}
	_ = s.cache.Set(ctx, cacheKey, resp, s.config.CacheTTL)
	return resp, nil
}

// Expiring returns the worklist of passed trainings expiring within the
// horizon, optionally including already-expired rows per the configured
// policy.
func (s *ComplianceService) Expiring(ctx context.Context, req ExpiringRequest) (*dto.ExpiringResponse, error) {
	horizon := s.config.WarnWindowDays
	if req.HorizonDays != nil && *req.HorizonDays >= 0 {
		horizon = *req.HorizonDays
	}
	includeExpired := s.config.IncludeExpiredInWorklist
	if req.IncludeExpired != nil {
		includeExpired = *req.IncludeExpired
	}

	cacheKey := fmt.Sprintf("compliance:expiring:%s:%d:%t", req.Department, horizon, includeExpired)
	var cached dto.ExpiringResponse
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		cached.FromCache = true
		return &cached, nil
	}

	matrix, employees, programs, err := s.FullMatrix(ctx)
	if err != nil {
		return nil, err
	}
	axisEmployees := filterEmployees(employees, req.Department, "", "", false)
	axisPrograms := filterPrograms(programs, "", false)
	projected := projectMatrix(matrix, axisEmployees, axisPrograms)

	trainings := ExpiringTrainings(projected, axisEmployees, axisPrograms, s.now(), horizon, includeExpired)
	sort.Slice(trainings, func(i, j int) bool {
		if trainings[i].DaysUntilExpiry != trainings[j].DaysUntilExpiry {
			return trainings[i].DaysUntilExpiry < trainings[j].DaysUntilExpiry
		}
		return trainings[i].EmployeeNo < trainings[j].EmployeeNo
	})

	if s.metrics != nil && req.Department == "" {
		s.metrics.SetExpiringTrainings(len(trainings))
	}

	resp := &dto.ExpiringResponse{
		GeneratedAt:     s.now(),
		HorizonDays:     horizon,
		IncludesExpired: includeExpired,
		Trainings:       trainings,
	}
	_ = s.cache.Set(ctx, cacheKey, resp, s.config.CacheTTL)
	return resp, nil
}

// projectMatrix narrows a full-axis matrix to the requested employee and
// program subset. Scoping is a projection, not a consistency check; dangling
// references were already surfaced when the full matrix was built.
func projectMatrix(matrix models.ComplianceMatrix, employees []models.Employee, programs []models.TrainingProgram) models.ComplianceMatrix {
	employeeSet := make(map[string]struct{}, len(employees))
	for _, employee := range employees {
		employeeSet[employee.ID] = struct{}{}
	}
	programSet := make(map[string]struct{}, len(programs))
	for _, program := range programs {
		programSet[program.Code] = struct{}{}
	}

	projected := make(models.ComplianceMatrix)
	for key, cell := range matrix {
		if _, ok := employeeSet[key.EmployeeID]; !ok {
			continue
		}
		if _, ok := programSet[key.ProgramCode]; !ok {
			continue
		}
		projected[key] = cell
	}
	return projected
}

func filterEmployees(employees []models.Employee, department, building, line string, includeInactive bool) []models.Employee {
	filtered := make([]models.Employee, 0, len(employees))
	for _, employee := range employees {
		if !includeInactive && !employee.Active {
			continue
		}
		if department != "" && !strings.EqualFold(employee.Department, department) {
			continue
		}
		if building != "" && !strings.EqualFold(employee.Building, building) {
			continue
		}
		if line != "" && !strings.EqualFold(employee.Line, line) {
			continue
		}
		filtered = append(filtered, employee)
	}
	return filtered
}

func filterPrograms(programs []models.TrainingProgram, category string, includeInactive bool) []models.TrainingProgram {
	filtered := make([]models.TrainingProgram, 0, len(programs))
	for _, program := range programs {
		if !includeInactive && !program.Active {
			continue
		}
		if category != "" && !strings.EqualFold(program.Category, category) {
			continue
		}
		filtered = append(filtered, program)
	}
	return filtered
}
