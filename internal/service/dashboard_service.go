package service

import (
	"context"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/seiwa-mfg/training-compliance-api/internal/dto"
	"github.com/seiwa-mfg/training-compliance-api/internal/models"
)

type matrixProvider interface {
	FullMatrix(ctx context.Context) (models.ComplianceMatrix, []models.Employee, []models.TrainingProgram, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	Enabled  bool
	CacheTTL time.Duration
}

// DashboardService composes the landing-page compliance summary from the
// canonical matrix.
type DashboardService struct {
	compliance matrixProvider
	cache      *CacheService
	logger     *zap.Logger
	config     DashboardServiceConfig
	now        func() time.Time
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(compliance matrixProvider, cache *CacheService, logger *zap.Logger, config DashboardServiceConfig) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		compliance: compliance,
		cache:      cache,
		logger:     logger,
		config:     config,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Enabled reports whether the dashboard surface is exposed.
func (s *DashboardService) Enabled() bool {
	return s != nil && s.config.Enabled
}

// Summary aggregates compliance state per department over active employees
// and active programs. A pair is counted compliant while its latest PASS has
// not expired; expiring pairs are still valid and count toward the rate.
func (s *DashboardService) Summary(ctx context.Context) (*dto.ComplianceSummary, error) {
	const cacheKey = "dashboard:summary"
	var cached dto.ComplianceSummary
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		cached.FromCache = true
		return &cached, nil
	}

	matrix, employees, programs, err := s.compliance.FullMatrix(ctx)
	if err != nil {
		return nil, err
	}

	activePrograms := filterPrograms(programs, "", false)
	byDepartment := make(map[string][]models.Employee)
	for _, employee := range employees {
		if !employee.Active {
			continue
		}
		byDepartment[employee.Department] = append(byDepartment[employee.Department], employee)
	}

	summary := &dto.ComplianceSummary{GeneratedAt: s.now()}
	departments := make([]string, 0, len(byDepartment))
	for department := range byDepartment {
		departments = append(departments, department)
	}
	sort.Strings(departments)

	var overallPairs int
	for _, department := range departments {
		deptEmployees := byDepartment[department]
		counts := dto.SummaryCounts{}
		for _, employee := range deptEmployees {
			for _, program := range activePrograms {
				cell, ok := matrix[models.MatrixKey{EmployeeID: employee.ID, ProgramCode: program.Code}]
				if !ok {
					counts.NotTaken++
					continue
				}
				switch cell.LastResult {
				case models.ResultPass:
					switch {
					case cell.IsExpired:
						counts.Expired++
					case cell.IsExpiring:
						counts.Expiring++
					default:
						counts.Compliant++
					}
				case models.ResultFail:
					counts.Retraining++
				default:
					counts.NotTaken++
				}
			}
		}
		pairs := len(deptEmployees) * len(activePrograms)
		overallPairs += pairs
		summary.Departments = append(summary.Departments, dto.DepartmentSummary{
			Department:     department,
			EmployeeCount:  len(deptEmployees),
			Counts:         counts,
			ComplianceRate: complianceRate(counts, pairs),
		})
		summary.Overall.Compliant += counts.Compliant
		summary.Overall.Retraining += counts.Retraining
		summary.Overall.Expiring += counts.Expiring
		summary.Overall.Expired += counts.Expired
		summary.Overall.NotTaken += counts.NotTaken
	}
	summary.ComplianceRate = complianceRate(summary.Overall, overallPairs)

	_ = s.cache.Set(ctx, cacheKey, summary, s.config.CacheTTL)
	return summary, nil
}

func complianceRate(counts dto.SummaryCounts, pairs int) float64 {
	if pairs == 0 {
		return 0
	}
	rate := float64(counts.Compliant+counts.Expiring) / float64(pairs)
	return math.Round(rate*10000) / 10000
}
