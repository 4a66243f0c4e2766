package service

import (
	"github.com/seiwa-mfg/training-compliance-api/internal/models"
)

// ClassifyGrade buckets a numeric score using the program's thresholds.
// A nil score yields no grade. Out-of-range scores are bucketed with the same
// comparisons; the classifier never clamps.
func ClassifyGrade(score *int, t models.GradeThresholds) *models.Grade {
	if score == nil {
		return nil
	}

	var grade models.Grade
	switch {
	case *score >= t.AA:
		grade = models.GradeAA
	case *score >= t.A:
		grade = models.GradeA
	case *score >= t.B:
		grade = models.GradeB
	default:
		grade = models.GradeC
	}
	return &grade
}

// deriveGrade applies the ingestion rule: a grade exists only when a score was
// recorded and the outcome is PASS or FAIL.
func deriveGrade(score *int, result models.ResultOutcome, t models.GradeThresholds) *models.Grade {
	if score == nil || result == models.ResultAbsent {
		return nil
	}
	return ClassifyGrade(score, t)
}
