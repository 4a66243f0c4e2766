package service

import (
	"time"

	"github.com/seiwa-mfg/training-compliance-api/internal/models"
)

// ComputeExpiry derives the expiration status of a passing result. Dates are
// compared as calendar dates, never instants; a validity of 0 days means the
// training expires the same day it was passed. IsExpired and IsExpiring are
// mutually exclusive.
func ComputeExpiry(passDate time.Time, validityDays *int, now time.Time, warnWindowDays int) models.ExpiryStatus {
	if validityDays == nil {
		return models.ExpiryStatus{}
	}

	expiration := DateOnly(passDate).AddDate(0, 0, *validityDays)
	today := DateOnly(now)

	status := models.ExpiryStatus{ExpirationDate: &expiration}
	if expiration.Before(today) {
		status.IsExpired = true
		return status
	}
	if DaysBetween(today, expiration) <= warnWindowDays {
		status.IsExpiring = true
	}
	return status
}

// DateOnly truncates a timestamp to its calendar date in UTC.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts calendar days from a to b; negative when b precedes a.
func DaysBetween(a, b time.Time) int {
	return int(DateOnly(b).Sub(DateOnly(a)).Hours() / 24)
}
