package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestComputeExpiryNeverExpires(t *testing.T) {
	status := ComputeExpiry(date(2024, 1, 10), nil, date(2030, 1, 1), 30)
	assert.Nil(t, status.ExpirationDate)
	assert.False(t, status.IsExpired)
	assert.False(t, status.IsExpiring)
}

func TestComputeExpiryZeroValidity(t *testing.T) {
	passDate := date(2024, 3, 15)

	// Same day: expiration == passDate, inside any non-negative warn window.
	status := ComputeExpiry(passDate, intPtr(0), passDate, 30)
	require.NotNil(t, status.ExpirationDate)
	assert.Equal(t, passDate, *status.ExpirationDate)
	assert.False(t, status.IsExpired)
	assert.True(t, status.IsExpiring)

	// The day after it is expired.
	status = ComputeExpiry(passDate, intPtr(0), passDate.AddDate(0, 0, 1), 30)
	assert.True(t, status.IsExpired)
	assert.False(t, status.IsExpiring)
}

func TestComputeExpiryWarnBoundaryInclusive(t *testing.T) {
	passDate := date(2024, 1, 1)
	validity := intPtr(100)
	expiration := passDate.AddDate(0, 0, 100)

	// Exactly warnWindowDays out still counts as expiring.
	now := expiration.AddDate(0, 0, -30)
	status := ComputeExpiry(passDate, validity, now, 30)
	assert.False(t, status.IsExpired)
	assert.True(t, status.IsExpiring)

	// One day beyond the window is neither expiring nor expired.
	now = expiration.AddDate(0, 0, -31)
	status = ComputeExpiry(passDate, validity, now, 30)
	assert.False(t, status.IsExpired)
	assert.False(t, status.IsExpiring)
}

func TestComputeExpiryExpiredStrictlyBeforeToday(t *testing.T) {
	passDate := date(2024, 1, 1)
	validity := intPtr(10)
	expiration := passDate.AddDate(0, 0, 10)

	// On the expiration date itself the training is still valid.
	status := ComputeExpiry(passDate, validity, expiration, 30)
	assert.False(t, status.IsExpired)
	assert.True(t, status.IsExpiring)

	status = ComputeExpiry(passDate, validity, expiration.AddDate(0, 0, 1), 30)
	assert.True(t, status.IsExpired)
	assert.False(t, status.IsExpiring)
}

func TestComputeExpiryIgnoresTimeOfDay(t *testing.T) {
	passDate := time.Date(2024, 1, 10, 23, 59, 0, 0, time.UTC)
	now := time.Date(2024, 1, 10, 0, 1, 0, 0, time.UTC)
	status := ComputeExpiry(passDate, intPtr(0), now, 0)
	assert.False(t, status.IsExpired)
	assert.True(t, status.IsExpiring)
}

func TestComputeExpiryAnnualQualification(t *testing.T) {
	// 365-day validity passed on 2024-01-10, checked on 2024-12-20.
	passDate := date(2024, 1, 10)
	now := date(2024, 12, 20)

	status := ComputeExpiry(passDate, intPtr(365), now, 30)
	require.NotNil(t, status.ExpirationDate)
	assert.Equal(t, passDate.AddDate(0, 0, 365), *status.ExpirationDate)
	assert.False(t, status.IsExpired)
	assert.True(t, status.IsExpiring)
	assert.LessOrEqual(t, DaysBetween(now, *status.ExpirationDate), 30)
	assert.Positive(t, DaysBetween(now, *status.ExpirationDate))
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 21, DaysBetween(date(2024, 12, 20), date(2025, 1, 10)))
	assert.Equal(t, -21, DaysBetween(date(2025, 1, 10), date(2024, 12, 20)))
	assert.Equal(t, 0, DaysBetween(date(2024, 6, 1), date(2024, 6, 1)))
}

func TestDateOnly(t *testing.T) {
	ts := time.Date(2024, 7, 4, 18, 30, 12, 999, time.FixedZone("JST", 9*3600))
	truncated := DateOnly(ts)
	assert.Equal(t, time.UTC, truncated.Location())
	assert.Equal(t, 0, truncated.Hour())
	assert.Equal(t, 4, truncated.Day())
}
