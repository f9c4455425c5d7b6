package timeparse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseAgoMinutes(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	got, err := ParseAgo("5m ago", now)
	require.NoError(t, err)
	require.Equal(t, now.Add(-5*time.Minute), got)
}

func TestParseAgoHoursAndMinutesCombined(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	got, err := ParseAgo("1h 30m ago", now)
	require.NoError(t, err)
	require.Equal(t, now.Add(-90*time.Minute), got)
}

func TestParseAgoWithoutAgoSuffix(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	got, err := ParseAgo("3m", now)
	require.NoError(t, err)
	require.Equal(t, now.Add(-3*time.Minute), got)
}

func TestParseAgoRejectsInvalidFormat(t *testing.T) {
	_, err := ParseAgo("invalid", time.Now())
	require.Error(t, err)
	var ef *ErrInvalidFormat
	require.ErrorAs(t, err, &ef)
}

func TestParseAgoRejectsAllZero(t *testing.T) {
	_, err := ParseAgo("0m ago", time.Now())
	require.Error(t, err)
}

func TestValidateRejectsTooFarBack(t *testing.T) {
	now := time.Now()
	target := now.Add(-4 * time.Hour)
	err := Validate(target, now, 3, 1)
	require.Error(t, err)
	var tf *ErrTooFarBack
	require.ErrorAs(t, err, &tf)
}

func TestValidateRejectsTooRecent(t *testing.T) {
	now := time.Now()
	target := now.Add(-10 * time.Second)
	err := Validate(target, now, 3, 1)
	require.Error(t, err)
	var tr *ErrTooRecent
	require.ErrorAs(t, err, &tr)
}

func TestValidateAcceptsWithinBounds(t *testing.T) {
	now := time.Now()
	target := now.Add(-30 * time.Minute)
	require.NoError(t, Validate(target, now, 3, 1))
}
