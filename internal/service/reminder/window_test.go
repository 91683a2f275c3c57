package reminder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/jwalitptl/reminder-api/pkg/errors"
)

func TestIsValidReminderOffsetBoundaries(t *testing.T) {
	eventDate := time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		offset time.Duration
		want   bool
	}{
		{"just under 15 minutes", 899999 * time.Millisecond, false},
		{"exactly 15 minutes", 900000 * time.Millisecond, true},
		{"two hours", 2 * time.Hour, true},
		{"exactly 7 days", 604800000 * time.Millisecond, true},
		{"just over 7 days", 604800001 * time.Millisecond, false},
		{"after the event", -time.Hour, false},
		{"at the event", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidReminderOffset(eventDate, eventDate.Add(-tt.offset)))
		})
	}
}

func TestValidateReminderOffsetReportsBounds(t *testing.T) {
	eventDate := time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.NoError(t, ValidateReminderOffset(eventDate, eventDate.Add(-time.Hour)))

	err := ValidateReminderOffset(eventDate, eventDate.Add(-10*time.Minute))
	require.ErrorIs(t, err, apperrors.InvalidWindow)

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.EqualValues(t, 900000, appErr.Details["min_offset"])
	assert.EqualValues(t, 604800000, appErr.Details["max_offset"])
	assert.EqualValues(t, 600000, appErr.Details["offset"])
}
