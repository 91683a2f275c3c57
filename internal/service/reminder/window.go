package reminder

import (
	"time"

	apperrors "github.com/jwalitptl/reminder-api/pkg/errors"
)

const (
	MinReminderOffset = 15 * time.Minute
	MaxReminderOffset = 7 * 24 * time.Hour
)

// IsValidReminderOffset reports whether reminderTime is between 15 minutes
// and 7 days before eventDate, both ends inclusive.
func IsValidReminderOffset(eventDate, reminderTime time.Time) bool {
	offset := eventDate.Sub(reminderTime)
	return offset >= MinReminderOffset && offset <= MaxReminderOffset
}

// ValidateReminderOffset returns an InvalidWindow error carrying the bounds
// and the rejected offset, in milliseconds.
func ValidateReminderOffset(eventDate, reminderTime time.Time) error {
	if IsValidReminderOffset(eventDate, reminderTime) {
		return nil
	}
	return apperrors.NewInvalidWindow(
		"reminder must be between 15 minutes and 7 days before the event",
		map[string]interface{}{
			"min_offset": MinReminderOffset.Milliseconds(),
			"max_offset": MaxReminderOffset.Milliseconds(),
			"offset":     eventDate.Sub(reminderTime).Milliseconds(),
		},
	)
}
