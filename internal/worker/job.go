package worker

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/reminder-api/internal/model"
)

type JobStatus string

const (
	JobStatusPending JobStatus = "pending"
	JobStatusSent    JobStatus = "sent"
	JobStatusFailed  JobStatus = "failed"
)

// Job is the scheduler's in-memory view of one reminder delivery. It is never
// persisted; the reminder row is the durable record.
type Job struct {
	ID           uuid.UUID `json:"id"`
	EventID      uuid.UUID `json:"event_id"`
	OwnerID      uuid.UUID `json:"owner_id"`
	EventTitle   string    `json:"event_title"`
	EventDate    time.Time `json:"event_date"`
	ReminderTime time.Time `json:"reminder_time"`
	Status       JobStatus `json:"status"`
	Attempts     int       `json:"attempts"`
	LastError    string    `json:"last_error,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewJob builds the job for a reminder of event.
func NewJob(reminder *model.Reminder, event *model.Event) Job {
	return Job{
		ID:           reminder.ID,
		EventID:      event.ID,
		OwnerID:      reminder.OwnerID,
		EventTitle:   event.Title,
		EventDate:    event.Date,
		ReminderTime: reminder.ReminderTime,
		Status:       JobStatusPending,
	}
}

// Notifier delivers a due reminder. A returned error marks the job failed and
// schedules a retry.
type Notifier interface {
	Send(ctx context.Context, job Job) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, job Job) error

func (f NotifierFunc) Send(ctx context.Context, job Job) error {
	return f(ctx, job)
}

// ReminderSource lists every stored reminder with its event, for Restore.
type ReminderSource interface {
	ListRemindersWithEvents(ctx context.Context) ([]*model.ReminderWithEvent, error)
}

// Status is the aggregate view exposed for observability.
type Status struct {
	Running          bool       `json:"running"`
	Pending          int        `json:"pending"`
	Sent             int        `json:"sent"`
	Failed           int        `json:"failed"`
	Total            int        `json:"total"`
	NextReminderTime *time.Time `json:"next_reminder_time,omitempty"`
}
