package reminder

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/reminder-api/internal/model"
	"github.com/jwalitptl/reminder-api/internal/repository"
	"github.com/jwalitptl/reminder-api/internal/worker"
	apperrors "github.com/jwalitptl/reminder-api/pkg/errors"
)

// RemovalReason says why propagation deleted a reminder.
type RemovalReason string

const (
	// RemovalPassed: the moved reminder time is already behind us.
	RemovalPassed RemovalReason = "passed"
	// RemovalOutsideWindow: the moved reminder breaks the offset window.
	RemovalOutsideWindow RemovalReason = "window"
)

// PropagationResult lists what an event date change did to its reminders.
type PropagationResult struct {
	Rescheduled []*model.Reminder
	Removed     []uuid.UUID
	Reasons     map[uuid.UUID]RemovalReason

	removedOwners []uuid.UUID
}

// PropagateEventDateChange moves every reminder so it keeps its lead time
// before the event. A reminder is deleted instead when its new time falls
// outside the window or has already passed. It writes through q so the
// caller's event update and these changes commit together; call
// ApplyPropagation once that commit succeeds.
//
// Reminders of every owner are processed.
func (s *Service) PropagateEventDateChange(ctx context.Context, q repository.Queries, priorDate, newDate time.Time, reminders []*model.Reminder) (*PropagationResult, error) {
	now := s.now()
	result := &PropagationResult{Reasons: make(map[uuid.UUID]RemovalReason)}
	for _, r := range reminders {
		offset := priorDate.Sub(r.ReminderTime)
		newTime := newDate.Add(-offset)

		var reason RemovalReason
		switch {
		case !IsValidReminderOffset(newDate, newTime):
			reason = RemovalOutsideWindow
		case newTime.Before(now):
			reason = RemovalPassed
		}

		if reason == "" {
			if err := q.UpdateReminderTime(ctx, r.ID, newTime); err != nil {
				return nil, apperrors.NewInternal(err)
			}
			moved := *r
			moved.ReminderTime = newTime
			result.Rescheduled = append(result.Rescheduled, &moved)
			continue
		}

		if err := q.DeleteReminder(ctx, r.ID); err != nil {
			return nil, apperrors.NewInternal(err)
		}
		result.Removed = append(result.Removed, r.ID)
		result.Reasons[r.ID] = reason
		result.removedOwners = append(result.removedOwners, r.OwnerID)
	}
	return result, nil
}

// ApplyPropagation brings the scheduler in line with a committed event
// change. A nil result only refreshes the event details on existing jobs.
func (s *Service) ApplyPropagation(ctx context.Context, event *model.Event, result *PropagationResult) {
	s.scheduler.UpdateEventDetails(event.ID, event.Title, event.Date)
	if result == nil {
		return
	}

	for _, r := range result.Rescheduled {
		if !s.scheduler.UpdateReminder(r.ID, r.ReminderTime) {
			s.scheduler.ScheduleReminder(worker.NewJob(r, event))
		}
		s.InvalidateOwner(ctx, r.OwnerID)
	}
	for _, id := range result.Removed {
		s.scheduler.CancelReminder(id)
		s.logger.Info("reminder removed by event date change",
			"reminder_id", id.String(),
			"event_id", event.ID.String(),
			"reason", string(result.Reasons[id]))
	}
	for _, owner := range result.removedOwners {
		s.InvalidateOwner(ctx, owner)
	}

	if s.metrics != nil {
		s.metrics.PropagationResults.WithLabelValues("rescheduled").Add(float64(len(result.Rescheduled)))
		s.metrics.PropagationResults.WithLabelValues("removed").Add(float64(len(result.Removed)))
	}
	if len(result.Rescheduled)+len(result.Removed) > 0 {
		s.logger.Info("event date change propagated",
			"event_id", event.ID.String(),
			"rescheduled", len(result.Rescheduled),
			"removed", len(result.Removed))
	}
}

// CascadeEventDelete cancels the jobs of reminders removed with their event.
func (s *Service) CascadeEventDelete(ctx context.Context, eventID uuid.UUID, reminders []*model.Reminder) {
	for _, r := range reminders {
		s.scheduler.CancelReminder(r.ID)
		s.InvalidateOwner(ctx, r.OwnerID)
	}
	if len(reminders) > 0 {
		s.logger.Info("reminders removed with event",
			"event_id", eventID.String(),
			"count", len(reminders))
	}
}
