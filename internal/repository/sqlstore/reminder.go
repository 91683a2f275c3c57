package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/reminder-api/internal/model"
)

const reminderColumns = `id, event_id, owner_id, reminder_time, created_at, updated_at`

func (q *queries) CreateReminder(ctx context.Context, reminder *model.Reminder) error {
	query := `
		INSERT INTO reminders (` + reminderColumns + `)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	now := time.Now().UTC()
	if reminder.ID == uuid.Nil {
		reminder.ID = uuid.New()
	}
	reminder.CreatedAt = now
	reminder.UpdatedAt = now

	err := q.exec(ctx, false, query,
		reminder.ID,
		reminder.EventID,
		reminder.OwnerID,
		reminder.ReminderTime.UTC(),
		reminder.CreatedAt,
		reminder.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create reminder: %w", err)
	}
	return nil
}

func (q *queries) GetReminderForOwner(ctx context.Context, id, ownerID uuid.UUID) (*model.Reminder, error) {
	query := `
		SELECT ` + reminderColumns + `
		FROM reminders
		WHERE id = ? AND owner_id = ?
	`
	var reminder model.Reminder
	if err := q.get(ctx, &reminder, query, id, ownerID); err != nil {
		return nil, fmt.Errorf("failed to get reminder: %w", err)
	}
	return &reminder, nil
}

func (q *queries) FindReminderByEventAndOwner(ctx context.Context, eventID, ownerID uuid.UUID) (*model.Reminder, error) {
	query := `
		SELECT ` + reminderColumns + `
		FROM reminders
		WHERE event_id = ? AND owner_id = ?
	`
	var reminder model.Reminder
	if err := q.get(ctx, &reminder, query, eventID, ownerID); err != nil {
		return nil, fmt.Errorf("failed to find reminder: %w", err)
	}
	return &reminder, nil
}

func (q *queries) UpdateReminderTime(ctx context.Context, id uuid.UUID, reminderTime time.Time) error {
	query := `
		UPDATE reminders
		SET reminder_time = ?, updated_at = ?
		WHERE id = ?
	`
	if err := q.exec(ctx, true, query, reminderTime.UTC(), time.Now().UTC(), id); err != nil {
		return fmt.Errorf("failed to update reminder: %w", err)
	}
	return nil
}

func (q *queries) DeleteReminder(ctx context.Context, id uuid.UUID) error {
	if err := q.exec(ctx, true, `DELETE FROM reminders WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete reminder: %w", err)
	}
	return nil
}

func (q *queries) ListRemindersByEvent(ctx context.Context, eventID uuid.UUID) ([]*model.Reminder, error) {
	query := `
		SELECT ` + reminderColumns + `
		FROM reminders
		WHERE event_id = ?
		ORDER BY reminder_time ASC
	`
	reminders := make([]*model.Reminder, 0)
	if err := q.selectAll(ctx, &reminders, query, eventID); err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	return reminders, nil
}

func (q *queries) ListRemindersWithEvents(ctx context.Context) ([]*model.ReminderWithEvent, error) {
	query := `
		SELECT r.id, r.event_id, r.owner_id, r.reminder_time, r.created_at, r.updated_at,
			   e.title AS event_title, e.event_date AS event_date
		FROM reminders r
		JOIN events e ON e.id = r.event_id
	`
	reminders := make([]*model.ReminderWithEvent, 0)
	if err := q.selectAll(ctx, &reminders, query); err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	return reminders, nil
}
