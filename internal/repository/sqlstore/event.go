package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/reminder-api/internal/model"
)

const eventColumns = `id, owner_id, title, event_date, status, created_at, updated_at`

func (q *queries) CreateEvent(ctx context.Context, event *model.Event) error {
	query := `
		INSERT INTO events (` + eventColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now().UTC()
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.CreatedAt = now
	event.UpdatedAt = now

	err := q.exec(ctx, false, query,
		event.ID,
		event.OwnerID,
		event.Title,
		event.Date.UTC(),
		event.Status,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

func (q *queries) FindEventForOwner(ctx context.Context, eventID, ownerID uuid.UUID) (*model.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE id = ? AND owner_id = ?
	`
	var event model.Event
	if err := q.get(ctx, &event, query, eventID, ownerID); err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return &event, nil
}

func (q *queries) UpdateEvent(ctx context.Context, event *model.Event) error {
	query := `
		UPDATE events
		SET title = ?, event_date = ?, status = ?, updated_at = ?
		WHERE id = ?
	`
	event.UpdatedAt = time.Now().UTC()

	err := q.exec(ctx, true, query,
		event.Title,
		event.Date.UTC(),
		event.Status,
		event.UpdatedAt,
		event.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	return nil
}

func (q *queries) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	if err := q.exec(ctx, true, `DELETE FROM events WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return nil
}

// ListEvents applies every filter, including has-reminder, in SQL so the
// total count describes the same rows the page window is cut from.
func (q *queries) ListEvents(ctx context.Context, filters model.EventFilters) ([]*model.Event, int, error) {
	where := []string{"e.owner_id = ?"}
	args := []interface{}{filters.OwnerID}

	if filters.Status != "" {
		where = append(where, "e.status = ?")
		args = append(args, filters.Status)
	}

	if filters.HasReminder != nil {
		exists := "EXISTS (SELECT 1 FROM reminders r WHERE r.event_id = e.id AND r.owner_id = e.owner_id)"
		if !*filters.HasReminder {
			exists = "NOT " + exists
		}
		where = append(where, exists)
	}

	clause := strings.Join(where, " AND ")

	var total int
	if err := q.get(ctx, &total, `SELECT COUNT(*) FROM events e WHERE `+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count events: %w", err)
	}

	page := filters.Pagination.Normalize()
	query := `
		SELECT e.id, e.owner_id, e.title, e.event_date, e.status, e.created_at, e.updated_at
		FROM events e
		WHERE ` + clause + `
		ORDER BY e.event_date ASC, e.id ASC
		LIMIT ? OFFSET ?
	`
	pageArgs := append(append([]interface{}{}, args...), page.PageSize, page.Offset())

	events := make([]*model.Event, 0)
	if err := q.selectAll(ctx, &events, query, pageArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to list events: %w", err)
	}
	return events, total, nil
}
