// Package memory is a process-local repository.Store. It backs local runs
// without a database and the service tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/reminder-api/internal/model"
	"github.com/jwalitptl/reminder-api/internal/repository"
)

type state struct {
	events    map[uuid.UUID]model.Event
	reminders map[uuid.UUID]model.Reminder
}

func newState() *state {
	return &state{
		events:    make(map[uuid.UUID]model.Event),
		reminders: make(map[uuid.UUID]model.Reminder),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.events {
		c.events[k] = v
	}
	for k, v := range s.reminders {
		c.reminders[k] = v
	}
	return c
}

type Store struct {
	mu sync.Mutex
	st *state

	// FailNext makes the next write return this error; tests use it to
	// simulate a persistence outage.
	FailNext error
}

func NewStore() *Store {
	return &Store{st: newState()}
}

// WithTx runs fn against a copy of the data and swaps it in on success.
func (s *Store) WithTx(ctx context.Context, fn func(repository.Queries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(&queries{store: s, st: work}); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) Close() error { return nil }

func (s *Store) run(fn func(q *queries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&queries{store: s, st: s.st})
}

func (s *Store) CreateEvent(ctx context.Context, event *model.Event) error {
	return s.run(func(q *queries) error { return q.CreateEvent(ctx, event) })
}

func (s *Store) FindEventForOwner(ctx context.Context, eventID, ownerID uuid.UUID) (event *model.Event, err error) {
	err = s.run(func(q *queries) error {
		event, err = q.FindEventForOwner(ctx, eventID, ownerID)
		return err
	})
	return event, err
}

func (s *Store) UpdateEvent(ctx context.Context, event *model.Event) error {
	return s.run(func(q *queries) error { return q.UpdateEvent(ctx, event) })
}

func (s *Store) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	return s.run(func(q *queries) error { return q.DeleteEvent(ctx, id) })
}

func (s *Store) ListEvents(ctx context.Context, filters model.EventFilters) (events []*model.Event, total int, err error) {
	err = s.run(func(q *queries) error {
		events, total, err = q.ListEvents(ctx, filters)
		return err
	})
	return events, total, err
}

func (s *Store) CreateReminder(ctx context.Context, reminder *model.Reminder) error {
	return s.run(func(q *queries) error { return q.CreateReminder(ctx, reminder) })
}

func (s *Store) GetReminderForOwner(ctx context.Context, id, ownerID uuid.UUID) (reminder *model.Reminder, err error) {
	err = s.run(func(q *queries) error {
		reminder, err = q.GetReminderForOwner(ctx, id, ownerID)
		return err
	})
	return reminder, err
}

func (s *Store) FindReminderByEventAndOwner(ctx context.Context, eventID, ownerID uuid.UUID) (reminder *model.Reminder, err error) {
	err = s.run(func(q *queries) error {
		reminder, err = q.FindReminderByEventAndOwner(ctx, eventID, ownerID)
		return err
	})
	return reminder, err
}

func (s *Store) UpdateReminderTime(ctx context.Context, id uuid.UUID, reminderTime time.Time) error {
	return s.run(func(q *queries) error { return q.UpdateReminderTime(ctx, id, reminderTime) })
}

func (s *Store) DeleteReminder(ctx context.Context, id uuid.UUID) error {
	return s.run(func(q *queries) error { return q.DeleteReminder(ctx, id) })
}

func (s *Store) ListRemindersByEvent(ctx context.Context, eventID uuid.UUID) (reminders []*model.Reminder, err error) {
	err = s.run(func(q *queries) error {
		reminders, err = q.ListRemindersByEvent(ctx, eventID)
		return err
	})
	return reminders, err
}

func (s *Store) ListRemindersWithEvents(ctx context.Context) (reminders []*model.ReminderWithEvent, err error) {
	err = s.run(func(q *queries) error {
		reminders, err = q.ListRemindersWithEvents(ctx)
		return err
	})
	return reminders, err
}

// queries operates on a state the caller already holds the lock for.
type queries struct {
	store *Store
	st    *state
}

func (q *queries) failure() error {
	if err := q.store.FailNext; err != nil {
		q.store.FailNext = nil
		return err
	}
	return nil
}

func (q *queries) CreateEvent(_ context.Context, event *model.Event) error {
	if err := q.failure(); err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	now := time.Now().UTC()
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.CreatedAt = now
	event.UpdatedAt = now
	q.st.events[event.ID] = *event
	return nil
}

func (q *queries) FindEventForOwner(_ context.Context, eventID, ownerID uuid.UUID) (*model.Event, error) {
	event, ok := q.st.events[eventID]
	if !ok || event.OwnerID != ownerID {
		return nil, fmt.Errorf("failed to get event: %w", repository.ErrNotFound)
	}
	return &event, nil
}

func (q *queries) UpdateEvent(_ context.Context, event *model.Event) error {
	if err := q.failure(); err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	if _, ok := q.st.events[event.ID]; !ok {
		return fmt.Errorf("failed to update event: %w", repository.ErrNotFound)
	}
	event.UpdatedAt = time.Now().UTC()
	q.st.events[event.ID] = *event
	return nil
}

func (q *queries) DeleteEvent(_ context.Context, id uuid.UUID) error {
	if err := q.failure(); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if _, ok := q.st.events[id]; !ok {
		return fmt.Errorf("failed to delete event: %w", repository.ErrNotFound)
	}
	delete(q.st.events, id)
	for rid, r := range q.st.reminders {
		if r.EventID == id {
			delete(q.st.reminders, rid)
		}
	}
	return nil
}

func (q *queries) hasReminder(event model.Event) bool {
	for _, r := range q.st.reminders {
		if r.EventID == event.ID && r.OwnerID == event.OwnerID {
			return true
		}
	}
	return false
}

func (q *queries) ListEvents(_ context.Context, filters model.EventFilters) ([]*model.Event, int, error) {
	matched := make([]*model.Event, 0)
	for _, e := range q.st.events {
		if e.OwnerID != filters.OwnerID {
			continue
		}
		if filters.Status != "" && e.Status != filters.Status {
			continue
		}
		if filters.HasReminder != nil && q.hasReminder(e) != *filters.HasReminder {
			continue
		}
		e := e
		matched = append(matched, &e)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Date.Equal(matched[j].Date) {
			return matched[i].ID.String() < matched[j].ID.String()
		}
		return matched[i].Date.Before(matched[j].Date)
	})

	total := len(matched)
	page := filters.Pagination.Normalize()
	start := page.Offset()
	if start > total {
		start = total
	}
	end := start + page.PageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (q *queries) CreateReminder(_ context.Context, reminder *model.Reminder) error {
	if err := q.failure(); err != nil {
		return fmt.Errorf("failed to create reminder: %w", err)
	}
	for _, r := range q.st.reminders {
		if r.EventID == reminder.EventID && r.OwnerID == reminder.OwnerID {
			return fmt.Errorf("failed to create reminder: %w", repository.ErrDuplicate)
		}
	}
	now := time.Now().UTC()
	if reminder.ID == uuid.Nil {
		reminder.ID = uuid.New()
	}
	reminder.CreatedAt = now
	reminder.UpdatedAt = now
	q.st.reminders[reminder.ID] = *reminder
	return nil
}

func (q *queries) GetReminderForOwner(_ context.Context, id, ownerID uuid.UUID) (*model.Reminder, error) {
	r, ok := q.st.reminders[id]
	if !ok || r.OwnerID != ownerID {
		return nil, fmt.Errorf("failed to get reminder: %w", repository.ErrNotFound)
	}
	return &r, nil
}

func (q *queries) FindReminderByEventAndOwner(_ context.Context, eventID, ownerID uuid.UUID) (*model.Reminder, error) {
	for _, r := range q.st.reminders {
		if r.EventID == eventID && r.OwnerID == ownerID {
			r := r
			return &r, nil
		}
	}
	return nil, fmt.Errorf("failed to find reminder: %w", repository.ErrNotFound)
}

func (q *queries) UpdateReminderTime(_ context.Context, id uuid.UUID, reminderTime time.Time) error {
	if err := q.failure(); err != nil {
		return fmt.Errorf("failed to update reminder: %w", err)
	}
	r, ok := q.st.reminders[id]
	if !ok {
		return fmt.Errorf("failed to update reminder: %w", repository.ErrNotFound)
	}
	r.ReminderTime = reminderTime
	r.UpdatedAt = time.Now().UTC()
	q.st.reminders[id] = r
	return nil
}

func (q *queries) DeleteReminder(_ context.Context, id uuid.UUID) error {
	if err := q.failure(); err != nil {
		return fmt.Errorf("failed to delete reminder: %w", err)
	}
	if _, ok := q.st.reminders[id]; !ok {
		return fmt.Errorf("failed to delete reminder: %w", repository.ErrNotFound)
	}
	delete(q.st.reminders, id)
	return nil
}

func (q *queries) ListRemindersByEvent(_ context.Context, eventID uuid.UUID) ([]*model.Reminder, error) {
	reminders := make([]*model.Reminder, 0)
	for _, r := range q.st.reminders {
		if r.EventID == eventID {
			r := r
			reminders = append(reminders, &r)
		}
	}
	sort.Slice(reminders, func(i, j int) bool {
		return reminders[i].ReminderTime.Before(reminders[j].ReminderTime)
	})
	return reminders, nil
}

func (q *queries) ListRemindersWithEvents(_ context.Context) ([]*model.ReminderWithEvent, error) {
	reminders := make([]*model.ReminderWithEvent, 0, len(q.st.reminders))
	for _, r := range q.st.reminders {
		event, ok := q.st.events[r.EventID]
		if !ok {
			continue
		}
		reminders = append(reminders, &model.ReminderWithEvent{
			Reminder:   r,
			EventTitle: event.Title,
			EventDate:  event.Date,
		})
	}
	return reminders, nil
}
