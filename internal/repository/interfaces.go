package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/reminder-api/internal/model"
)

var (
	// ErrNotFound is returned when no row matches the lookup, including rows
	// that exist but belong to another owner.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a write violates a unique constraint.
	ErrDuplicate = errors.New("duplicate record")
)

// All repository interfaces in one file
type (
	// EventRepository handles event operations
	EventRepository interface {
		CreateEvent(ctx context.Context, event *model.Event) error
		FindEventForOwner(ctx context.Context, eventID, ownerID uuid.UUID) (*model.Event, error)
		UpdateEvent(ctx context.Context, event *model.Event) error
		DeleteEvent(ctx context.Context, id uuid.UUID) error
		ListEvents(ctx context.Context, filters model.EventFilters) ([]*model.Event, int, error)
	}

	// ReminderRepository handles reminder operations
	ReminderRepository interface {
		CreateReminder(ctx context.Context, reminder *model.Reminder) error
		GetReminderForOwner(ctx context.Context, id, ownerID uuid.UUID) (*model.Reminder, error)
		FindReminderByEventAndOwner(ctx context.Context, eventID, ownerID uuid.UUID) (*model.Reminder, error)
		UpdateReminderTime(ctx context.Context, id uuid.UUID, reminderTime time.Time) error
		DeleteReminder(ctx context.Context, id uuid.UUID) error
		ListRemindersByEvent(ctx context.Context, eventID uuid.UUID) ([]*model.Reminder, error)
		ListRemindersWithEvents(ctx context.Context) ([]*model.ReminderWithEvent, error)
	}

	// Queries is everything a unit of work can do.
	Queries interface {
		EventRepository
		ReminderRepository
	}

	// Store runs Queries directly or inside a transaction. fn's changes are
	// committed only when it returns nil.
	Store interface {
		Queries
		WithTx(ctx context.Context, fn func(q Queries) error) error
		Close() error
	}
)
