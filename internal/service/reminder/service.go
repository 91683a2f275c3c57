package reminder

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/reminder-api/internal/model"
	"github.com/jwalitptl/reminder-api/internal/repository"
	"github.com/jwalitptl/reminder-api/internal/worker"
	"github.com/jwalitptl/reminder-api/pkg/auth"
	"github.com/jwalitptl/reminder-api/pkg/cache"
	apperrors "github.com/jwalitptl/reminder-api/pkg/errors"
	"github.com/jwalitptl/reminder-api/pkg/logger"
	"github.com/jwalitptl/reminder-api/pkg/metrics"
)

// Scheduler is the part of worker.ReminderScheduler the service drives.
type Scheduler interface {
	ScheduleReminder(job worker.Job)
	UpdateReminder(id uuid.UUID, reminderTime time.Time) bool
	CancelReminder(id uuid.UUID) bool
	UpdateEventDetails(eventID uuid.UUID, title string, date time.Time)
}

// Service is the only entry point for reminder mutations. Every mutation runs
// in one store transaction and touches the scheduler only after commit.
//
// writeMu is held from the start of a mutation's transaction until its
// scheduler effects are applied, so the job table sees mutations in commit
// order. Event mutations take it through Exclusive.
type Service struct {
	store       repository.Store
	scheduler   Scheduler
	cache       cache.Cache
	generations *cache.Generations
	logger      *logger.Logger
	metrics     *metrics.Metrics
	now         func() time.Time

	writeMu sync.Mutex
}

type Option func(*Service)

func WithCache(c cache.Cache) Option {
	return func(s *Service) { s.cache = c }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store repository.Store, scheduler Scheduler, log *logger.Logger, opts ...Option) *Service {
	s := &Service{
		store:       store,
		scheduler:   scheduler,
		generations: cache.NewGenerations(),
		logger:      log.WithFields(map[string]interface{}{"service": "reminder"}),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Exclusive runs fn under the reminder write lock. Event mutations that move
// or delete reminders commit and apply their scheduler effects inside fn.
// fn must not call Create, Update or Delete.
func (s *Service) Exclusive(fn func() error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return fn()
}

func (s *Service) Create(ctx context.Context, eventID uuid.UUID, reminderTime time.Time) (*model.Reminder, error) {
	ownerID, ok := auth.OwnerFromContext(ctx)
	if !ok {
		return nil, s.fail("create", apperrors.NewNotAuthenticated())
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var (
		reminder *model.Reminder
		event    *model.Event
	)
	err := s.store.WithTx(ctx, func(q repository.Queries) error {
		ev, err := q.FindEventForOwner(ctx, eventID, ownerID)
		if err != nil {
			return lookupError(err, apperrors.NewEventNotFound)
		}
		if err := ValidateReminderOffset(ev.Date, reminderTime); err != nil {
			return err
		}

		_, err = q.FindReminderByEventAndOwner(ctx, eventID, ownerID)
		switch {
		case err == nil:
			return apperrors.NewDuplicateReminder(nil)
		case !errors.Is(err, repository.ErrNotFound):
			return apperrors.NewInternal(err)
		}

		r := &model.Reminder{
			EventID:      eventID,
			OwnerID:      ownerID,
			ReminderTime: reminderTime,
		}
		if err := q.CreateReminder(ctx, r); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperrors.NewDuplicateReminder(err)
			}
			return apperrors.NewInternal(err)
		}
		reminder, event = r, ev
		return nil
	})
	if err != nil {
		return nil, s.fail("create", err)
	}

	s.scheduler.ScheduleReminder(worker.NewJob(reminder, event))
	s.InvalidateOwner(ctx, ownerID)
	s.succeed("create")

	s.logger.Info("reminder created",
		"reminder_id", reminder.ID.String(),
		"event_id", eventID.String(),
		"reminder_time", reminderTime)
	return reminder, nil
}

func (s *Service) Update(ctx context.Context, reminderID uuid.UUID, reminderTime time.Time) (*model.Reminder, error) {
	ownerID, ok := auth.OwnerFromContext(ctx)
	if !ok {
		return nil, s.fail("update", apperrors.NewNotAuthenticated())
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var (
		reminder *model.Reminder
		event    *model.Event
	)
	err := s.store.WithTx(ctx, func(q repository.Queries) error {
		r, err := q.GetReminderForOwner(ctx, reminderID, ownerID)
		if err != nil {
			return lookupError(err, apperrors.NewReminderNotFound)
		}
		ev, err := q.FindEventForOwner(ctx, r.EventID, ownerID)
		if err != nil {
			return lookupError(err, apperrors.NewEventNotFound)
		}
		if err := ValidateReminderOffset(ev.Date, reminderTime); err != nil {
			return err
		}
		if err := q.UpdateReminderTime(ctx, r.ID, reminderTime); err != nil {
			return lookupError(err, apperrors.NewReminderNotFound)
		}
		r.ReminderTime = reminderTime
		r.UpdatedAt = s.now().UTC()
		reminder, event = r, ev
		return nil
	})
	if err != nil {
		return nil, s.fail("update", err)
	}

	// A delivered job may already have been collected; re-register it.
	if !s.scheduler.UpdateReminder(reminder.ID, reminderTime) {
		s.scheduler.ScheduleReminder(worker.NewJob(reminder, event))
	}
	s.InvalidateOwner(ctx, ownerID)
	s.succeed("update")

	s.logger.Info("reminder updated",
		"reminder_id", reminder.ID.String(),
		"reminder_time", reminderTime)
	return reminder, nil
}

func (s *Service) Delete(ctx context.Context, reminderID uuid.UUID) error {
	ownerID, ok := auth.OwnerFromContext(ctx)
	if !ok {
		return s.fail("delete", apperrors.NewNotAuthenticated())
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err := s.store.WithTx(ctx, func(q repository.Queries) error {
		r, err := q.GetReminderForOwner(ctx, reminderID, ownerID)
		if err != nil {
			return lookupError(err, apperrors.NewReminderNotFound)
		}
		if err := q.DeleteReminder(ctx, r.ID); err != nil {
			return lookupError(err, apperrors.NewReminderNotFound)
		}
		return nil
	})
	if err != nil {
		return s.fail("delete", err)
	}

	s.scheduler.CancelReminder(reminderID)
	s.InvalidateOwner(ctx, ownerID)
	s.succeed("delete")

	s.logger.Info("reminder deleted", "reminder_id", reminderID.String())
	return nil
}

func (s *Service) Get(ctx context.Context, reminderID uuid.UUID) (*model.Reminder, error) {
	ownerID, ok := auth.OwnerFromContext(ctx)
	if !ok {
		return nil, apperrors.NewNotAuthenticated()
	}
	r, err := s.store.GetReminderForOwner(ctx, reminderID, ownerID)
	if err != nil {
		return nil, lookupError(err, apperrors.NewReminderNotFound)
	}
	return r, nil
}

// ListForEvent returns the caller's reminders on one of the caller's events.
func (s *Service) ListForEvent(ctx context.Context, eventID uuid.UUID) ([]*model.Reminder, error) {
	ownerID, ok := auth.OwnerFromContext(ctx)
	if !ok {
		return nil, apperrors.NewNotAuthenticated()
	}
	if _, err := s.store.FindEventForOwner(ctx, eventID, ownerID); err != nil {
		return nil, lookupError(err, apperrors.NewEventNotFound)
	}

	all, err := s.store.ListRemindersByEvent(ctx, eventID)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}
	reminders := make([]*model.Reminder, 0, len(all))
	for _, r := range all {
		if r.OwnerID == ownerID {
			reminders = append(reminders, r)
		}
	}
	return reminders, nil
}

// ListingGeneration is the current listing generation of ownerID. Read it
// before querying the store and put it in the cache key: a page built from a
// read that an invalidation overtook is then stored under a retired key.
func (s *Service) ListingGeneration(ownerID uuid.UUID) uint64 {
	return s.generations.Current(ownerID.String())
}

// InvalidateOwner drops every cached event listing of ownerID. Cache errors
// are logged; a stale listing expires with its TTL.
func (s *Service) InvalidateOwner(ctx context.Context, ownerID uuid.UUID) {
	if s.cache == nil {
		return
	}
	s.generations.Bump(ownerID.String())
	if err := s.cache.DeletePrefix(ctx, cache.EventListPrefix(ownerID)); err != nil {
		s.logger.Warn("failed to invalidate event listings", "owner_id", ownerID.String(), "error", err.Error())
	}
}

func (s *Service) succeed(op string) {
	if s.metrics != nil {
		s.metrics.ReminderOperations.WithLabelValues(op, "success").Inc()
	}
}

// fail records the outcome and makes sure every returned error is an AppError.
func (s *Service) fail(op string, err error) error {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		appErr = apperrors.NewInternal(err)
	}
	status := "rejected"
	if appErr.Retryable() {
		status = "error"
		s.logger.Error(err, "reminder operation failed", "operation", op)
	}
	if s.metrics != nil {
		s.metrics.ReminderOperations.WithLabelValues(op, status).Inc()
	}
	return appErr
}

// lookupError maps a missing row onto notFound and anything else onto Internal.
func lookupError(err error, notFound func(error) *apperrors.AppError) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(err)
	}
	return apperrors.NewInternal(err)
}
