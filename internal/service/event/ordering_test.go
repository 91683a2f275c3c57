package event

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/reminder-api/internal/model"
	"github.com/jwalitptl/reminder-api/internal/repository"
	"github.com/jwalitptl/reminder-api/internal/repository/memory"
	"github.com/jwalitptl/reminder-api/internal/service/reminder"
	"github.com/jwalitptl/reminder-api/internal/worker"
	"github.com/jwalitptl/reminder-api/pkg/auth"
	"github.com/jwalitptl/reminder-api/pkg/cache"
	"github.com/jwalitptl/reminder-api/pkg/logger"
)

// hookedScheduler runs a one-shot hook right before the first schedule or
// update call reaches the real scheduler.
type hookedScheduler struct {
	*worker.ReminderScheduler

	mu   sync.Mutex
	hook func()
}

func (h *hookedScheduler) arm(fn func()) {
	h.mu.Lock()
	h.hook = fn
	h.mu.Unlock()
}

func (h *hookedScheduler) fire() {
	h.mu.Lock()
	fn := h.hook
	h.hook = nil
	h.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (h *hookedScheduler) ScheduleReminder(job worker.Job) {
	h.fire()
	h.ReminderScheduler.ScheduleReminder(job)
}

func (h *hookedScheduler) UpdateReminder(id uuid.UUID, reminderTime time.Time) bool {
	h.fire()
	return h.ReminderScheduler.UpdateReminder(id, reminderTime)
}

// race starts op concurrently and gives it a moment to run to completion
// before the caller carries on. done is closed once op has returned.
func race(t *testing.T, op func() error) (start func(), done <-chan struct{}) {
	ch := make(chan struct{})
	start = func() {
		go func() {
			defer close(ch)
			assert.NoError(t, op())
		}()
		select {
		case <-ch:
		case <-time.After(100 * time.Millisecond):
		}
	}
	return start, ch
}

type orderingFixture struct {
	store     *memory.Store
	scheduler *hookedScheduler
	reminders *reminder.Service
	events    *Service
	ctx       context.Context
	owner     uuid.UUID
}

func newOrderingFixture(t *testing.T) *orderingFixture {
	t.Helper()
	notifier := worker.NotifierFunc(func(context.Context, worker.Job) error { return nil })
	f := &orderingFixture{
		store: memory.NewStore(),
		scheduler: &hookedScheduler{
			ReminderScheduler: worker.NewReminderScheduler(notifier, worker.SchedulerConfig{}, logger.Nop()),
		},
		owner: uuid.New(),
	}
	c := cache.NewMemory(time.Minute, time.Minute)
	f.reminders = reminder.NewService(f.store, f.scheduler, logger.Nop(), reminder.WithCache(c))
	f.events = NewService(f.store, f.reminders, logger.Nop(), WithListCache(c, time.Minute))
	f.ctx = auth.WithOwner(context.Background(), f.owner)
	return f
}

func TestEventDeleteDuringReminderCreateLeavesNoJob(t *testing.T) {
	f := newOrderingFixture(t)
	event, err := f.events.Create(f.ctx, model.CreateEventRequest{Title: "launch", Date: time.Now().Add(48 * time.Hour)})
	require.NoError(t, err)

	start, done := race(t, func() error { return f.events.Delete(f.ctx, event.ID) })
	f.scheduler.arm(start)

	created, err := f.reminders.Create(f.ctx, event.ID, event.Date.Add(-time.Hour))
	require.NoError(t, err)
	<-done

	_, err = f.store.GetReminderForOwner(context.Background(), created.ID, f.owner)
	require.ErrorIs(t, err, repository.ErrNotFound)
	_, ok := f.scheduler.Job(created.ID)
	assert.False(t, ok, "job left behind for a deleted reminder")
}

func TestEventMoveDuringReminderUpdateKeepsJobInStep(t *testing.T) {
	f := newOrderingFixture(t)
	date := time.Now().Add(72 * time.Hour).UTC().Truncate(time.Second)
	event, err := f.events.Create(f.ctx, model.CreateEventRequest{Title: "launch", Date: date})
	require.NoError(t, err)
	r, err := f.reminders.Create(f.ctx, event.ID, date.Add(-2*time.Hour))
	require.NoError(t, err)

	newDate := date.Add(24 * time.Hour)
	start, done := race(t, func() error {
		_, err := f.events.Update(f.ctx, event.ID, model.UpdateEventRequest{Date: &newDate})
		return err
	})
	f.scheduler.arm(start)

	_, err = f.reminders.Update(f.ctx, r.ID, date.Add(-3*time.Hour))
	require.NoError(t, err)
	<-done

	stored, err := f.store.GetReminderForOwner(context.Background(), r.ID, f.owner)
	require.NoError(t, err)
	assert.True(t, newDate.Add(-3*time.Hour).Equal(stored.ReminderTime))

	job, ok := f.scheduler.Job(r.ID)
	require.True(t, ok)
	assert.True(t, stored.ReminderTime.Equal(job.ReminderTime),
		"job at %s, stored reminder at %s", job.ReminderTime, stored.ReminderTime)
}

func TestListDoesNotCachePageOvertakenByInvalidation(t *testing.T) {
	f := newOrderingFixture(t)
	event, err := f.events.Create(f.ctx, model.CreateEventRequest{Title: "launch", Date: time.Now().Add(48 * time.Hour)})
	require.NoError(t, err)

	slow := &slowListStore{Store: f.store}
	slow.afterRead = func() {
		_, err := f.reminders.Create(f.ctx, event.ID, event.Date.Add(-time.Hour))
		require.NoError(t, err)
	}
	events := NewService(slow, f.reminders, logger.Nop(), WithListCache(f.events.cache, time.Minute))

	yes := true
	filters := model.EventFilters{HasReminder: &yes}
	page, err := events.List(f.ctx, filters)
	require.NoError(t, err)
	assert.Zero(t, page.TotalCount)

	page, err = events.List(f.ctx, filters)
	require.NoError(t, err)
	assert.Equal(t, 1, page.TotalCount)
}

// slowListStore lets a mutation land between the listing read and the
// moment its page is cached.
type slowListStore struct {
	*memory.Store
	afterRead func()
}

func (s *slowListStore) ListEvents(ctx context.Context, filters model.EventFilters) ([]*model.Event, int, error) {
	events, total, err := s.Store.ListEvents(ctx, filters)
	if fn := s.afterRead; fn != nil {
		s.afterRead = nil
		fn()
	}
	return events, total, err
}
