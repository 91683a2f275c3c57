package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/reminder-api/internal/model"
	"github.com/jwalitptl/reminder-api/internal/repository/memory"
	"github.com/jwalitptl/reminder-api/internal/worker"
	"github.com/jwalitptl/reminder-api/pkg/auth"
	"github.com/jwalitptl/reminder-api/pkg/cache"
	apperrors "github.com/jwalitptl/reminder-api/pkg/errors"
	"github.com/jwalitptl/reminder-api/pkg/logger"
	"github.com/jwalitptl/reminder-api/pkg/metrics"
)

type fixture struct {
	store     *memory.Store
	scheduler *worker.ReminderScheduler
	cache     cache.Cache
	metrics   *metrics.Metrics
	svc       *Service
	owner     uuid.UUID
	ctx       context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	notifier := worker.NotifierFunc(func(context.Context, worker.Job) error { return nil })
	f := &fixture{
		store:     memory.NewStore(),
		scheduler: worker.NewReminderScheduler(notifier, worker.SchedulerConfig{}, logger.Nop()),
		cache:     cache.NewMemory(time.Minute, time.Minute),
		metrics:   metrics.New("test"),
		owner:     uuid.New(),
	}
	f.svc = NewService(f.store, f.scheduler, logger.Nop(), WithCache(f.cache), WithMetrics(f.metrics))
	f.ctx = auth.WithOwner(context.Background(), f.owner)
	return f
}

func (f *fixture) seedEvent(t *testing.T, owner uuid.UUID, date time.Time) *model.Event {
	t.Helper()
	event := &model.Event{OwnerID: owner, Title: "design review", Date: date, Status: model.EventStatusPublished}
	require.NoError(t, f.store.CreateEvent(context.Background(), event))
	return event
}

func TestCreateRegistersPendingJob(t *testing.T) {
	f := newFixture(t)
	event := f.seedEvent(t, f.owner, time.Now().Add(48*time.Hour))
	at := event.Date.Add(-2 * time.Hour)

	reminder, err := f.svc.Create(f.ctx, event.ID, at)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, reminder.ID)
	assert.Equal(t, f.owner, reminder.OwnerID)

	job, ok := f.scheduler.Job(reminder.ID)
	require.True(t, ok)
	assert.Equal(t, worker.JobStatusPending, job.Status)
	assert.True(t, at.Equal(job.ReminderTime))
	assert.Equal(t, event.Title, job.EventTitle)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ReminderOperations.WithLabelValues("create", "success")))
}

func TestCreateTwiceIsDuplicate(t *testing.T) {
	f := newFixture(t)
	event := f.seedEvent(t, f.owner, time.Now().Add(48*time.Hour))

	_, err := f.svc.Create(f.ctx, event.ID, event.Date.Add(-time.Hour))
	require.NoError(t, err)

	_, err = f.svc.Create(f.ctx, event.ID, event.Date.Add(-3*time.Hour))
	assert.ErrorIs(t, err, apperrors.DuplicateReminder)
	assert.Equal(t, 1, f.scheduler.GetStatus().Total)
}

func TestCreateWithoutIdentity(t *testing.T) {
	f := newFixture(t)
	event := f.seedEvent(t, f.owner, time.Now().Add(48*time.Hour))

	_, err := f.svc.Create(context.Background(), event.ID, event.Date.Add(-time.Hour))
	assert.ErrorIs(t, err, apperrors.NotAuthenticated)
}

func TestCreateOnAnotherOwnersEvent(t *testing.T) {
	f := newFixture(t)
	event := f.seedEvent(t, uuid.New(), time.Now().Add(48*time.Hour))

	_, err := f.svc.Create(f.ctx, event.ID, event.Date.Add(-time.Hour))
	assert.ErrorIs(t, err, apperrors.EventNotFound)

	_, err = f.svc.Create(f.ctx, uuid.New(), time.Now())
	assert.ErrorIs(t, err, apperrors.EventNotFound)
}

func TestCreateOutsideWindowLeavesNoState(t *testing.T) {
	f := newFixture(t)
	event := f.seedEvent(t, f.owner, time.Now().Add(10*24*time.Hour))

	_, err := f.svc.Create(f.ctx, event.ID, event.Date.Add(-8*24*time.Hour))
	assert.ErrorIs(t, err, apperrors.InvalidWindow)

	_, err = f.store.FindReminderByEventAndOwner(context.Background(), event.ID, f.owner)
	assert.Error(t, err)
	assert.Zero(t, f.scheduler.GetStatus().Total)
}

func TestCreatePersistenceFailureIsRetryable(t *testing.T) {
	f := newFixture(t)
	event := f.seedEvent(t, f.owner, time.Now().Add(48*time.Hour))
	f.store.FailNext = errors.New("disk full")

	_, err := f.svc.Create(f.ctx, event.ID, event.Date.Add(-time.Hour))
	require.ErrorIs(t, err, apperrors.Internal)
	appErr, _ := apperrors.AsAppError(err)
	assert.True(t, appErr.Retryable())
	assert.Zero(t, f.scheduler.GetStatus().Total)

	// Resubmitting succeeds once the store recovers.
	_, err = f.svc.Create(f.ctx, event.ID, event.Date.Add(-time.Hour))
	assert.NoError(t, err)
}

func TestCreateInvalidatesOwnerListings(t *testing.T) {
	f := newFixture(t)
	event := f.seedEvent(t, f.owner, time.Now().Add(48*time.Hour))
	key := cache.EventListPrefix(f.owner) + "page=1"
	other := cache.EventListPrefix(uuid.New()) + "page=1"
	require.NoError(t, f.cache.Set(context.Background(), key, []byte("[]"), time.Minute))
	require.NoError(t, f.cache.Set(context.Background(), other, []byte("[]"), time.Minute))

	_, err := f.svc.Create(f.ctx, event.ID, event.Date.Add(-time.Hour))
	require.NoError(t, err)

	_, ok, _ := f.cache.Get(context.Background(), key)
	assert.False(t, ok)
	_, ok, _ = f.cache.Get(context.Background(), other)
	assert.True(t, ok)
}

func TestUpdateMovesJobAndResetsStatus(t *testing.T) {
	f := newFixture(t)
	event := f.seedEvent(t, f.owner, time.Now().Add(48*time.Hour))
	reminder, err := f.svc.Create(f.ctx, event.ID, event.Date.Add(-time.Hour))
	require.NoError(t, err)

	at := event.Date.Add(-5 * time.Hour)
	updated, err := f.svc.Update(f.ctx, reminder.ID, at)
	require.NoError(t, err)
	assert.True(t, at.Equal(updated.ReminderTime))

	stored, err := f.store.GetReminderForOwner(context.Background(), reminder.ID, f.owner)
	require.NoError(t, err)
	assert.True(t, at.Equal(stored.ReminderTime))

	job, ok := f.scheduler.Job(reminder.ID)
	require.True(t, ok)
	assert.True(t, at.Equal(job.ReminderTime))
	assert.Equal(t, worker.JobStatusPending, job.Status)
}

func TestUpdateReregistersCollectedJob(t *testing.T) {
	f := newFixture(t)
	event := f.seedEvent(t, f.owner, time.Now().Add(48*time.Hour))
	reminder, err := f.svc.Create(f.ctx, event.ID, event.Date.Add(-time.Hour))
	require.NoError(t, err)
	f.scheduler.CancelReminder(reminder.ID)

	_, err = f.svc.Update(f.ctx, reminder.ID, event.Date.Add(-2*time.Hour))
	require.NoError(t, err)

	_, ok := f.scheduler.Job(reminder.ID)
	assert.True(t, ok)
}

func TestUpdateRejections(t *testing.T) {
	f := newFixture(t)
	event := f.seedEvent(t, f.owner, time.Now().Add(48*time.Hour))
	reminder, err := f.svc.Create(f.ctx, event.ID, event.Date.Add(-time.Hour))
	require.NoError(t, err)

	_, err = f.svc.Update(auth.WithOwner(context.Background(), uuid.New()), reminder.ID, event.Date.Add(-2*time.Hour))
	assert.ErrorIs(t, err, apperrors.ReminderNotFound)

	_, err = f.svc.Update(f.ctx, reminder.ID, event.Date.Add(-time.Minute))
	assert.ErrorIs(t, err, apperrors.InvalidWindow)

	_, err = f.svc.Update(context.Background(), reminder.ID, event.Date.Add(-2*time.Hour))
	assert.ErrorIs(t, err, apperrors.NotAuthenticated)

	job, _ := f.scheduler.Job(reminder.ID)
	assert.True(t, event.Date.Add(-time.Hour).Equal(job.ReminderTime))
}

func TestDeleteCancelsJob(t *testing.T) {
	f := newFixture(t)
	event := f.seedEvent(t, f.owner, time.Now().Add(48*time.Hour))
	reminder, err := f.svc.Create(f.ctx, event.ID, event.Date.Add(-time.Hour))
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(f.ctx, reminder.ID))
	_, ok := f.scheduler.Job(reminder.ID)
	assert.False(t, ok)

	assert.ErrorIs(t, f.svc.Delete(f.ctx, reminder.ID), apperrors.ReminderNotFound)

	// The slot is free again.
	_, err = f.svc.Create(f.ctx, event.ID, event.Date.Add(-time.Hour))
	assert.NoError(t, err)
}

func TestDeleteFailureKeepsJob(t *testing.T) {
	f := newFixture(t)
	event := f.seedEvent(t, f.owner, time.Now().Add(48*time.Hour))
	reminder, err := f.svc.Create(f.ctx, event.ID, event.Date.Add(-time.Hour))
	require.NoError(t, err)
	f.store.FailNext = errors.New("connection reset")

	assert.ErrorIs(t, f.svc.Delete(f.ctx, reminder.ID), apperrors.Internal)
	_, ok := f.scheduler.Job(reminder.ID)
	assert.True(t, ok)
}

func TestGetAndListScopedToOwner(t *testing.T) {
	f := newFixture(t)
	event := f.seedEvent(t, f.owner, time.Now().Add(48*time.Hour))
	reminder, err := f.svc.Create(f.ctx, event.ID, event.Date.Add(-time.Hour))
	require.NoError(t, err)

	got, err := f.svc.Get(f.ctx, reminder.ID)
	require.NoError(t, err)
	assert.Equal(t, reminder.ID, got.ID)

	stranger := auth.WithOwner(context.Background(), uuid.New())
	_, err = f.svc.Get(stranger, reminder.ID)
	assert.ErrorIs(t, err, apperrors.ReminderNotFound)

	list, err := f.svc.ListForEvent(f.ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = f.svc.ListForEvent(stranger, event.ID)
	assert.ErrorIs(t, err, apperrors.EventNotFound)
}
