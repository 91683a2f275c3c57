package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/reminder-api/internal/model"
	"github.com/jwalitptl/reminder-api/internal/repository"
	"github.com/jwalitptl/reminder-api/internal/service/reminder"
	"github.com/jwalitptl/reminder-api/pkg/auth"
	"github.com/jwalitptl/reminder-api/pkg/cache"
	apperrors "github.com/jwalitptl/reminder-api/pkg/errors"
	"github.com/jwalitptl/reminder-api/pkg/logger"
)

const defaultListTTL = 5 * time.Minute

type Service struct {
	store     repository.Store
	reminders *reminder.Service
	cache     cache.Cache
	listTTL   time.Duration
	logger    *logger.Logger
	now       func() time.Time
}

type Option func(*Service)

// WithListCache caches listing pages for ttl.
func WithListCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		if ttl > 0 {
			s.listTTL = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store repository.Store, reminders *reminder.Service, log *logger.Logger, opts ...Option) *Service {
	s := &Service{
		store:     store,
		reminders: reminders,
		listTTL:   defaultListTTL,
		logger:    log.WithFields(map[string]interface{}{"service": "event"}),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	ownerID, ok := auth.OwnerFromContext(ctx)
	if !ok {
		return nil, apperrors.NewNotAuthenticated()
	}
	if !req.Date.After(s.now()) {
		return nil, apperrors.NewBadRequest("event date must be in the future", nil)
	}

	status := req.Status
	if status == "" {
		status = model.EventStatusDraft
	}
	if !status.Valid() {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("invalid event status %q", status), nil)
	}

	event := &model.Event{
		OwnerID: ownerID,
		Title:   req.Title,
		Date:    req.Date,
		Status:  status,
	}
	if err := s.store.CreateEvent(ctx, event); err != nil {
		return nil, apperrors.NewInternal(err)
	}

	s.reminders.InvalidateOwner(ctx, ownerID)
	s.logger.Info("event created", "event_id", event.ID.String(), "date", event.Date)
	return event, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	ownerID, ok := auth.OwnerFromContext(ctx)
	if !ok {
		return nil, apperrors.NewNotAuthenticated()
	}
	event, err := s.store.FindEventForOwner(ctx, id, ownerID)
	if err != nil {
		return nil, lookupError(err)
	}
	return event, nil
}

// List returns one page of the caller's events. Pages are cached per owner
// and filter combination until the owner's data changes.
func (s *Service) List(ctx context.Context, filters model.EventFilters) (*model.EventPage, error) {
	ownerID, ok := auth.OwnerFromContext(ctx)
	if !ok {
		return nil, apperrors.NewNotAuthenticated()
	}
	filters.OwnerID = ownerID
	filters.Pagination = filters.Pagination.Normalize()

	key := listKey(filters, s.reminders.ListingGeneration(ownerID))
	if page, ok := s.cachedPage(ctx, key); ok {
		return page, nil
	}

	events, total, err := s.store.ListEvents(ctx, filters)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}
	page := &model.EventPage{
		Events:     events,
		Page:       filters.Page,
		PageSize:   filters.PageSize,
		TotalCount: total,
		TotalPages: filters.TotalPages(total),
	}
	s.storePage(ctx, key, page)
	return page, nil
}

// Update applies the changed fields. A date change moves or removes the
// event's reminders in the same transaction.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req model.UpdateEventRequest) (*model.Event, error) {
	ownerID, ok := auth.OwnerFromContext(ctx)
	if !ok {
		return nil, apperrors.NewNotAuthenticated()
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("invalid event status %q", *req.Status), nil)
	}
	if req.Date != nil && !req.Date.After(s.now()) {
		return nil, apperrors.NewBadRequest("event date must be in the future", nil)
	}

	var (
		event          *model.Event
		result         *reminder.PropagationResult
		detailsChanged bool
	)
	err := s.reminders.Exclusive(func() error {
		err := s.store.WithTx(ctx, func(q repository.Queries) error {
			ev, err := q.FindEventForOwner(ctx, id, ownerID)
			if err != nil {
				return lookupError(err)
			}
			priorDate := ev.Date

			if req.Title != nil && *req.Title != ev.Title {
				ev.Title = *req.Title
				detailsChanged = true
			}
			if req.Status != nil {
				ev.Status = *req.Status
			}
			dateChanged := req.Date != nil && !req.Date.Equal(priorDate)
			if dateChanged {
				ev.Date = *req.Date
				detailsChanged = true
			}

			if err := q.UpdateEvent(ctx, ev); err != nil {
				return lookupError(err)
			}

			if dateChanged {
				reminders, err := q.ListRemindersByEvent(ctx, ev.ID)
				if err != nil {
					return apperrors.NewInternal(err)
				}
				result, err = s.reminders.PropagateEventDateChange(ctx, q, priorDate, ev.Date, reminders)
				if err != nil {
					return err
				}
			}
			event = ev
			return nil
		})
		if err != nil {
			return err
		}
		if detailsChanged {
			s.reminders.ApplyPropagation(ctx, event, result)
		}
		return nil
	})
	if err != nil {
		return nil, asAppError(err)
	}
	s.reminders.InvalidateOwner(ctx, ownerID)

	s.logger.Info("event updated", "event_id", event.ID.String())
	return event, nil
}

// Delete removes the event together with every reminder on it.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	ownerID, ok := auth.OwnerFromContext(ctx)
	if !ok {
		return apperrors.NewNotAuthenticated()
	}

	var reminders []*model.Reminder
	err := s.reminders.Exclusive(func() error {
		err := s.store.WithTx(ctx, func(q repository.Queries) error {
			ev, err := q.FindEventForOwner(ctx, id, ownerID)
			if err != nil {
				return lookupError(err)
			}
			reminders, err = q.ListRemindersByEvent(ctx, ev.ID)
			if err != nil {
				return apperrors.NewInternal(err)
			}
			if err := q.DeleteEvent(ctx, ev.ID); err != nil {
				return lookupError(err)
			}
			return nil
		})
		if err != nil {
			return err
		}
		s.reminders.CascadeEventDelete(ctx, id, reminders)
		return nil
	})
	if err != nil {
		return asAppError(err)
	}
	s.reminders.InvalidateOwner(ctx, ownerID)

	s.logger.Info("event deleted", "event_id", id.String(), "reminders", len(reminders))
	return nil
}

func listKey(f model.EventFilters, generation uint64) string {
	hasReminder := "any"
	if f.HasReminder != nil {
		hasReminder = fmt.Sprintf("%t", *f.HasReminder)
	}
	return fmt.Sprintf("%sgen=%d:page=%d:size=%d:status=%s:has_reminder=%s",
		cache.EventListPrefix(f.OwnerID), generation, f.Page, f.PageSize, f.Status, hasReminder)
}

func (s *Service) cachedPage(ctx context.Context, key string) (*model.EventPage, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("event list cache read failed", "error", err.Error())
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var page model.EventPage
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, false
	}
	return &page, true
}

func (s *Service) storePage(ctx context.Context, key string, page *model.EventPage) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(page)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.listTTL); err != nil {
		s.logger.Warn("event list cache write failed", "error", err.Error())
	}
}

func lookupError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewEventNotFound(err)
	}
	return apperrors.NewInternal(err)
}

func asAppError(err error) error {
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}
	return apperrors.NewInternal(err)
}
