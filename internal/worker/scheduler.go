package worker

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"github.com/jwalitptl/reminder-api/pkg/logger"
	"github.com/jwalitptl/reminder-api/pkg/metrics"
)

// SchedulerConfig controls scan cadence and the fixed retry schedule.
type SchedulerConfig struct {
	ScanInterval  time.Duration
	RetryDelay    time.Duration
	SentRetention time.Duration
	SendTimeout   time.Duration
}

func (c SchedulerConfig) withDefaults() SchedulerConfig {
	if c.ScanInterval <= 0 {
		c.ScanInterval = 5 * time.Minute
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 5 * time.Minute
	}
	if c.SentRetention <= 0 {
		c.SentRetention = time.Hour
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 30 * time.Second
	}
	return c
}

type entry struct {
	job Job
	// version changes on every mutation; timers and in-flight deliveries
	// only apply if it still matches what they captured.
	version uint64
	timer   *time.Timer
}

func (e *entry) stopTimer() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

type dueJob struct {
	job     Job
	version uint64
}

// ReminderScheduler owns the job table and fires due reminders.
type ReminderScheduler struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*entry
	seq  uint64

	// scanMu serialises scans; the periodic tick and a manual scan never overlap.
	scanMu sync.Mutex

	notifier Notifier
	config   SchedulerConfig
	logger   *logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time

	cron      *cron.Cron
	running   bool
	runCtx    context.Context
	runCancel context.CancelFunc
	wg        sync.WaitGroup
}

type Option func(*ReminderScheduler)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *ReminderScheduler) { s.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *ReminderScheduler) { s.metrics = m }
}

func NewReminderScheduler(notifier Notifier, config SchedulerConfig, log *logger.Logger, opts ...Option) *ReminderScheduler {
	s := &ReminderScheduler{
		jobs:     make(map[uuid.UUID]*entry),
		notifier: notifier,
		config:   config.withDefaults(),
		logger:   log.WithFields(map[string]interface{}{"component": "reminder_scheduler"}),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ReminderScheduler) nextVersionLocked() uint64 {
	s.seq++
	return s.seq
}

// ScheduleReminder inserts job as pending, replacing any job with the same id.
func (s *ReminderScheduler) ScheduleReminder(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.jobs[job.ID]; ok {
		old.stopTimer()
	}
	job.Status = JobStatusPending
	job.Attempts = 0
	job.LastError = ""
	job.UpdatedAt = s.now()
	s.jobs[job.ID] = &entry{job: job, version: s.nextVersionLocked()}
	s.updateGaugesLocked()

	s.logger.Debug("reminder scheduled",
		"reminder_id", job.ID.String(),
		"reminder_time", job.ReminderTime)
}

// UpdateReminder moves an existing job to reminderTime and makes it pending
// again, discarding any failed state. It reports whether the job existed.
func (s *ReminderScheduler) UpdateReminder(id uuid.UUID, reminderTime time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.jobs[id]
	if !ok {
		return false
	}
	e.stopTimer()
	e.job.ReminderTime = reminderTime
	e.job.Status = JobStatusPending
	e.job.LastError = ""
	e.job.UpdatedAt = s.now()
	e.version = s.nextVersionLocked()
	s.updateGaugesLocked()

	s.logger.Debug("reminder rescheduled",
		"reminder_id", id.String(),
		"reminder_time", reminderTime)
	return true
}

// UpdateEventDetails refreshes the event fields carried by every job of eventID.
func (s *ReminderScheduler) UpdateEventDetails(eventID uuid.UUID, title string, date time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.jobs {
		if e.job.EventID == eventID {
			e.job.EventTitle = title
			e.job.EventDate = date
		}
	}
}

// CancelReminder removes the job. Pending retry or retention timers for it
// become no-ops. It reports whether the job existed.
func (s *ReminderScheduler) CancelReminder(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.jobs[id]
	if !ok {
		return false
	}
	e.stopTimer()
	delete(s.jobs, id)
	s.updateGaugesLocked()

	s.logger.Debug("reminder canceled", "reminder_id", id.String())
	return true
}

// Job returns a copy of the job with id.
func (s *ReminderScheduler) Job(id uuid.UUID) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return e.job, true
}

// Jobs returns a snapshot ordered by reminder time.
func (s *ReminderScheduler) Jobs() []Job {
	s.mu.Lock()
	jobs := make([]Job, 0, len(s.jobs))
	for _, e := range s.jobs {
		jobs = append(jobs, e.job)
	}
	s.mu.Unlock()

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].ReminderTime.Before(jobs[j].ReminderTime)
	})
	return jobs
}

// GetStatus returns aggregate counts and the earliest pending reminder time.
func (s *ReminderScheduler) GetStatus() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{Running: s.running, Total: len(s.jobs)}
	for _, e := range s.jobs {
		switch e.job.Status {
		case JobStatusPending:
			st.Pending++
			if st.NextReminderTime == nil || e.job.ReminderTime.Before(*st.NextReminderTime) {
				t := e.job.ReminderTime
				st.NextReminderTime = &t
			}
		case JobStatusSent:
			st.Sent++
		case JobStatusFailed:
			st.Failed++
		}
	}
	return st
}

// Restore loads every stored reminder into the job table. Reminders whose
// time already passed are picked up by the next scan.
func (s *ReminderScheduler) Restore(ctx context.Context, source ReminderSource) (int, error) {
	rows, err := source.ListRemindersWithEvents(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load reminders: %w", err)
	}
	for _, r := range rows {
		s.ScheduleReminder(Job{
			ID:           r.ID,
			EventID:      r.EventID,
			OwnerID:      r.OwnerID,
			EventTitle:   r.EventTitle,
			EventDate:    r.EventDate,
			ReminderTime: r.ReminderTime,
		})
	}
	s.logger.Info("reminders restored", "count", len(rows))
	return len(rows), nil
}

// Start runs one scan immediately and then every ScanInterval. Calling Start
// on a running scheduler does nothing.
func (s *ReminderScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	spec := fmt.Sprintf("@every %s", s.config.ScanInterval)
	if _, err := c.AddFunc(spec, func() { s.Scan(ctx) }); err != nil {
		cancel()
		return fmt.Errorf("failed to register scan schedule %q: %w", spec, err)
	}

	s.cron = c
	s.runCtx = ctx
	s.runCancel = cancel
	s.running = true
	c.Start()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Scan(ctx)
	}()

	s.logger.Info("reminder scheduler started",
		"scan_interval", s.config.ScanInterval.String(),
		"retry_delay", s.config.RetryDelay.String())
	return nil
}

// Stop halts periodic scanning and waits for a running scan to finish. It is
// safe to call more than once and from a signal handler. Retry and retention
// timers keep running; they only touch the table.
func (s *ReminderScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	c := s.cron
	cancel := s.runCancel
	s.cron = nil
	s.runCancel = nil
	s.running = false
	s.mu.Unlock()

	cancel()
	<-c.Stop().Done()
	s.wg.Wait()

	s.logger.Info("reminder scheduler stopped")
}

// Running reports whether periodic scanning is active.
func (s *ReminderScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Scan delivers every pending job whose reminder time has passed and returns
// how many it attempted. Jobs are delivered one at a time; a failure only
// affects its own job.
func (s *ReminderScheduler) Scan(ctx context.Context) int {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()

	if s.metrics != nil {
		timer := prometheus.NewTimer(s.metrics.SchedulerScanDuration)
		defer timer.ObserveDuration()
	}

	due := s.collectDue(s.now())
	for _, d := range due {
		if ctx.Err() != nil {
			break
		}
		s.deliver(ctx, d)
	}

	if len(due) > 0 {
		s.logger.Debug("scan finished", "due", len(due))
	}
	return len(due)
}

func (s *ReminderScheduler) collectDue(now time.Time) []dueJob {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []dueJob
	for _, e := range s.jobs {
		if e.job.Status == JobStatusPending && !e.job.ReminderTime.After(now) {
			due = append(due, dueJob{job: e.job, version: e.version})
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].job.ReminderTime.Before(due[j].job.ReminderTime)
	})
	return due
}

func (s *ReminderScheduler) deliver(ctx context.Context, d dueJob) {
	sendCtx, cancel := context.WithTimeout(ctx, s.config.SendTimeout)
	err := s.send(sendCtx, d.job)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.jobs[d.job.ID]
	if !ok || e.version != d.version {
		// Canceled or rescheduled while the send was in flight.
		s.logger.Debug("delivery result discarded", "reminder_id", d.job.ID.String())
		return
	}

	if err != nil {
		s.markFailedLocked(e, err)
	} else {
		s.markSentLocked(e)
	}
	s.updateGaugesLocked()
}

func (s *ReminderScheduler) send(ctx context.Context, job Job) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("notifier panic: %v", p)
		}
	}()
	return s.notifier.Send(ctx, job)
}

func (s *ReminderScheduler) markSentLocked(e *entry) {
	e.job.Status = JobStatusSent
	e.job.Attempts++
	e.job.LastError = ""
	e.job.UpdatedAt = s.now()
	e.version = s.nextVersionLocked()

	id, version := e.job.ID, e.version
	e.timer = time.AfterFunc(s.config.SentRetention, func() { s.expire(id, version) })

	if s.metrics != nil {
		s.metrics.SchedulerDeliveries.WithLabelValues("success").Inc()
	}
	s.logger.Info("reminder sent",
		"reminder_id", id.String(),
		"event_id", e.job.EventID.String(),
		"attempts", e.job.Attempts)
}

func (s *ReminderScheduler) markFailedLocked(e *entry, err error) {
	failedAt := s.now()
	retryAt := failedAt.Add(s.config.RetryDelay)

	e.job.Status = JobStatusFailed
	e.job.Attempts++
	e.job.LastError = err.Error()
	e.job.UpdatedAt = failedAt
	e.version = s.nextVersionLocked()

	id, version := e.job.ID, e.version
	e.timer = time.AfterFunc(s.config.RetryDelay, func() { s.requeue(id, version, retryAt) })

	if s.metrics != nil {
		s.metrics.SchedulerDeliveries.WithLabelValues("failure").Inc()
	}
	s.logger.Error(err, "reminder delivery failed",
		"reminder_id", id.String(),
		"attempts", e.job.Attempts,
		"retry_at", retryAt)
}

// requeue returns a failed job to pending at retryAt unless it changed since.
func (s *ReminderScheduler) requeue(id uuid.UUID, version uint64, retryAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.jobs[id]
	if !ok || e.version != version || e.job.Status != JobStatusFailed {
		return
	}
	e.timer = nil
	e.job.Status = JobStatusPending
	e.job.ReminderTime = retryAt
	e.job.UpdatedAt = s.now()
	e.version = s.nextVersionLocked()
	s.updateGaugesLocked()

	if s.metrics != nil {
		s.metrics.SchedulerRetries.Inc()
	}
	s.logger.Debug("failed reminder requeued", "reminder_id", id.String(), "reminder_time", retryAt)
}

// expire drops a sent job once its retention window is over.
func (s *ReminderScheduler) expire(id uuid.UUID, version uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.jobs[id]
	if !ok || e.version != version || e.job.Status != JobStatusSent {
		return
	}
	delete(s.jobs, id)
	s.updateGaugesLocked()
}

func (s *ReminderScheduler) updateGaugesLocked() {
	if s.metrics == nil {
		return
	}
	counts := map[JobStatus]int{JobStatusPending: 0, JobStatusSent: 0, JobStatusFailed: 0}
	for _, e := range s.jobs {
		counts[e.job.Status]++
	}
	for status, n := range counts {
		s.metrics.SchedulerJobs.WithLabelValues(string(status)).Set(float64(n))
	}
}
