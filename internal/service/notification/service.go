package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/reminder-api/internal/worker"
	"github.com/jwalitptl/reminder-api/pkg/logger"
	"github.com/jwalitptl/reminder-api/pkg/messaging"
)

const (
	ChannelReminders = "reminders"

	messageTypeReminderDue = "reminder.due"
)

// ReminderDue is the payload published when a reminder fires.
type ReminderDue struct {
	ReminderID   uuid.UUID `json:"reminder_id"`
	EventID      uuid.UUID `json:"event_id"`
	OwnerID      uuid.UUID `json:"owner_id"`
	EventTitle   string    `json:"event_title"`
	EventDate    time.Time `json:"event_date"`
	ReminderTime time.Time `json:"reminder_time"`
	Attempt      int       `json:"attempt"`
	SentAt       time.Time `json:"sent_at"`
}

func newReminderDue(job worker.Job, now time.Time) ReminderDue {
	return ReminderDue{
		ReminderID:   job.ID,
		EventID:      job.EventID,
		OwnerID:      job.OwnerID,
		EventTitle:   job.EventTitle,
		EventDate:    job.EventDate,
		ReminderTime: job.ReminderTime,
		Attempt:      job.Attempts + 1,
		SentAt:       now,
	}
}

// LogNotifier writes one log line per delivery. It never fails.
type LogNotifier struct {
	logger *logger.Logger
}

func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{logger: log.With("notifier", "log")}
}

func (n *LogNotifier) Send(_ context.Context, job worker.Job) error {
	n.logger.Info("reminder due",
		"reminder_id", job.ID.String(),
		"event_id", job.EventID.String(),
		"owner_id", job.OwnerID.String(),
		"event_title", job.EventTitle,
		"event_date", job.EventDate,
		"reminder_time", job.ReminderTime)
	return nil
}

// BrokerNotifier publishes a ReminderDue message for each delivery.
type BrokerNotifier struct {
	broker  messaging.Broker
	channel string
	now     func() time.Time
}

func NewBrokerNotifier(broker messaging.Broker, channel string) *BrokerNotifier {
	if channel == "" {
		channel = ChannelReminders
	}
	return &BrokerNotifier{broker: broker, channel: channel, now: time.Now}
}

func (n *BrokerNotifier) Send(ctx context.Context, job worker.Job) error {
	msg := messaging.Message{
		ID:      job.ID.String(),
		Type:    messageTypeReminderDue,
		Payload: newReminderDue(job, n.now()),
	}
	if err := n.broker.Publish(ctx, n.channel, msg); err != nil {
		return fmt.Errorf("failed to publish reminder %s: %w", job.ID, err)
	}
	return nil
}
