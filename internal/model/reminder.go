package model

import (
	"time"

	"github.com/google/uuid"
)

type Reminder struct {
	Base
	EventID      uuid.UUID `db:"event_id" json:"event_id"`
	OwnerID      uuid.UUID `db:"owner_id" json:"owner_id"`
	ReminderTime time.Time `db:"reminder_time" json:"reminder_time"`
}

type CreateReminderRequest struct {
	ReminderTime time.Time `json:"reminder_time" binding:"required"`
}

type UpdateReminderRequest struct {
	ReminderTime time.Time `json:"reminder_time" binding:"required"`
}

// ReminderWithEvent joins a reminder to the event fields a delivery needs.
type ReminderWithEvent struct {
	Reminder
	EventTitle string    `db:"event_title" json:"event_title"`
	EventDate  time.Time `db:"event_date" json:"event_date"`
}
