package model

import (
	"time"

	"github.com/google/uuid"
)

type EventStatus string

const (
	EventStatusDraft     EventStatus = "DRAFT"
	EventStatusPublished EventStatus = "PUBLISHED"
	EventStatusCanceled  EventStatus = "CANCELED"
)

func (s EventStatus) Valid() bool {
	switch s {
	case EventStatusDraft, EventStatusPublished, EventStatusCanceled:
		return true
	}
	return false
}

type Event struct {
	Base
	OwnerID uuid.UUID   `db:"owner_id" json:"owner_id"`
	Title   string      `db:"title" json:"title"`
	Date    time.Time   `db:"event_date" json:"date"`
	Status  EventStatus `db:"status" json:"status"`
}

type CreateEventRequest struct {
	Title  string      `json:"title" binding:"required,max=200"`
	Date   time.Time   `json:"date" binding:"required"`
	Status EventStatus `json:"status" binding:"omitempty,oneof=DRAFT PUBLISHED CANCELED"`
}

type UpdateEventRequest struct {
	Title  *string      `json:"title" binding:"omitempty,max=200"`
	Date   *time.Time   `json:"date"`
	Status *EventStatus `json:"status" binding:"omitempty,oneof=DRAFT PUBLISHED CANCELED"`
}

type EventFilters struct {
	OwnerID     uuid.UUID
	Status      EventStatus
	HasReminder *bool
	Pagination
}

type EventPage struct {
	Events     []*Event `json:"events"`
	Page       int      `json:"page"`
	PageSize   int      `json:"page_size"`
	TotalCount int      `json:"total_count"`
	TotalPages int      `json:"total_pages"`
}
