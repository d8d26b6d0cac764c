package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reminder windows swept before departure.
const (
	ReminderWindow24h = "24h"
	ReminderWindow1h  = "1h"
)

// ReminderLog records that reminders for a (trip, window) pair were sent,
// so repeated sweep runs inside the same window never re-notify.
type ReminderLog struct {
	ID     uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	TripID uuid.UUID `json:"tripID" gorm:"type:uuid;not null;uniqueIndex:idx_trip_window"`
	Window string    `json:"window" gorm:"size:8;not null;uniqueIndex:idx_trip_window"`
	SentAt time.Time `json:"sentAt"`
}

func (r *ReminderLog) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
