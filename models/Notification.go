package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Notification type tags. Every state transition that affects a user who
// did not initiate it produces exactly one notification to that user.
const (
	NotificationTripRequest        = "trip_request"
	NotificationRequestAccepted    = "request_accepted"
	NotificationRequestRejected    = "request_rejected"
	NotificationNewMessage         = "new_message"
	NotificationTripUpdate         = "trip_update"
	NotificationTripCancelled      = "trip_cancelled"
	NotificationTripReminder       = "trip_reminder"
	NotificationParticipantLeft    = "participant_left"
	NotificationParticipantRemoved = "participant_removed"
	NotificationTripCompleted      = "trip_completed"
)

// Notification is an in-app notification record. Only the Read flag is
// ever mutated; rows are deleted solely by explicit user action.
type Notification struct {
	ID     uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	UserID uuid.UUID `json:"userID" gorm:"type:uuid;not null;index"`

	TripID *uuid.UUID `json:"tripID" gorm:"type:uuid;index"`

	Type  string `json:"type" gorm:"size:32;index"`
	Title string `json:"title" gorm:"size:100"`
	Body  string `json:"body" gorm:"size:500"`

	// Deep-link metadata for the mobile client.
	Data datatypes.JSON `json:"data"`

	Read      bool      `json:"read" gorm:"default:false;index"`
	CreatedAt time.Time `json:"createdAt"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
