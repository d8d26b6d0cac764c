package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Trip statuses. Transitions are one-way: active -> completed or cancelled.
// in_progress is reserved for a future live-tracking feature and never set.
const (
	TripStatusActive     = "active"
	TripStatusInProgress = "in_progress"
	TripStatusCompleted  = "completed"
	TripStatusCancelled  = "cancelled"
)

const (
	ServiceTypeUber  = "uber"
	ServiceTypeBolt  = "bolt"
	ServiceTypeLyft  = "lyft"
	ServiceTypeOther = "other"
)

// Trip is a shared-ride offer. TotalSeats is fixed at creation;
// AvailableSeats is the live remaining-capacity counter and must always
// equal TotalSeats minus the seats of accepted participants.
type Trip struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	CreatorID uuid.UUID `json:"creatorID" gorm:"type:uuid;not null;index"`
	Creator   User      `json:"creator" gorm:"foreignKey:CreatorID"`

	Title       string `json:"title" gorm:"size:120;not null"`
	Description string `json:"description" gorm:"size:1000"`

	PickupLocation  string  `json:"pickupLocation" gorm:"size:256;not null"`
	PickupLat       float64 `json:"pickupLat"`
	PickupLng       float64 `json:"pickupLng"`
	DropoffLocation string  `json:"dropoffLocation" gorm:"size:256;not null"`
	DropoffLat      float64 `json:"dropoffLat"`
	DropoffLng      float64 `json:"dropoffLng"`

	DepartureTime time.Time `json:"departureTime" gorm:"not null;index"`
	ServiceType   string    `json:"serviceType" gorm:"size:16;index"`

	TotalSeats     int `json:"totalSeats" gorm:"not null"`
	AvailableSeats int `json:"availableSeats" gorm:"not null"`

	EstimatedCost *float64 `json:"estimatedCost"`

	Status string `json:"status" gorm:"size:16;index"`

	Participants []TripParticipant `json:"participants" gorm:"foreignKey:TripID"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (t *Trip) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Terminal reports whether the trip can no longer change state.
func (t *Trip) Terminal() bool {
	return t.Status == TripStatusCompleted || t.Status == TripStatusCancelled
}
