package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Participant statuses. pending -> accepted | rejected,
// accepted -> left | removed. rejected, left and removed are terminal,
// but a user holding a terminal row may re-request: the same row is reset
// to pending instead of creating a duplicate.
const (
	ParticipantStatusPending  = "pending"
	ParticipantStatusAccepted = "accepted"
	ParticipantStatusRejected = "rejected"
	ParticipantStatusLeft     = "left"
	ParticipantStatusRemoved  = "removed"
)

// TripParticipant is one user's request to occupy seats on a trip.
// At most one row exists per (trip, user) pair.
type TripParticipant struct {
	ID     uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	TripID uuid.UUID `json:"tripID" gorm:"type:uuid;not null;uniqueIndex:idx_trip_user"`
	Trip   *Trip     `json:"trip,omitempty" gorm:"foreignKey:TripID"`

	UserID uuid.UUID `json:"userID" gorm:"type:uuid;not null;uniqueIndex:idx_trip_user"`
	User   User      `json:"user" gorm:"foreignKey:UserID"`

	SeatsRequested int    `json:"seatsRequested" gorm:"not null"`
	Status         string `json:"status" gorm:"size:16;index"`

	// Placeholder until payments ship.
	PaymentStatus string `json:"paymentStatus" gorm:"size:16;default:unpaid"`

	JoinedAt  time.Time `json:"joinedAt"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (p *TripParticipant) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
