package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Review is left by one trip member about another after the trip
// completes. One review per (trip, reviewer, reviewee) triple.
type Review struct {
	ID     uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	TripID uuid.UUID `json:"tripID" gorm:"type:uuid;not null;uniqueIndex:idx_trip_reviewer_reviewee"`

	ReviewerID uuid.UUID `json:"reviewerID" gorm:"type:uuid;not null;uniqueIndex:idx_trip_reviewer_reviewee"`
	Reviewer   User      `json:"reviewer" gorm:"foreignKey:ReviewerID"`

	RevieweeID uuid.UUID `json:"revieweeID" gorm:"type:uuid;not null;uniqueIndex:idx_trip_reviewer_reviewee;index"`

	Rating  int            `json:"rating" gorm:"not null"`
	Comment string         `json:"comment" gorm:"size:1000"`
	Tags    datatypes.JSON `json:"tags"`

	CreatedAt time.Time `json:"createdAt"`
}

func (r *Review) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
