package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	MessageTypeText   = "text"
	MessageTypeSystem = "system"
)

// Message is one entry in a trip's group chat. Rows are append-only;
// ReadBy is a set of user ids that only ever grows.
type Message struct {
	ID     uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	TripID uuid.UUID `json:"tripID" gorm:"type:uuid;not null;index"`

	SenderID uuid.UUID `json:"senderID" gorm:"type:uuid;not null;index"`
	Sender   User      `json:"sender" gorm:"foreignKey:SenderID"`

	Content     string `json:"content" gorm:"type:text"`
	MessageType string `json:"messageType" gorm:"size:16;default:text"`

	ReadBy datatypes.JSON `json:"readBy"`

	CreatedAt time.Time `json:"createdAt"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
