package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Profile visibility levels.
const (
	VisibilityPublic  = "public"
	VisibilityLimited = "limited"
	VisibilityPrivate = "private"
)

// SystemUserID is the fixed sender of system chat messages
// ("X joined the trip"). Seeded at migration time.
var SystemUserID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// User holds the profile fields the trip lifecycle needs. Registration,
// login and avatar upload are handled by an external auth service that
// writes these rows; this server only reads and updates them.
type User struct {
	ID uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`

	Email       string `json:"email" gorm:"size:256;uniqueIndex"`
	FullName    string `json:"fullName" gorm:"size:120"`
	AvatarURL   string `json:"avatarURL" gorm:"size:512"`
	PhoneNumber string `json:"phoneNumber" gorm:"size:32"`
	Bio         string `json:"bio" gorm:"size:500"`

	Rating     float64 `json:"rating" gorm:"default:0"`
	TotalTrips int     `json:"totalTrips" gorm:"default:0"`

	// Privacy settings.
	ProfileVisibility string `json:"profileVisibility" gorm:"size:16;default:public"`
	ShowEmail         bool   `json:"showEmail" gorm:"default:false"`
	ShowPhone         bool   `json:"showPhone" gorm:"default:false"`
	AllowMessages     bool   `json:"allowMessages" gorm:"default:true"`

	AllowsNotifications *bool          `json:"allowsNotifications" gorm:"default:true"`
	PushTokens          datatypes.JSON `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
