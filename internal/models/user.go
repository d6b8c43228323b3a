package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a user in the system
type User struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	FirebaseUID     string `gorm:"type:varchar(128);uniqueIndex" json:"-"`
	Nickname        string `gorm:"type:varchar(255)" json:"nickname"`
	Email           string `gorm:"type:varchar(255);index" json:"email"`
	ProfileImageURL string `gorm:"type:text" json:"profile_image_url"`
}
